// Package arbitr serves arbitration-court case search backed by the api-assist.com
// kad.arbitr.ru parser.
package arbitr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/finmcp/finmcp/internal/config"
	"github.com/finmcp/finmcp/internal/core"
	"github.com/finmcp/finmcp/internal/upstream"
)

const keyVar = "ARBITR_API_KEY"

const (
	pathSearch          = "search"
	pathDetailsByNumber = "details_by_number"
	pathDetailsByID     = "details_by_id"
	pathPDFDownload     = "pdf_download"
)

// apiError is the error body of api-assist responses.
type apiError struct {
	Error     string `json:"error"`
	ErrorCode any    `json:"error_code"`
}

// statusMessage prefers the provider message. 400 and 403 always carry one.
func statusMessage(status int, body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	if status == http.StatusBadRequest || status == http.StatusForbidden {
		return "Request validation or auth error"
	}
	return fmt.Sprintf("HTTP %d", status)
}

// Client wraps the four api-assist endpoints.
type Client struct {
	baseURL string
	lookup  core.LookupFunc
	http    *upstream.Client
}

func NewClient(cfg config.ArbitrConfig, lookup core.LookupFunc, logger *slog.Logger, httpClient *http.Client) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		lookup:  lookup,
		http: upstream.New(upstream.Options{
			Service:       "arbitr",
			Timeout:       cfg.Timeout,
			HTTPClient:    httpClient,
			Logger:        logger,
			StatusMessage: statusMessage,
		}),
	}
}

// get reads the key on every call, drops empty params and checks the Success flag.
func (c *Client) get(ctx context.Context, path string, params map[string]string, failure string) (map[string]any, error) {
	creds, err := core.RequireCredentials(c.lookup, keyVar)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("key", creds[keyVar])
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}

	var data map[string]any
	err = c.http.JSON(ctx, path, upstream.Request{
		Method:         http.MethodGet,
		URL:            c.baseURL + "/" + path,
		Query:          q,
		FailureMessage: failure,
	}, &data)
	if err != nil {
		return nil, err
	}
	if flag, _ := data["Success"].(float64); flag == 1 {
		return data, nil
	}
	if msg, ok := data["error"]; ok {
		text, _ := msg.(string)
		if text == "" {
			text = "Unknown API error"
		}
		return nil, &core.UpstreamError{Operation: path, Message: text}
	}
	return nil, &core.UpstreamError{Operation: path, Message: "Unexpected API response format"}
}

// SearchParams are the optional filters of the search endpoint.
type SearchParams struct {
	Page     int    `json:"page"`
	Inn      string `json:"Inn"`
	InnType  string `json:"InnType"`
	DateFrom string `json:"DateFrom"`
	DateTo   string `json:"DateTo"`
	Court    string `json:"Court"`
	CaseType string `json:"CaseType"`
}

func (p SearchParams) values() map[string]string {
	v := map[string]string{
		"Inn":      p.Inn,
		"InnType":  p.InnType,
		"DateFrom": p.DateFrom,
		"DateTo":   p.DateTo,
		"Court":    p.Court,
		"CaseType": p.CaseType,
	}
	if p.Page > 0 {
		v["page"] = fmt.Sprint(p.Page)
	}
	return v
}

func (c *Client) SearchCases(ctx context.Context, p SearchParams) (map[string]any, error) {
	return c.get(ctx, pathSearch, p.values(), failSearch)
}

func (c *Client) DetailsByNumber(ctx context.Context, caseNumber string) (map[string]any, error) {
	return c.get(ctx, pathDetailsByNumber, map[string]string{"CaseNumber": caseNumber}, failByNumber)
}

func (c *Client) DetailsByID(ctx context.Context, caseID string) (map[string]any, error) {
	return c.get(ctx, pathDetailsByID, map[string]string{"CaseId": caseID}, failByID)
}

func (c *Client) DownloadPDF(ctx context.Context, pdfURL string) (map[string]any, error) {
	return c.get(ctx, pathPDFDownload, map[string]string{"url": pdfURL}, failPDF)
}
