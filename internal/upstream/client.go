// Package upstream issues single-attempt HTTP calls to the external APIs behind each adapter.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/finmcp/finmcp/internal/core"
	"github.com/finmcp/finmcp/internal/telemetry"
	"github.com/oklog/ulid/v2"
)

const maxBodyBytes = 32 << 20

// StatusMessageFunc turns a non-2xx response into the caller-visible message.
type StatusMessageFunc func(status int, body []byte) string

type Options struct {
	// Service labels metrics and logs: bank, tax, arbitr, netinfo.
	Service string
	Timeout time.Duration
	// HTTPClient is replaced in tests; its own Timeout is left alone.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// StatusMessage defaults to "HTTP <status>".
	StatusMessage StatusMessageFunc
	// FailureMessage is used for transport and decode failures when the request has none.
	FailureMessage string
}

// Request describes one outbound call. It is not modified by the client.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Timeout overrides the client default for slow endpoints.
	Timeout        time.Duration
	FailureMessage string
}

type Client struct {
	service        string
	timeout        time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
	statusMessage  StatusMessageFunc
	failureMessage string
	maxBody        int64
}

func New(opts Options) *Client {
	c := &Client{
		service:        opts.Service,
		timeout:        opts.Timeout,
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
		statusMessage:  opts.StatusMessage,
		failureMessage: opts.FailureMessage,
		maxBody:        maxBodyBytes,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.statusMessage == nil {
		c.statusMessage = func(status int, _ []byte) string { return fmt.Sprintf("HTTP %d", status) }
	}
	if c.failureMessage == "" {
		c.failureMessage = "upstream request failed"
	}
	return c
}

// Do sends req once and returns the response body of a 2xx answer.
// Every failure is a *core.UpstreamError or *core.InternalError.
func (c *Client) Do(ctx context.Context, op string, req Request) ([]byte, error) {
	failure := req.FailureMessage
	if failure == "" {
		failure = c.failureMessage
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &core.InternalError{Message: failure, Cause: fmt.Errorf("parse url: %w", err)}
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &core.InternalError{Message: failure, Cause: fmt.Errorf("marshal body: %w", err)}
		}
		bodyReader = bytes.NewReader(b)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, &core.InternalError{Message: failure, Cause: err}
	}
	requestID := ulid.Make().String()
	httpReq.Header.Set("X-Request-Id", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		telemetry.IncUpstreamError(c.service, op, 0)
		c.logger.WarnContext(ctx, "upstream transport failure",
			"service", c.service, "operation", op, "request_id", requestID, "host", u.Host,
			"duration", time.Since(start), "error", err.Error())
		return nil, &core.UpstreamError{Operation: op, Message: failure}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		telemetry.IncUpstreamError(c.service, op, resp.StatusCode)
		c.logger.WarnContext(ctx, "upstream read failure",
			"service", c.service, "operation", op, "request_id", requestID, "error", err.Error())
		return nil, &core.UpstreamError{Operation: op, StatusCode: resp.StatusCode, Message: failure}
	}

	if int64(len(body)) > c.maxBody {
		telemetry.IncUpstreamError(c.service, op, resp.StatusCode)
		c.logger.WarnContext(ctx, "upstream body exceeds limit",
			"service", c.service, "operation", op, "request_id", requestID, "limit_bytes", c.maxBody)
		return nil, &core.UpstreamError{Operation: op, StatusCode: resp.StatusCode, Message: failure}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		telemetry.IncUpstreamError(c.service, op, resp.StatusCode)
		c.logger.WarnContext(ctx, "upstream returned error status",
			"service", c.service, "operation", op, "request_id", requestID, "host", u.Host,
			"status_code", resp.StatusCode, "duration", time.Since(start), "body", truncate(body, 512))
		return nil, &core.UpstreamError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    c.statusMessage(resp.StatusCode, body),
			Body:       truncate(body, 2048),
		}
	}

	c.logger.DebugContext(ctx, "upstream request completed",
		"service", c.service, "operation", op, "request_id", requestID, "host", u.Host,
		"status_code", resp.StatusCode, "duration", time.Since(start), "bytes", len(body))
	return body, nil
}

// JSON sends req and decodes a 2xx body into out. A body that is not valid JSON is an
// UpstreamError carrying the generic failure message.
func (c *Client) JSON(ctx context.Context, op string, req Request, out any) error {
	body, err := c.Do(ctx, op, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		failure := req.FailureMessage
		if failure == "" {
			failure = c.failureMessage
		}
		telemetry.IncUpstreamError(c.service, op, http.StatusOK)
		c.logger.WarnContext(ctx, "upstream returned malformed json",
			"service", c.service, "operation", op, "error", err.Error(), "body", truncate(body, 256))
		return &core.UpstreamError{Operation: op, StatusCode: 0, Message: failure, Body: truncate(body, 2048)}
	}
	return nil
}

// IsTransport reports whether err is a failure without an HTTP status.
func IsTransport(err error) bool {
	var ue *core.UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
