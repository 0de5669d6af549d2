// Package bank serves get_bank_statement for T-Bank, Modulbank and Alfa-Bank.
package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finmcp/finmcp/internal/config"
	"github.com/finmcp/finmcp/internal/core"
	"github.com/finmcp/finmcp/internal/upstream"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ToolName = "get_bank_statement"

const (
	ProviderTBank     = "tbank"
	ProviderModulbank = "modulbank"
	ProviderAlfa      = "alfa"
)

const (
	failureMessage     = "Не удалось получить выписку"
	defaultTestAccount = "test-account-001"
	dateLayout         = "2006-01-02"
)

// Fields searched for the operation list, in order.
var operationFields = []string{"operations", "transactions", "items"}

// The T-Bank statement endpoint only ever uses "operations".
var tbankOperationFields = []string{"operations"}

// Prod token variable per provider.
var tokenVars = map[string]string{
	ProviderTBank:     "T_BANK_TOKEN",
	ProviderModulbank: "MODULBANK_TOKEN",
	ProviderAlfa:      "ALFA_TOKEN",
}

// Sandbox credentials fall back to the public demo values.
var sandboxDefaults = map[string]string{
	"T_BANK_SANDBOX_TOKEN":            "TBankSandboxToken",
	"MODULBANK_SANDBOX_TOKEN":         "sandboxtoken",
	"MODULBANK_SANDBOX_CLIENT_ID":     "sandboxapp",
	"MODULBANK_SANDBOX_CLIENT_SECRET": "sandboxappsecret",
}

type Service struct {
	cfg     config.BankConfig
	lookup  core.LookupFunc
	profile *core.ServiceProfile
	client  *upstream.Client
	logger  *slog.Logger
}

// New builds the bank adapter. httpClient may be nil.
func New(cfg config.BankConfig, lookup core.LookupFunc, logger *slog.Logger, httpClient *http.Client) (*Service, error) {
	profile, err := core.LoadProfile("bank")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		lookup:  lookup,
		profile: profile,
		logger:  logger,
		client: upstream.New(upstream.Options{
			Service:        "bank",
			Timeout:        cfg.Timeout,
			HTTPClient:     httpClient,
			Logger:         logger,
			FailureMessage: failureMessage,
			StatusMessage: func(status int, _ []byte) string {
				return fmt.Sprintf("Банк вернул ошибку %d", status)
			},
		}),
	}, nil
}

func (s *Service) Tools() []core.Tool {
	return []core.Tool{{
		Def: &mcp.Tool{
			Name:        ToolName,
			Description: "Получить банковскую выписку за период (T-Bank, Модульбанк, Альфа-Банк)",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"from_date":     {Type: "string", Description: "Начало периода, YYYY-MM-DD"},
					"to_date":       {Type: "string", Description: "Конец периода, YYYY-MM-DD"},
					"account_id":    {Type: "string", Description: "Номер счёта"},
					"bank_provider": {Type: "string", Description: "tbank | modulbank | alfa; по умолчанию BANK_PROVIDER"},
				},
				Required: []string{"from_date", "to_date"},
			},
		},
		Handler:        s.Statement,
		Mode:           s.cfg.Mode,
		FailureMessage: failureMessage,
	}}
}

type statementArgs struct {
	FromDate     string `json:"from_date"`
	ToDate       string `json:"to_date"`
	AccountID    string `json:"account_id"`
	BankProvider string `json:"bank_provider"`
}

// Period is the inclusive date range of a statement.
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Statement is the structured payload of every get_bank_statement result.
type Statement struct {
	Bank        string `json:"bank"`
	Period      Period `json:"period"`
	AccountID   string `json:"accountId,omitempty"`
	Operations  any    `json:"operations"`
	GeneratedAt string `json:"generatedAt,omitempty"`
	Mode        string `json:"mode"`
	DateRange   string `json:"dateRange"`
}

// Statement resolves provider and mode, then returns mock data or calls the bank.
func (s *Service) Statement(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var args statementArgs
	if err := call.Bind(&args); err != nil {
		return nil, err
	}
	from, to, err := validatePeriod(args.FromDate, args.ToDate)
	if err != nil {
		return nil, err
	}
	provider, err := resolveProvider(args.BankProvider, s.cfg.Provider)
	if err != nil {
		return nil, err
	}
	mode, err := s.profile.ResolveMode("", s.cfg.Mode)
	if err != nil {
		return nil, err
	}
	account := strings.TrimSpace(args.AccountID)

	switch {
	case mode == core.ModeTest:
		return mockResult(provider, from, to, account, core.ModeTest), nil
	case mode == core.ModeSandbox && provider == ProviderTBank:
		return s.tbankSandbox(ctx, call, from, to, account)
	case mode == core.ModeSandbox && provider == ProviderModulbank:
		return s.modulbankSandbox(ctx, call, from, to, account)
	case mode == core.ModeSandbox:
		// Alfa has no sandbox.
		return mockResult(provider, from, to, account, core.ModeSandbox), nil
	default:
		return s.prod(ctx, call, provider, from, to, account)
	}
}

func validatePeriod(from, to string) (string, string, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return "", "", core.Invalid("Неверный формат from_date: %q, ожидается YYYY-MM-DD", from)
	}
	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return "", "", core.Invalid("Неверный формат to_date: %q, ожидается YYYY-MM-DD", to)
	}
	if f.After(t) {
		return "", "", core.Invalid("from_date (%s) позже to_date (%s)", from, to)
	}
	return from, to, nil
}

func resolveProvider(override, envValue string) (string, error) {
	switch p := core.ResolveValue(override, envValue, ""); p {
	case ProviderTBank, ProviderModulbank, ProviderAlfa:
		return p, nil
	default:
		return "", core.Invalid("Укажите BANK_PROVIDER: tbank|modulbank|alfa")
	}
}

func (s *Service) tbankSandbox(ctx context.Context, call *core.Call, from, to, account string) (*mcp.CallToolResult, error) {
	if account == "" {
		return nil, core.Invalid("Для T-Bank sandbox нужно указать account_id (accountNumber)")
	}
	call.Reporter.Log(ctx, "Запрос выписки T-Bank sandbox")

	var payload any
	err := s.client.JSON(ctx, "tbank sandbox statement", upstream.Request{
		Method: http.MethodGet,
		URL:    s.cfg.TBankSandboxURL,
		Header: map[string]string{"Authorization": "Bearer " + s.sandboxValue("T_BANK_SANDBOX_TOKEN")},
		Query: url.Values{
			"accountNumber": {account},
			"from":          {from + "T00:00:00.000Z"},
			"to":            {to + "T23:59:59.999Z"},
		},
	}, &payload)
	if err != nil {
		return nil, err
	}

	ops := extractOperations(payload, tbankOperationFields)
	st := Statement{
		Bank:       ProviderTBank,
		Period:     Period{From: from, To: to},
		AccountID:  account,
		Operations: ops,
		Mode:       core.ModeSandbox.String(),
		DateRange:  from + ".." + to,
	}
	return core.NewResult(FormatTBankStatement(from, to, account, ops), st, map[string]any{
		"mode":             core.ModeSandbox.String(),
		"total_operations": len(ops),
		"bank":             ProviderTBank,
	}), nil
}

func (s *Service) modulbankSandbox(ctx context.Context, call *core.Call, from, to, account string) (*mcp.CallToolResult, error) {
	if account == "" {
		return nil, core.Invalid("Для Модульбанка нужно указать account_id")
	}
	call.Reporter.Log(ctx, "Запрос выписки Модульбанк sandbox")

	token := s.sandboxValue("MODULBANK_SANDBOX_TOKEN")
	var payload any
	err := s.client.JSON(ctx, "modulbank sandbox operation-history", upstream.Request{
		Method: http.MethodPost,
		URL:    s.cfg.ModulbankBaseURL + "/operation-history/" + url.PathEscape(account),
		Header: map[string]string{
			"Authorization": "Bearer " + token,
			"sandbox":       "on",
			"clientId":      s.sandboxValue("MODULBANK_SANDBOX_CLIENT_ID"),
			"clientSecret":  s.sandboxValue("MODULBANK_SANDBOX_CLIENT_SECRET"),
			"token":         token,
		},
		Body: map[string]int{"records": 50, "skip": 0},
	}, &payload)
	if err != nil {
		return nil, err
	}
	return upstreamResult(ProviderModulbank, core.ModeSandbox, from, to, account, extractOperations(payload, operationFields)), nil
}

func (s *Service) prod(ctx context.Context, call *core.Call, provider, from, to, account string) (*mcp.CallToolResult, error) {
	tokenVar := tokenVars[provider]
	creds, err := core.RequireCredentials(s.lookup, tokenVar)
	if err != nil {
		return nil, err
	}
	token := creds[tokenVar]
	call.Reporter.Log(ctx, "Запрос выписки "+strings.ToUpper(provider))

	req := upstream.Request{Method: http.MethodGet}
	switch provider {
	case ProviderModulbank:
		if account == "" {
			return nil, core.Invalid("Для Модульбанка нужно указать account_id")
		}
		req.Method = http.MethodPost
		req.URL = s.cfg.ModulbankBaseURL + "/operation-history/" + url.PathEscape(account)
		req.Header = map[string]string{"Authorization": "Bearer " + token}
		req.Body = map[string]string{"from": from + "T00:00:00", "till": to + "T23:59:59"}
	case ProviderAlfa:
		req.URL = s.cfg.AlfaBaseURL
		req.Header = map[string]string{"X-API-Key": token}
		req.Query = periodQuery(from, to, account)
	default:
		req.URL = s.cfg.TBankBaseURL
		req.Header = map[string]string{"Authorization": "Bearer " + token}
		req.Query = periodQuery(from, to, account)
	}

	var payload any
	if err := s.client.JSON(ctx, provider+" statement", req, &payload); err != nil {
		return nil, err
	}
	return upstreamResult(provider, core.ModeProd, from, to, account, extractOperations(payload, operationFields)), nil
}

func periodQuery(from, to, account string) url.Values {
	q := url.Values{"from": {from}, "to": {to}}
	if account != "" {
		q.Set("accountId", account)
	}
	return q
}

func (s *Service) sandboxValue(name string) string {
	if v := strings.TrimSpace(s.lookup(name)); v != "" {
		return v
	}
	return sandboxDefaults[name]
}

func upstreamResult(provider string, mode core.Mode, from, to, account string, ops []any) *mcp.CallToolResult {
	st := Statement{
		Bank:       provider,
		Period:     Period{From: from, To: to},
		AccountID:  account,
		Operations: ops,
		Mode:       mode.String(),
		DateRange:  from + ".." + to,
	}
	text := fmt.Sprintf("Выписка из %s за %s–%s\nОпераций: %d", strings.ToUpper(provider), from, to, len(ops))
	return core.NewResult(text, st, map[string]any{
		"mode":             mode.String(),
		"total_operations": len(ops),
		"bank":             provider,
	})
}

// extractOperations returns payload itself when it is a list, otherwise the first non-empty
// list found under fields. A payload without operations yields an empty list.
func extractOperations(payload any, fields []string) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		for _, f := range fields {
			if list, ok := v[f].([]any); ok && len(list) > 0 {
				return list
			}
		}
	}
	return []any{}
}

// decodeNumber accepts JSON numbers and numeric strings.
func decodeNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
