// Package tax serves the FNS tools: declaration generation and lookups against api-fns.ru.
package tax

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/finmcp/finmcp/internal/config"
	"github.com/finmcp/finmcp/internal/core"
	"github.com/finmcp/finmcp/internal/upstream"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const tokenVar = "FNS_API_TOKEN"

// DefaultFreeTools is the free-key allow-list used when FNS_FREE_ALLOWED_TOOLS is empty.
var DefaultFreeTools = []string{
	"search_companies", "autocomplete", "get_company_data", "multinfo_companies",
	"multcheck_companies", "check_counterparty", "track_changes", "monitor_companies",
	"get_extract", "get_accounting_report", "get_accounting_report_file",
	"get_inn_by_passport", "check_passport", "check_passport_info", "check_person_status",
	"get_fsrar_licenses", "get_api_statistics",
	"generate_usn_declaration", "generate_osno_declaration", "generate_nds_declaration",
	"generate_6ndfl_declaration",
}

type Service struct {
	cfg     config.TaxConfig
	lookup  core.LookupFunc
	profile *core.ServiceProfile
	free    *core.Policy
	client  *upstream.Client
	logger  *slog.Logger
}

func New(cfg config.TaxConfig, lookup core.LookupFunc, logger *slog.Logger, httpClient *http.Client) (*Service, error) {
	profile, err := core.LoadProfile("tax")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	allowed := cfg.FreeAllowedTools
	if strings.TrimSpace(allowed) == "" {
		allowed = strings.Join(DefaultFreeTools, ",")
	}
	svc := &Service{
		cfg:     cfg,
		lookup:  lookup,
		profile: profile,
		free:    core.NewPolicy("FNS_FREE_ALLOWED_TOOLS", allowed).WithDeniedMessage("Метод %s недоступен в free режиме FNS ключа"),
		logger:  logger,
		client: upstream.New(upstream.Options{
			Service:    "tax",
			Timeout:    cfg.Timeout,
			HTTPClient: httpClient,
			Logger:     logger,
			StatusMessage: func(status int, _ []byte) string {
				return fmt.Sprintf("API-ФНС вернула ошибку: %d", status)
			},
		}),
	}
	if svc.mode() == core.ModeFree {
		logger.Info("fns free mode", "allowed_tools", svc.free.Allowed())
	}
	return svc, nil
}

// Tools lists the declaration generators followed by the lookups.
func (s *Service) Tools() []core.Tool {
	tools := s.declarationTools()
	for _, l := range lookups {
		tools = append(tools, core.Tool{
			Def: &mcp.Tool{
				Name:        l.tool,
				Description: l.description,
				InputSchema: l.schema(),
			},
			Handler:        s.lookupHandler(l),
			Mode:           s.mode().String(),
			FailureMessage: l.failure,
		})
	}
	return tools
}

// mode never fails: unknown FNS_MODE values fall back to test.
func (s *Service) mode() core.Mode {
	m, err := s.profile.ResolveMode("", s.cfg.Mode)
	if err != nil {
		return core.ModeTest
	}
	return m
}

// gate resolves the mode and applies the free-key allow-list.
func (s *Service) gate(tool string) (core.Mode, error) {
	mode := s.mode()
	if mode == core.ModeFree {
		if err := s.free.CheckTool(tool); err != nil {
			return mode, err
		}
	}
	return mode, nil
}

func (s *Service) token() (string, error) {
	t := strings.TrimSpace(s.lookup(tokenVar))
	if t == "" {
		return "", core.Invalid("Не указан %s", tokenVar)
	}
	return t, nil
}

func (s *Service) lookupHandler(l lookup) core.Handler {
	return func(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
		var args map[string]any
		if err := call.Bind(&args); err != nil {
			return nil, err
		}
		q, err := l.query(args)
		if err != nil {
			return nil, err
		}
		mode, err := s.gate(l.tool)
		if err != nil {
			return nil, err
		}

		call.Reporter.ReportProgress(ctx, 0, 100)
		var res *mcp.CallToolResult
		if l.file != nil {
			res, err = s.fetchFile(ctx, call, l, q, mode)
		} else {
			res, err = s.fetchJSON(ctx, call, l, q, mode)
		}
		if err != nil {
			return nil, err
		}
		call.Reporter.ReportProgress(ctx, 100, 100)
		return res, nil
	}
}

func (s *Service) request(l lookup, q url.Values, token string) upstream.Request {
	withKey := url.Values{}
	for k, v := range q {
		withKey[k] = v
	}
	withKey.Set("key", token)
	return upstream.Request{
		Method:         http.MethodGet,
		URL:            s.cfg.BaseURL + "/" + l.endpoint,
		Query:          withKey,
		FailureMessage: l.failure,
	}
}

func (s *Service) fetchJSON(ctx context.Context, call *core.Call, l lookup, q url.Values, mode core.Mode) (*mcp.CallToolResult, error) {
	var payload map[string]any
	if mode == core.ModeTest {
		call.Reporter.Log(ctx, "Используем тестовую заглушку")
		payload = mockPayload(l.endpoint, q)
	} else {
		token, err := s.token()
		if err != nil {
			return nil, err
		}
		call.Reporter.Log(ctx, "Отправка запроса в API-ФНС")
		if err := s.client.JSON(ctx, l.endpoint, s.request(l, q, token), &payload); err != nil {
			return nil, err
		}
	}

	text, meta := l.format(payload, q)
	meta["mode"] = mode.String()
	return core.NewResult(text, payload, meta), nil
}

func (s *Service) fetchFile(ctx context.Context, call *core.Call, l lookup, q url.Values, mode core.Mode) (*mcp.CallToolResult, error) {
	fileType := l.file.fileType(q)
	var data []byte
	size := "тестовый файл"
	if mode == core.ModeTest {
		call.Reporter.Log(ctx, "Используем тестовую заглушку")
		data = mockFile(fileType)
	} else {
		token, err := s.token()
		if err != nil {
			return nil, err
		}
		call.Reporter.Log(ctx, "Отправка запроса в API-ФНС")
		req := s.request(l, q, token)
		req.Timeout = s.cfg.FileTimeout
		if data, err = s.client.Do(ctx, l.endpoint, req); err != nil {
			return nil, err
		}
		size = fmt.Sprintf("%d байт", len(data))
	}

	structured := map[string]any{
		"file_base64": base64.StdEncoding.EncodeToString(data),
		"file_type":   fileType,
		"size_bytes":  len(data),
	}
	meta := map[string]any{"mode": mode.String()}
	for _, p := range l.params {
		if v := q.Get(p.name); v != "" {
			structured[p.name] = v
		}
	}
	for _, name := range l.file.meta {
		meta[name] = q.Get(name)
	}
	return core.NewResult(l.file.header(q)+"\nРазмер: "+size, structured, meta), nil
}
