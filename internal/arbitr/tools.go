package arbitr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/finmcp/finmcp/internal/config"
	"github.com/finmcp/finmcp/internal/core"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolSearch          = "arbitr_search_cases"
	ToolDetailsByNumber = "arbitr_details_by_number"
	ToolDetailsByID     = "arbitr_details_by_id"
	ToolDownloadPDF     = "arbitr_download_pdf"
)

const (
	failSearch   = "Failed to search cases"
	failByNumber = "Failed to fetch case by number"
	failByID     = "Failed to fetch case by id"
	failPDF      = "Failed to download PDF"
)

type Service struct {
	cfg     config.ArbitrConfig
	profile *core.ServiceProfile
	client  *Client
	logger  *slog.Logger
}

func New(cfg config.ArbitrConfig, lookup core.LookupFunc, logger *slog.Logger, httpClient *http.Client) (*Service, error) {
	profile, err := core.LoadProfile("arbitr")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		profile: profile,
		client:  NewClient(cfg, lookup, logger, httpClient),
		logger:  logger,
	}, nil
}

// mode falls back to test for anything but prod.
func (s *Service) mode() core.Mode {
	m, err := s.profile.ResolveMode("", s.cfg.Mode)
	if err != nil {
		return core.ModeTest
	}
	return m
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func (s *Service) Tools() []core.Tool {
	mode := s.mode().String()
	return []core.Tool{
		{
			Def: &mcp.Tool{
				Name:        ToolSearch,
				Description: "Поиск арбитражных дел на kad.arbitr.ru: фильтры по ИНН или названию, роли, датам, суду и типу дела",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"page":     {Type: "integer", Description: "Номер страницы, начиная с 1"},
						"Inn":      str("ИНН или наименование участника процесса"),
						"InnType":  {Type: "string", Description: "Роль участника", Enum: []any{"Any", "Plaintiff", "Respondent", "Third", "Other"}},
						"DateFrom": str("Дата начала поиска, YYYY-MM-DD"),
						"DateTo":   str("Дата окончания поиска, YYYY-MM-DD"),
						"Court":    str("Наименование суда как на kad.arbitr.ru"),
						"CaseType": str("Тип дела: A, B, G"),
					},
				},
			},
			Handler:        s.searchCases,
			Mode:           mode,
			FailureMessage: failSearch,
		},
		{
			Def: &mcp.Tool{
				Name:        ToolDetailsByNumber,
				Description: "Карточка арбитражного дела по номеру",
				InputSchema: &jsonschema.Schema{
					Type:       "object",
					Properties: map[string]*jsonschema.Schema{"CaseNumber": str("Номер дела, например А71-1202/2015")},
					Required:   []string{"CaseNumber"},
				},
			},
			Handler:        s.detailsByNumber,
			Mode:           mode,
			FailureMessage: failByNumber,
		},
		{
			Def: &mcp.Tool{
				Name:        ToolDetailsByID,
				Description: "Карточка арбитражного дела по UUID",
				InputSchema: &jsonschema.Schema{
					Type:       "object",
					Properties: map[string]*jsonschema.Schema{"CaseId": str("UUID дела")},
					Required:   []string{"CaseId"},
				},
			},
			Handler:        s.detailsByID,
			Mode:           mode,
			FailureMessage: failByID,
		},
		{
			Def: &mcp.Tool{
				Name:        ToolDownloadPDF,
				Description: "Скачать PDF судебного документа по ссылке kad.arbitr.ru (base64)",
				InputSchema: &jsonschema.Schema{
					Type:       "object",
					Properties: map[string]*jsonschema.Schema{"url": str("Полный URL PDF файла на kad.arbitr.ru")},
					Required:   []string{"url"},
				},
			},
			Handler:        s.downloadPDF,
			Mode:           mode,
			FailureMessage: failPDF,
		},
	}
}

func firstCase(data map[string]any) (map[string]any, int) {
	cases, _ := data["Cases"].([]any)
	if len(cases) == 0 {
		return nil, 0
	}
	c, _ := cases[0].(map[string]any)
	return c, len(cases)
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func (s *Service) searchCases(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var p SearchParams
	if err := call.Bind(&p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.InnType) == "" {
		p.InnType = "Any"
	}
	mode := s.mode()
	call.Reporter.Log(ctx, "Запуск поиска дел")
	call.Reporter.ReportProgress(ctx, 5, 100)

	data := stubSearch()
	if mode != core.ModeTest {
		var err error
		if data, err = s.client.SearchCases(ctx, p); err != nil {
			return nil, err
		}
	}

	cases, _ := data["Cases"].([]any)
	pages := data["PagesCount"]
	lines := []string{fmt.Sprintf("Найдено дел: %d", len(cases))}
	if n, ok := pages.(float64); ok && n != 0 {
		lines = append(lines, fmt.Sprintf("Всего страниц: %v", n))
	}
	for _, raw := range cases[:min(len(cases), 5)] {
		c, _ := raw.(map[string]any)
		lines = append(lines, fmt.Sprintf("№ %s — %s (%s)", text(c["CaseNumber"]), text(c["Court"]), text(c["CaseType"])))
	}

	call.Reporter.ReportProgress(ctx, 100, 100)
	return core.NewResult(strings.Join(lines, "\n"), data, map[string]any{
		"mode":     mode.String(),
		"pages":    pages,
		"returned": len(cases),
	}), nil
}

type byNumberArgs struct {
	CaseNumber string `json:"CaseNumber"`
}

func (s *Service) detailsByNumber(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var a byNumberArgs
	if err := call.Bind(&a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.CaseNumber) == "" {
		return nil, core.Invalid("Не указан номер дела")
	}
	mode := s.mode()
	call.Reporter.Log(ctx, "Запрос деталей по делу "+a.CaseNumber)
	call.Reporter.ReportProgress(ctx, 5, 100)

	data := stubDetails()
	if mode != core.ModeTest {
		var err error
		if data, err = s.client.DetailsByNumber(ctx, a.CaseNumber); err != nil {
			return nil, err
		}
	}

	title, status, instances := a.CaseNumber, "—", 0
	if c, n := firstCase(data); n > 0 {
		title, status = text(c["CaseNumber"]), text(c["State"])
		list, _ := c["CaseInstances"].([]any)
		instances = len(list)
	}

	call.Reporter.ReportProgress(ctx, 100, 100)
	return core.NewResult(fmt.Sprintf("Дело %s\nСтатус: %s\nИнстанций: %d", title, status, instances), data,
		map[string]any{"mode": mode.String(), "case_number": a.CaseNumber}), nil
}

type byIDArgs struct {
	CaseID string `json:"CaseId"`
}

func (s *Service) detailsByID(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var a byIDArgs
	if err := call.Bind(&a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.CaseID) == "" {
		return nil, core.Invalid("Не указан ID дела")
	}
	mode := s.mode()
	call.Reporter.Log(ctx, "Запрос деталей по ID дела "+a.CaseID)
	call.Reporter.ReportProgress(ctx, 5, 100)

	data := stubDetails()
	if mode != core.ModeTest {
		var err error
		if data, err = s.client.DetailsByID(ctx, a.CaseID); err != nil {
			return nil, err
		}
	}

	title, status := a.CaseID, "—"
	if c, n := firstCase(data); n > 0 {
		title, status = text(c["CaseNumber"]), text(c["State"])
	}

	call.Reporter.ReportProgress(ctx, 100, 100)
	return core.NewResult(fmt.Sprintf("Дело %s\nСтатус: %s\nID: %s", title, status, a.CaseID), data,
		map[string]any{"mode": mode.String(), "case_id": a.CaseID}), nil
}

type pdfArgs struct {
	URL string `json:"url"`
}

func (s *Service) downloadPDF(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var a pdfArgs
	if err := call.Bind(&a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.URL) == "" {
		return nil, core.Invalid("Не указан url")
	}
	mode := s.mode()
	call.Reporter.Log(ctx, "Скачивание PDF документа")
	call.Reporter.ReportProgress(ctx, 5, 100)

	data := stubPDF()
	if mode != core.ModeTest {
		var err error
		if data, err = s.client.DownloadPDF(ctx, a.URL); err != nil {
			return nil, err
		}
	}

	content, _ := data["pdfContent"].(string)
	msg := "PDF не найден"
	if content != "" {
		msg = fmt.Sprintf("Получен PDF (base64), длина: %d символов", len(content))
	}

	call.Reporter.ReportProgress(ctx, 100, 100)
	return core.NewResult(msg, data, map[string]any{
		"mode":    mode.String(),
		"has_pdf": content != "",
		"length":  len(content),
	}), nil
}
