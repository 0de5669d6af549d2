package tax

import (
	"context"
	"fmt"

	"github.com/finmcp/finmcp/internal/core"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	declarationFailure = "Не удалось сгенерировать декларацию"
	formFailure        = "Не удалось сгенерировать форму"
)

func money(v float64) string {
	return core.FormatMoney(v) + " ₽"
}

func declarationSchema(required []string, amounts map[string]string, extra map[string]*jsonschema.Schema) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"inn":    {Type: "string", Description: "ИНН налогоплательщика (10 или 12 цифр)"},
		"period": {Type: "string", Description: "Период: Q1-Q4 или YEAR", Enum: []any{"Q1", "Q2", "Q3", "Q4", "YEAR"}},
		"year":   {Type: "integer", Description: "Год, например 2025"},
	}
	for name, desc := range amounts {
		props[name] = &jsonschema.Schema{Type: "number", Description: desc}
	}
	for name, sch := range extra {
		props[name] = sch
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"inn", "period", "year"}, required...),
	}
}

func (s *Service) declarationTools() []core.Tool {
	mode := s.mode().String()
	return []core.Tool{
		{
			Def: &mcp.Tool{
				Name:        "generate_usn_declaration",
				Description: "Сформировать декларацию УСН (КНД 1152017) в XML по формату ФНС",
				InputSchema: declarationSchema([]string{"income"},
					map[string]string{"income": "Доходы за период, руб.", "expenses": "Расходы за период, руб."},
					map[string]*jsonschema.Schema{"tax_rate": {Type: "integer", Description: "Ставка: 6 или 15", Enum: []any{6, 15}}}),
			},
			Handler:        s.generateUSN,
			Mode:           mode,
			FailureMessage: declarationFailure,
		},
		{
			Def: &mcp.Tool{
				Name:        "generate_osno_declaration",
				Description: "Сформировать декларацию по налогу на прибыль (КНД 1151001) в XML",
				InputSchema: declarationSchema([]string{"income", "profit"}, map[string]string{
					"income":   "Доходы за период, руб.",
					"expenses": "Расходы за период, руб.",
					"profit":   "Прибыль за период, руб.",
					"loss":     "Убыток за период, руб.",
					"nds":      "НДС к уплате, руб.",
				}, nil),
			},
			Handler:        s.generateOSNO,
			Mode:           mode,
			FailureMessage: declarationFailure,
		},
		{
			Def: &mcp.Tool{
				Name:        "generate_nds_declaration",
				Description: "Сформировать декларацию по НДС (КНД 1151001) в XML",
				InputSchema: declarationSchema([]string{"turnover"}, map[string]string{
					"turnover":      "Оборот за период, руб.",
					"nds_to_pay":    "НДС к уплате, руб.",
					"nds_to_refund": "НДС к возмещению, руб.",
				}, nil),
			},
			Handler:        s.generateNDS,
			Mode:           mode,
			FailureMessage: declarationFailure,
		},
		{
			Def: &mcp.Tool{
				Name:        "generate_6ndfl_declaration",
				Description: "Сформировать расчёт 6-НДФЛ (КНД 1151078) в XML",
				InputSchema: declarationSchema([]string{"total_income", "total_ndfl", "withheld_ndfl"}, map[string]string{
					"total_income":  "Общая сумма доходов, руб.",
					"total_ndfl":    "Исчисленный НДФЛ, руб.",
					"withheld_ndfl": "Удержанный НДФЛ, руб.",
				}, nil),
			},
			Handler:        s.generate6NDFL,
			Mode:           mode,
			FailureMessage: formFailure,
		},
	}
}

// begin runs the checks shared by all declarations and reports the start.
func (s *Service) begin(ctx context.Context, call *core.Call, inn string, period Period, year int, title string) (string, error) {
	clean, err := ValidateINN(inn)
	if err != nil {
		return "", err
	}
	if !period.Valid() {
		return "", core.Invalid("Период должен быть одним из: Q1, Q2, Q3, Q4, YEAR")
	}
	if year < 1990 || year > 2100 {
		return "", core.Invalid("Некорректный год: %d", year)
	}
	if _, err := s.gate(call.Name); err != nil {
		return "", err
	}
	call.Reporter.Log(ctx, "Начинаем генерацию: "+title)
	call.Reporter.ReportProgress(ctx, 0, 100)
	return clean, nil
}

func generated(ctx context.Context, call *core.Call, knd string) {
	call.Reporter.Log(ctx, "Генерируем XML по формату ФНС (КНД "+knd+")")
	call.Reporter.ReportProgress(ctx, 50, 100)
}

func done(ctx context.Context, call *core.Call) {
	call.Reporter.ReportProgress(ctx, 100, 100)
	call.Reporter.Log(ctx, "Декларация успешно сгенерирована")
}

type usnArgs struct {
	INN      string  `json:"inn"`
	Period   Period  `json:"period"`
	Year     int     `json:"year"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	TaxRate  int     `json:"tax_rate"`
}

func (s *Service) generateUSN(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var a usnArgs
	if err := call.Bind(&a); err != nil {
		return nil, err
	}
	if a.TaxRate == 0 {
		a.TaxRate = 6
	}
	if a.TaxRate != 6 && a.TaxRate != 15 {
		return nil, core.Invalid("Ставка УСН должна быть 6 или 15")
	}
	inn, err := s.begin(ctx, call, a.INN, a.Period, a.Year, "декларация УСН")
	if err != nil {
		return nil, err
	}

	generated(ctx, call, FormUSN.KND)
	xml, err := GenerateUSN(USNInput{INN: inn, Period: a.Period, Year: a.Year, Income: a.Income, Expenses: a.Expenses, TaxRate: a.TaxRate})
	if err != nil {
		return nil, &core.InternalError{Message: declarationFailure, Cause: err}
	}
	tax := USNTax(a.Income, a.Expenses, a.TaxRate)

	text := fmt.Sprintf("Декларация УСН %d%% за %s %d\nИНН: %s\nДоходы: %s\nРасходы: %s\nНалог к уплате: %s\nXML декларация сгенерирована по формату ФНС (КНД %s)",
		a.TaxRate, a.Period, a.Year, inn, money(a.Income), money(a.Expenses), money(tax), FormUSN.KND)
	done(ctx, call)
	return core.NewResult(text, map[string]any{
		"inn":             inn,
		"period":          a.Period,
		"year":            a.Year,
		"income":          a.Income,
		"expenses":        a.Expenses,
		"tax_rate":        a.TaxRate,
		"tax_amount":      tax,
		"declaration_xml": xml,
		"status":          "generated",
		"format":          "КНД " + FormUSN.KND,
		"version":         FormUSN.Version,
	}, map[string]any{
		"tax_amount":       tax,
		"declaration_type": fmt.Sprintf("USN_%d", a.TaxRate),
	}), nil
}

type osnoArgs struct {
	INN      string  `json:"inn"`
	Period   Period  `json:"period"`
	Year     int     `json:"year"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
	Loss     float64 `json:"loss"`
	NDS      float64 `json:"nds"`
}

func (s *Service) generateOSNO(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var a osnoArgs
	if err := call.Bind(&a); err != nil {
		return nil, err
	}
	inn, err := s.begin(ctx, call, a.INN, a.Period, a.Year, "декларация ОСНО")
	if err != nil {
		return nil, err
	}

	generated(ctx, call, FormOSNO.KND)
	xml, err := GenerateOSNO(OSNOInput{INN: inn, Period: a.Period, Year: a.Year, Income: a.Income, Expenses: a.Expenses, Profit: a.Profit, Loss: a.Loss, NDS: a.NDS})
	if err != nil {
		return nil, &core.InternalError{Message: declarationFailure, Cause: err}
	}
	tax := OSNOTax(a.Profit)

	text := fmt.Sprintf("Декларация ОСНО за %s %d\nИНН: %s\nДоходы: %s\nРасходы: %s\nПрибыль: %s\nУбыток: %s\nНДС к уплате: %s\nНалог на прибыль к уплате: %s\nXML декларация сгенерирована по формату ФНС (КНД %s)",
		a.Period, a.Year, inn, money(a.Income), money(a.Expenses), money(a.Profit), money(a.Loss), money(a.NDS), money(tax), FormOSNO.KND)
	done(ctx, call)
	return core.NewResult(text, map[string]any{
		"inn":             inn,
		"period":          a.Period,
		"year":            a.Year,
		"income":          a.Income,
		"expenses":        a.Expenses,
		"profit":          a.Profit,
		"loss":            a.Loss,
		"nds":             a.NDS,
		"tax_amount":      tax,
		"declaration_xml": xml,
		"status":          "generated",
		"format":          "КНД " + FormOSNO.KND,
		"version":         FormOSNO.Version,
	}, map[string]any{
		"tax_amount":       tax,
		"declaration_type": "OSNO",
	}), nil
}

type ndsArgs struct {
	INN         string  `json:"inn"`
	Period      Period  `json:"period"`
	Year        int     `json:"year"`
	Turnover    float64 `json:"turnover"`
	NDSToPay    float64 `json:"nds_to_pay"`
	NDSToRefund float64 `json:"nds_to_refund"`
}

func (s *Service) generateNDS(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var a ndsArgs
	if err := call.Bind(&a); err != nil {
		return nil, err
	}
	inn, err := s.begin(ctx, call, a.INN, a.Period, a.Year, "декларация НДС")
	if err != nil {
		return nil, err
	}

	generated(ctx, call, FormNDS.KND)
	xml, err := GenerateNDS(NDSInput{INN: inn, Period: a.Period, Year: a.Year, Turnover: a.Turnover, NDSToPay: a.NDSToPay, NDSToRefund: a.NDSToRefund})
	if err != nil {
		return nil, &core.InternalError{Message: declarationFailure, Cause: err}
	}

	text := fmt.Sprintf("Декларация НДС за %s %d\nИНН: %s\nОборот: %s\nНДС к уплате: %s\nНДС к возмещению: %s\nXML декларация сгенерирована по формату ФНС (КНД %s)",
		a.Period, a.Year, inn, money(a.Turnover), money(a.NDSToPay), money(a.NDSToRefund), FormNDS.KND)
	done(ctx, call)
	return core.NewResult(text, map[string]any{
		"inn":             inn,
		"period":          a.Period,
		"year":            a.Year,
		"turnover":        a.Turnover,
		"nds_to_pay":      a.NDSToPay,
		"nds_to_refund":   a.NDSToRefund,
		"tax_amount":      a.NDSToPay,
		"declaration_xml": xml,
		"status":          "generated",
		"format":          "КНД " + FormNDS.KND,
		"version":         FormNDS.Version,
	}, map[string]any{
		"nds_to_pay":       a.NDSToPay,
		"nds_to_refund":    a.NDSToRefund,
		"declaration_type": "NDS",
	}), nil
}

type ndfl6Args struct {
	INN          string  `json:"inn"`
	Period       Period  `json:"period"`
	Year         int     `json:"year"`
	TotalIncome  float64 `json:"total_income"`
	TotalNDFL    float64 `json:"total_ndfl"`
	WithheldNDFL float64 `json:"withheld_ndfl"`
}

func (s *Service) generate6NDFL(ctx context.Context, call *core.Call) (*mcp.CallToolResult, error) {
	var a ndfl6Args
	if err := call.Bind(&a); err != nil {
		return nil, err
	}
	inn, err := s.begin(ctx, call, a.INN, a.Period, a.Year, "форма 6-НДФЛ")
	if err != nil {
		return nil, err
	}

	generated(ctx, call, Form6NDFL.KND)
	xml, err := Generate6NDFL(NDFL6Input{INN: inn, Period: a.Period, Year: a.Year, TotalIncome: a.TotalIncome, TotalNDFL: a.TotalNDFL, WithheldNDFL: a.WithheldNDFL})
	if err != nil {
		return nil, &core.InternalError{Message: formFailure, Cause: err}
	}

	text := fmt.Sprintf("Форма 6-НДФЛ за %s %d\nИНН: %s\nОбщая сумма доходов: %s\nНачислено НДФЛ: %s\nУдержано НДФЛ: %s\nXML форма сгенерирована по формату ФНС (КНД %s)",
		a.Period, a.Year, inn, money(a.TotalIncome), money(a.TotalNDFL), money(a.WithheldNDFL), Form6NDFL.KND)
	done(ctx, call)
	return core.NewResult(text, map[string]any{
		"inn":             inn,
		"period":          a.Period,
		"year":            a.Year,
		"total_income":    a.TotalIncome,
		"total_ndfl":      a.TotalNDFL,
		"withheld_ndfl":   a.WithheldNDFL,
		"tax_amount":      a.TotalNDFL,
		"declaration_xml": xml,
		"status":          "generated",
		"format":          "КНД " + Form6NDFL.KND,
		"version":         Form6NDFL.Version,
	}, map[string]any{
		"total_ndfl":       a.TotalNDFL,
		"withheld_ndfl":    a.WithheldNDFL,
		"declaration_type": "6NDFL",
	}), nil
}
