package bank

import (
	"fmt"
	"strings"

	"github.com/finmcp/finmcp/internal/core"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Operation is one line of a mock statement.
type Operation struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"`
	Amount       float64  `json:"amount"`
	Currency     string   `json:"currency"`
	Description  string   `json:"description"`
	AccountID    string   `json:"accountId"`
	BalanceAfter *float64 `json:"balanceAfter"`
}

type mockOperation struct {
	id, description string
	amount          float64
	atTo            bool
	clock           string
	balanceAfter    *float64
}

func balance(v float64) *float64 { return &v }

var mockOperations = map[string][]mockOperation{
	ProviderTBank: {
		{id: "tb-1", amount: 15000, description: "Поступление от ООО Альфа", clock: "10:00:00", balanceAfter: balance(115000)},
		{id: "tb-2", amount: -3200.5, description: "Оплата поставщику", atTo: true, clock: "15:30:00", balanceAfter: balance(111799.5)},
	},
	ProviderModulbank: {
		{id: "mb-1", amount: 50250.75, description: "Зачисление по счету", clock: "09:15:00"},
		{id: "mb-2", amount: -12500, description: "Выплата контрагенту", atTo: true, clock: "18:45:00"},
	},
	ProviderAlfa: {
		{id: "alfa-1", amount: 8800, description: "Зачисление клиент", clock: "12:00:00"},
		{id: "alfa-2", amount: -2100, description: "Комиссия банка", atTo: true, clock: "16:10:00"},
	},
}

// MockStatement returns the canned statement for provider. The result depends only on
// its arguments.
func MockStatement(provider, from, to, account string) Statement {
	if account == "" {
		account = defaultTestAccount
	}
	tmpl := mockOperations[provider]
	ops := make([]Operation, 0, len(tmpl))
	for _, m := range tmpl {
		day := from
		if m.atTo {
			day = to
		}
		ops = append(ops, Operation{
			ID:           m.id,
			Date:         day + "T" + m.clock + "Z",
			Amount:       m.amount,
			Currency:     "RUB",
			Description:  m.description,
			AccountID:    account,
			BalanceAfter: m.balanceAfter,
		})
	}
	return Statement{
		Bank:        provider,
		Period:      Period{From: from, To: to},
		AccountID:   account,
		Operations:  ops,
		GeneratedAt: to + "T23:59:59Z",
		Mode:        core.ModeTest.String(),
		DateRange:   from + ".." + to,
	}
}

func mockResult(provider, from, to, account string, mode core.Mode) *mcp.CallToolResult {
	st := MockStatement(provider, from, to, account)
	n := len(st.Operations.([]Operation))
	text := fmt.Sprintf("[TEST] Выписка из %s за %s–%s\nОпераций: %d", strings.ToUpper(provider), from, to, n)
	return core.NewResult(text, st, map[string]any{
		"mode":             mode.String(),
		"total_operations": n,
		"bank":             provider,
	})
}
