package bank

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/finmcp/finmcp/internal/core"
)

// FormatTBankStatement renders T-Bank operations as a tab-separated table with turnover totals.
func FormatTBankStatement(from, to, account string, ops []any) string {
	var b strings.Builder
	b.WriteString("Выписка Т‑Банк\n")
	fmt.Fprintf(&b, "Период: %s – %s\n", from, to)
	fmt.Fprintf(&b, "Счёт: %s\n\n", account)

	if len(ops) == 0 {
		b.WriteString("Операций не найдено")
		return b.String()
	}

	b.WriteString("Дата\tОписание\tСумма\tОстаток\n")
	var credit, debit float64
	for _, raw := range ops {
		op, _ := raw.(map[string]any)
		amount, _ := decodeNumber(op["operationAmount"])
		amount = math.Abs(amount)
		sign := "-"
		if op["typeOfOperation"] == "Credit" {
			sign = "+"
			credit += amount
		} else {
			debit += amount
		}
		fmt.Fprintf(&b, "%s\t%s\t%s%s ₽\t—\n", operationDate(op["operationDate"]), operationDescription(op), sign, core.FormatMoney(amount))
	}

	if credit > 0 || debit > 0 {
		b.WriteString("\n")
	}
	if credit > 0 {
		fmt.Fprintf(&b, "Итого оборот: +%s ₽\n", core.FormatMoney(credit))
	}
	if debit > 0 {
		fmt.Fprintf(&b, "Итого оборот: -%s ₽\n", core.FormatMoney(debit))
	}
	return strings.TrimRight(b.String(), "\n")
}

func operationDate(v any) string {
	s, _ := v.(string)
	if s == "" {
		return "—"
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("02.01.2006 15:04")
	}
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

func operationDescription(op map[string]any) string {
	for _, key := range []string{"description", "payPurpose"} {
		if s, ok := op[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return "Операция"
}
