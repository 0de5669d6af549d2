package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTBankStatementEmpty(t *testing.T) {
	got := FormatTBankStatement("2024-01-01", "2024-01-31", "40702", nil)
	assert.Equal(t, "Выписка Т‑Банк\nПериод: 2024-01-01 – 2024-01-31\nСчёт: 40702\n\nОпераций не найдено", got)
}

func TestFormatTBankStatementFallbacks(t *testing.T) {
	got := FormatTBankStatement("2024-01-01", "2024-01-31", "1", []any{
		map[string]any{"operationAmount": 10.0},
		map[string]any{"operationDate": "x", "description": "  ", "payPurpose": "Налог", "operationAmount": 5.0},
	})
	assert.Contains(t, got, "—\tОперация\t-10.00 ₽\t—")
	assert.Contains(t, got, "x\tНалог\t-5.00 ₽\t—")
	assert.Contains(t, got, "Итого оборот: -15.00 ₽")
	assert.NotContains(t, got, "Итого оборот: +")
}
