package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatMoney renders v with two decimals and a comma thousands separator: 1234567.5 -> 1,234,567.50.
func FormatMoney(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", v)
}
