package tax

import (
	"strings"

	"github.com/finmcp/finmcp/internal/core"
)

// ValidateINN strips spaces and accepts exactly 10 or 12 digits. It returns the cleaned value.
func ValidateINN(inn string) (string, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(inn), " ", "")
	if len(clean) != 10 && len(clean) != 12 {
		return "", core.Invalid("ИНН должен содержать 10 или 12 цифр")
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return "", core.Invalid("ИНН должен содержать 10 или 12 цифр")
		}
	}
	return clean, nil
}
