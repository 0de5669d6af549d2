package core

import "strings"

type Mode string

const (
	ModeTest    Mode = "test"
	ModeSandbox Mode = "sandbox"
	ModeProd    Mode = "prod"
	ModeFree    Mode = "free"
)

func (m Mode) String() string { return string(m) }

// ResolveValue picks the effective raw value: non-empty override, then the env default,
// then fallback. The result is trimmed and lower-cased.
func ResolveValue(override, envValue, fallback string) string {
	if v := strings.TrimSpace(override); v != "" {
		return strings.ToLower(v)
	}
	if v := strings.TrimSpace(envValue); v != "" {
		return strings.ToLower(v)
	}
	return strings.ToLower(fallback)
}
