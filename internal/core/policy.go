package core

import (
	"fmt"
	"sort"
	"strings"
)

// Policy enforces a tool allowlist parsed from a comma-separated value.
type Policy struct {
	source       string
	allowedTools map[string]bool
	deniedFormat string
}

// NewPolicy creates a Policy from a comma-separated allowlist. source names the setting
// the list came from and is used in error messages. An empty list allows nothing.
func NewPolicy(source, toolCSV string) *Policy {
	return &Policy{
		source:       source,
		allowedTools: parseCSV(toolCSV),
		deniedFormat: "tool %q not in allowlist",
	}
}

// WithDeniedMessage sets the format used for rejected tools; it receives the tool name.
func (p *Policy) WithDeniedMessage(format string) *Policy {
	p.deniedFormat = format
	return p
}

// CheckTool returns a PolicyError if toolName is not in the allowlist.
func (p *Policy) CheckTool(toolName string) error {
	if len(p.allowedTools) == 0 {
		return &PolicyError{Tool: toolName, Message: fmt.Sprintf("no tools allowed (%s is empty)", p.source)}
	}
	if !p.allowedTools[toolName] {
		return &PolicyError{Tool: toolName, Message: fmt.Sprintf(p.deniedFormat, toolName)}
	}
	return nil
}

// Allowed returns the allowlist in lexical order.
func (p *Policy) Allowed() []string {
	out := make([]string, 0, len(p.allowedTools))
	for name := range p.allowedTools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func parseCSV(s string) map[string]bool {
	m := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			m[item] = true
		}
	}
	return m
}
