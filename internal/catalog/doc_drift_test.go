//go:build !short

package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"testing"
)

func readme(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file location")
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "README.md"))
	if err != nil {
		t.Fatalf("cannot read README.md: %v", err)
	}
	return string(data)
}

func TestDocDrift_MCPToolsInREADME(t *testing.T) {
	registered := make(map[string]bool)
	for _, name := range build(t, All) {
		registered[name] = true
	}

	reMCPSection := regexp.MustCompile(`(?s)## MCP Tools\n(.*?)(?:\n## |\z)`)
	sectionMatch := reMCPSection.FindStringSubmatch(readme(t))
	if sectionMatch == nil {
		t.Fatal("cannot find '## MCP Tools' section in README.md")
	}

	reToolInREADME := regexp.MustCompile("(?m)^- `([a-z0-9_]+)`$")
	readmeTools := make(map[string]bool)
	for _, m := range reToolInREADME.FindAllStringSubmatch(sectionMatch[1], -1) {
		readmeTools[m[1]] = true
	}

	var missingInREADME, missingInCatalog []string
	for name := range registered {
		if !readmeTools[name] {
			missingInREADME = append(missingInREADME, name)
		}
	}
	for name := range readmeTools {
		if !registered[name] {
			missingInCatalog = append(missingInCatalog, name)
		}
	}
	sort.Strings(missingInREADME)
	sort.Strings(missingInCatalog)

	if len(missingInREADME) > 0 {
		t.Errorf("tools registered in the catalog but missing from README:\n  %s",
			strings.Join(missingInREADME, "\n  "))
	}
	if len(missingInCatalog) > 0 {
		t.Errorf("tools listed in README but not registered:\n  %s",
			strings.Join(missingInCatalog, "\n  "))
	}
}
