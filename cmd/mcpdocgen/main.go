package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/finmcp/finmcp/internal/catalog"
	"github.com/finmcp/finmcp/internal/config"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
)

func main() {
	service := pflag.String("service", catalog.All, "service whose tools are documented: bank, tax, arbitr or all")
	pflag.Parse()

	cfg := config.Default()
	cfg.Service = *service
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tools, err := catalog.Build(cfg, func(string) string { return "" }, logger, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	defs := make([]*mcp.Tool, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Def)
	}
	render(os.Stdout, catalog.DisplayName(cfg.Service), defs)
}

func render(w io.Writer, title string, defs []*mcp.Tool) {
	fmt.Fprintf(w, "# MCP Tools: %s (Generated)\n", title)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This file is generated by `cmd/mcpdocgen` from the tool catalog.")
	fmt.Fprintln(w)

	for _, d := range defs {
		fmt.Fprintf(w, "- `%s`\n", d.Name)
		if d.Description != "" {
			fmt.Fprintf(w, "  - Description: %s\n", d.Description)
		}

		schema, _ := d.InputSchema.(*jsonschema.Schema)
		if schema == nil || len(schema.Properties) == 0 {
			fmt.Fprintln(w)
			continue
		}
		requiredSet := make(map[string]bool, len(schema.Required))
		for _, r := range schema.Required {
			requiredSet[r] = true
		}

		keys := make([]string, 0, len(schema.Properties))
		for k := range schema.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(w, "  - Input:")
		for _, k := range keys {
			req := "optional"
			if requiredSet[k] {
				req = "required"
			}
			line := fmt.Sprintf("    - `%s` (%s)", k, req)
			if desc := schema.Properties[k].Description; desc != "" {
				line += ": " + desc
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}
}
