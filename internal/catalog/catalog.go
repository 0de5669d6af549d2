// Package catalog is the explicit list of tools each service registers.
package catalog

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/finmcp/finmcp/internal/arbitr"
	"github.com/finmcp/finmcp/internal/bank"
	"github.com/finmcp/finmcp/internal/config"
	"github.com/finmcp/finmcp/internal/core"
	"github.com/finmcp/finmcp/internal/tax"
)

// All serves every adapter from one process.
const All = "all"

var displayNames = map[string]string{
	"bank":   "bank-statement-mcp",
	"tax":    "fns-tax-mcp",
	"arbitr": "arbitr-mcp",
	All:      "finmcp",
}

// DisplayName is the name reported by /health and initialize.
func DisplayName(service string) string {
	if n, ok := displayNames[strings.ToLower(service)]; ok {
		return n
	}
	return service
}

// Services expands "all" into the individual adapters.
func Services(service string) []string {
	service = strings.ToLower(strings.TrimSpace(service))
	if service == All {
		return core.ServiceNames()
	}
	return []string{service}
}

// Build constructs the adapters selected by cfg.Service and returns their tools in a
// fixed order: bank, tax, arbitr. httpClient may be nil.
func Build(cfg *config.Config, lookup core.LookupFunc, logger *slog.Logger, httpClient *http.Client) ([]core.Tool, error) {
	var tools []core.Tool
	for _, name := range Services(cfg.Service) {
		switch name {
		case "bank":
			svc, err := bank.New(cfg.Bank, lookup, logger, httpClient)
			if err != nil {
				return nil, fmt.Errorf("bank: %w", err)
			}
			tools = append(tools, svc.Tools()...)
		case "tax":
			svc, err := tax.New(cfg.Tax, lookup, logger, httpClient)
			if err != nil {
				return nil, fmt.Errorf("tax: %w", err)
			}
			tools = append(tools, svc.Tools()...)
		case "arbitr":
			svc, err := arbitr.New(cfg.Arbitr, lookup, logger, httpClient)
			if err != nil {
				return nil, fmt.Errorf("arbitr: %w", err)
			}
			tools = append(tools, svc.Tools()...)
		default:
			return nil, fmt.Errorf("unknown service %q", name)
		}
	}
	return tools, nil
}

// Modes reports the configured mode of each selected adapter for the info endpoint.
func Modes(cfg *config.Config) map[string]string {
	raw := map[string]string{"bank": cfg.Bank.Mode, "tax": cfg.Tax.Mode, "arbitr": cfg.Arbitr.Mode}
	out := make(map[string]string)
	for _, name := range Services(cfg.Service) {
		p, err := core.LoadProfile(name)
		if err != nil {
			continue
		}
		m, err := p.ResolveMode("", raw[name])
		if err != nil {
			out[name] = raw[name]
			continue
		}
		out[name] = m.String()
	}
	return out
}
