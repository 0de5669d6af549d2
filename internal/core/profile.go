package core

import (
	"fmt"
	"slices"
	"strings"
)

// ServiceProfile holds the mode policy of one adapter.
// Closed-set profiles reject unknown modes; the others fall back to test.
type ServiceProfile struct {
	Name          string
	ModeEnv       string
	Modes         []Mode
	RejectUnknown bool
}

var profiles = map[string]*ServiceProfile{
	"bank": {
		Name:          "bank",
		ModeEnv:       "MODE",
		Modes:         []Mode{ModeTest, ModeSandbox, ModeProd},
		RejectUnknown: true,
	},
	"tax": {
		Name:    "tax",
		ModeEnv: "FNS_MODE",
		Modes:   []Mode{ModeTest, ModeProd, ModeFree},
	},
	"arbitr": {
		Name:    "arbitr",
		ModeEnv: "ARBITR_MODE",
		Modes:   []Mode{ModeTest, ModeProd},
	},
}

// ServiceNames lists the known adapters in a stable order.
func ServiceNames() []string {
	return []string{"bank", "tax", "arbitr"}
}

// LoadProfile returns the profile for the given service.
// Unknown names return an error.
func LoadProfile(name string) (*ServiceProfile, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown service %q (valid: %s)", name, strings.Join(ServiceNames(), ", "))
	}
	copy := *p
	copy.Modes = slices.Clone(p.Modes)
	return &copy, nil
}

// ResolveMode applies override → envValue → test and the profile's unknown-mode policy.
func (p *ServiceProfile) ResolveMode(override, envValue string) (Mode, error) {
	raw := ResolveValue(override, envValue, string(ModeTest))
	if slices.Contains(p.Modes, Mode(raw)) {
		return Mode(raw), nil
	}
	if p.RejectUnknown {
		names := make([]string, len(p.Modes))
		for i, m := range p.Modes {
			names[i] = string(m)
		}
		return "", Invalid("Неизвестный %s: %s. Допустимо: %s", p.ModeEnv, raw, strings.Join(names, "|"))
	}
	return ModeTest, nil
}
