package core

import (
	"errors"
	"testing"
)

func TestLoadProfile_Bank(t *testing.T) {
	p, err := LoadProfile("bank")
	if err != nil {
		t.Fatalf("LoadProfile(bank) error: %v", err)
	}
	if p.Name != "bank" {
		t.Errorf("Name = %q, want %q", p.Name, "bank")
	}
	if p.ModeEnv != "MODE" {
		t.Errorf("ModeEnv = %q, want MODE", p.ModeEnv)
	}
	if !p.RejectUnknown {
		t.Error("bank profile must reject unknown modes")
	}
	if len(p.Modes) != 3 {
		t.Errorf("Modes = %v, want test|sandbox|prod", p.Modes)
	}
}

func TestLoadProfile_Tax(t *testing.T) {
	p, err := LoadProfile("tax")
	if err != nil {
		t.Fatalf("LoadProfile(tax) error: %v", err)
	}
	if p.ModeEnv != "FNS_MODE" {
		t.Errorf("ModeEnv = %q, want FNS_MODE", p.ModeEnv)
	}
	if p.RejectUnknown {
		t.Error("tax profile must fall back to test")
	}
}

func TestLoadProfile_Arbitr(t *testing.T) {
	p, err := LoadProfile("arbitr")
	if err != nil {
		t.Fatalf("LoadProfile(arbitr) error: %v", err)
	}
	if p.ModeEnv != "ARBITR_MODE" {
		t.Errorf("ModeEnv = %q, want ARBITR_MODE", p.ModeEnv)
	}
}

func TestLoadProfile_CaseInsensitive(t *testing.T) {
	p, err := LoadProfile(" TAX ")
	if err != nil {
		t.Fatalf("LoadProfile(TAX) error: %v", err)
	}
	if p.Name != "tax" {
		t.Errorf("Name = %q, want %q", p.Name, "tax")
	}
}

func TestLoadProfile_UnknownReturnsError(t *testing.T) {
	if _, err := LoadProfile("crypto"); err == nil {
		t.Fatal("LoadProfile(crypto) should return error")
	}
}

func TestLoadProfile_ReturnsCopy(t *testing.T) {
	p1, _ := LoadProfile("bank")
	p2, _ := LoadProfile("bank")
	p1.Modes[0] = ModeFree
	p1.RejectUnknown = false
	if p2.Modes[0] == ModeFree || !p2.RejectUnknown {
		t.Error("LoadProfile should return independent copies")
	}
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		service  string
		override string
		env      string
		want     Mode
		wantErr  bool
	}{
		{service: "bank", want: ModeTest},
		{service: "bank", env: "PROD", want: ModeProd},
		{service: "bank", override: "sandbox", env: "prod", want: ModeSandbox},
		{service: "bank", env: "free", wantErr: true},
		{service: "bank", override: "live", wantErr: true},
		{service: "tax", env: "free", want: ModeFree},
		{service: "tax", env: "sandbox", want: ModeTest},
		{service: "tax", env: "garbage", want: ModeTest},
		{service: "arbitr", env: " Prod ", want: ModeProd},
		{service: "arbitr", env: "free", want: ModeTest},
	}
	for _, tt := range tests {
		p, err := LoadProfile(tt.service)
		if err != nil {
			t.Fatal(err)
		}
		got, err := p.ResolveMode(tt.override, tt.env)
		if tt.wantErr {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("%s override=%q env=%q: want ValidationError, got %v", tt.service, tt.override, tt.env, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s override=%q env=%q: unexpected error %v", tt.service, tt.override, tt.env, err)
		}
		if got != tt.want {
			t.Fatalf("%s override=%q env=%q: got %q, want %q", tt.service, tt.override, tt.env, got, tt.want)
		}
	}
}

func TestResolveValue(t *testing.T) {
	if got := ResolveValue("", "", "tbank"); got != "tbank" {
		t.Fatalf("fallback: got %q", got)
	}
	if got := ResolveValue("  ", "ALFA", "tbank"); got != "alfa" {
		t.Fatalf("env default: got %q", got)
	}
	if got := ResolveValue("ModulBank", "alfa", "tbank"); got != "modulbank" {
		t.Fatalf("override: got %q", got)
	}
}
