// Package config resolves the process configuration once at startup: built-in defaults,
// then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is read-only after Load returns.
type Config struct {
	Service string       `yaml:"service"`
	Server  ServerConfig `yaml:"server"`
	Bank    BankConfig   `yaml:"bank"`
	Tax     TaxConfig    `yaml:"tax"`
	Arbitr  ArbitrConfig `yaml:"arbitr"`
}

type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MCPTCPListen  string `yaml:"mcp_tcp_listen"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	LogLevel      string `yaml:"log_level"`
}

// Addr is the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type BankConfig struct {
	Provider         string        `yaml:"provider"`
	Mode             string        `yaml:"mode"`
	Timeout          time.Duration `yaml:"-"`
	TimeoutRaw       string        `yaml:"timeout"`
	TBankBaseURL     string        `yaml:"tbank_base_url"`
	TBankSandboxURL  string        `yaml:"tbank_sandbox_url"`
	ModulbankBaseURL string        `yaml:"modulbank_base_url"`
	AlfaBaseURL      string        `yaml:"alfa_base_url"`
}

type TaxConfig struct {
	Mode             string        `yaml:"mode"`
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"-"`
	TimeoutRaw       string        `yaml:"timeout"`
	FileTimeout      time.Duration `yaml:"-"`
	FileTimeoutRaw   string        `yaml:"file_timeout"`
	FreeAllowedTools string        `yaml:"free_allowed_tools"`
	LogExternalIP    bool          `yaml:"log_external_ip"`
}

type ArbitrConfig struct {
	Mode       string        `yaml:"mode"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: "all",
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			EnableMetrics: true,
			LogLevel:      "info",
		},
		Bank: BankConfig{
			Mode:             "test",
			Timeout:          30 * time.Second,
			TBankBaseURL:     "https://business-api.tinkoff.ru/api/v1/statement",
			TBankSandboxURL:  "https://business.tbank.ru/openapi/sandbox/api/v1/statement",
			ModulbankBaseURL: "https://api.modulbank.ru/v1",
			AlfaBaseURL:      "https://api.alfabank.ru/statement/v2",
		},
		Tax: TaxConfig{
			Mode:          "test",
			BaseURL:       "https://api-fns.ru/api",
			Timeout:       40 * time.Second,
			FileTimeout:   60 * time.Second,
			LogExternalIP: true,
		},
		Arbitr: ArbitrConfig{
			Mode:    "test",
			BaseURL: "https://service.api-assist.com/parser/arbitr_api",
			Timeout: 15 * time.Second,
		},
	}
}

// Load builds the configuration. path may be empty; getenv is usually os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data), getenv)), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := parseDurations(cfg); err != nil {
			return nil, fmt.Errorf("parsing durations: %w", err)
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	cfg.Bank.TBankBaseURL = strings.TrimRight(cfg.Bank.TBankBaseURL, "/")
	cfg.Bank.ModulbankBaseURL = strings.TrimRight(cfg.Bank.ModulbankBaseURL, "/")
	cfg.Tax.BaseURL = strings.TrimRight(cfg.Tax.BaseURL, "/")
	cfg.Arbitr.BaseURL = strings.TrimRight(cfg.Arbitr.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or an empty string.
func expandEnvVars(s string, getenv func(string) string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		return getenv(envRef.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"bank.timeout", cfg.Bank.TimeoutRaw, &cfg.Bank.Timeout},
		{"tax.timeout", cfg.Tax.TimeoutRaw, &cfg.Tax.Timeout},
		{"tax.file_timeout", cfg.Tax.FileTimeoutRaw, &cfg.Tax.FileTimeout},
		{"arbitr.timeout", cfg.Arbitr.TimeoutRaw, &cfg.Arbitr.Timeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := parseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// parseDuration accepts Go durations ("30s") and bare seconds ("15", "2.5").
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return nil
		}
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
		return nil
	}

	str("FINMCP_SERVICE", &cfg.Service)
	str("HOST", &cfg.Server.Host)
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	str("MCP_TCP_LISTEN", &cfg.Server.MCPTCPListen)
	str("LOG_LEVEL", &cfg.Server.LogLevel)

	str("BANK_PROVIDER", &cfg.Bank.Provider)
	str("MODE", &cfg.Bank.Mode)
	str("TBANK_BASE_URL", &cfg.Bank.TBankBaseURL)
	str("TBANK_SANDBOX_URL", &cfg.Bank.TBankSandboxURL)
	str("MODULBANK_BASE_URL", &cfg.Bank.ModulbankBaseURL)
	str("ALFA_BASE_URL", &cfg.Bank.AlfaBaseURL)

	str("FNS_MODE", &cfg.Tax.Mode)
	str("FNS_BASE_URL", &cfg.Tax.BaseURL)
	str("FNS_FREE_ALLOWED_TOOLS", &cfg.Tax.FreeAllowedTools)

	str("ARBITR_MODE", &cfg.Arbitr.Mode)
	str("ARBITR_BASE_URL", &cfg.Arbitr.BaseURL)

	for _, err := range []error{
		boolean("ENABLE_METRICS", &cfg.Server.EnableMetrics),
		boolean("FNS_LOG_EXTERNAL_IP", &cfg.Tax.LogExternalIP),
		dur("BANK_TIMEOUT", &cfg.Bank.Timeout),
		dur("FNS_TIMEOUT", &cfg.Tax.Timeout),
		dur("FNS_FILE_TIMEOUT", &cfg.Tax.FileTimeout),
		dur("ARBITR_TIMEOUT", &cfg.Arbitr.Timeout),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the fields that cannot be defaulted later.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Service) {
	case "bank", "tax", "arbitr", "all":
	default:
		return fmt.Errorf("service must be one of bank, tax, arbitr, all (got %q)", c.Service)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	for name, d := range map[string]time.Duration{
		"bank.timeout":     c.Bank.Timeout,
		"tax.timeout":      c.Tax.Timeout,
		"tax.file_timeout": c.Tax.FileTimeout,
		"arbitr.timeout":   c.Arbitr.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// EnvVars lists every environment variable Load reads.
func EnvVars() []string {
	return []string{
		"FINMCP_SERVICE", "HOST", "PORT", "MCP_TCP_LISTEN", "LOG_LEVEL", "ENABLE_METRICS",
		"BANK_PROVIDER", "MODE", "BANK_TIMEOUT", "TBANK_BASE_URL", "TBANK_SANDBOX_URL",
		"MODULBANK_BASE_URL", "ALFA_BASE_URL",
		"FNS_MODE", "FNS_BASE_URL", "FNS_TIMEOUT", "FNS_FILE_TIMEOUT", "FNS_FREE_ALLOWED_TOOLS",
		"FNS_LOG_EXTERNAL_IP",
		"ARBITR_MODE", "ARBITR_BASE_URL", "ARBITR_TIMEOUT",
	}
}

// SecretVars lists the credentials adapters read per call.
func SecretVars() []string {
	return []string{
		"T_BANK_TOKEN", "MODULBANK_TOKEN", "ALFA_TOKEN",
		"T_BANK_SANDBOX_TOKEN", "MODULBANK_SANDBOX_TOKEN",
		"MODULBANK_SANDBOX_CLIENT_ID", "MODULBANK_SANDBOX_CLIENT_SECRET",
		"FNS_API_TOKEN", "ARBITR_API_KEY",
	}
}
