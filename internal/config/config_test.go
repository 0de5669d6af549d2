package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "all", cfg.Service)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.True(t, cfg.Server.EnableMetrics)
	assert.Equal(t, "test", cfg.Bank.Mode)
	assert.Equal(t, 30*time.Second, cfg.Bank.Timeout)
	assert.Equal(t, 40*time.Second, cfg.Tax.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Tax.FileTimeout)
	assert.Equal(t, 15*time.Second, cfg.Arbitr.Timeout)
	assert.Equal(t, "https://api-fns.ru/api", cfg.Tax.BaseURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"FINMCP_SERVICE":   "tax",
		"PORT":             "9000",
		"ENABLE_METRICS":   "false",
		"BANK_PROVIDER":    "alfa",
		"FNS_MODE":         "free",
		"FNS_BASE_URL":     "http://fns.local/api/",
		"ARBITR_TIMEOUT":   "2.5",
		"FNS_FILE_TIMEOUT": "90s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "tax", cfg.Service)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Server.EnableMetrics)
	assert.Equal(t, "alfa", cfg.Bank.Provider)
	assert.Equal(t, "free", cfg.Tax.Mode)
	assert.Equal(t, "http://fns.local/api", cfg.Tax.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.Arbitr.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Tax.FileTimeout)
}

func TestLoadYAMLWithExpansionAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "finmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service: arbitr
server:
  port: 7070
  mcp_tcp_listen: "127.0.0.1:7071"
arbitr:
  mode: ${ARBITR_MODE_FROM_FILE}
  base_url: http://arbitr.local
  timeout: 3s
bank:
  provider: modulbank
`), 0o600))

	cfg, err := Load(path, envMap(map[string]string{
		"ARBITR_MODE_FROM_FILE": "prod",
		"BANK_PROVIDER":         "tbank",
	}))
	require.NoError(t, err)

	assert.Equal(t, "arbitr", cfg.Service)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:7071", cfg.Server.MCPTCPListen)
	assert.Equal(t, "prod", cfg.Arbitr.Mode)
	assert.Equal(t, 3*time.Second, cfg.Arbitr.Timeout)
	assert.Equal(t, "tbank", cfg.Bank.Provider, "env must override the file")
	assert.Equal(t, 40*time.Second, cfg.Tax.Timeout, "unset file values keep defaults")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "service", env: map[string]string{"FINMCP_SERVICE": "crypto"}},
		{name: "port", env: map[string]string{"PORT": "http"}},
		{name: "port range", env: map[string]string{"PORT": "70000"}},
		{name: "duration", env: map[string]string{"BANK_TIMEOUT": "soon"}},
		{name: "zero duration", env: map[string]string{"FNS_TIMEOUT": "0"}},
		{name: "bool", env: map[string]string{"ENABLE_METRICS": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
