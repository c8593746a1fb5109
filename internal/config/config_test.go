package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 15s
database:
  path: "test.db"
workflow:
  special_approval_threshold: "5000"
  max_retries: 5
ledger:
  default_limit: "20000"
  category_limits:
    WELFARE_MEDICAL: "8000"
roles:
  grants:
    "mgr-1": [manager]
logger:
  level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Workflow.MaxRetries)
	assert.True(t, cfg.SpecialApprovalThreshold().Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, []string{"mgr-1"}, keys(cfg.Roles.Grants))
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: "test.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 3, cfg.Workflow.MaxRetries)
	assert.True(t, cfg.SpecialApprovalThreshold().Equal(decimal.NewFromInt(10000)))
	assert.True(t, cfg.LimitForCategory("ANYTHING").Equal(decimal.NewFromInt(50000)))
}

func TestLimitForCategory(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: "test.db"
ledger:
  default_limit: "100"
  category_limits:
    ADVANCE: "250"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.LimitForCategory("ADVANCE").Equal(decimal.NewFromInt(250)))
	assert.True(t, cfg.LimitForCategory("WELFARE_MEDICAL").Equal(decimal.NewFromInt(100)))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"non-decimal threshold", func(c *Config) { c.Workflow.SpecialApprovalThreshold = "lots" }},
		{"negative threshold", func(c *Config) { c.Workflow.SpecialApprovalThreshold = "-1" }},
		{"non-decimal default limit", func(c *Config) { c.Ledger.DefaultLimit = "infinity" }},
		{"negative category limit", func(c *Config) { c.Ledger.CategoryLimits = map[string]string{"ADVANCE": "-5"} }},
		{"zero retries", func(c *Config) { c.Workflow.MaxRetries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "x.db"},
				Workflow: WorkflowConfig{SpecialApprovalThreshold: "10000", MaxRetries: 3},
				Ledger:   LedgerConfig{DefaultLimit: "50000"},
			}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
