package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"symbol": "ETHUSDT",
		"warmup_ticks": 50,
		"risk_factor": 0.01,
		"rule_variant": "gated",
		"exit": {
			"profit_target_multiplier": 3.0,
			"time_exit_hours": 2,
			"min_profit_for_timed_exits": 0.5
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, 50, cfg.WarmupTicks)
	assert.Equal(t, 0.01, cfg.RiskFactor)
	assert.Equal(t, RuleGated, cfg.RuleVariant)
	assert.Equal(t, 3.0, cfg.Exit.ProfitTargetMultiplier)
	assert.Equal(t, 0.5, cfg.Exit.MinProfitForTimedExits)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ANALYZER_SYMBOL", "SOLUSDT")
	t.Setenv("ANALYZER_WARMUP_TICKS", "25")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", cfg.Symbol)
	assert.Equal(t, 25, cfg.WarmupTicks)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero warmup", func(c *Config) { c.WarmupTicks = 0 }},
		{"negative risk", func(c *Config) { c.RiskFactor = -0.01 }},
		{"excessive risk", func(c *Config) { c.RiskFactor = 0.9 }},
		{"zero profit multiplier", func(c *Config) { c.Exit.ProfitTargetMultiplier = 0 }},
		{"zero time exit", func(c *Config) { c.Exit.TimeExitHours = 0 }},
		{"unknown variant", func(c *Config) { c.RuleVariant = "v3" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")

	cfg := Default()
	cfg.Symbol = "ADAUSDT"
	cfg.Entry.TrendStrengthMin = 8
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
