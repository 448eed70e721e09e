package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// RuleVariant selects which revision of the exit rule set is active.
// The rule set went through several parameter revisions; rather than
// hard-coding one, the variant is part of the configuration so backtests
// can pin either behavior.
type RuleVariant string

const (
	// RuleBaseline closes on time or trend reversal unconditionally.
	RuleBaseline RuleVariant = "baseline"
	// RuleGated requires a minimum profit before time or trend-reversal
	// exits may fire.
	RuleGated RuleVariant = "gated"
)

// EntryThresholds gate the flat-to-long transition. All conditions are
// conjunctive: one failed threshold vetoes entry.
type EntryThresholds struct {
	VolatilityMin       float64 `json:"volatility_min"`
	VolatilityMax       float64 `json:"volatility_max"` // 0 disables the upper bound
	RelativeStrengthMin float64 `json:"relative_strength_min"`
	RelativeStrengthMax float64 `json:"relative_strength_max"`
	TrendStrengthMin    float64 `json:"trend_strength_min"`
	AvgTrendStrengthMin float64 `json:"avg_trend_strength_min"`
	OrderImbalanceMin   float64 `json:"order_imbalance_min"`
	EfficiencyRatioMin  float64 `json:"efficiency_ratio_min"`
}

// ExitThresholds govern position maintenance and the close conditions.
type ExitThresholds struct {
	ProfitTargetMultiplier float64 `json:"profit_target_multiplier"`
	TrailingActivationPct  float64 `json:"trailing_activation_pct"` // percent profit that arms the trail
	TrailingDistance       float64 `json:"trailing_distance"`       // ATR multiplier for the trail gap
	TimeExitHours          float64 `json:"time_exit_hours"`
	TrendReversalThreshold float64 `json:"trend_reversal_threshold"`
	MinProfitForTimedExits float64 `json:"min_profit_for_timed_exits"` // percent, gated variant only
}

// Config is the immutable parameter set handed to the analysis engine at
// construction. The engine never mutates it, so independent engines can
// run different parameter sets in parallel.
type Config struct {
	Symbol         string          `json:"symbol"`
	WarmupTicks    int             `json:"warmup_ticks"`
	RiskFactor     float64         `json:"risk_factor"`
	AdaptiveSizing bool            `json:"adaptive_sizing"`
	RuleVariant    RuleVariant     `json:"rule_variant"`
	Entry          EntryThresholds `json:"entry"`
	Exit           ExitThresholds  `json:"exit"`
}

// Default returns the parameter set the system has been tuned with.
func Default() Config {
	return Config{
		Symbol:         "BTCUSDT",
		WarmupTicks:    300,
		RiskFactor:     0.02,
		AdaptiveSizing: true,
		RuleVariant:    RuleBaseline,
		Entry: EntryThresholds{
			VolatilityMin:       0.3,
			RelativeStrengthMin: 0.2,
			RelativeStrengthMax: 1.0,
			TrendStrengthMin:    6,
			OrderImbalanceMin:   0.25,
			EfficiencyRatioMin:  1.0,
		},
		Exit: ExitThresholds{
			ProfitTargetMultiplier: 2.5,
			TrailingActivationPct:  1.0,
			TrailingDistance:       1.5,
			TimeExitHours:          4,
			TrendReversalThreshold: -0.4,
		},
	}
}

// Load reads a JSON configuration file over the defaults and applies
// environment overrides on top. A missing file is not an error: defaults
// plus environment are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects parameter sets the engine cannot operate with.
func (c Config) Validate() error {
	if c.WarmupTicks <= 0 {
		return fmt.Errorf("warmup_ticks must be positive, got %d", c.WarmupTicks)
	}
	if c.RiskFactor <= 0 || c.RiskFactor > 0.5 {
		return fmt.Errorf("risk_factor must be in (0, 0.5], got %v", c.RiskFactor)
	}
	if c.Exit.ProfitTargetMultiplier <= 0 {
		return fmt.Errorf("profit_target_multiplier must be positive, got %v", c.Exit.ProfitTargetMultiplier)
	}
	if c.Exit.TimeExitHours <= 0 {
		return fmt.Errorf("time_exit_hours must be positive, got %v", c.Exit.TimeExitHours)
	}
	switch c.RuleVariant {
	case RuleBaseline, RuleGated:
	default:
		return fmt.Errorf("unknown rule_variant %q", c.RuleVariant)
	}
	return nil
}

// Save writes the configuration as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg Config) Config {
	cfg.Symbol = getEnv("ANALYZER_SYMBOL", cfg.Symbol)
	cfg.WarmupTicks = getEnvInt("ANALYZER_WARMUP_TICKS", cfg.WarmupTicks)
	cfg.RiskFactor = getEnvFloat("ANALYZER_RISK_FACTOR", cfg.RiskFactor)
	cfg.AdaptiveSizing = getEnvBool("ANALYZER_ADAPTIVE_SIZING", cfg.AdaptiveSizing)
	cfg.RuleVariant = RuleVariant(getEnv("ANALYZER_RULE_VARIANT", string(cfg.RuleVariant)))
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
