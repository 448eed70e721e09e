package backtest

import (
	"context"
	"fmt"

	"marketflow/internal/config"
	"marketflow/internal/exchange"
)

// Grid defines the parameter values a sweep explores. Empty dimensions fall
// back to the base configuration's value, so a grid can vary one parameter
// or all of them.
type Grid struct {
	VolatilityMin    []float64
	TrendStrengthMin []float64
	RewardMultiplier []float64
	TimeExitHours    []float64
	RuleVariants     []config.RuleVariant
}

// Configs expands the grid into the full cross product over the base
// configuration.
func (g Grid) Configs(base config.Config) []config.Config {
	volMins := orDefault(g.VolatilityMin, base.Entry.VolatilityMin)
	trendMins := orDefault(g.TrendStrengthMin, base.Entry.TrendStrengthMin)
	rewards := orDefault(g.RewardMultiplier, base.Exit.ProfitTargetMultiplier)
	timeExits := orDefault(g.TimeExitHours, base.Exit.TimeExitHours)
	variants := g.RuleVariants
	if len(variants) == 0 {
		variants = []config.RuleVariant{base.RuleVariant}
	}

	var configs []config.Config
	for _, vol := range volMins {
		for _, trend := range trendMins {
			for _, reward := range rewards {
				for _, timeExit := range timeExits {
					for _, variant := range variants {
						cfg := base
						cfg.Entry.VolatilityMin = vol
						cfg.Entry.TrendStrengthMin = trend
						cfg.Exit.ProfitTargetMultiplier = reward
						cfg.Exit.TimeExitHours = timeExit
						cfg.RuleVariant = variant
						configs = append(configs, cfg)
					}
				}
			}
		}
	}
	return configs
}

func orDefault(values []float64, fallback float64) []float64 {
	if len(values) == 0 {
		return []float64{fallback}
	}
	return values
}

// Sweep runs every grid combination over the dataset in parallel and
// returns all results plus the best one by net PnL. Results with no closed
// trades never win over results that traded.
func Sweep(ctx context.Context, base config.Config, grid Grid, ticks []exchange.Tick, workers int) ([]Result, Result, error) {
	configs := grid.Configs(base)
	if len(configs) == 0 {
		return nil, Result{}, fmt.Errorf("empty parameter grid")
	}

	pool := NewWorkerPool(ctx, workers, len(configs), ticks)
	pool.Start()

	submitted := 0
	for i, cfg := range configs {
		if err := pool.Submit(Job{ID: fmt.Sprintf("sweep_%03d", i), Config: cfg}); err != nil {
			break
		}
		submitted++
	}

	results := make([]Result, 0, submitted)
	for i := 0; i < submitted; i++ {
		select {
		case r := <-pool.Results():
			results = append(results, r)
		case <-ctx.Done():
			pool.Stop()
			return results, Result{}, ctx.Err()
		}
	}
	pool.Stop()

	if len(results) == 0 {
		return nil, Result{}, fmt.Errorf("no sweep results produced")
	}
	return results, best(results), nil
}

func best(results []Result) Result {
	top := results[0]
	for _, r := range results[1:] {
		if better(r, top) {
			top = r
		}
	}
	return top
}

func better(a, b Result) bool {
	if (a.Performance.TotalTrades > 0) != (b.Performance.TotalTrades > 0) {
		return a.Performance.TotalTrades > 0
	}
	return a.NetPnL > b.NetPnL
}
