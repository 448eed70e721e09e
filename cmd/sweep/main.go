package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"marketflow/internal/backtest"
	"marketflow/internal/config"
	"marketflow/internal/replay"
	"marketflow/internal/reporting"
)

func main() {
	var (
		configFile = flag.String("config", "", "Base configuration file (JSON)")
		envFile    = flag.String("env", ".env", "Environment file path")
		tickFile   = flag.String("file", "", "Tick dataset CSV (time,price,volume,is_ask)")
		outFile    = flag.String("out", "sweep.xlsx", "Excel report path")
		workers    = flag.Int("workers", 0, "Parallel workers (0 = CPU count)")

		volMins   = flag.String("vol-min", "", "Comma-separated volatility minimums")
		trendMins = flag.String("trend-min", "", "Comma-separated trend strength minimums")
		rewards   = flag.String("reward", "", "Comma-separated reward multipliers")
		timeExits = flag.String("time-exit", "", "Comma-separated time exits in hours")
		variants  = flag.String("variants", "", "Comma-separated rule variants (baseline,gated)")
	)
	flag.Parse()

	if *tickFile == "" {
		log.Fatal("Please specify a tick dataset with -file")
	}
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No %s file loaded (%v), using process environment", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ticks, err := replay.LoadCSV(*tickFile)
	if err != nil {
		log.Fatalf("Failed to load tick dataset: %v", err)
	}

	grid := backtest.Grid{
		VolatilityMin:    parseFloats(*volMins),
		TrendStrengthMin: parseFloats(*trendMins),
		RewardMultiplier: parseFloats(*rewards),
		TimeExitHours:    parseFloats(*timeExits),
		RuleVariants:     parseVariants(*variants),
	}

	combos := len(grid.Configs(cfg))
	log.Printf("Sweeping %d parameter combinations over %d ticks", combos, len(ticks))

	start := time.Now()
	results, best, err := backtest.Sweep(context.Background(), cfg, grid, ticks, *workers)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	log.Printf("Sweep finished in %s", time.Since(start).Round(time.Millisecond))

	printResults(results, best)

	if err := reporting.WriteSweepReport(*outFile, results, best); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
	log.Printf("Report written to %s", *outFile)

	reporting.NewConsole(nil).PrintPerformance(best.Performance)
}

func printResults(results []backtest.Result, best backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SWEEP RESULTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Variant", "Vol Min", "Trend Min", "Reward", "Time Exit", "Trades", "Win Rate", "Net PnL"})

	for _, r := range results {
		t.AppendRow(table.Row{
			string(r.Config.RuleVariant),
			fmt.Sprintf("%.2f", r.Config.Entry.VolatilityMin),
			fmt.Sprintf("%.2f", r.Config.Entry.TrendStrengthMin),
			fmt.Sprintf("%.2f", r.Config.Exit.ProfitTargetMultiplier),
			fmt.Sprintf("%.1fh", r.Config.Exit.TimeExitHours),
			r.Performance.TotalTrades,
			fmt.Sprintf("%.1f%%", r.Performance.WinRate*100),
			fmt.Sprintf("%+.6f", r.NetPnL),
		})
	}
	t.Render()

	log.Printf("Best: variant=%s trend_min=%.2f reward=%.2f net_pnl=%+.6f",
		best.Config.RuleVariant, best.Config.Entry.TrendStrengthMin,
		best.Config.Exit.ProfitTargetMultiplier, best.NetPnL)
}

func parseFloats(s string) []float64 {
	if s == "" {
		return nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			log.Fatalf("Invalid numeric list value %q: %v", part, err)
		}
		out = append(out, v)
	}
	return out
}

func parseVariants(s string) []config.RuleVariant {
	if s == "" {
		return nil
	}
	var out []config.RuleVariant
	for _, part := range strings.Split(s, ",") {
		v := config.RuleVariant(strings.TrimSpace(part))
		switch v {
		case config.RuleBaseline, config.RuleGated:
			out = append(out, v)
		default:
			log.Fatalf("Unknown rule variant %q", part)
		}
	}
	return out
}
