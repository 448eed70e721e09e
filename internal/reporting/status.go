package reporting

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"marketflow/internal/config"
	"marketflow/internal/engine"
	"marketflow/internal/trade"
)

// Console renders status tables for the analyzer binaries.
type Console struct {
	out io.Writer
}

// NewConsole creates a console reporter. A nil writer defaults to stdout.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// PrintStartup renders the configuration the engine was started with.
func (c *Console) PrintStartup(cfg config.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle("ANALYZER CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Symbol", cfg.Symbol},
		{"Warmup Ticks", cfg.WarmupTicks},
		{"Base Risk", fmt.Sprintf("%.2f%%", cfg.RiskFactor*100)},
		{"Adaptive Sizing", cfg.AdaptiveSizing},
		{"Rule Variant", string(cfg.RuleVariant)},
	})

	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Volatility Min", fmt.Sprintf("%.2f", cfg.Entry.VolatilityMin)},
		{"Trend Min", fmt.Sprintf("%.2f", cfg.Entry.TrendStrengthMin)},
		{"Imbalance Min", fmt.Sprintf("%.2f", cfg.Entry.OrderImbalanceMin)},
		{"Reward Multiple", fmt.Sprintf("%.2f", cfg.Exit.ProfitTargetMultiplier)},
		{"Time Exit", fmt.Sprintf("%.1fh", cfg.Exit.TimeExitHours)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, WidthMax: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(c.out)
}

// PrintStatus renders a periodic engine snapshot.
func (c *Console) PrintStatus(state engine.State) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle("MARKET STATUS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Price", fmt.Sprintf("%.4f", state.CurrentPrice)},
		{"Ticks", state.Ticks},
		{"Warmed Up", state.WarmedUp},
		{"Position", positionCell(state.ActiveTrade)},
	})

	t.AppendSeparator()
	m := state.Metrics
	t.AppendRows([]table.Row{
		{"Volatility", fmt.Sprintf("%.4f", m.RealizedVolatility)},
		{"ATR", fmt.Sprintf("%.4f", m.ATR)},
		{"Rel. Strength", fmt.Sprintf("%.4f", m.RelativeStrength)},
		{"Imbalance", fmt.Sprintf("%.4f", m.OrderImbalance)},
		{"Trend", fmt.Sprintf("%.4f", m.TrendStrength)},
		{"Efficiency", fmt.Sprintf("%.4f", m.MarketEfficiencyRatio)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 14, WidthMax: 14, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(c.out)
}

// PrintPerformance renders the closed-trade aggregates.
func (c *Console) PrintPerformance(perf trade.Performance) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetTitle("PERFORMANCE")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Total Trades", perf.TotalTrades},
		{"Winning Trades", perf.WinningTrades},
		{"Win Rate", fmt.Sprintf("%.1f%%", perf.WinRate*100)},
		{"Profit Factor", formatProfitFactor(perf.ProfitFactor)},
		{"Avg Win", fmt.Sprintf("%.2f%%", perf.AvgWin)},
		{"Avg Loss", fmt.Sprintf("%.2f%%", perf.AvgLoss)},
		{"Max Drawdown", fmt.Sprintf("%.4f", perf.MaxDrawdown)},
		{"Sharpe-like", fmt.Sprintf("%.2f", perf.SharpeLike)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, WidthMax: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, WidthMax: 20, Align: text.AlignRight},
	})

	t.Render()
	fmt.Fprintln(c.out)
}

func positionCell(tr trade.ActiveTrade) string {
	if !tr.Active {
		return "FLAT"
	}
	return fmt.Sprintf("LONG @ %.4f (stop %.4f)", tr.EntryPrice, tr.StopLoss)
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "∞ (no losses)"
	}
	return fmt.Sprintf("%.2f", pf)
}
