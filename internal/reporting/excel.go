package reporting

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"marketflow/internal/backtest"
)

var sweepHeaders = []string{
	"Run", "Rule Variant", "Volatility Min", "Trend Min", "Reward Multiple",
	"Time Exit (h)", "Trades", "Win Rate", "Profit Factor", "Max Drawdown", "Net PnL",
}

var tradeHeaders = []string{
	"Entry Time", "Exit Time", "Duration (m)", "Entry", "Exit",
	"Size", "PnL %", "PnL Value", "Reason",
}

// WriteSweepReport writes a parameter-sweep workbook: one row per run on
// the Sweep sheet and the best run's trades on a second sheet.
func WriteSweepReport(path string, results []backtest.Result, best backtest.Result) error {
	fx := excelize.NewFile()
	defer fx.Close()

	sweepSheet := "Sweep"
	fx.SetSheetName("Sheet1", sweepSheet)

	headStyle, err := fx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeaderRow(fx, sweepSheet, sweepHeaders, headStyle); err != nil {
		return err
	}
	for i, r := range results {
		row := i + 2
		values := []interface{}{
			i + 1,
			string(r.Config.RuleVariant),
			r.Config.Entry.VolatilityMin,
			r.Config.Entry.TrendStrengthMin,
			r.Config.Exit.ProfitTargetMultiplier,
			r.Config.Exit.TimeExitHours,
			r.Performance.TotalTrades,
			r.Performance.WinRate,
			profitFactorCell(r.Performance.ProfitFactor),
			r.Performance.MaxDrawdown,
			r.NetPnL,
		}
		if err := writeRow(fx, sweepSheet, row, values); err != nil {
			return err
		}
	}
	fx.SetColWidth(sweepSheet, "A", "K", 16)

	tradesSheet := "Best Run Trades"
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return fmt.Errorf("failed to create trades sheet: %w", err)
	}
	if err := writeHeaderRow(fx, tradesSheet, tradeHeaders, headStyle); err != nil {
		return err
	}
	for i, rec := range best.Records {
		values := []interface{}{
			rec.EntryTime.UTC().Format(time.RFC3339),
			rec.ExitTime.UTC().Format(time.RFC3339),
			rec.DurationMinutes,
			rec.EntryPrice,
			rec.ExitPrice,
			rec.Size,
			rec.PnLPercent,
			rec.PnLValue,
			string(rec.ExitReason),
		}
		if err := writeRow(fx, tradesSheet, i+2, values); err != nil {
			return err
		}
	}
	fx.SetColWidth(tradesSheet, "A", "I", 20)

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}

func writeHeaderRow(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}
	return nil
}

func writeRow(fx *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := fx.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}
	return nil
}

// profitFactorCell keeps infinite profit factors representable in a sheet.
func profitFactorCell(pf float64) interface{} {
	if pf > 1e308 {
		return "inf"
	}
	return pf
}
