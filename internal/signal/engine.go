package signal

import (
	"time"

	"marketflow/internal/config"
	"marketflow/internal/metrics"
)

// Engine is the pure decision function mapping (price, metrics, position
// state) to entry and exit instructions. It holds no mutable state beyond
// its configuration, so one engine can be shared across evaluations.
type Engine struct {
	cfg config.Config
}

// NewEngine creates a signal engine bound to a parameter set.
func NewEngine(cfg config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// EvaluateEntry checks the conjunctive entry conditions and returns a BUY
// instruction when all hold, nil otherwise.
func (e *Engine) EvaluateEntry(price float64, ts time.Time, m metrics.Snapshot) *Instruction {
	entry := e.cfg.Entry

	if m.RealizedVolatility < entry.VolatilityMin {
		return nil
	}
	if entry.VolatilityMax > 0 && m.RealizedVolatility > entry.VolatilityMax {
		return nil
	}
	if m.RelativeStrength < entry.RelativeStrengthMin {
		return nil
	}
	if entry.RelativeStrengthMax > 0 && m.RelativeStrength > entry.RelativeStrengthMax {
		return nil
	}
	if m.TrendStrength < entry.TrendStrengthMin || m.TrendStrength <= m.AvgTrendStrength {
		return nil
	}
	if m.AvgTrendStrength < entry.AvgTrendStrengthMin {
		return nil
	}
	if m.OrderImbalance < entry.OrderImbalanceMin {
		return nil
	}
	if m.MarketEfficiencyRatio < entry.EfficiencyRatioMin {
		return nil
	}

	return &Instruction{
		Action:  ActionBuy,
		Price:   price,
		Time:    ts,
		Metrics: m.Rounded(),
	}
}

// EvaluateExit checks the exit conditions for an open long position in a
// fixed precedence: stop loss, take profit, then (after a trailing-stop
// tighten that never closes by itself) time exit and trend reversal.
// It returns nil when the position should be left alone, or a decision
// that may carry only a tightened stop.
func (e *Engine) EvaluateExit(price float64, ts time.Time, m metrics.Snapshot, pos PositionView) *ExitDecision {
	if pos.EntryPrice <= 0 {
		return nil
	}

	exit := e.cfg.Exit

	highest := pos.HighestPrice
	if price > highest {
		highest = price
	}
	profitPct := (price/pos.EntryPrice - 1) * 100

	decision := &ExitDecision{ProfitPct: profitPct}

	// The trail only ever raises the stop; an exit through the raised stop
	// happens on a later tick via the stop-loss check.
	if profitPct/100 >= exit.TrailingActivationPct/100 && highest > 0 && m.ATR > 0 {
		trailDistance := exit.TrailingDistance * m.ATR / highest
		trailLevel := highest * (1 - trailDistance)
		if trailLevel > pos.StopLoss {
			decision.UpdatedStop = trailLevel
		}
	}

	switch {
	case price <= pos.StopLoss:
		decision.Close = true
		decision.Reason = ReasonStopLoss
	case price >= pos.TakeProfit:
		decision.Close = true
		decision.Reason = ReasonTakeProfit
	case e.timeExitTriggered(ts, pos.EntryTime, profitPct):
		decision.Close = true
		decision.Reason = ReasonTimeExit
	case e.trendReversalTriggered(m.TrendStrength, profitPct):
		decision.Close = true
		decision.Reason = ReasonTrendReversal
	}

	if !decision.Close && decision.UpdatedStop == 0 {
		return nil
	}
	return decision
}

func (e *Engine) timeExitTriggered(now, entryTime time.Time, profitPct float64) bool {
	if entryTime.IsZero() {
		return false
	}
	age := now.Sub(entryTime).Hours()
	if age <= e.cfg.Exit.TimeExitHours {
		return false
	}
	if e.cfg.RuleVariant == config.RuleGated && profitPct < e.cfg.Exit.MinProfitForTimedExits {
		return false
	}
	return true
}

func (e *Engine) trendReversalTriggered(trend, profitPct float64) bool {
	if trend >= e.cfg.Exit.TrendReversalThreshold {
		return false
	}
	if e.cfg.RuleVariant == config.RuleGated && profitPct < e.cfg.Exit.MinProfitForTimedExits {
		return false
	}
	return true
}
