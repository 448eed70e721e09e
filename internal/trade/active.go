package trade

import (
	"math"
	"time"

	"marketflow/internal/signal"
)

// ActiveTrade is the single open position owned by the Manager. It is
// created inactive, mutated in place while open, and reset to inactive
// defaults on close. LowestPrice uses +Inf as its "unset" sentinel so the
// first tracked price always replaces it.
type ActiveTrade struct {
	Active       bool
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	HighestPrice float64
	LowestPrice  float64
	Direction    string
	Size         float64
	EntryTime    time.Time
}

func inactiveTrade() ActiveTrade {
	return ActiveTrade{LowestPrice: math.Inf(1)}
}

// View exposes the slice of state the signal engine needs for exit
// evaluation.
func (t ActiveTrade) View() signal.PositionView {
	return signal.PositionView{
		EntryPrice:   t.EntryPrice,
		StopLoss:     t.StopLoss,
		TakeProfit:   t.TakeProfit,
		HighestPrice: t.HighestPrice,
		EntryTime:    t.EntryTime,
	}
}

// Record is an immutable closed-trade entry. Once built it is appended to
// the performance history and the journal and never mutated.
type Record struct {
	EntryTime       time.Time          `json:"entry_time"`
	ExitTime        time.Time          `json:"exit_time"`
	DurationMinutes float64            `json:"duration_minutes"`
	Direction       string             `json:"direction"`
	EntryPrice      float64            `json:"entry_price"`
	ExitPrice       float64            `json:"exit_price"`
	Size            float64            `json:"size"`
	PnLPercent      float64            `json:"pnl_percent"`
	PnLValue        float64            `json:"pnl_value"`
	ExitReason      signal.Reason      `json:"exit_reason"`
	MetricsAtExit   map[string]float64 `json:"metrics_at_exit"`
}

// Journal is the external sink closed trades are handed to. The core does
// not depend on its storage format.
type Journal interface {
	Append(Record) error
}

// NopJournal discards records; used when no persistence is wanted.
type NopJournal struct{}

// Append implements Journal.
func (NopJournal) Append(Record) error { return nil }
