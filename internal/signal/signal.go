package signal

import "time"

// Action is the kind of instruction the engine produces.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionClose Action = "CLOSE"
)

// Reason tags why a close instruction fired.
type Reason string

const (
	ReasonStopLoss      Reason = "stop_loss"
	ReasonTakeProfit    Reason = "take_profit"
	ReasonTimeExit      Reason = "time_exit"
	ReasonTrendReversal Reason = "trend_reversal"
)

// Instruction is a trade decision produced from one tick. Buy instructions
// carry a rounded copy of the metrics that justified entry; close
// instructions carry the exit reason, realized profit percentage and the
// possibly-tightened stop level.
type Instruction struct {
	Action      Action
	Price       float64
	Time        time.Time
	Reason      Reason
	ProfitPct   float64
	UpdatedStop float64
	Metrics     map[string]float64
}

// PositionView is the read-only slice of active-trade state the signal
// engine needs to evaluate exits.
type PositionView struct {
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	HighestPrice float64
	EntryTime    time.Time
}

// ExitDecision is the outcome of evaluating an open position against one
// tick. UpdatedStop is set whenever the trailing stop tightened, whether
// or not the position should close.
type ExitDecision struct {
	Close       bool
	Reason      Reason
	ProfitPct   float64
	UpdatedStop float64
}
