package engine

import (
	"log"
	"math"
	"sync"
	"time"

	"marketflow/internal/config"
	"marketflow/internal/events"
	"marketflow/internal/market"
	"marketflow/internal/metrics"
	"marketflow/internal/signal"
	"marketflow/internal/trade"
)

// State is the read-only snapshot exposed to reporting and monitoring
// collaborators.
type State struct {
	CurrentPrice float64           `json:"current_price"`
	Ticks        int               `json:"ticks"`
	WarmedUp     bool              `json:"warmed_up"`
	Metrics      metrics.Snapshot  `json:"metrics"`
	ActiveTrade  trade.ActiveTrade `json:"active_trade"`
	Performance  trade.Performance `json:"performance"`
}

// AnalysisEngine owns the per-instrument pipeline: market window, metrics,
// signal evaluation and the trade lifecycle. ProcessTick is the sole
// mutating entry point and SnapshotState the sole read entry point; one
// mutex serializes both, so the engine is safe for concurrent callers while
// each tick is processed to completion in arrival order.
type AnalysisEngine struct {
	mu sync.Mutex

	cfg     config.Config
	bus     *events.Bus
	window  *market.Window
	metrics *metrics.Engine
	signals *signal.Engine
	trades  *trade.Manager
}

// New wires an analysis engine from its configuration. The bus is created
// internally so subscribers attach through Bus(); journal may be nil.
func New(cfg config.Config, journal trade.Journal) *AnalysisEngine {
	bus := events.NewBus()
	window := market.NewWindow()
	return &AnalysisEngine{
		cfg:     cfg,
		bus:     bus,
		window:  window,
		metrics: metrics.NewEngine(window),
		signals: signal.NewEngine(cfg),
		trades:  trade.NewManager(cfg, bus, journal),
	}
}

// Bus exposes the event feed for subscription.
func (e *AnalysisEngine) Bus() *events.Bus {
	return e.bus
}

// Config returns the immutable configuration the engine was built with.
func (e *AnalysisEngine) Config() config.Config {
	return e.cfg
}

// ProcessTick ingests one trade tick identified by an epoch-millisecond
// timestamp and returns the instruction it produced, if any. Invalid ticks
// are logged and dropped without mutating state.
func (e *AnalysisEngine) ProcessTick(price, volume float64, isAsk bool, timestampMillis int64) *signal.Instruction {
	var ts time.Time
	if timestampMillis > 0 {
		ts = time.UnixMilli(timestampMillis)
	}
	return e.ProcessTickAt(price, volume, isAsk, ts)
}

// ProcessTickAt is ProcessTick with an explicit timestamp, used by the
// replay and backtest drivers. A zero timestamp is replaced with the
// current time.
func (e *AnalysisEngine) ProcessTickAt(price, volume float64, isAsk bool, ts time.Time) *signal.Instruction {
	if !validTick(price, volume) {
		log.Printf("dropping invalid tick: price=%v volume=%v", price, volume)
		return nil
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.window.AddTick(price, volume, isAsk, ts)
	e.metrics.Recompute()

	e.bus.Emit(events.New(events.TypeTick, map[string]interface{}{
		"price":  e.window.CurrentPrice(),
		"volume": volume,
		"is_ask": isAsk,
		"time":   ts,
	}))

	if !e.window.HasMinimum(e.cfg.WarmupTicks) {
		return nil
	}

	snap := e.metrics.Snapshot()
	current := e.window.CurrentPrice()

	if e.trades.IsActive() {
		return e.evaluateOpenPosition(current, ts, snap)
	}
	return e.evaluateEntry(current, ts, snap)
}

func (e *AnalysisEngine) evaluateOpenPosition(price float64, ts time.Time, snap metrics.Snapshot) *signal.Instruction {
	e.trades.TrackPrice(price)

	decision := e.signals.EvaluateExit(price, ts, snap, e.trades.View())
	if decision == nil {
		return nil
	}

	if decision.UpdatedStop > 0 {
		e.trades.UpdateStopLoss(decision.UpdatedStop)
	}
	if !decision.Close {
		return nil
	}

	// CloseTrade emits TradeClosed first; the Signal event always follows
	// the lifecycle event for the same tick.
	e.trades.CloseTrade(price, decision.Reason, ts, snap)

	instr := &signal.Instruction{
		Action:      signal.ActionClose,
		Price:       price,
		Time:        ts,
		Reason:      decision.Reason,
		ProfitPct:   decision.ProfitPct,
		UpdatedStop: decision.UpdatedStop,
		Metrics:     snap.Rounded(),
	}
	e.emitSignal(instr)
	return instr
}

func (e *AnalysisEngine) evaluateEntry(price float64, ts time.Time, snap metrics.Snapshot) *signal.Instruction {
	instr := e.signals.EvaluateEntry(price, ts, snap)
	if instr == nil {
		return nil
	}

	if !e.trades.OpenTrade(price, "buy", ts, snap) {
		return nil
	}
	e.emitSignal(instr)
	return instr
}

func (e *AnalysisEngine) emitSignal(instr *signal.Instruction) {
	e.bus.Emit(events.New(events.TypeSignal, map[string]interface{}{
		"action":     string(instr.Action),
		"price":      instr.Price,
		"time":       instr.Time,
		"reason":     string(instr.Reason),
		"profit_pct": instr.ProfitPct,
		"metrics":    instr.Metrics,
	}))
}

// SnapshotState returns a consistent read-only view of the engine. Safe for
// concurrent callers.
func (e *AnalysisEngine) SnapshotState() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		CurrentPrice: e.window.CurrentPrice(),
		Ticks:        e.window.Len(),
		WarmedUp:     e.window.HasMinimum(e.cfg.WarmupTicks),
		Metrics:      e.metrics.Snapshot(),
		ActiveTrade:  e.trades.Trade(),
		Performance:  e.trades.Performance(),
	}
}

// History returns a copy of all closed-trade records.
func (e *AnalysisEngine) History() []trade.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trades.History()
}

// Reset clears all market and trade state while keeping configuration and
// subscriptions, so one engine can be reused across backtest runs.
func (e *AnalysisEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.window.Reset()
	e.metrics.Reset()
	e.trades.Reset()
}

func validTick(price, volume float64) bool {
	if price <= 0 || volume <= 0 {
		return false
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || math.IsNaN(volume) || math.IsInf(volume, 0) {
		return false
	}
	return true
}
