package trade

import (
	"math"
	"time"

	"marketflow/internal/config"
	"marketflow/internal/events"
	"marketflow/internal/metrics"
	"marketflow/internal/signal"
)

const (
	stopAtrMultiplier = 1.5
	minStopFraction   = 0.001
	minPositionSize   = 0.005
	maxPositionSize   = 0.05
)

// Manager owns the single active position: it opens and closes trades,
// maintains the trailing stop level handed down by the signal engine, sizes
// positions adaptively and emits lifecycle events. It is not safe for
// concurrent use; the analysis engine serializes all calls.
type Manager struct {
	cfg     config.Config
	bus     *events.Bus
	journal Journal
	tracker *Tracker
	trade   ActiveTrade
}

// NewManager creates a flat manager. A nil journal is replaced with the
// discarding sink.
func NewManager(cfg config.Config, bus *events.Bus, journal Journal) *Manager {
	if journal == nil {
		journal = NopJournal{}
	}
	return &Manager{
		cfg:     cfg,
		bus:     bus,
		journal: journal,
		tracker: NewTracker(),
		trade:   inactiveTrade(),
	}
}

// IsActive reports whether a position is currently open.
func (m *Manager) IsActive() bool {
	return m.trade.Active
}

// View returns the current position state for exit evaluation.
func (m *Manager) View() signal.PositionView {
	return m.trade.View()
}

// Trade returns a copy of the active-trade state.
func (m *Manager) Trade() ActiveTrade {
	return m.trade
}

// Performance returns the aggregate closed-trade statistics.
func (m *Manager) Performance() Performance {
	return m.tracker.Snapshot()
}

// History returns a copy of all closed-trade records.
func (m *Manager) History() []Record {
	return m.tracker.History()
}

// OpenTrade opens a long position at the given price. It rejects
// non-positive prices and refuses to stack a second position on top of an
// open one. The stop sits 1.5 ATR below entry (floored at 0.1% of price)
// and the target at the stop distance times the reward multiplier.
func (m *Manager) OpenTrade(price float64, direction string, ts time.Time, snap metrics.Snapshot) bool {
	if price <= 0 || m.trade.Active {
		return false
	}

	size := m.positionSize(snap)

	atr := snap.ATR
	if floor := price * minStopFraction; atr < floor {
		atr = floor
	}
	stopDistance := stopAtrMultiplier * atr
	profitDistance := stopDistance * m.cfg.Exit.ProfitTargetMultiplier

	m.trade = ActiveTrade{
		Active:       true,
		EntryPrice:   price,
		StopLoss:     price - stopDistance,
		TakeProfit:   price + profitDistance,
		HighestPrice: price,
		LowestPrice:  price,
		Direction:    direction,
		Size:         size,
		EntryTime:    ts,
	}

	m.emit(events.TypeTradeOpened, map[string]interface{}{
		"entry_price": price,
		"stop_loss":   m.trade.StopLoss,
		"take_profit": m.trade.TakeProfit,
		"size":        size,
		"direction":   direction,
		"entry_time":  ts,
		"metrics":     snap.Rounded(),
	})
	return true
}

// CloseTrade closes the open position at the given price and records the
// outcome. Calling it while flat, or with a non-positive exit price, is a
// no-op so double closes cannot corrupt the performance history.
func (m *Manager) CloseTrade(exitPrice float64, reason signal.Reason, ts time.Time, snap metrics.Snapshot) *Record {
	if !m.trade.Active || exitPrice <= 0 {
		return nil
	}

	pnlPercent := (exitPrice/m.trade.EntryPrice - 1) * 100
	pnlValue := m.trade.Size * pnlPercent / 100

	rec := Record{
		EntryTime:       m.trade.EntryTime,
		ExitTime:        ts,
		DurationMinutes: ts.Sub(m.trade.EntryTime).Minutes(),
		Direction:       m.trade.Direction,
		EntryPrice:      m.trade.EntryPrice,
		ExitPrice:       exitPrice,
		Size:            m.trade.Size,
		PnLPercent:      pnlPercent,
		PnLValue:        pnlValue,
		ExitReason:      reason,
		MetricsAtExit:   snap.Rounded(),
	}

	m.tracker.Add(rec)
	if err := m.journal.Append(rec); err != nil {
		m.emit(events.TypeError, map[string]interface{}{
			"stage": "journal",
			"error": err.Error(),
		})
	}

	m.emit(events.TypeTradeClosed, map[string]interface{}{
		"entry_price": rec.EntryPrice,
		"exit_price":  rec.ExitPrice,
		"pnl_percent": rec.PnLPercent,
		"pnl_value":   rec.PnLValue,
		"reason":      string(reason),
		"duration_m":  rec.DurationMinutes,
	})

	m.trade = inactiveTrade()
	return &rec
}

// UpdateStopLoss raises the stop on the open position. It trusts the caller
// to only pass tightened levels; the signal engine already guarantees that.
func (m *Manager) UpdateStopLoss(newStop float64) bool {
	if !m.trade.Active || newStop <= 0 {
		return false
	}
	m.trade.StopLoss = newStop
	return true
}

// TrackPrice folds a tick into the open position's running extremes.
func (m *Manager) TrackPrice(price float64) {
	if !m.trade.Active {
		return
	}
	if price > m.trade.HighestPrice {
		m.trade.HighestPrice = price
	}
	if price < m.trade.LowestPrice {
		m.trade.LowestPrice = price
	}
}

// Reset closes out all state: the position, the performance history, and
// nothing else. Intended for backtest reuse.
func (m *Manager) Reset() {
	m.trade = inactiveTrade()
	m.tracker.Reset()
}

// positionSize computes the risk fraction for the next trade. With adaptive
// sizing off it is the configured base risk; with it on, the base is scaled
// down by volatility and negative trend and up by a proven win rate, then
// clamped to [0.005, 0.05]. Any non-finite intermediate falls back to the
// base risk unchanged.
func (m *Manager) positionSize(snap metrics.Snapshot) float64 {
	base := m.cfg.RiskFactor
	if !m.cfg.AdaptiveSizing {
		return base
	}

	volFactor := 1 - math.Min(0.5, snap.RealizedVolatility/50)

	trendPenalty := 0.0
	if snap.TrendStrength < 0 {
		trendPenalty = math.Min(0.3, -snap.TrendStrength)
	}

	perfFactor := 1.0
	if perf := m.tracker.Snapshot(); perf.TotalTrades >= 10 {
		perfFactor = math.Min(1.3, perf.WinRate*1.5)
	}

	size := base * volFactor * (1 - trendPenalty) * perfFactor
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return base
	}
	return clamp(size, minPositionSize, maxPositionSize)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Manager) emit(t events.Type, data map[string]interface{}) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(events.New(t, data))
}
