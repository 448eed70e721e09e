package trade

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketflow/internal/config"
	"marketflow/internal/events"
	"marketflow/internal/metrics"
	"marketflow/internal/signal"
)

type recordingJournal struct {
	records []Record
	err     error
}

func (j *recordingJournal) Append(r Record) error {
	j.records = append(j.records, r)
	return j.err
}

func newTestManager(t *testing.T) (*Manager, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	return NewManager(config.Default(), bus, nil), bus
}

func TestManager_OpenTradeComputesStopAndTarget(t *testing.T) {
	m, _ := newTestManager(t)
	ts := time.Now()

	ok := m.OpenTrade(100, "buy", ts, metrics.Snapshot{ATR: 2})
	require.True(t, ok)
	require.True(t, m.IsActive())

	tr := m.Trade()
	assert.Equal(t, 100.0, tr.EntryPrice)
	assert.InDelta(t, 97.0, tr.StopLoss, 1e-9)
	assert.InDelta(t, 107.5, tr.TakeProfit, 1e-9)
	assert.Equal(t, 100.0, tr.HighestPrice)
	assert.Equal(t, ts, tr.EntryTime)
}

func TestManager_OpenTradeStopFloorWhenATRTiny(t *testing.T) {
	m, _ := newTestManager(t)

	require.True(t, m.OpenTrade(50000, "buy", time.Now(), metrics.Snapshot{ATR: 0.01}))

	// ATR below 0.1% of price: stop distance is 1.5 * 50.
	assert.InDelta(t, 50000-75, m.Trade().StopLoss, 1e-6)
}

func TestManager_OpenTradeRejections(t *testing.T) {
	m, _ := newTestManager(t)

	assert.False(t, m.OpenTrade(0, "buy", time.Now(), metrics.Snapshot{}))
	assert.False(t, m.OpenTrade(-5, "buy", time.Now(), metrics.Snapshot{}))

	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))
	assert.False(t, m.OpenTrade(101, "buy", time.Now(), metrics.Snapshot{ATR: 2}),
		"a second open while a position exists must be rejected")
}

func TestManager_CloseTradeRecordsOutcome(t *testing.T) {
	journal := &recordingJournal{}
	m := NewManager(config.Default(), events.NewBus(), journal)

	entryTime := time.Now().Add(-30 * time.Minute)
	require.True(t, m.OpenTrade(100, "buy", entryTime, metrics.Snapshot{ATR: 2}))
	size := m.Trade().Size

	exitTime := time.Now()
	rec := m.CloseTrade(108, signal.ReasonTakeProfit, exitTime, metrics.Snapshot{ATR: 2})
	require.NotNil(t, rec)

	assert.InDelta(t, 8.0, rec.PnLPercent, 1e-9)
	assert.InDelta(t, size*0.08, rec.PnLValue, 1e-9)
	assert.Equal(t, signal.ReasonTakeProfit, rec.ExitReason)
	assert.InDelta(t, 30.0, rec.DurationMinutes, 0.1)

	assert.False(t, m.IsActive())
	assert.True(t, math.IsInf(m.Trade().LowestPrice, 1), "lowest price resets to the +Inf sentinel")
	assert.Equal(t, 1, m.Performance().TotalTrades)
	require.Len(t, journal.records, 1)
	assert.Equal(t, *rec, journal.records[0])
}

func TestManager_DoubleCloseIsNoOp(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))

	require.NotNil(t, m.CloseTrade(105, signal.ReasonTakeProfit, time.Now(), metrics.Snapshot{}))
	before := m.Performance()

	assert.Nil(t, m.CloseTrade(90, signal.ReasonStopLoss, time.Now(), metrics.Snapshot{}))
	assert.Equal(t, before, m.Performance())
}

func TestManager_CloseTradeRejectsBadPrice(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))

	assert.Nil(t, m.CloseTrade(0, signal.ReasonStopLoss, time.Now(), metrics.Snapshot{}))
	assert.True(t, m.IsActive())
}

func TestManager_JournalErrorDoesNotBlockClose(t *testing.T) {
	journal := &recordingJournal{err: errors.New("disk full")}
	m := NewManager(config.Default(), events.NewBus(), journal)

	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))
	require.NotNil(t, m.CloseTrade(101, signal.ReasonTimeExit, time.Now(), metrics.Snapshot{}))

	assert.False(t, m.IsActive())
	assert.Equal(t, 1, m.Performance().TotalTrades)
}

func TestManager_UpdateStopLoss(t *testing.T) {
	m, _ := newTestManager(t)

	assert.False(t, m.UpdateStopLoss(99), "no effect while flat")

	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))
	assert.False(t, m.UpdateStopLoss(0))
	assert.True(t, m.UpdateStopLoss(99))
	assert.Equal(t, 99.0, m.Trade().StopLoss)
}

func TestManager_TrackPriceUpdatesExtremes(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))

	m.TrackPrice(110)
	m.TrackPrice(90)
	m.TrackPrice(105)

	tr := m.Trade()
	assert.Equal(t, 110.0, tr.HighestPrice)
	assert.Equal(t, 90.0, tr.LowestPrice)
}

func TestManager_LifecycleEvents(t *testing.T) {
	m, bus := newTestManager(t)

	var seen []events.Type
	bus.Subscribe(events.TypeTradeOpened, func(ev events.Event) { seen = append(seen, ev.Type) })
	bus.Subscribe(events.TypeTradeClosed, func(ev events.Event) { seen = append(seen, ev.Type) })

	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))
	require.NotNil(t, m.CloseTrade(103, signal.ReasonTrendReversal, time.Now(), metrics.Snapshot{}))

	require.Equal(t, []events.Type{events.TypeTradeOpened, events.TypeTradeClosed}, seen)
}

func TestManager_AdaptiveSizeAlwaysWithinBounds(t *testing.T) {
	m, _ := newTestManager(t)

	snapshots := []metrics.Snapshot{
		{},
		{RealizedVolatility: 500, TrendStrength: -50},
		{RealizedVolatility: 0.1, TrendStrength: 20},
		{RealizedVolatility: math.MaxFloat64 / 2, TrendStrength: -math.MaxFloat64 / 2},
	}
	for _, snap := range snapshots {
		size := m.positionSize(snap)
		assert.GreaterOrEqual(t, size, 0.005)
		assert.LessOrEqual(t, size, 0.05)
	}
}

func TestManager_SizingRespectsDisabledAdaptiveMode(t *testing.T) {
	cfg := config.Default()
	cfg.AdaptiveSizing = false
	cfg.RiskFactor = 0.02
	m := NewManager(cfg, events.NewBus(), nil)

	assert.Equal(t, 0.02, m.positionSize(metrics.Snapshot{RealizedVolatility: 100}))
}

func TestManager_SizingScalesDownWithVolatilityAndNegativeTrend(t *testing.T) {
	m, _ := newTestManager(t)

	calm := m.positionSize(metrics.Snapshot{RealizedVolatility: 1, TrendStrength: 5})
	stormy := m.positionSize(metrics.Snapshot{RealizedVolatility: 40, TrendStrength: -1})

	assert.Greater(t, calm, stormy)
	// vol factor 1-0.8=0.2... base 0.02*0.2*(1-0.3) = 0.0028, clamped up.
	assert.Equal(t, 0.005, stormy)
}

func TestManager_Reset(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.OpenTrade(100, "buy", time.Now(), metrics.Snapshot{ATR: 2}))
	require.NotNil(t, m.CloseTrade(101, signal.ReasonTimeExit, time.Now(), metrics.Snapshot{}))

	m.Reset()
	assert.False(t, m.IsActive())
	assert.Equal(t, 0, m.Performance().TotalTrades)
}
