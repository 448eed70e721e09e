package trade

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(pnlPercent, size float64) Record {
	return Record{
		EntryTime:  time.Now().Add(-time.Hour),
		ExitTime:   time.Now(),
		Direction:  "buy",
		EntryPrice: 100,
		ExitPrice:  100 * (1 + pnlPercent/100),
		Size:       size,
		PnLPercent: pnlPercent,
		PnLValue:   size * pnlPercent / 100,
		ExitReason: "take_profit",
	}
}

func TestTracker_InitialState(t *testing.T) {
	tr := NewTracker()
	perf := tr.Snapshot()

	assert.Equal(t, 0, perf.TotalTrades)
	assert.Equal(t, 1.0, perf.ProfitFactor)
	assert.Zero(t, perf.WinRate)
	assert.Zero(t, perf.SharpeLike)
}

func TestTracker_TotalTradesTracksHistoryLength(t *testing.T) {
	tr := NewTracker()

	for i := 1; i <= 5; i++ {
		tr.Add(record(float64(i), 0.02))
		assert.Equal(t, i, tr.Snapshot().TotalTrades)
		assert.Len(t, tr.History(), i)
	}
}

func TestTracker_WinRateAndAverages(t *testing.T) {
	tr := NewTracker()
	tr.Add(record(4.0, 0.02))
	tr.Add(record(2.0, 0.02))
	tr.Add(record(-3.0, 0.02))

	perf := tr.Snapshot()
	assert.Equal(t, 3, perf.TotalTrades)
	assert.Equal(t, 2, perf.WinningTrades)
	assert.InDelta(t, 2.0/3.0, perf.WinRate, 1e-9)
	assert.InDelta(t, 3.0, perf.AvgWin, 1e-9)
	assert.InDelta(t, 3.0, perf.AvgLoss, 1e-9)
	assert.InDelta(t, 2.0, perf.ProfitFactor, 1e-9)
}

func TestTracker_ProfitFactorInfiniteWithoutLosses(t *testing.T) {
	tr := NewTracker()
	tr.Add(record(1.5, 0.02))
	tr.Add(record(0.7, 0.02))

	assert.True(t, math.IsInf(tr.Snapshot().ProfitFactor, 1))
}

func TestTracker_MaxDrawdown(t *testing.T) {
	tr := NewTracker()
	// Equity path: +0.02, -0.01, -0.03 → peak 0.02, trough -0.02.
	tr.Add(record(100, 0.02))
	tr.Add(record(-50, 0.02))
	tr.Add(record(-100, 0.03))

	assert.InDelta(t, 0.04, tr.Snapshot().MaxDrawdown, 1e-9)
}

func TestTracker_SharpeLikeNeedsTwoVaryingTrades(t *testing.T) {
	tr := NewTracker()
	tr.Add(record(2.0, 0.02))
	assert.Zero(t, tr.Snapshot().SharpeLike)

	tr.Add(record(2.0, 0.02))
	assert.Zero(t, tr.Snapshot().SharpeLike, "zero stdev yields zero ratio")

	tr.Add(record(4.0, 0.02))
	perf := tr.Snapshot()
	require.Greater(t, perf.SharpeLike, 0.0)

	// mean 8/3, stdev of {2,2,4} with ddof=1, scaled by sqrt(252).
	mean := 8.0 / 3.0
	std := math.Sqrt(((2-mean)*(2-mean) + (2-mean)*(2-mean) + (4-mean)*(4-mean)) / 2)
	assert.InDelta(t, mean/std*math.Sqrt(252), perf.SharpeLike, 1e-9)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.Add(record(2.0, 0.02))
	tr.Reset()

	assert.Equal(t, 0, tr.Snapshot().TotalTrades)
	assert.Equal(t, 1.0, tr.Snapshot().ProfitFactor)
	assert.Empty(t, tr.History())
}
