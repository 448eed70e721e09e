package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketflow/internal/market"
)

func feedTicks(w *market.Window, prices []float64) {
	ts := time.Now()
	for i, p := range prices {
		w.AddTick(p, 1.0, i%2 == 0, ts.Add(time.Duration(i)*time.Second))
	}
}

func flatPrices(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestRecompute_RequiresMinimumHistory(t *testing.T) {
	w := market.NewWindow()
	e := NewEngine(w)

	feedTicks(w, flatPrices(100, 19))
	assert.False(t, e.Recompute())

	w.AddTick(100, 1.0, false, time.Now())
	assert.True(t, e.Recompute())
}

func TestRecompute_FlatWindowNeutralMetrics(t *testing.T) {
	// 20 identical-price ticks, volume 1, alternating sides: volatility 0,
	// relative strength 0.5, order imbalance 0.5, trend strength 0.
	w := market.NewWindow()
	e := NewEngine(w)
	feedTicks(w, flatPrices(100, 20))

	assert.True(t, e.Recompute())
	snap := e.Snapshot()

	assert.Equal(t, 0.0, snap.RealizedVolatility)
	assert.Equal(t, 0.5, snap.RelativeStrength)
	assert.Equal(t, 0.5, snap.OrderImbalance)
	assert.Equal(t, 0.0, snap.TrendStrength)
}

func TestRecompute_ATRFallbackWithShortHistory(t *testing.T) {
	// Under 150 prices the ATR proxies volatility against the last price.
	w := market.NewWindow()
	e := NewEngine(w)

	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i%5)
	}
	feedTicks(w, prices)

	assert.True(t, e.Recompute())
	snap := e.Snapshot()
	expected := snap.RealizedVolatility * prices[len(prices)-1] / 100
	assert.InDelta(t, expected, snap.ATR, 1e-9)
}

func TestRecompute_ATRTrueRangeWithFullHistory(t *testing.T) {
	w := market.NewWindow()
	e := NewEngine(w)

	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i)/7)*3
	}
	feedTicks(w, prices)

	assert.True(t, e.Recompute())
	snap := e.Snapshot()

	// With a monotone envelope the true range only widens, so the ATR must
	// be at least the final high-low spread divided across the period.
	assert.Greater(t, snap.ATR, 0.0)
	assert.False(t, math.IsNaN(snap.ATR))
}

func TestRelativeStrength_Directional(t *testing.T) {
	// Strictly rising prices: all gains, no losses.
	w := market.NewWindow()
	e := NewEngine(w)

	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.1
	}
	feedTicks(w, prices)

	assert.True(t, e.Recompute())
	assert.Equal(t, 1.0, e.Snapshot().RelativeStrength)
}

func TestOrderImbalance_AllBid(t *testing.T) {
	w := market.NewWindow()
	e := NewEngine(w)
	ts := time.Now()
	for i := 0; i < 25; i++ {
		w.AddTick(100+float64(i)*0.01, 2.0, false, ts)
	}

	assert.True(t, e.Recompute())
	assert.Equal(t, 1.0, e.Snapshot().OrderImbalance)
}

func TestTrendStrength_SignMatchesDirection(t *testing.T) {
	up := market.NewWindow()
	eUp := NewEngine(up)
	rising := make([]float64, 35)
	for i := range rising {
		rising[i] = 100 + float64(i)*0.5
	}
	feedTicks(up, rising)
	assert.True(t, eUp.Recompute())
	assert.Greater(t, eUp.Snapshot().TrendStrength, 0.0)

	down := market.NewWindow()
	eDown := NewEngine(down)
	falling := make([]float64, 35)
	for i := range falling {
		falling[i] = 200 - float64(i)*0.5
	}
	feedTicks(down, falling)
	assert.True(t, eDown.Recompute())
	assert.Less(t, eDown.Snapshot().TrendStrength, 0.0)
}

func TestAvgTrendStrength_RequiresSevenSamples(t *testing.T) {
	w := market.NewWindow()
	e := NewEngine(w)

	prices := make([]float64, 35)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.5
	}
	feedTicks(w, prices)

	for i := 0; i < 6; i++ {
		assert.True(t, e.Recompute())
		assert.Equal(t, 0.0, e.Snapshot().AvgTrendStrength, "no average until 7 samples")
	}

	assert.True(t, e.Recompute())
	assert.NotEqual(t, 0.0, e.Snapshot().AvgTrendStrength)
}

func TestEfficiencyRatio_TrendingVsChoppy(t *testing.T) {
	// A straight line moves its full path length: ratio 1. A saw-tooth
	// covers distance without displacement: ratio near 0.
	trending := market.NewWindow()
	eT := NewEngine(trending)
	line := make([]float64, 35)
	for i := range line {
		line[i] = 100 + float64(i)
	}
	feedTicks(trending, line)
	assert.True(t, eT.Recompute())
	assert.InDelta(t, 1.0, eT.Snapshot().MarketEfficiencyRatio, 1e-9)

	choppy := market.NewWindow()
	eC := NewEngine(choppy)
	saw := make([]float64, 36)
	for i := range saw {
		if i%2 == 0 {
			saw[i] = 100
		} else {
			saw[i] = 101
		}
	}
	feedTicks(choppy, saw)
	assert.True(t, eC.Recompute())
	assert.Less(t, eC.Snapshot().MarketEfficiencyRatio, 0.1)
}

func TestRecompute_StaleSnapshotRetainedOnFailure(t *testing.T) {
	w := market.NewWindow()
	e := NewEngine(w)

	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.1
	}
	feedTicks(w, prices)
	assert.True(t, e.Recompute())
	before := e.Snapshot()

	// Force a failing recompute and verify nothing was overwritten.
	w.Reset()
	assert.False(t, e.Recompute())
	assert.Equal(t, before, e.Snapshot())
}

func TestRecompute_Deterministic(t *testing.T) {
	build := func() Snapshot {
		w := market.NewWindow()
		e := NewEngine(w)
		prices := make([]float64, 60)
		for i := range prices {
			prices[i] = 100 + math.Sin(float64(i)/3)*2
		}
		feedTicks(w, prices)
		e.Recompute()
		return e.Snapshot()
	}

	assert.Equal(t, build(), build())
}
