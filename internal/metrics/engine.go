package metrics

import (
	"math"

	"marketflow/internal/market"
)

const (
	// minTicks is the history required before any statistic is derived.
	minTicks = 20

	// annualization converts intraday tick-return volatility to an
	// annualized percentage: sqrt(252 trading days * 1440 minutes).
	annualization = 252 * 1440

	atrPeriod       = 14
	atrMinPrices    = 150
	trendWindowSize = 30
	trendBufferCap  = 20
	trendBufferMin  = 7
	strengthWindow  = 500
)

// Snapshot holds the seven derived market statistics. It is produced
// atomically: a failed recomputation leaves the previous snapshot intact.
type Snapshot struct {
	RealizedVolatility    float64 `json:"realized_volatility"`
	ATR                   float64 `json:"atr"`
	RelativeStrength      float64 `json:"relative_strength"`
	OrderImbalance        float64 `json:"order_imbalance"`
	TrendStrength         float64 `json:"trend_strength"`
	AvgTrendStrength      float64 `json:"avg_trend_strength"`
	MarketEfficiencyRatio float64 `json:"market_efficiency_ratio"`
}

// Rounded returns the snapshot as a map with values rounded to four
// decimals, the form carried on signal and trade events.
func (s Snapshot) Rounded() map[string]float64 {
	round4 := func(v float64) float64 { return math.Round(v*10000) / 10000 }
	return map[string]float64{
		"realized_volatility":     round4(s.RealizedVolatility),
		"atr":                     round4(s.ATR),
		"relative_strength":       round4(s.RelativeStrength),
		"order_imbalance":         round4(s.OrderImbalance),
		"trend_strength":          round4(s.TrendStrength),
		"avg_trend_strength":      round4(s.AvgTrendStrength),
		"market_efficiency_ratio": round4(s.MarketEfficiencyRatio),
	}
}

// neutralSnapshot is the pre-warmup state: ratio metrics sit at their
// neutral midpoint, everything else at zero.
func neutralSnapshot() Snapshot {
	return Snapshot{RelativeStrength: 0.5, OrderImbalance: 0.5}
}

// Engine derives market statistics from a rolling window. Not safe for
// concurrent use; the analysis engine serializes access.
type Engine struct {
	window      *market.Window
	trendBuffer []float64
	snap        Snapshot
}

// NewEngine creates a metrics engine reading from the given window.
func NewEngine(w *market.Window) *Engine {
	return &Engine{
		window:      w,
		trendBuffer: make([]float64, 0, trendBufferCap),
		snap:        neutralSnapshot(),
	}
}

// Snapshot returns the last successfully computed snapshot.
func (e *Engine) Snapshot() Snapshot {
	return e.snap
}

// Reset restores the neutral snapshot and clears the trend buffer.
func (e *Engine) Reset() {
	e.trendBuffer = e.trendBuffer[:0]
	e.snap = neutralSnapshot()
}

// Recompute derives all statistics from the current window. It returns
// false without mutating the snapshot when there is insufficient history
// or the inputs are degenerate. Individual metrics fall back to neutral
// values on their own degenerate cases; the snapshot is only replaced
// once the full set has been computed.
func (e *Engine) Recompute() bool {
	if !e.window.HasMinimum(minTicks) {
		return false
	}

	prices := e.window.Prices()
	volumes := e.window.Volumes()
	if len(prices) < 2 {
		return false
	}
	if hasInvalid(prices) || hasInvalid(volumes) {
		return false
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}

	volatility := sampleStdDev(returns) * math.Sqrt(annualization) * 100

	next := Snapshot{
		RealizedVolatility:    volatility,
		ATR:                   e.averageTrueRange(prices, volatility),
		RelativeStrength:      relativeStrength(returns),
		OrderImbalance:        e.orderImbalance(),
		TrendStrength:         trendStrength(prices),
		MarketEfficiencyRatio: efficiencyRatio(prices),
	}

	e.trendBuffer = append(e.trendBuffer, next.TrendStrength)
	if len(e.trendBuffer) > trendBufferCap {
		e.trendBuffer = e.trendBuffer[1:]
	}
	if len(e.trendBuffer) >= trendBufferMin {
		next.AvgTrendStrength = mean(e.trendBuffer)
	}

	if snapshotInvalid(next) {
		return false
	}

	e.snap = next
	return true
}

// averageTrueRange computes a 14-bar ATR over the high/low envelope once
// enough history exists; otherwise it proxies volatility as a price range.
func (e *Engine) averageTrueRange(prices []float64, volatility float64) float64 {
	highs := e.window.Highs()
	lows := e.window.Lows()

	if len(highs) < atrPeriod || len(lows) < atrPeriod || len(prices) < atrMinPrices {
		return volatility * prices[len(prices)-1] / 100
	}

	sum := 0.0
	for k := 0; k < atrPeriod; k++ {
		high := highs[len(highs)-atrPeriod+k]
		low := lows[len(lows)-atrPeriod+k]
		prevClose := prices[len(prices)-atrPeriod-1+k]

		tr := high - low
		if d := math.Abs(high - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(low - prevClose); d > tr {
			tr = d
		}
		sum += tr
	}
	return sum / atrPeriod
}

// relativeStrength is the share of summed gains in total absolute movement
// over a window of up to 500 returns. 0.5 when there is no movement.
func relativeStrength(returns []float64) float64 {
	window := len(returns)
	if window > strengthWindow {
		window = strengthWindow
	}
	if window < 2 {
		return 0.5
	}

	gains, losses := 0.0, 0.0
	for _, r := range returns[len(returns)-window:] {
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	if gains+losses == 0 {
		return 0.5
	}
	return gains / (gains + losses)
}

// orderImbalance is the bid share of retained volume. 0.5 when no volume
// has been seen on either side.
func (e *Engine) orderImbalance() float64 {
	bid := sum(e.window.BidVolumes())
	ask := sum(e.window.AskVolumes())
	if bid+ask == 0 {
		return 0.5
	}
	return bid / (bid + ask)
}

// trendStrength regresses the last 30 prices against their index and
// scales slope by fit quality and price level so values are comparable
// across instruments. 0 with fewer than 30 samples or a flat window.
func trendStrength(prices []float64) float64 {
	if len(prices) < trendWindowSize {
		return 0
	}
	window := prices[len(prices)-trendWindowSize:]

	n := float64(trendWindowSize)
	meanX := (n - 1) / 2
	meanY := mean(window)

	covXY, varX, varY := 0.0, 0.0, 0.0
	for i, y := range window {
		dx := float64(i) - meanX
		dy := y - meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 || meanY == 0 {
		return 0
	}

	slope := covXY / varX
	r2 := (covXY * covXY) / (varX * varY)
	return slope * r2 * (trendWindowSize / meanY) * 100000
}

// efficiencyRatio is net displacement over path length across the last 30
// samples. 0.5 with insufficient history or a zero-length path.
func efficiencyRatio(prices []float64) float64 {
	if len(prices) < trendWindowSize {
		return 0.5
	}
	window := prices[len(prices)-trendWindowSize:]

	net := math.Abs(window[len(window)-1] - window[0])
	path := 0.0
	for i := 1; i < len(window); i++ {
		path += math.Abs(window[i] - window[i-1])
	}
	if path == 0 {
		return 0.5
	}
	return net / path
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func hasInvalid(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func snapshotInvalid(s Snapshot) bool {
	return hasInvalid([]float64{
		s.RealizedVolatility, s.ATR, s.RelativeStrength, s.OrderImbalance,
		s.TrendStrength, s.AvgTrendStrength, s.MarketEfficiencyRatio,
	})
}
