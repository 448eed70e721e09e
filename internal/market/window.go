package market

import (
	"fmt"
	"math"
	"time"
)

// DefaultCapacity is the number of ticks each rolling buffer retains.
const DefaultCapacity = 1000

// Window is a bounded rolling store of tick data for a single instrument.
// Oldest entries are evicted once a buffer reaches capacity. The window is
// not safe for concurrent use; the analysis engine serializes access to it.
type Window struct {
	prices    []float64
	volumes   []float64
	bidVolume []float64
	askVolume []float64
	times     []time.Time
	highs     []float64
	lows      []float64

	capacity  int
	precision int
}

// NewWindow creates a window with the default capacity.
func NewWindow() *Window {
	return NewWindowWithCapacity(DefaultCapacity)
}

// NewWindowWithCapacity creates a window retaining at most capacity ticks
// per buffer.
func NewWindowWithCapacity(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		prices:    make([]float64, 0, capacity),
		volumes:   make([]float64, 0, capacity),
		bidVolume: make([]float64, 0, capacity),
		askVolume: make([]float64, 0, capacity),
		times:     make([]time.Time, 0, capacity),
		highs:     make([]float64, 0, capacity),
		lows:      make([]float64, 0, capacity),
		capacity:  capacity,
	}
}

// AddTick rounds the price to the inferred precision and appends the tick
// to all relevant buffers. The high/low buffers carry forward the previous
// extreme when it is not exceeded, producing a monotone envelope rather
// than a true rolling high/low. A zero timestamp is replaced with the
// current time.
func (w *Window) AddTick(price, volume float64, isAsk bool, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}

	if w.precision == 0 {
		w.precision = inferPrecision(price)
	}
	price = roundTo(price, w.precision)

	w.prices = appendBounded(w.prices, price, w.capacity)
	w.volumes = appendBounded(w.volumes, volume, w.capacity)
	w.times = appendBoundedTime(w.times, ts, w.capacity)

	high := price
	if n := len(w.highs); n > 0 && w.highs[n-1] > high {
		high = w.highs[n-1]
	}
	w.highs = appendBounded(w.highs, high, w.capacity)

	low := price
	if n := len(w.lows); n > 0 && w.lows[n-1] < low {
		low = w.lows[n-1]
	}
	w.lows = appendBounded(w.lows, low, w.capacity)

	if isAsk {
		w.askVolume = appendBounded(w.askVolume, volume, w.capacity)
	} else {
		w.bidVolume = appendBounded(w.bidVolume, volume, w.capacity)
	}
}

// HasMinimum reports whether at least n prices have been observed.
func (w *Window) HasMinimum(n int) bool {
	return len(w.prices) >= n
}

// Len returns the number of retained prices.
func (w *Window) Len() int {
	return len(w.prices)
}

// CurrentPrice returns the most recent rounded price, or 0 when empty.
func (w *Window) CurrentPrice() float64 {
	if len(w.prices) == 0 {
		return 0
	}
	return w.prices[len(w.prices)-1]
}

// Precision returns the inferred decimal precision (0 until the first tick).
func (w *Window) Precision() int {
	return w.precision
}

// Prices returns a copy of the retained price history.
func (w *Window) Prices() []float64 { return copyFloats(w.prices) }

// Volumes returns a copy of the retained volume history.
func (w *Window) Volumes() []float64 { return copyFloats(w.volumes) }

// Highs returns a copy of the running-high envelope.
func (w *Window) Highs() []float64 { return copyFloats(w.highs) }

// Lows returns a copy of the running-low envelope.
func (w *Window) Lows() []float64 { return copyFloats(w.lows) }

// BidVolumes returns a copy of the retained maker-buy volumes.
func (w *Window) BidVolumes() []float64 { return copyFloats(w.bidVolume) }

// AskVolumes returns a copy of the retained taker-sell volumes.
func (w *Window) AskVolumes() []float64 { return copyFloats(w.askVolume) }

// Times returns a copy of the retained tick timestamps.
func (w *Window) Times() []time.Time {
	out := make([]time.Time, len(w.times))
	copy(out, w.times)
	return out
}

// Reset clears all buffers and forgets the inferred precision.
func (w *Window) Reset() {
	w.prices = w.prices[:0]
	w.volumes = w.volumes[:0]
	w.bidVolume = w.bidVolume[:0]
	w.askVolume = w.askVolume[:0]
	w.times = w.times[:0]
	w.highs = w.highs[:0]
	w.lows = w.lows[:0]
	w.precision = 0
}

// inferPrecision derives the rounding precision from the magnitude of the
// first observed price: 6 minus the integer digit count, clamped to [1, 8].
func inferPrecision(price float64) int {
	intDigits := len(fmt.Sprintf("%d", int64(math.Abs(price))))
	p := 6 - intDigits
	if p < 1 {
		p = 1
	}
	if p > 8 {
		p = 8
	}
	return p
}

func roundTo(v float64, precision int) float64 {
	shift := math.Pow(10, float64(precision))
	return math.Round(v*shift) / shift
}

func appendBounded(s []float64, v float64, capacity int) []float64 {
	if len(s) >= capacity {
		copy(s, s[1:])
		s[len(s)-1] = v
		return s
	}
	return append(s, v)
}

func appendBoundedTime(s []time.Time, v time.Time, capacity int) []time.Time {
	if len(s) >= capacity {
		copy(s, s[1:])
		s[len(s)-1] = v
		return s
	}
	return append(s, v)
}

func copyFloats(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
