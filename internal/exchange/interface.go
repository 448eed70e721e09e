package exchange

import (
	"context"
	"time"
)

// Tick is one executed trade on the instrument under analysis.
type Tick struct {
	Price  float64
	Volume float64
	IsAsk  bool
	Time   time.Time
}

// TickHandler consumes ticks from a feed. Handlers are invoked from the
// feed's read goroutine and should return quickly.
type TickHandler func(Tick)

// Feed is a live or simulated source of ticks. Run blocks until the
// context is cancelled or the feed fails terminally.
type Feed interface {
	Run(ctx context.Context, handler TickHandler) error
}

// Backfiller supplies historical price data used to pre-warm the rolling
// window before live ticks arrive.
type Backfiller interface {
	HistoricalTicks(ctx context.Context, symbol string, limit int) ([]Tick, error)
}
