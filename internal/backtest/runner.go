package backtest

import (
	"time"

	"marketflow/internal/config"
	"marketflow/internal/engine"
	"marketflow/internal/exchange"
	"marketflow/internal/journal"
	"marketflow/internal/trade"
)

// Result is the outcome of running one parameter set over a tick dataset.
type Result struct {
	Config      config.Config
	Performance trade.Performance
	Records     []trade.Record
	FinalState  engine.State
	NetPnL      float64
	Duration    time.Duration
}

// Run replays the dataset through a fresh engine built from cfg. The same
// dataset and configuration always produce the same result.
func Run(cfg config.Config, ticks []exchange.Tick) Result {
	start := time.Now()

	mem := journal.NewMemory()
	eng := engine.New(cfg, mem)
	for _, tick := range ticks {
		eng.ProcessTickAt(tick.Price, tick.Volume, tick.IsAsk, tick.Time)
	}

	state := eng.SnapshotState()
	records := mem.Records()

	net := 0.0
	for _, r := range records {
		net += r.PnLValue
	}

	return Result{
		Config:      cfg,
		Performance: state.Performance,
		Records:     records,
		FinalState:  state,
		NetPnL:      net,
		Duration:    time.Since(start),
	}
}
