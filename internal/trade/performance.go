package trade

import "math"

// Performance is the aggregate view over all closed trades.
type Performance struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	SharpeLike    float64 `json:"sharpe_like"`
}

// Tracker accumulates closed-trade records into aggregate statistics. The
// aggregates are recomputed in full from the history on every added trade;
// at the trade counts involved the O(n) cost buys correctness simplicity.
type Tracker struct {
	history []Record
	perf    Performance
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{perf: Performance{ProfitFactor: 1.0}}
}

// Add appends a closed trade and recomputes the aggregates.
func (t *Tracker) Add(r Record) {
	t.history = append(t.history, r)
	t.recompute()
}

// Snapshot returns the current aggregate statistics.
func (t *Tracker) Snapshot() Performance {
	return t.perf
}

// History returns a copy of the recorded trades.
func (t *Tracker) History() []Record {
	out := make([]Record, len(t.history))
	copy(out, t.history)
	return out
}

// Reset clears the history and restores initial aggregates.
func (t *Tracker) Reset() {
	t.history = t.history[:0]
	t.perf = Performance{ProfitFactor: 1.0}
}

func (t *Tracker) recompute() {
	perf := Performance{ProfitFactor: 1.0}
	perf.TotalTrades = len(t.history)
	if perf.TotalTrades == 0 {
		t.perf = perf
		return
	}

	totalProfit, totalLoss := 0.0, 0.0
	winCount, lossCount := 0, 0
	for _, r := range t.history {
		if r.PnLPercent > 0 {
			totalProfit += r.PnLPercent
			winCount++
		} else if r.PnLPercent < 0 {
			totalLoss += -r.PnLPercent
			lossCount++
		}
	}

	perf.WinningTrades = winCount
	perf.WinRate = float64(winCount) / float64(perf.TotalTrades)
	if winCount > 0 {
		perf.AvgWin = totalProfit / float64(winCount)
	}
	if lossCount > 0 {
		perf.AvgLoss = totalLoss / float64(lossCount)
	}
	if totalLoss > 0 {
		perf.ProfitFactor = totalProfit / totalLoss
	} else {
		perf.ProfitFactor = math.Inf(1)
	}

	perf.MaxDrawdown = maxDrawdown(t.history)
	perf.SharpeLike = sharpeLike(t.history)

	t.perf = perf
}

// maxDrawdown is the deepest peak-to-trough drop of the cumulative
// pnlValue equity curve.
func maxDrawdown(history []Record) float64 {
	equity, peak, maxDD := 0.0, 0.0, 0.0
	for _, r := range history {
		equity += r.PnLValue
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeLike is mean(pnl%) / stdev(pnl%) scaled by sqrt(252), defined only
// once two trades exist and the percentages actually vary.
func sharpeLike(history []Record) float64 {
	if len(history) < 2 {
		return 0
	}

	m := 0.0
	for _, r := range history {
		m += r.PnLPercent
	}
	m /= float64(len(history))

	sumSq := 0.0
	for _, r := range history {
		d := r.PnLPercent - m
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(history)-1))
	if std == 0 {
		return 0
	}
	return m / std * math.Sqrt(252)
}
