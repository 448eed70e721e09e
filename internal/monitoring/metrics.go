package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketflow/internal/events"
)

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketflow_ticks_total",
			Help: "Total number of ticks processed",
		},
		[]string{"symbol"},
	)

	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketflow_signals_total",
			Help: "Total number of entry and exit instructions produced",
		},
		[]string{"symbol", "action"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketflow_trades_closed_total",
			Help: "Total number of closed trades by exit reason",
		},
		[]string{"symbol", "reason"},
	)

	tradePnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketflow_trade_pnl_percent",
			Help:    "Distribution of closed-trade profit percentages",
			Buckets: []float64{-5, -2, -1, -0.5, 0, 0.5, 1, 2, 5, 10},
		},
		[]string{"symbol"},
	)

	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketflow_current_price",
			Help: "Last processed tick price",
		},
		[]string{"symbol"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketflow_errors_total",
			Help: "Total number of errors by stage",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradePnL)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(errorsTotal)
}

// Collector feeds the prometheus metrics from the engine's event bus.
type Collector struct {
	symbol string
}

// NewCollector creates a collector labeled with the instrument symbol.
func NewCollector(symbol string) *Collector {
	return &Collector{symbol: symbol}
}

// Attach subscribes the collector to the bus. Handlers run synchronously on
// the tick-processing goroutine; metric updates are cheap enough for that.
func (c *Collector) Attach(bus *events.Bus) {
	bus.Subscribe(events.TypeTick, func(ev events.Event) {
		ticksTotal.WithLabelValues(c.symbol).Inc()
		if price, ok := ev.Data["price"].(float64); ok {
			currentPrice.WithLabelValues(c.symbol).Set(price)
		}
	})

	bus.Subscribe(events.TypeSignal, func(ev events.Event) {
		action, _ := ev.Data["action"].(string)
		signalsTotal.WithLabelValues(c.symbol, action).Inc()
	})

	bus.Subscribe(events.TypeTradeClosed, func(ev events.Event) {
		reason, _ := ev.Data["reason"].(string)
		tradesTotal.WithLabelValues(c.symbol, reason).Inc()
		if pnl, ok := ev.Data["pnl_percent"].(float64); ok {
			tradePnL.WithLabelValues(c.symbol).Observe(pnl)
		}
	})

	bus.Subscribe(events.TypeError, func(ev events.Event) {
		stage, _ := ev.Data["stage"].(string)
		errorsTotal.WithLabelValues(stage).Inc()
	})
}

// Handler returns the prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
