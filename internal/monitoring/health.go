package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"marketflow/internal/events"
)

var startTime = time.Now()

// HealthChecker serves a liveness view built from the event feed: the feed
// is healthy while ticks keep arriving.
type HealthChecker struct {
	mu         sync.RWMutex
	lastTick   time.Time
	lastPrice  float64
	staleAfter time.Duration
}

// HealthStatus is the JSON body of the health endpoint.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LastTick  time.Time `json:"last_tick"`
	LastPrice float64   `json:"last_price"`
	Uptime    string    `json:"uptime"`
}

// NewHealthChecker creates a checker that reports degraded once no tick has
// arrived for staleAfter (default one minute).
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	if staleAfter <= 0 {
		staleAfter = time.Minute
	}
	return &HealthChecker{staleAfter: staleAfter}
}

// Attach subscribes the checker to tick events.
func (h *HealthChecker) Attach(bus *events.Bus) {
	bus.Subscribe(events.TypeTick, func(ev events.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.lastTick = time.Now()
		if price, ok := ev.Data["price"].(float64); ok {
			h.lastPrice = price
		}
	})
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	lastTick := h.lastTick
	lastPrice := h.lastPrice
	h.mu.RUnlock()

	status := "healthy"
	if lastTick.IsZero() || time.Since(lastTick) > h.staleAfter {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		LastTick:  lastTick,
		LastPrice: lastPrice,
		Uptime:    time.Since(startTime).String(),
	})
}

// Serve starts an HTTP server exposing /metrics and /health. It blocks.
func Serve(addr string, health *HealthChecker) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.Handle("/health", health)
	return http.ListenAndServe(addr, mux)
}
