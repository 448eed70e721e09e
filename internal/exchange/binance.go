package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"marketflow/internal/apperrors"
)

const (
	binanceStreamBase = "wss://stream.binance.com:9443/ws"

	pingInterval     = 30 * time.Second
	handshakeTimeout = 10 * time.Second
	maxBackoff       = time.Minute
)

// BinanceFeed streams aggregated trades for one symbol over the Binance
// public websocket. Dropped connections are redialed with capped
// exponential backoff until the context is cancelled.
type BinanceFeed struct {
	url    string
	symbol string
}

// NewBinanceFeed creates a feed for the given symbol (e.g. "BTCUSDT").
func NewBinanceFeed(symbol string) *BinanceFeed {
	stream := fmt.Sprintf("%s/%s@aggTrade", binanceStreamBase, strings.ToLower(symbol))
	return &BinanceFeed{url: stream, symbol: symbol}
}

// aggTrade is the subset of the Binance aggTrade payload the feed uses.
// The maker flag is true when the buyer was the passive side, i.e. the
// aggressor sold into the book.
type aggTrade struct {
	EventType string `json:"e"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
	IsMaker   bool   `json:"m"`
}

// Run streams ticks to the handler until the context is cancelled. Each
// connection failure is logged and followed by a backoff redial; the only
// terminal outcome is cancellation.
func (f *BinanceFeed) Run(ctx context.Context, handler TickHandler) error {
	backoff := time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := f.streamOnce(ctx, handler)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		log.Printf("binance feed for %s dropped: %v (redialing in %s)", f.symbol, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// streamOnce runs a single websocket session: dial, ping loop, read loop.
func (f *BinanceFeed) streamOnce(ctx context.Context, handler TickHandler) error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return apperrors.NewNetworkError("binance", "dial", err)
	}
	defer conn.Close()

	// Close the connection when the context ends so the blocked read
	// returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go f.pingLoop(ctx, conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return apperrors.NewNetworkError("binance", "read", err)
		}

		tick, err := parseAggTrade(message)
		if err != nil {
			log.Printf("binance feed: skipping message: %v", err)
			continue
		}
		handler(tick)
	}
}

func (f *BinanceFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// parseAggTrade converts one aggTrade message into a tick. A maker-buyer
// trade means the aggressor hit the bid, so its volume counts as ask-side
// pressure.
func parseAggTrade(message []byte) (Tick, error) {
	var ev aggTrade
	if err := json.Unmarshal(message, &ev); err != nil {
		return Tick{}, fmt.Errorf("malformed aggTrade payload: %w", err)
	}
	if ev.EventType != "aggTrade" {
		return Tick{}, fmt.Errorf("unexpected event type %q", ev.EventType)
	}

	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return Tick{}, fmt.Errorf("malformed price %q: %w", ev.Price, err)
	}
	volume, err := strconv.ParseFloat(ev.Quantity, 64)
	if err != nil {
		return Tick{}, fmt.Errorf("malformed quantity %q: %w", ev.Quantity, err)
	}

	return Tick{
		Price:  price,
		Volume: volume,
		IsAsk:  ev.IsMaker,
		Time:   time.UnixMilli(ev.TradeTime),
	}, nil
}
