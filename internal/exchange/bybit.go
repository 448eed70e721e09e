package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// BybitBackfill fetches recent one-minute klines from the Bybit public API
// and converts them into synthetic ticks for pre-warming the rolling
// window. Market-data endpoints need no credentials.
type BybitBackfill struct {
	client   *bybit_api.Client
	category string
}

// NewBybitBackfill creates a backfiller against the Bybit mainnet.
func NewBybitBackfill() *BybitBackfill {
	return &BybitBackfill{
		client:   bybit_api.NewBybitHttpClient("", "", bybit_api.WithBaseURL(bybit_api.MAINNET)),
		category: "spot",
	}
}

// HistoricalTicks returns up to limit synthetic ticks, oldest first. Each
// kline becomes one tick at its close price; up-candles count as bid
// pressure, down-candles as ask pressure.
func (b *BybitBackfill) HistoricalTicks(ctx context.Context, symbol string, limit int) ([]Tick, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": b.category,
		"symbol":   symbol,
		"interval": "1",
		"limit":    limit,
	}

	result, err := b.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}

	klines, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return klinesToTicks(klines), nil
}

type kline struct {
	startTime time.Time
	open      float64
	close     float64
	volume    float64
}

func parseKlineResponse(response interface{}) ([]kline, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type %T", response)
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	// Bybit kline rows: [startTime, open, high, low, close, volume, turnover].
	var klines []kline
	for _, item := range klineResult.List {
		if len(item) < 7 {
			continue
		}
		klines = append(klines, kline{
			startTime: time.UnixMilli(parseInt64(item[0])),
			open:      parseFloat64(item[1]),
			close:     parseFloat64(item[4]),
			volume:    parseFloat64(item[5]),
		})
	}
	return klines, nil
}

// klinesToTicks orders klines oldest first (the API returns newest first)
// and maps each to a close-price tick.
func klinesToTicks(klines []kline) []Tick {
	ticks := make([]Tick, 0, len(klines))
	for i := len(klines) - 1; i >= 0; i-- {
		k := klines[i]
		if k.close <= 0 || k.volume <= 0 {
			continue
		}
		ticks = append(ticks, Tick{
			Price:  k.close,
			Volume: k.volume,
			IsAsk:  k.close < k.open,
			Time:   k.startTime,
		})
	}
	return ticks
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
