package replay

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"marketflow/internal/exchange"
)

// LoadCSV reads a tick dataset with columns time,price,volume,is_ask. The
// time column accepts RFC3339 or epoch milliseconds; a header row is
// detected and skipped.
func LoadCSV(path string) ([]exchange.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tick file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 4

	var ticks []exchange.Tick
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tick file: %w", err)
		}
		line++

		tick, err := parseRow(row)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ticks = append(ticks, tick)
	}

	if len(ticks) == 0 {
		return nil, fmt.Errorf("tick file %s contains no data rows", path)
	}
	return ticks, nil
}

func parseRow(row []string) (exchange.Tick, error) {
	ts, err := parseTime(row[0])
	if err != nil {
		return exchange.Tick{}, err
	}
	price, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return exchange.Tick{}, fmt.Errorf("malformed price %q: %w", row[1], err)
	}
	volume, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return exchange.Tick{}, fmt.Errorf("malformed volume %q: %w", row[2], err)
	}
	isAsk, err := strconv.ParseBool(row[3])
	if err != nil {
		return exchange.Tick{}, fmt.Errorf("malformed is_ask %q: %w", row[3], err)
	}

	return exchange.Tick{Price: price, Volume: volume, IsAsk: isAsk, Time: ts}, nil
}

func parseTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q", s)
}

// Feed replays a recorded tick sequence. Speed scales the original
// inter-tick gaps: 1 is real time, 10 is ten times faster, and 0 replays
// with no delay at all.
type Feed struct {
	ticks []exchange.Tick
	speed float64
}

// NewFeed creates a replay feed over the given ticks.
func NewFeed(ticks []exchange.Tick, speed float64) *Feed {
	if speed < 0 {
		speed = 0
	}
	return &Feed{ticks: ticks, speed: speed}
}

// Len returns the number of ticks in the dataset.
func (f *Feed) Len() int {
	return len(f.ticks)
}

// Run delivers every tick in order, pacing by the recorded timestamps, and
// returns nil once the dataset is exhausted.
func (f *Feed) Run(ctx context.Context, handler exchange.TickHandler) error {
	var prev time.Time
	for _, tick := range f.ticks {
		if f.speed > 0 && !prev.IsZero() {
			gap := tick.Time.Sub(prev)
			if gap > 0 {
				delay := time.Duration(float64(gap) / f.speed)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		handler(tick)
		prev = tick.Time
	}
	return nil
}
