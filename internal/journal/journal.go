package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"marketflow/internal/trade"
)

var csvHeader = []string{
	"entry_time", "exit_time", "duration_minutes", "direction",
	"entry_price", "exit_price", "size", "pnl_percent", "pnl_value", "exit_reason",
}

// CSV appends closed trades to a CSV file, writing the header once for new
// files. Safe for concurrent appenders.
type CSV struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// OpenCSV opens (or creates) the journal file at path.
func OpenCSV(path string) (*CSV, error) {
	info, err := os.Stat(path)
	isNew := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	j := &CSV{file: file, w: csv.NewWriter(file)}
	if isNew {
		if err := j.w.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write journal header: %w", err)
		}
		j.w.Flush()
	}
	return j, nil
}

// Append writes one trade record and flushes it to disk.
func (j *CSV) Append(r trade.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	row := []string{
		r.EntryTime.UTC().Format(time.RFC3339),
		r.ExitTime.UTC().Format(time.RFC3339),
		formatFloat(r.DurationMinutes),
		r.Direction,
		formatFloat(r.EntryPrice),
		formatFloat(r.ExitPrice),
		formatFloat(r.Size),
		formatFloat(r.PnLPercent),
		formatFloat(r.PnLValue),
		string(r.ExitReason),
	}
	if err := j.w.Write(row); err != nil {
		return fmt.Errorf("failed to write journal row: %w", err)
	}
	j.w.Flush()
	return j.w.Error()
}

// Close flushes and closes the underlying file.
func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Memory retains records in memory, for tests and backtests.
type Memory struct {
	mu      sync.Mutex
	records []trade.Record
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

// Append stores the record.
func (m *Memory) Append(r trade.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// Records returns a copy of everything appended so far.
func (m *Memory) Records() []trade.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]trade.Record, len(m.records))
	copy(out, m.records)
	return out
}
