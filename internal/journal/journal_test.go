package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketflow/internal/trade"
)

func sampleRecord() trade.Record {
	entry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return trade.Record{
		EntryTime:       entry,
		ExitTime:        entry.Add(45 * time.Minute),
		DurationMinutes: 45,
		Direction:       "buy",
		EntryPrice:      100,
		ExitPrice:       103.5,
		Size:            0.02,
		PnLPercent:      3.5,
		PnLValue:        0.0007,
		ExitReason:      "take_profit",
	}
}

func TestCSV_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	j, err := OpenCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(sampleRecord()))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "2025-06-01T12:00:00Z", rows[1][0])
	assert.Equal(t, "buy", rows[1][3])
	assert.Equal(t, "3.5", rows[1][7])
	assert.Equal(t, "take_profit", rows[1][9])
}

func TestCSV_AppendDoesNotRepeatHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	j, err := OpenCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(sampleRecord()))
	require.NoError(t, j.Close())

	j, err = OpenCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(sampleRecord()))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3, "one header plus two data rows")
}

func TestMemory_RetainsRecords(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Append(sampleRecord()))
	require.NoError(t, m.Append(sampleRecord()))

	records := m.Records()
	assert.Len(t, records, 2)

	// The returned slice is a copy.
	records[0].PnLPercent = -99
	assert.Equal(t, 3.5, m.Records()[0].PnLPercent)
}
