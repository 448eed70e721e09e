package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_WrapsAndUnwraps(t *testing.T) {
	underlying := errors.New("connection refused")
	err := Wrap(underlying, CategoryNetwork, "feed", "dial")

	require.NotNil(t, err)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "NETWORK")
	assert.True(t, err.IsRetryable())
	assert.False(t, err.IsFatal())
}

func TestError_FatalCategories(t *testing.T) {
	assert.True(t, NewConfigError("config", "load", "bad threshold").IsFatal())
	assert.True(t, NewFatalError("engine", "start", "no instrument").IsFatal())
	assert.False(t, NewValidationError("engine", "process_tick", "negative price").IsFatal())
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{fmt.Errorf("context deadline exceeded"), CategoryTimeout},
		{fmt.Errorf("dial tcp: connection refused"), CategoryNetwork},
		{fmt.Errorf("invalid tick payload"), CategoryValidation},
		{fmt.Errorf("something odd"), CategoryTemporary},
	}

	for _, tt := range tests {
		got := Categorize(tt.err, "feed", "read")
		assert.Equal(t, tt.want, got.Category, tt.err.Error())
	}
}

func TestCategorize_PassesThroughExisting(t *testing.T) {
	orig := NewStateError("trade", "open", "already active")
	assert.Same(t, orig, Categorize(orig, "other", "op"))
}

func TestStats_RecordsBoundedHistory(t *testing.T) {
	s := NewStats(2)
	for i := 0; i < 3; i++ {
		s.Record(NewValidationError("engine", "process_tick", "bad tick"))
	}
	s.Record(NewNetworkError("feed", "dial", errors.New("refused")))

	assert.Equal(t, 4, s.TotalErrors)
	assert.Len(t, s.RecentErrors, 2)
	assert.InDelta(t, 0.75, s.Rate(CategoryValidation), 1e-9)
}
