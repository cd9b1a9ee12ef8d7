package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBounds(t *testing.T) Bounds {
	t.Helper()

	b, err := ParseBounds("2024-01-01", "2025-12-31", 24*time.Hour, time.UTC)
	require.NoError(t, err)
	return b
}

func TestParseBounds(t *testing.T) {
	t.Run("extends upper bound to end of day", func(t *testing.T) {
		b := testBounds(t)

		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), b.Lower)
		assert.Equal(t, time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), b.Upper)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := ParseBounds("01/01/2024", "2025-12-31", time.Hour, time.UTC)
		assert.Error(t, err)

		_, err = ParseBounds("2024-01-01", "not-a-date", time.Hour, time.UTC)
		assert.Error(t, err)
	})

	t.Run("rejects inverted bounds", func(t *testing.T) {
		_, err := ParseBounds("2025-12-31", "2024-01-01", time.Hour, time.UTC)
		assert.Error(t, err)
	})
}

func TestComputeWindow(t *testing.T) {
	bounds := testBounds(t)

	t.Run("empty store opens at lower bound", func(t *testing.T) {
		now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

		w := ComputeWindow(nil, now, bounds)

		assert.Equal(t, bounds.Lower, w.Start)
		assert.Equal(t, now, w.End)
	})

	t.Run("incremental window backs off by the overlap", func(t *testing.T) {
		lastMax := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
		now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

		w := ComputeWindow(&lastMax, now, bounds)

		assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), w.Start)
		assert.Equal(t, now, w.End)
	})

	t.Run("overlap never drops below the lower bound", func(t *testing.T) {
		lastMax := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
		now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

		w := ComputeWindow(&lastMax, now, bounds)

		assert.Equal(t, bounds.Lower, w.Start)
	})

	t.Run("end clamps to the upper bound", func(t *testing.T) {
		lastMax := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		w := ComputeWindow(&lastMax, now, bounds)

		assert.Equal(t, bounds.Upper, w.End)
	})

	t.Run("local data past the upper bound clamps both edges", func(t *testing.T) {
		lastMax := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		now := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

		w := ComputeWindow(&lastMax, now, bounds)

		assert.Equal(t, bounds.Upper, w.Start)
		assert.Equal(t, bounds.Upper, w.End)
	})

	t.Run("end never precedes start", func(t *testing.T) {
		now := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

		w := ComputeWindow(nil, now, bounds)

		assert.Equal(t, w.Start, w.End)
	})
}

func TestFullWindow(t *testing.T) {
	bounds := testBounds(t)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	w := FullWindow(now, bounds)

	assert.Equal(t, bounds.Lower, w.Start)
	assert.Equal(t, now, w.End)
}
