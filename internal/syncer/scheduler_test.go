package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	t.Run("before the hour targets today", func(t *testing.T) {
		now := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)

		next := NextRun(now, 10, time.UTC)

		assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), next)
	})

	t.Run("after the hour targets tomorrow", func(t *testing.T) {
		now := time.Date(2024, 6, 15, 10, 0, 1, 0, time.UTC)

		next := NextRun(now, 10, time.UTC)

		assert.Equal(t, time.Date(2024, 6, 16, 10, 0, 0, 0, time.UTC), next)
	})

	t.Run("exactly on the hour targets tomorrow", func(t *testing.T) {
		now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

		next := NextRun(now, 10, time.UTC)

		assert.Equal(t, time.Date(2024, 6, 16, 10, 0, 0, 0, time.UTC), next)
	})

	t.Run("hour is evaluated in the configured zone", func(t *testing.T) {
		// 12:30 UTC is 09:30 in Sao Paulo, still before the 10:00 run.
		now := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)

		next := NextRun(now, 10, saoPaulo)

		assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, saoPaulo), next)
		assert.True(t, next.After(now))
	})

	t.Run("always in the future", func(t *testing.T) {
		for hour := 0; hour < 24; hour++ {
			now := time.Date(2024, 6, 15, hour, 17, 0, 0, time.UTC)
			next := NextRun(now, 10, time.UTC)
			assert.True(t, next.After(now), "hour %d", hour)
		}
	})
}
