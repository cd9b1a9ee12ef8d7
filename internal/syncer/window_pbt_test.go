package syncer

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestComputeWindowProperties(t *testing.T) {
	bounds, err := ParseBounds("2024-01-01", "2025-12-31", 24*time.Hour, time.UTC)
	require.NoError(t, err)

	properties := gopter.NewProperties(nil)

	genTime := func(from, to time.Time) gopter.Gen {
		return gen.Int64Range(from.Unix(), to.Unix()).Map(func(s int64) time.Time {
			return time.Unix(s, 0).UTC()
		})
	}
	genLastMax := genTime(bounds.Lower.AddDate(-1, 0, 0), bounds.Upper.AddDate(1, 0, 0))
	genNow := genTime(bounds.Lower.AddDate(-1, 0, 0), bounds.Upper.AddDate(2, 0, 0))

	properties.Property("both edges lie within the fixed bounds", prop.ForAll(
		func(lastMax, now time.Time) bool {
			w := ComputeWindow(&lastMax, now, bounds)
			return !w.Start.Before(bounds.Lower) && !w.Start.After(bounds.Upper) &&
				!w.End.Before(bounds.Lower) && !w.End.After(bounds.Upper)
		},
		genLastMax, genNow,
	))

	properties.Property("end is never before start", prop.ForAll(
		func(lastMax, now time.Time) bool {
			w := ComputeWindow(&lastMax, now, bounds)
			return !w.End.Before(w.Start)
		},
		genLastMax, genNow,
	))

	properties.Property("overlap keeps the start at or before the last known max", prop.ForAll(
		func(lastMax, now time.Time) bool {
			w := ComputeWindow(&lastMax, now, bounds)
			return !w.Start.After(lastMax) || w.Start.Equal(bounds.Lower)
		},
		genTime(bounds.Lower, bounds.Upper), genNow,
	))

	properties.Property("next fire time is always in the future with the right hour", prop.ForAll(
		func(unix int64, hour int) bool {
			now := time.Unix(unix, 0).UTC()
			next := NextRun(now, hour, time.UTC)
			return next.After(now) && next.Hour() == hour && next.Minute() == 0 && next.Second() == 0
		},
		gen.Int64Range(bounds.Lower.Unix(), bounds.Upper.Unix()),
		gen.IntRange(0, 23),
	))

	properties.TestingRun(t)
}
