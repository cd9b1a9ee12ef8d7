// Package syncer implements the incremental Globus-to-Postgres fine
// synchronization: window computation, the sync run itself, the same-day
// staleness gate and the daily scheduler.
package syncer

import (
	"fmt"
	"time"
)

// Window bounds one synchronization query against the source.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Bounds holds the fixed absolute limits for this fine category plus the
// overlap subtracted from the last local max date.
type Bounds struct {
	Lower   time.Time
	Upper   time.Time
	Overlap time.Duration
}

// ParseBounds builds Bounds from YYYY-MM-DD config strings in the given zone.
// The upper bound is extended to the end of its day.
func ParseBounds(lower, upper string, overlap time.Duration, loc *time.Location) (Bounds, error) {
	lo, err := time.ParseInLocation("2006-01-02", lower, loc)
	if err != nil {
		return Bounds{}, fmt.Errorf("invalid lower bound %q: %w", lower, err)
	}
	hi, err := time.ParseInLocation("2006-01-02", upper, loc)
	if err != nil {
		return Bounds{}, fmt.Errorf("invalid upper bound %q: %w", upper, err)
	}
	if hi.Before(lo) {
		return Bounds{}, fmt.Errorf("upper bound %q precedes lower bound %q", upper, lower)
	}

	return Bounds{
		Lower:   lo,
		Upper:   hi.Add(24*time.Hour - time.Second),
		Overlap: overlap,
	}, nil
}

// ComputeWindow derives the next sync window from the latest locally known
// emission date. The overlap tolerates rows that arrive late in the source
// near the previous window's edge; re-reading them is safe because the upsert
// is keyed. A nil lastMax means the store holds nothing yet and the window
// opens at the lower bound.
func ComputeWindow(lastMax *time.Time, now time.Time, b Bounds) Window {
	start := b.Lower
	if lastMax != nil {
		if s := lastMax.Add(-b.Overlap); s.After(b.Lower) {
			start = s
		}
	}
	// Local rows past the upper bound (after the bound was narrowed, or from
	// an out-of-band write) must not push the window outside the fixed pair.
	if start.After(b.Upper) {
		start = b.Upper
	}

	end := now
	if end.After(b.Upper) {
		end = b.Upper
	}
	if end.Before(start) {
		end = start
	}

	return Window{Start: start, End: end}
}

// FullWindow is the degraded window used when the local max date cannot be
// read: the entire fixed bound pair.
func FullWindow(now time.Time, b Bounds) Window {
	return ComputeWindow(nil, now, b)
}
