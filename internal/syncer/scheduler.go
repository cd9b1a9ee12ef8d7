package syncer

import (
	"context"
	"time"

	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/models"
)

// NextRun returns the next occurrence of the given wall-clock hour in loc. If
// that time has already passed today, it targets the same hour tomorrow.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Scheduler fires one forced sync per day at a fixed hour, re-arming after
// every run. A failed run is logged and never prevents the next one.
type Scheduler struct {
	gate *Gate
	hour int
	loc  *time.Location
	now  func() time.Time
}

// NewScheduler creates a daily sync scheduler.
func NewScheduler(gate *Gate, hour int, loc *time.Location) *Scheduler {
	return &Scheduler{
		gate: gate,
		hour: hour,
		loc:  loc,
		now:  time.Now,
	}
}

// Run blocks until ctx is cancelled, firing a forced sync at each scheduled
// time.
func (s *Scheduler) Run(ctx context.Context) {
	logger := logging.FromContext(ctx)

	for {
		next := NextRun(s.now(), s.hour, s.loc)
		logger.WithField("nextRun", next.Format(time.RFC3339)).Info("Daily sync scheduled")

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Sync scheduler stopped")
			return
		case <-timer.C:
		}

		report, err := s.gate.ForceSync(ctx, models.TriggerScheduled)
		if err != nil {
			logger.WithError(err).Error("Scheduled sync failed")
			continue
		}

		logger.WithFields(map[string]interface{}{
			"found":  report.Found,
			"saved":  report.Saved,
			"errors": report.Errors,
		}).Info("Scheduled sync completed")
	}
}
