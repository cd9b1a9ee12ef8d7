package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/models"
)

// StateStore persists the last successful sync timestamp.
type StateStore interface {
	LastSync(ctx context.Context) (*time.Time, error)
	SetLastSync(ctx context.Context, t time.Time) error
}

// Syncer is the slice of the orchestrator the gate needs.
type Syncer interface {
	Sync(ctx context.Context, trigger string) (*Report, error)
}

// Gate decides whether a read needs a fresh sync first. Freshness is a
// calendar-date comparison against the last successful run, so it expires
// implicitly at midnight without any active transition. Syncs are
// single-flight: concurrent callers share the one in-flight run and its
// report, which also serializes a scheduled run against a read-triggered one.
type Gate struct {
	syncer Syncer
	state  StateStore
	loc    *time.Location
	now    func() time.Time

	mu       sync.Mutex
	inflight *inflightSync
}

type inflightSync struct {
	done   chan struct{}
	report *Report
	err    error
}

// NewGate creates a staleness gate. loc determines which calendar day "today"
// means.
func NewGate(syncer Syncer, state StateStore, loc *time.Location) *Gate {
	return &Gate{
		syncer: syncer,
		state:  state,
		loc:    loc,
		now:    time.Now,
	}
}

// Fresh reports whether a successful sync is already recorded for today.
func (g *Gate) Fresh(ctx context.Context) bool {
	last, err := g.state.LastSync(ctx)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to read sync state, treating as stale")
		return false
	}
	if last == nil {
		return false
	}

	y1, m1, d1 := last.In(g.loc).Date()
	y2, m2, d2 := g.now().In(g.loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// LastSync returns the recorded last successful sync time, if any.
func (g *Gate) LastSync(ctx context.Context) *time.Time {
	last, err := g.state.LastSync(ctx)
	if err != nil {
		return nil
	}
	return last
}

// GetOrSync runs a sync only when no successful run is recorded for today.
// It returns the run's report, or nil when the state was already fresh.
func (g *Gate) GetOrSync(ctx context.Context) (*Report, error) {
	if g.Fresh(ctx) {
		return nil, nil
	}
	return g.runShared(ctx, models.TriggerRead)
}

// ForceSync bypasses the gate and always runs a sync.
func (g *Gate) ForceSync(ctx context.Context, trigger string) (*Report, error) {
	return g.runShared(ctx, trigger)
}

// runShared executes the sync single-flight: every caller, the initiating one
// included, blocks on the one in-flight run. The run itself executes under a
// detached context so a caller disconnecting mid-sync cancels only its own
// wait, never the run the other waiters depend on. A hard failure leaves the
// recorded state untouched so the next stale read retries; a completed run
// with row errors still counts as fresh.
func (g *Gate) runShared(ctx context.Context, trigger string) (*Report, error) {
	g.mu.Lock()
	call := g.inflight
	if call == nil {
		call = &inflightSync{done: make(chan struct{})}
		g.inflight = call

		runCtx := context.WithoutCancel(ctx)
		go func() {
			call.report, call.err = g.syncer.Sync(runCtx, trigger)
			if call.err == nil {
				if err := g.state.SetLastSync(runCtx, g.now()); err != nil {
					logging.FromContext(runCtx).WithError(err).Warn("Failed to persist sync state")
				}
			}

			g.mu.Lock()
			g.inflight = nil
			g.mu.Unlock()
			close(call.done)
		}()
	}
	g.mu.Unlock()

	select {
	case <-call.done:
		return call.report, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
