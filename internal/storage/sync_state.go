package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const syncStateKey = "fleet-fines:last-sync"

// SyncStateStore persists the timestamp of the last successful sync in Redis
// so a restart does not force a resync and multiple replicas share the
// staleness decision. The value carries no TTL: freshness is decided by
// calendar-date comparison, not elapsed time.
type SyncStateStore struct {
	redis *RedisClient
}

// NewSyncStateStore creates a sync state store
func NewSyncStateStore(r *RedisClient) *SyncStateStore {
	return &SyncStateStore{redis: r}
}

// LastSync returns the recorded last successful sync time, or nil if none is
// recorded.
func (s *SyncStateStore) LastSync(ctx context.Context) (*time.Time, error) {
	val, err := s.redis.Client().Get(ctx, syncStateKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		// Unreadable state is treated as absent rather than poisoning the gate.
		return nil, nil
	}
	return &t, nil
}

// SetLastSync records a successful sync time.
func (s *SyncStateStore) SetLastSync(ctx context.Context, t time.Time) error {
	return s.redis.Client().Set(ctx, syncStateKey, t.Format(time.RFC3339), 0).Err()
}
