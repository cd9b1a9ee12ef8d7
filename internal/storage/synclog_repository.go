package storage

import (
	"context"
	"time"

	apperrors "github.com/fleet-fines/internal/errors"
	"github.com/fleet-fines/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SyncLogRepository persists one audit row per synchronization run
type SyncLogRepository struct {
	db *PostgresDB
}

// NewSyncLogRepository creates a new sync log repository
func NewSyncLogRepository(db *PostgresDB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Start records the beginning of a sync run and returns its ID.
func (r *SyncLogRepository) Start(ctx context.Context, trigger string, windowStart, windowEnd time.Time) (string, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO sync_log (id, trigger_kind, window_start, window_end, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query, id, trigger, windowStart, windowEnd, models.SyncStatusRunning, time.Now())
	if err != nil {
		return "", apperrors.NewStoreUnavailable("start sync log", err)
	}

	return id, nil
}

// Finish completes a sync run row with its outcome.
func (r *SyncLogRepository) Finish(ctx context.Context, id, status string, found, saved, errCount int, errorDetail string) error {
	query := `
		UPDATE sync_log
		SET status = $2,
			found = $3,
			saved = $4,
			errors = $5,
			error_detail = $6,
			finished_at = $7,
			duration_ms = (EXTRACT(EPOCH FROM ($7 - started_at)) * 1000)::bigint
		WHERE id = $1
	`

	_, err := r.db.Pool().Exec(ctx, query, id, status, found, saved, errCount, errorDetail, time.Now())
	if err != nil {
		return apperrors.NewStoreUnavailable("finish sync log", err)
	}

	return nil
}

// Latest returns the most recent sync log row, or nil when none exist.
func (r *SyncLogRepository) Latest(ctx context.Context) (*models.SyncLog, error) {
	logs, err := r.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return logs[0], nil
}

// Recent returns up to limit sync log rows, newest first.
func (r *SyncLogRepository) Recent(ctx context.Context, limit int) ([]*models.SyncLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, trigger_kind, window_start, window_end, found, saved, errors,
			status, COALESCE(error_detail, ''), started_at, finished_at, COALESCE(duration_ms, 0)
		FROM sync_log
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("list sync log", err)
	}
	defer rows.Close()

	logs := []*models.SyncLog{}
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable("scan sync log", err)
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

func scanSyncLog(rows pgx.Rows) (*models.SyncLog, error) {
	var log models.SyncLog
	err := rows.Scan(
		&log.ID,
		&log.Trigger,
		&log.WindowStart,
		&log.WindowEnd,
		&log.Found,
		&log.Saved,
		&log.Errors,
		&log.Status,
		&log.ErrorDetail,
		&log.StartedAt,
		&log.FinishedAt,
		&log.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}
