package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fleet-fines/internal/models"
)

// AnalyticsRepository mirrors synced fines into ClickHouse and serves the
// aggregate queries behind the stats endpoint. The table is a
// ReplacingMergeTree keyed by fine key, so re-inserting a fine after an
// overlapping sync window collapses to the latest version.
type AnalyticsRepository struct {
	db *ClickHouseDB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *ClickHouseDB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// BatchInsert mirrors a batch of fines into the analytics table.
func (r *AnalyticsRepository) BatchInsert(ctx context.Context, fines []*models.Fine) error {
	if len(fines) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO fines (
			key, emission_date, amount, vehicle_code, vehicle_prefix,
			infraction_code, infraction_desc, agent_code, agent_name,
			line_code, location, classification, synced_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, fine := range fines {
		err := batch.Append(
			fine.Key,
			fine.EmissionDate,
			fine.Amount,
			fine.VehicleCode,
			fine.VehiclePrefix,
			fine.InfractionCode,
			fine.InfractionDesc,
			fine.AgentCode,
			fine.AgentName,
			fine.LineCode,
			fine.Location,
			fine.Classification,
			fine.SyncedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append fine %s to batch: %w", fine.Key, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}

// RankingEntry is one row of a grouped aggregate.
type RankingEntry struct {
	Key         string  `json:"key"`
	Description string  `json:"description"`
	Count       uint64  `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

// MonthlyEntry is one month of the fine series.
type MonthlyEntry struct {
	Month       string  `json:"month"`
	Count       uint64  `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

// FineStats aggregates the analytics table for the stats endpoint.
type FineStats struct {
	TotalFines     uint64         `json:"totalFines"`
	TotalAmount    float64        `json:"totalAmount"`
	TopInfractions []RankingEntry `json:"topInfractions"`
	TopVehicles    []RankingEntry `json:"topVehicles"`
	TopAgents      []RankingEntry `json:"topAgents"`
	Monthly        []MonthlyEntry `json:"monthly"`
}

// Stats computes the aggregate report over the given emission-date range.
func (r *AnalyticsRepository) Stats(ctx context.Context, from, to time.Time) (*FineStats, error) {
	stats := &FineStats{}

	row := r.db.Conn().QueryRow(ctx, `
		SELECT count(), sum(amount)
		FROM fines FINAL
		WHERE emission_date BETWEEN ? AND ?
	`, from, to)
	if err := row.Scan(&stats.TotalFines, &stats.TotalAmount); err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}

	var err error
	stats.TopInfractions, err = r.ranking(ctx, "infraction_code", "infraction_desc", from, to)
	if err != nil {
		return nil, err
	}
	stats.TopVehicles, err = r.ranking(ctx, "toString(vehicle_code)", "vehicle_prefix", from, to)
	if err != nil {
		return nil, err
	}
	stats.TopAgents, err = r.ranking(ctx, "toString(agent_code)", "agent_name", from, to)
	if err != nil {
		return nil, err
	}

	stats.Monthly, err = r.monthly(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *AnalyticsRepository) ranking(ctx context.Context, keyExpr, descExpr string, from, to time.Time) ([]RankingEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s AS k, any(%s) AS d, count() AS c, sum(amount) AS total
		FROM fines FINAL
		WHERE emission_date BETWEEN ? AND ?
		GROUP BY k
		ORDER BY c DESC
		LIMIT 10
	`, keyExpr, descExpr)

	rows, err := r.db.Conn().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking by %s: %w", keyExpr, err)
	}
	defer rows.Close()

	entries := []RankingEntry{}
	for rows.Next() {
		var e RankingEntry
		if err := rows.Scan(&e.Key, &e.Description, &e.Count, &e.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *AnalyticsRepository) monthly(ctx context.Context, from, to time.Time) ([]MonthlyEntry, error) {
	rows, err := r.db.Conn().Query(ctx, `
		SELECT formatDateTime(toStartOfMonth(emission_date), '%Y-%m') AS month,
			count() AS c, sum(amount) AS total
		FROM fines FINAL
		WHERE emission_date BETWEEN ? AND ?
		GROUP BY month
		ORDER BY month
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly series: %w", err)
	}
	defer rows.Close()

	entries := []MonthlyEntry{}
	for rows.Next() {
		var e MonthlyEntry
		if err := rows.Scan(&e.Month, &e.Count, &e.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
