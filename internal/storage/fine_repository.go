package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/fleet-fines/internal/errors"
	"github.com/fleet-fines/internal/models"
	"github.com/jackc/pgx/v5"
)

// Only these columns may be used for ordering; anything else falls back to the
// default emission-date ordering.
var orderColumns = map[string]string{
	"emissionDate":   "emission_date",
	"amount":         "amount",
	"vehiclePrefix":  "vehicle_prefix",
	"agentCode":      "agent_code",
	"infractionCode": "infraction_code",
	"lineCode":       "line_code",
	"syncedAt":       "synced_at",
}

const defaultOrderColumn = "emission_date"

// FineRepository handles fine persistence in Postgres
type FineRepository struct {
	db *PostgresDB
}

// NewFineRepository creates a new fine repository
func NewFineRepository(db *PostgresDB) *FineRepository {
	return &FineRepository{db: db}
}

const fineColumns = `key, emission_date, lodged_at, amount, vehicle_code, vehicle_prefix,
	vehicle_plate, infraction_code, infraction_desc, points, agent_code, agent_name,
	agent_badge, line_code, location, remarks, classification, synced_at`

// Upsert inserts or updates a fine by its key. Applying the same row twice is
// a no-op beyond the first write, which is what makes re-syncing overlapping
// windows safe.
func (r *FineRepository) Upsert(ctx context.Context, fine *models.Fine) error {
	query := fmt.Sprintf(`
		INSERT INTO fines (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (key) DO UPDATE SET
			emission_date = EXCLUDED.emission_date,
			lodged_at = EXCLUDED.lodged_at,
			amount = EXCLUDED.amount,
			vehicle_code = EXCLUDED.vehicle_code,
			vehicle_prefix = EXCLUDED.vehicle_prefix,
			vehicle_plate = EXCLUDED.vehicle_plate,
			infraction_code = EXCLUDED.infraction_code,
			infraction_desc = EXCLUDED.infraction_desc,
			points = EXCLUDED.points,
			agent_code = EXCLUDED.agent_code,
			agent_name = EXCLUDED.agent_name,
			agent_badge = EXCLUDED.agent_badge,
			line_code = EXCLUDED.line_code,
			location = EXCLUDED.location,
			remarks = EXCLUDED.remarks,
			classification = EXCLUDED.classification,
			synced_at = EXCLUDED.synced_at
	`, fineColumns)

	_, err := r.db.Pool().Exec(ctx, query,
		fine.Key,
		fine.EmissionDate,
		fine.LodgedAt,
		fine.Amount,
		fine.VehicleCode,
		fine.VehiclePrefix,
		fine.VehiclePlate,
		fine.InfractionCode,
		fine.InfractionDesc,
		fine.Points,
		fine.AgentCode,
		fine.AgentName,
		fine.AgentBadge,
		fine.LineCode,
		fine.Location,
		fine.Remarks,
		fine.Classification,
		fine.SyncedAt,
	)
	if err != nil {
		return apperrors.NewRowUpsertFailed(fine.Key, err)
	}

	return nil
}

// MaxEmissionDate returns the latest emission date among fines of this
// category (point value zero), or nil when the store holds none.
func (r *FineRepository) MaxEmissionDate(ctx context.Context) (*time.Time, error) {
	query := `SELECT MAX(emission_date) FROM fines WHERE points = 0`

	var max *time.Time
	if err := r.db.Pool().QueryRow(ctx, query).Scan(&max); err != nil {
		return nil, apperrors.NewStoreUnavailable("max emission date", err)
	}

	return max, nil
}

// List returns fines matching the filters, ordered and paginated.
func (r *FineRepository) List(ctx context.Context, filters *models.FineFilters) ([]*models.Fine, error) {
	where, args := buildFineWhere(filters)

	column := orderColumns[filters.OrderBy]
	if column == "" {
		column = defaultOrderColumn
	}
	direction := "DESC"
	if strings.EqualFold(filters.OrderDir, "asc") {
		direction = "ASC"
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM fines
		%s
		ORDER BY %s %s
		LIMIT %d OFFSET %d
	`, fineColumns, where, column, direction, limit, filters.Offset)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("list fines", err)
	}
	defer rows.Close()

	fines := []*models.Fine{}
	for rows.Next() {
		fine, err := scanFine(rows)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable("scan fine", err)
		}
		fines = append(fines, fine)
	}

	return fines, rows.Err()
}

// Count returns the number of fines matching the filters.
func (r *FineRepository) Count(ctx context.Context, filters *models.FineFilters) (int64, error) {
	where, args := buildFineWhere(filters)

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM fines %s`, where)
	if err := r.db.Pool().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewStoreUnavailable("count fines", err)
	}

	return count, nil
}

// buildFineWhere assembles the WHERE clause and bind args for the filters.
func buildFineWhere(filters *models.FineFilters) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters.VehiclePrefix != "" {
		add("vehicle_prefix ILIKE $%d", "%"+filters.VehiclePrefix+"%")
	}
	if filters.AgentCode != 0 {
		add("agent_code = $%d", filters.AgentCode)
	}
	if filters.Location != "" {
		add("location ILIKE $%d", "%"+filters.Location+"%")
	}
	if filters.InfractionCode != "" {
		add("infraction_code = $%d", filters.InfractionCode)
	}
	if filters.LineCode != 0 {
		add("line_code = $%d", filters.LineCode)
	}
	if filters.Classification != "" {
		add("classification ILIKE $%d", "%"+filters.Classification+"%")
	}
	if filters.DateFrom != nil {
		add("emission_date >= $%d", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		add("emission_date <= $%d", *filters.DateTo)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func scanFine(rows pgx.Rows) (*models.Fine, error) {
	var fine models.Fine
	err := rows.Scan(
		&fine.Key,
		&fine.EmissionDate,
		&fine.LodgedAt,
		&fine.Amount,
		&fine.VehicleCode,
		&fine.VehiclePrefix,
		&fine.VehiclePlate,
		&fine.InfractionCode,
		&fine.InfractionDesc,
		&fine.Points,
		&fine.AgentCode,
		&fine.AgentName,
		&fine.AgentBadge,
		&fine.LineCode,
		&fine.Location,
		&fine.Remarks,
		&fine.Classification,
		&fine.SyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fine, nil
}
