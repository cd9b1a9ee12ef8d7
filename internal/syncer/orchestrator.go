package syncer

import (
	"context"
	"time"

	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/models"
	"github.com/fleet-fines/internal/source"
)

// fineQuery is the single round trip against the source per sync run: the
// fine joined with its infraction description, vehicle prefix/plate and
// issuing agent. The point-value filter is the discriminator for this fine
// category. Outer joins keep fines whose vehicle or agent is missing from the
// reference tables.
const fineQuery = `
	SELECT M.NUMEROAIMULTA, M.DATAEMISSAOMULTA, M.DATAHORAMULTA, M.VALORMULTA,
		M.CODIGOVEIC, V.PREFIXOVEIC, V.PLACAATUALVEIC,
		M.CODIGOINFRA, D.DESCRICAOINFRA, M.PONTUACAOINFRACAO, M.GRUPOINFRACAO,
		A.COD_AGENTE_AUTUADOR, A.DESC_AGENTE_AUTUADOR, A.MATRICULAFISCAL,
		M.CODINTLINHA, M.LOCALMULTA, M.OBSERVACAO
	FROM DVS_MULTA M, DVS_INFRACAO D, FRT_CADVEICULOS V, GLOBUS.DVS_AGENTE_AUTUADOR A
	WHERE M.CODIGOVEIC = V.CODIGOVEIC (+)
		AND M.CODIGOINFRA = D.CODIGOINFRA
		AND M.COD_AGENTE_AUTUADOR = A.COD_AGENTE_AUTUADOR (+)
		AND V.CODIGOEMPRESA = :companyCode
		AND NVL(M.PONTUACAOINFRACAO, 0) = 0
		AND M.DATAEMISSAOMULTA BETWEEN :startDate AND :endDate
	ORDER BY M.DATAEMISSAOMULTA DESC`

// FineStore is the slice of the fine repository the orchestrator needs.
type FineStore interface {
	Upsert(ctx context.Context, fine *models.Fine) error
	MaxEmissionDate(ctx context.Context) (*time.Time, error)
}

// SyncLogStore records per-run audit rows.
type SyncLogStore interface {
	Start(ctx context.Context, trigger string, windowStart, windowEnd time.Time) (string, error)
	Finish(ctx context.Context, id, status string, found, saved, errCount int, errorDetail string) error
}

// AnalyticsSink receives synced fines for aggregation. May be nil.
type AnalyticsSink interface {
	BatchInsert(ctx context.Context, fines []*models.Fine) error
}

// Report summarizes one sync run. A run with row errors is still a completed
// run; only a hard source or store failure produces an error instead.
type Report struct {
	Found    int           `json:"found"`
	Saved    int           `json:"saved"`
	Errors   int           `json:"errors"`
	Window   Window        `json:"window"`
	Duration time.Duration `json:"duration"`
}

// Orchestrator runs one synchronization cycle against the source.
type Orchestrator struct {
	querier     source.Querier
	fines       FineStore
	syncLogs    SyncLogStore
	analytics   AnalyticsSink
	bounds      Bounds
	companyCode int
	now         func() time.Time
}

// NewOrchestrator creates a sync orchestrator. analytics may be nil when no
// ClickHouse sink is configured.
func NewOrchestrator(querier source.Querier, fines FineStore, syncLogs SyncLogStore, analytics AnalyticsSink, bounds Bounds, companyCode int) *Orchestrator {
	return &Orchestrator{
		querier:     querier,
		fines:       fines,
		syncLogs:    syncLogs,
		analytics:   analytics,
		bounds:      bounds,
		companyCode: companyCode,
		now:         time.Now,
	}
}

// ComputeWindow derives the next sync window from the local store. A store
// failure degrades to the full fixed bounds instead of failing the caller.
func (o *Orchestrator) ComputeWindow(ctx context.Context) Window {
	lastMax, err := o.fines.MaxEmissionDate(ctx)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to read local max emission date, falling back to full resync window")
		return FullWindow(o.now(), o.bounds)
	}
	return ComputeWindow(lastMax, o.now(), o.bounds)
}

// Sync pulls all source rows for the computed window and upserts them. A
// failing row is counted and logged but does not abort the batch; zero rows
// is a successful empty run. Only an unreachable source returns an error.
func (o *Orchestrator) Sync(ctx context.Context, trigger string) (*Report, error) {
	logger := logging.FromContext(ctx)
	started := o.now()

	window := o.ComputeWindow(ctx)
	logger.WithFields(map[string]interface{}{
		"trigger": trigger,
		"from":    window.Start.Format(time.RFC3339),
		"to":      window.End.Format(time.RFC3339),
	}).Info("Starting fine sync")

	logID, err := o.syncLogs.Start(ctx, trigger, window.Start, window.End)
	if err != nil {
		// The audit row must not block the run itself.
		logger.WithError(err).Warn("Failed to record sync log start")
		logID = ""
	}

	rows, err := o.querier.Query(ctx, fineQuery,
		source.Bind{Name: "companyCode", Value: o.companyCode},
		source.Bind{Name: "startDate", Value: window.Start},
		source.Bind{Name: "endDate", Value: window.End},
	)
	if err != nil {
		o.finishLog(ctx, logID, models.SyncStatusFailed, 0, 0, 0, err.Error())
		return nil, err
	}

	report := &Report{Found: len(rows), Window: window}

	if len(rows) == 0 {
		logger.Info("Fine sync found no rows in window")
	}

	syncedAt := o.now()
	synced := make([]*models.Fine, 0, len(rows))
	for _, row := range rows {
		fine := o.mapRow(row, syncedAt)
		if err := o.fines.Upsert(ctx, fine); err != nil {
			report.Errors++
			logger.WithError(err).WithField("key", fine.Key).Warn("Failed to upsert fine")
			continue
		}
		report.Saved++
		synced = append(synced, fine)
	}

	o.mirrorToAnalytics(synced)

	report.Duration = o.now().Sub(started)
	o.finishLog(ctx, logID, models.SyncStatusSuccess, report.Found, report.Saved, report.Errors, "")

	logger.WithFields(map[string]interface{}{
		"found":  report.Found,
		"saved":  report.Saved,
		"errors": report.Errors,
	}).Info("Fine sync completed")

	return report, nil
}

// mapRow converts one uppercase source row into a Fine. The source rarely
// fills NUMEROAIMULTA for this category, so the key usually comes from
// DeriveKey.
func (o *Orchestrator) mapRow(row source.Row, syncedAt time.Time) *models.Fine {
	emission := row.Time("DATAEMISSAOMULTA")
	vehicleCode := row.Int("CODIGOVEIC")
	infractionCode := row.String("CODIGOINFRA")

	key := row.String("NUMEROAIMULTA")
	if key == "" {
		key = DeriveKey(vehicleCode, infractionCode, emission)
	}

	var lodgedAt *time.Time
	if t := row.Time("DATAHORAMULTA"); !t.IsZero() {
		lodgedAt = &t
	}

	return &models.Fine{
		Key:            key,
		EmissionDate:   emission,
		LodgedAt:       lodgedAt,
		Amount:         row.Float("VALORMULTA"),
		VehicleCode:    vehicleCode,
		VehiclePrefix:  row.String("PREFIXOVEIC"),
		VehiclePlate:   row.String("PLACAATUALVEIC"),
		InfractionCode: infractionCode,
		InfractionDesc: row.String("DESCRICAOINFRA"),
		Points:         0, // clamped for this category regardless of source value
		AgentCode:      row.Int("COD_AGENTE_AUTUADOR"),
		AgentName:      row.String("DESC_AGENTE_AUTUADOR"),
		AgentBadge:     row.String("MATRICULAFISCAL"),
		LineCode:       row.Int("CODINTLINHA"),
		Location:       row.String("LOCALMULTA"),
		Remarks:        row.String("OBSERVACAO"),
		Classification: row.String("GRUPOINFRACAO"),
		SyncedAt:       syncedAt,
	}
}

// mirrorToAnalytics pushes saved fines to ClickHouse off the request path.
// Failures only cost the aggregate view; the next run re-mirrors overlapping
// rows anyway.
func (o *Orchestrator) mirrorToAnalytics(fines []*models.Fine) {
	if o.analytics == nil || len(fines) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := o.analytics.BatchInsert(ctx, fines); err != nil {
			logging.Global().WithError(err).Warn("Failed to mirror fines to analytics store")
		}
	}()
}

func (o *Orchestrator) finishLog(ctx context.Context, logID, status string, found, saved, errCount int, detail string) {
	if logID == "" {
		return
	}
	if err := o.syncLogs.Finish(ctx, logID, status, found, saved, errCount, detail); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to record sync log finish")
	}
}
