package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/fleet-fines/internal/errors"
	"github.com/fleet-fines/internal/models"
	"github.com/fleet-fines/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows      []source.Row
	err       error
	lastBinds []source.Bind
}

func (q *fakeQuerier) Query(_ context.Context, _ string, binds ...source.Bind) ([]source.Row, error) {
	q.lastBinds = binds
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

type fakeFineStore struct {
	maxEmission *time.Time
	maxErr      error
	failKeys    map[string]bool
	upserted    []*models.Fine
}

func (s *fakeFineStore) Upsert(_ context.Context, fine *models.Fine) error {
	if s.failKeys[fine.Key] {
		return apperrors.NewRowUpsertFailed(fine.Key, errors.New("constraint violation"))
	}
	s.upserted = append(s.upserted, fine)
	return nil
}

func (s *fakeFineStore) MaxEmissionDate(_ context.Context) (*time.Time, error) {
	if s.maxErr != nil {
		return nil, s.maxErr
	}
	return s.maxEmission, nil
}

type fakeSyncLogStore struct {
	startErr     error
	started      bool
	finishStatus string
	finishFound  int
	finishSaved  int
	finishErrors int
}

func (s *fakeSyncLogStore) Start(_ context.Context, _ string, _, _ time.Time) (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	s.started = true
	return "run-1", nil
}

func (s *fakeSyncLogStore) Finish(_ context.Context, _, status string, found, saved, errCount int, _ string) error {
	s.finishStatus = status
	s.finishFound = found
	s.finishSaved = saved
	s.finishErrors = errCount
	return nil
}

func sourceRow(ait string, vehicle int64, infraction string, emission time.Time) source.Row {
	row := source.Row{
		"DATAEMISSAOMULTA":     emission,
		"VALORMULTA":           293.47,
		"CODIGOVEIC":           vehicle,
		"PREFIXOVEIC":          "10234",
		"PLACAATUALVEIC":       "ABC1D23",
		"CODIGOINFRA":          infraction,
		"DESCRICAOINFRA":       "ESTACIONAR EM LOCAL PROIBIDO",
		"COD_AGENTE_AUTUADOR":  int64(77),
		"DESC_AGENTE_AUTUADOR": "FISCAL DE TRANSPORTE",
		"MATRICULAFISCAL":      "F-1020",
		"CODINTLINHA":          int64(301),
		"LOCALMULTA":           "AV PRINCIPAL 100",
		"OBSERVACAO":           "",
		"GRUPOINFRACAO":        "GRAVE",
	}
	if ait != "" {
		row["NUMEROAIMULTA"] = ait
	}
	return row
}

func newTestOrchestrator(t *testing.T, querier *fakeQuerier, fines *fakeFineStore, logs *fakeSyncLogStore) *Orchestrator {
	t.Helper()

	o := NewOrchestrator(querier, fines, logs, nil, testBounds(t), 4)
	o.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	return o
}

func TestSync_RowErrorsDoNotAbortTheBatch(t *testing.T) {
	emission := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	querier := &fakeQuerier{rows: []source.Row{
		sourceRow("AIT-001", 1, "518-52", emission),
		sourceRow("AIT-002", 2, "518-52", emission),
		sourceRow("AIT-003", 3, "518-52", emission),
	}}
	fines := &fakeFineStore{failKeys: map[string]bool{"AIT-002": true}}
	logs := &fakeSyncLogStore{}

	report, err := newTestOrchestrator(t, querier, fines, logs).Sync(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, models.SyncStatusSuccess, logs.finishStatus)
	assert.Equal(t, 1, logs.finishErrors)
}

func TestSync_EmptyWindowIsSuccess(t *testing.T) {
	querier := &fakeQuerier{rows: []source.Row{}}
	logs := &fakeSyncLogStore{}

	report, err := newTestOrchestrator(t, querier, &fakeFineStore{}, logs).Sync(context.Background(), models.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Found)
	assert.Equal(t, 0, report.Saved)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, models.SyncStatusSuccess, logs.finishStatus)
}

func TestSync_SourceFailurePropagates(t *testing.T) {
	querier := &fakeQuerier{err: apperrors.NewSourceUnavailable(errors.New("ORA-12541: no listener"))}
	logs := &fakeSyncLogStore{}

	report, err := newTestOrchestrator(t, querier, &fakeFineStore{}, logs).Sync(context.Background(), models.TriggerManual)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperrors.IsSourceUnavailable(err))
	assert.Equal(t, models.SyncStatusFailed, logs.finishStatus)
}

func TestSync_MissingAITNumberDerivesKey(t *testing.T) {
	emission := time.Date(2024, 6, 14, 9, 30, 0, 0, time.UTC)
	querier := &fakeQuerier{rows: []source.Row{sourceRow("", 555, "518-52", emission)}}
	fines := &fakeFineStore{}

	_, err := newTestOrchestrator(t, querier, fines, &fakeSyncLogStore{}).Sync(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	require.Len(t, fines.upserted, 1)
	assert.Equal(t, DeriveKey(555, "518-52", emission), fines.upserted[0].Key)
	assert.Equal(t, 0, fines.upserted[0].Points)
}

func TestSync_WindowIsIncremental(t *testing.T) {
	lastMax := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	querier := &fakeQuerier{rows: []source.Row{}}
	fines := &fakeFineStore{maxEmission: &lastMax}

	report, err := newTestOrchestrator(t, querier, fines, &fakeSyncLogStore{}).Sync(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, lastMax.Add(-24*time.Hour), report.Window.Start)
	require.Len(t, querier.lastBinds, 3)
	assert.Equal(t, "companyCode", querier.lastBinds[0].Name)
	assert.Equal(t, 4, querier.lastBinds[0].Value)
}

func TestSync_StoreReadFailureDegradesToFullWindow(t *testing.T) {
	querier := &fakeQuerier{rows: []source.Row{}}
	fines := &fakeFineStore{maxErr: apperrors.NewStoreUnavailable("max emission date", errors.New("connection refused"))}

	report, err := newTestOrchestrator(t, querier, fines, &fakeSyncLogStore{}).Sync(context.Background(), models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, testBounds(t).Lower, report.Window.Start)
}

func TestSync_AuditLogFailureDoesNotBlockTheRun(t *testing.T) {
	querier := &fakeQuerier{rows: []source.Row{}}
	logs := &fakeSyncLogStore{startErr: errors.New("sync_log table missing")}

	report, err := newTestOrchestrator(t, querier, &fakeFineStore{}, logs).Sync(context.Background(), models.TriggerManual)
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.False(t, logs.started)
}
