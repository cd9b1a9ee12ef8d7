package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/fleet-fines/internal/errors"
	"github.com/fleet-fines/internal/models"
	"github.com/fleet-fines/internal/syncer"
)

type mockGate struct {
	fresh      bool
	lastSync   *time.Time
	report     *syncer.Report
	syncErr    error
	getOrSyncs int
	forceSyncs int
}

func (m *mockGate) GetOrSync(_ context.Context) (*syncer.Report, error) {
	m.getOrSyncs++
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	if m.fresh {
		return nil, nil
	}
	return m.report, nil
}

func (m *mockGate) ForceSync(_ context.Context, _ string) (*syncer.Report, error) {
	m.forceSyncs++
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return m.report, nil
}

func (m *mockGate) Fresh(_ context.Context) bool          { return m.fresh }
func (m *mockGate) LastSync(_ context.Context) *time.Time { return m.lastSync }

type mockFineReader struct {
	fines       []*models.Fine
	total       int64
	lastFilters *models.FineFilters
}

func (m *mockFineReader) List(_ context.Context, filters *models.FineFilters) ([]*models.Fine, error) {
	m.lastFilters = filters
	return m.fines, nil
}

func (m *mockFineReader) Count(_ context.Context, _ *models.FineFilters) (int64, error) {
	return m.total, nil
}

type mockSyncLogReader struct {
	logs []*models.SyncLog
}

func (m *mockSyncLogReader) Latest(_ context.Context) (*models.SyncLog, error) {
	if len(m.logs) == 0 {
		return nil, nil
	}
	return m.logs[0], nil
}

func (m *mockSyncLogReader) Recent(_ context.Context, _ int) ([]*models.SyncLog, error) {
	return m.logs, nil
}

func createTestServer(gate *mockGate, fines *mockFineReader, logs *mockSyncLogReader) *Server {
	return NewServer(&ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, gate, fines, logs, nil, nil)
}

func TestListFines_FreshStateServesDirectly(t *testing.T) {
	gate := &mockGate{fresh: true}
	fines := &mockFineReader{fines: []*models.Fine{{Key: "AIT-001"}}, total: 1}
	server := createTestServer(gate, fines, &mockSyncLogReader{})

	req := httptest.NewRequest("GET", "/api/fines", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gate.getOrSyncs != 1 {
		t.Errorf("Expected the gate to be consulted once, got %d", gate.getOrSyncs)
	}

	var resp FineListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Pagination.Total != 1 {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestListFines_SourceFailureFailsTheRead(t *testing.T) {
	gate := &mockGate{syncErr: apperrors.NewSourceUnavailable(nil)}
	server := createTestServer(gate, &mockFineReader{}, &mockSyncLogReader{})

	req := httptest.NewRequest("GET", "/api/fines", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error.Code != "SOURCE_UNAVAILABLE" {
		t.Errorf("Expected SOURCE_UNAVAILABLE, got %s", resp.Error.Code)
	}
}

func TestListFines_FilterParsing(t *testing.T) {
	gate := &mockGate{fresh: true}
	fines := &mockFineReader{}
	server := createTestServer(gate, fines, &mockSyncLogReader{})

	req := httptest.NewRequest("GET", "/api/fines?vehiclePrefix=102&agentCode=77&dateFrom=2024-06-01&dateTo=2024-06-30&page=2&limit=25&orderBy=amount&orderDir=asc", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	f := fines.lastFilters
	if f.VehiclePrefix != "102" || f.AgentCode != 77 {
		t.Errorf("Unexpected filters: %+v", f)
	}
	if f.Limit != 25 || f.Offset != 25 {
		t.Errorf("Expected limit 25 offset 25, got %d/%d", f.Limit, f.Offset)
	}
	if f.DateFrom == nil || f.DateTo == nil || !f.DateTo.After(*f.DateFrom) {
		t.Errorf("Unexpected date range: %+v", f)
	}
	if f.OrderBy != "amount" || f.OrderDir != "asc" {
		t.Errorf("Unexpected ordering: %+v", f)
	}
}

func TestListFines_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "bad agentCode", query: "?agentCode=abc"},
		{name: "bad lineCode", query: "?lineCode=1.5x"},
		{name: "bad dateFrom", query: "?dateFrom=01/06/2024"},
		{name: "bad dateTo", query: "?dateTo=yesterday"},
		{name: "inverted range", query: "?dateFrom=2024-06-30&dateTo=2024-06-01"},
		{name: "zero page", query: "?page=0"},
		{name: "negative limit", query: "?limit=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createTestServer(&mockGate{fresh: true}, &mockFineReader{}, &mockSyncLogReader{})

			req := httptest.NewRequest("GET", "/api/fines"+tt.query, nil)
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestListFines_LimitIsCapped(t *testing.T) {
	fines := &mockFineReader{}
	server := createTestServer(&mockGate{fresh: true}, fines, &mockSyncLogReader{})

	req := httptest.NewRequest("GET", "/api/fines?limit=10000", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if fines.lastFilters.Limit != maxPageSize {
		t.Errorf("Expected limit capped at %d, got %d", maxPageSize, fines.lastFilters.Limit)
	}
}

func TestTriggerSync_ReturnsReport(t *testing.T) {
	gate := &mockGate{report: &syncer.Report{Found: 10, Saved: 9, Errors: 1}}
	server := createTestServer(gate, &mockFineReader{}, &mockSyncLogReader{})

	req := httptest.NewRequest("POST", "/api/sync", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gate.forceSyncs != 1 {
		t.Errorf("Expected one forced sync, got %d", gate.forceSyncs)
	}

	var report syncer.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	// Row errors do not fail the run; the report carries them instead.
	if report.Found != 10 || report.Saved != 9 || report.Errors != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}
}

func TestTriggerSync_SourceUnavailable(t *testing.T) {
	gate := &mockGate{syncErr: apperrors.NewSourceUnavailable(nil)}
	server := createTestServer(gate, &mockFineReader{}, &mockSyncLogReader{})

	req := httptest.NewRequest("POST", "/api/sync", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", w.Code)
	}
}

func TestSyncStatus(t *testing.T) {
	lastSync := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	gate := &mockGate{fresh: true, lastSync: &lastSync}
	logs := &mockSyncLogReader{logs: []*models.SyncLog{{ID: "run-1", Status: models.SyncStatusSuccess}}}
	server := createTestServer(gate, &mockFineReader{}, logs)

	req := httptest.NewRequest("GET", "/api/sync/status", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var status SyncStatusResponse
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !status.Fresh || status.LastSync == nil || status.Latest == nil {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestSyncHistory(t *testing.T) {
	logs := &mockSyncLogReader{logs: []*models.SyncLog{
		{ID: "run-2", Status: models.SyncStatusSuccess},
		{ID: "run-1", Status: models.SyncStatusFailed},
	}}
	server := createTestServer(&mockGate{}, &mockFineReader{}, logs)

	req := httptest.NewRequest("GET", "/api/sync/history", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Data []*models.SyncLog `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("Expected 2 log rows, got %d", len(resp.Data))
	}
}

func TestFineStats_UnconfiguredAnalytics(t *testing.T) {
	server := createTestServer(&mockGate{}, &mockFineReader{}, &mockSyncLogReader{})

	req := httptest.NewRequest("GET", "/api/fines/stats", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	server := createTestServer(&mockGate{}, &mockFineReader{}, &mockSyncLogReader{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
}
