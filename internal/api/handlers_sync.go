package api

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/fleet-fines/internal/errors"
	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/models"
)

// SyncStatusResponse is the body of GET /api/sync/status.
type SyncStatusResponse struct {
	Fresh    bool            `json:"fresh"`
	LastSync *time.Time      `json:"lastSync,omitempty"`
	Latest   *models.SyncLog `json:"latestRun,omitempty"`
}

// handleTriggerSync handles POST /api/sync. A completed run with row errors is
// still a 200; only a run that could not reach the source fails.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.gate.ForceSync(r.Context(), models.TriggerManual)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("Manual sync failed")
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleSyncStatus handles GET /api/sync/status.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	latest, err := s.syncLogs.Latest(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SyncStatusResponse{
		Fresh:    s.gate.Fresh(r.Context()),
		LastSync: s.gate.LastSync(r.Context()),
		Latest:   latest,
	})
}

// handleSyncHistory handles GET /api/sync/history.
func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondAppError(w, apperrors.NewInvalidParameter("limit", "expected a positive integer"))
			return
		}
		limit = n
	}

	logs, err := s.syncLogs.Recent(r.Context(), limit)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if logs == nil {
		logs = []*models.SyncLog{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data": logs,
	})
}
