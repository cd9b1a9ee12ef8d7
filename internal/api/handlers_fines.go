package api

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/fleet-fines/internal/errors"
	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// FineListResponse is the body of GET /api/fines.
type FineListResponse struct {
	Data       []*models.Fine `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// handleListFines handles GET /api/fines. Reading the list may trigger a sync
// first when today's data has not been pulled yet; an unreachable source then
// fails the read rather than silently serving stale rows.
func (s *Server) handleListFines(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFineFilters(r)
	if err != nil {
		respondAppError(w, err)
		return
	}

	if _, err := s.gate.GetOrSync(r.Context()); err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("Sync before fine listing failed")
		respondAppError(w, err)
		return
	}

	fines, err := s.fines.List(r.Context(), filters)
	if err != nil {
		respondAppError(w, err)
		return
	}

	total, err := s.fines.Count(r.Context(), filters)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, FineListResponse{
		Data: fines,
		Pagination: Pagination{
			Page:  filters.Offset/filters.Limit + 1,
			Limit: filters.Limit,
			Total: total,
		},
	})
}

// handleFineStats handles GET /api/fines/stats.
func (s *Server) handleFineStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		respondError(w, http.StatusServiceUnavailable, "STATS_UNAVAILABLE", "analytics store is not configured", nil)
		return
	}

	now := time.Now()
	from := now.AddDate(-1, 0, 0)
	to := now

	if v := r.URL.Query().Get("dateFrom"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondAppError(w, apperrors.NewInvalidParameter("dateFrom", "expected YYYY-MM-DD"))
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("dateTo"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondAppError(w, apperrors.NewInvalidParameter("dateTo", "expected YYYY-MM-DD"))
			return
		}
		to = t.Add(24*time.Hour - time.Second)
	}

	stats, err := s.stats.Stats(r.Context(), from, to)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// parseFineFilters builds FineFilters from query parameters.
func parseFineFilters(r *http.Request) (*models.FineFilters, error) {
	q := r.URL.Query()

	filters := &models.FineFilters{
		VehiclePrefix:  q.Get("vehiclePrefix"),
		Location:       q.Get("location"),
		InfractionCode: q.Get("infractionCode"),
		Classification: q.Get("classification"),
		OrderBy:        q.Get("orderBy"),
		OrderDir:       q.Get("orderDir"),
	}

	if v := q.Get("agentCode"); v != "" {
		code, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, apperrors.NewInvalidParameter("agentCode", "expected an integer")
		}
		filters.AgentCode = code
	}
	if v := q.Get("lineCode"); v != "" {
		code, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, apperrors.NewInvalidParameter("lineCode", "expected an integer")
		}
		filters.LineCode = code
	}

	if v := q.Get("dateFrom"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, apperrors.NewInvalidParameter("dateFrom", "expected YYYY-MM-DD")
		}
		filters.DateFrom = &t
	}
	if v := q.Get("dateTo"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, apperrors.NewInvalidParameter("dateTo", "expected YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Second)
		filters.DateTo = &end
	}
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateTo.Before(*filters.DateFrom) {
		return nil, apperrors.NewInvalidParameter("dateTo", "precedes dateFrom")
	}

	limit := defaultPageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, apperrors.NewInvalidParameter("limit", "expected a positive integer")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}
	filters.Limit = limit

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, apperrors.NewInvalidParameter("page", "expected a positive integer")
		}
		page = n
	}
	filters.Offset = (page - 1) * limit

	return filters, nil
}
