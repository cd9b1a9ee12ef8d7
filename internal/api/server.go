// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/models"
	"github.com/fleet-fines/internal/storage"
	"github.com/fleet-fines/internal/syncer"
	"github.com/gorilla/mux"
)

// Service interfaces for dependency injection and testing

// SyncGateInterface gates fine reads behind the same-day freshness check.
type SyncGateInterface interface {
	GetOrSync(ctx context.Context) (*syncer.Report, error)
	ForceSync(ctx context.Context, trigger string) (*syncer.Report, error)
	Fresh(ctx context.Context) bool
	LastSync(ctx context.Context) *time.Time
}

// FineReaderInterface lists synced fines from the local store.
type FineReaderInterface interface {
	List(ctx context.Context, filters *models.FineFilters) ([]*models.Fine, error)
	Count(ctx context.Context, filters *models.FineFilters) (int64, error)
}

// SyncLogReaderInterface reads the sync audit trail.
type SyncLogReaderInterface interface {
	Latest(ctx context.Context) (*models.SyncLog, error)
	Recent(ctx context.Context, limit int) ([]*models.SyncLog, error)
}

// StatsReaderInterface serves aggregates from the analytics store.
type StatsReaderInterface interface {
	Stats(ctx context.Context, from, to time.Time) (*storage.FineStats, error)
}

// PingFunc checks one dependency for the health endpoint.
type PingFunc func(ctx context.Context) error

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	gate       SyncGateInterface
	fines      FineReaderInterface
	syncLogs   SyncLogReaderInterface
	stats      StatsReaderInterface
	pingers    map[string]PingFunc
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// NewServer creates a new API server instance. stats may be nil when no
// analytics store is configured; pingers feed the health endpoint.
func NewServer(
	config *ServerConfig,
	gate SyncGateInterface,
	fines FineReaderInterface,
	syncLogs SyncLogReaderInterface,
	stats StatsReaderInterface,
	pingers map[string]PingFunc,
) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		gate:     gate,
		fines:    fines,
		syncLogs: syncLogs,
		stats:    stats,
		pingers:  pingers,
		config:   config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Fine endpoints
	api.HandleFunc("/fines", s.handleListFines).Methods("GET")
	api.HandleFunc("/fines/stats", s.handleFineStats).Methods("GET")

	// Sync endpoints
	api.HandleFunc("/sync", s.handleTriggerSync).Methods("POST")
	api.HandleFunc("/sync/status", s.handleSyncStatus).Methods("GET")
	api.HandleFunc("/sync/history", s.handleSyncHistory).Methods("GET")
}

// handleHealth handles health check requests. Each registered dependency is
// pinged; any failure turns the overall status degraded but still answers 200
// so orchestrators see the process itself is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	deps := map[string]string{}
	for name, ping := range s.pingers {
		if err := ping(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
		} else {
			deps[name] = "ok"
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"service":      "fleet-fines",
		"dependencies": deps,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Global().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Global().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
