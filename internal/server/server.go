// Package server exposes the ingestion and metrics engine over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/ingest"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

// Syncer drives on-demand ingestion.
type Syncer interface {
	EnsureRange(ctx context.Context, userID int64, start, end dates.Date, required []models.Category, force bool) (*ingest.Result, error)
	EnsureDay(ctx context.Context, userID int64, date dates.Date, required []models.Category) (bool, error)
}

// MetricsSource computes derived metrics and baselines.
type MetricsSource interface {
	SleepWithBaselines(ctx context.Context, userID int64, date dates.Date) (*models.SleepMetricsWithBaselines, error)
	RecoveryWithBaselines(ctx context.Context, userID int64, date dates.Date) (*models.RecoveryMetricsWithBaselines, error)
	Baselines(ctx context.Context, userID int64, date dates.Date, lookback int) (map[string]models.BaselineData, error)
}

// RawQuerier reads stored raw payloads.
type RawQuerier interface {
	Query(ctx context.Context, userID int64, start, end dates.Date, categories []models.Category) (map[dates.Date]storage.DayData, error)
}

// Reporter renders period reports.
type Reporter interface {
	Markdown(ctx context.Context, userID int64, start, end dates.Date) (string, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	syncer   Syncer
	metrics  MetricsSource
	raw      RawQuerier
	reporter Reporter
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(syncer Syncer, metrics MetricsSource, raw RawQuerier, reporter Reporter, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		syncer:   syncer,
		metrics:  metrics,
		raw:      raw,
		reporter: reporter,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		r.Post("/sync", s.handleSync)
		r.Post("/ensure", s.handleEnsure)
		r.Get("/data", s.handleQueryData)
		r.Get("/metrics/sleep", s.handleSleepMetrics)
		r.Get("/metrics/recovery", s.handleRecoveryMetrics)
		r.Get("/baselines", s.handleBaselines)
		r.Get("/report", s.handleReport)
	})
}
