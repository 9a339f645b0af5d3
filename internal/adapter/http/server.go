package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
	"github.com/couchcryptid/station-availability-etl/internal/pipeline"
)

// maxBodyBytes bounds a consolidation request body.
const maxBodyBytes = 32 << 20

// Consolidations is the pipeline surface the API drives.
type Consolidations interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context, src pipeline.VariableSource, prev pipeline.CarryoverSource, ref time.Time) (domain.Report, error)
	LatestReport() (domain.Report, bool)
	Thresholds() domain.Thresholds
}

// Server exposes the consolidation API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	svc        Consolidations
	carryover  pipeline.CarryoverSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server. carryover is used for requests that do
// not include previous-period records; it may be nil.
func NewServer(addr string, svc Consolidations, carryover pipeline.CarryoverSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:       svc,
		carryover: carryover,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/consolidations", s.handleConsolidate)
	mux.HandleFunc("GET /v1/consolidations/latest", s.handleLatest)
	mux.HandleFunc("GET /v1/consolidations/latest.xlsx", s.handleLatestWorkbook)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
