package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

// Runs is the coordinator surface the operations server drives.
type Runs interface {
	Run(ctx context.Context, window domain.DateRange) (pipeline.Result, error)
	LastResult() (pipeline.Result, bool)
}

// WatermarkReader exposes the current enrichment watermark.
type WatermarkReader interface {
	Watermark(ctx context.Context) (domain.Watermark, error)
}

// Server exposes health, readiness, metrics and manual run endpoints.
type Server struct {
	httpServer *http.Server
	runs       Runs
	watermark  WatermarkReader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /runs and /watermark routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runs Runs, wm WatermarkReader, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Manual runs are synchronous and may page through a large window.
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		runs:      runs,
		watermark: wm,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /runs", s.handleRun)
	mux.HandleFunc("GET /runs/last", s.handleLastRun)
	mux.HandleFunc("GET /watermark", s.handleWatermark)

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

// handleRun executes one run over ?start=YYYY-MM-DD&end=YYYY-MM-DD and
// responds with its Result.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := domain.ParseDateRange(q.Get("start"), q.Get("end"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := s.runs.Run(r.Context(), window)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrIngestionFailure) {
			status = http.StatusBadGateway
		}
		sharedobs.WriteJSON(w, status, res)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.runs.LastResult()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no run has finished yet"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleWatermark(w http.ResponseWriter, r *http.Request) {
	wm, err := s.watermark.Watermark(r.Context())
	if err != nil {
		s.logger.Error("read watermark", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "watermark unavailable"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, wm)
}
