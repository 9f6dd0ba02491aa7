// Package api exposes the coordinator's read-only status HTTP interface.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/coordinator"
	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/metrics"
)

// Server wires HTTP handlers to the coordinator's state.
type Server struct {
	router chi.Router
	coord  *coordinator.Coordinator
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(coord *coordinator.Coordinator, logger *zap.Logger) *Server {
	s := &Server{
		coord:  coord,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/fleet", s.getFleet)
		r.Get("/tasks", s.getTasks)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fleetResponse struct {
	Counts  map[crawl.Role]crawl.RoleCounts `json:"counts"`
	Workers []crawl.WorkerState             `json:"workers"`
}

func (s *Server) getFleet(w http.ResponseWriter, _ *http.Request) {
	liveness := s.coord.Liveness()
	workers := liveness.Workers()
	sort.Slice(workers, func(i, j int) bool { return workers[i].WorkerID < workers[j].WorkerID })
	s.writeJSON(w, http.StatusOK, fleetResponse{
		Counts:  liveness.Counts(),
		Workers: workers,
	})
}

func (s *Server) getTasks(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.coord.Tracker().Stats())
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
