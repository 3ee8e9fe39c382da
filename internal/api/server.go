// Package api exposes the HTTP interface for the analyzer service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/metrics"
	"github.com/gabrzb/reviewradar/internal/progress"
	"github.com/gabrzb/reviewradar/internal/scrape"
	"github.com/gabrzb/reviewradar/internal/supervisor"
)

// Server wires HTTP handlers to the supervisor and the job registry.
type Server struct {
	router     chi.Router
	store      *progress.Store
	supervisor *supervisor.Supervisor
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store *progress.Store, sup *supervisor.Supervisor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:      store,
		supervisor: sup,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.submitJob)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Post("/progress", s.ingestProgress)
			})
		})
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

type submitRequest struct {
	URL string `json:"url"`
}

// submitJob handles POST /v1/jobs. It validates the URL, starts the worker,
// and returns immediately with the job ID; completion is observed by polling.
func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	jobID, err := s.supervisor.Submit(r.Context(), req.URL)
	switch {
	case errors.Is(err, scrape.ErrInvalidURL):
		s.writeError(w, http.StatusBadRequest, "URL inválida: esperado um link de produto amazon.com.br")
		return
	case errors.Is(err, supervisor.ErrLaunch):
		s.writeError(w, http.StatusInternalServerError, "could not start extraction worker")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   jobID,
		"accepted": true,
	})
}

// getJob handles GET /v1/jobs/{job_id}.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.store.Get(jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

// ingestProgress handles POST /v1/jobs/{job_id}/progress, the worker-facing
// report endpoint. It always answers success-or-ignored: bad payloads,
// unknown jobs, and reports arriving after a terminal state are dropped
// without an error the worker could trip over.
func (s *Server) ingestProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	var update progress.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}
	if update.Status == "" {
		update.Status = scrape.JobStatusRunning
	}
	if err := update.Validate(); err != nil {
		s.logger.Debug("ignoring invalid progress update", zap.String("job_id", jobID), zap.Error(err))
		s.writeJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}
	// A killed or superseded worker can still get reports out; they are
	// stale once the supervisor has recorded a terminal state. The store
	// does the terminal check and the write under one lock so the report
	// cannot slip in between a check here and the supervisor's write.
	if !s.store.PutIfNotTerminal(jobID, update.Status, update.Percent, update.Stage) {
		s.logger.Debug("dropping stale or unregistered progress report", zap.String("job_id", jobID))
		s.writeJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

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
