// Package worker provides the HTTP service for ecosketch.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ecosketch/ecosketch/internal/config"
	"github.com/ecosketch/ecosketch/internal/orchestrator"
	"github.com/ecosketch/ecosketch/internal/worker/sse"
)

// Service is the ecosketch HTTP worker. It owns the router, the orchestrator,
// and the SSE broadcaster, and serves until its context is cancelled.
type Service struct {
	version        string
	config         *config.Config
	orch           *orchestrator.Orchestrator
	sseBroadcaster *sse.Broadcaster
	router         *chi.Mux
	httpServer     *http.Server
	stats          *Stats
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
	ready          atomic.Bool
}

// New creates a Service wired to the given orchestrator and broadcaster.
func New(version string, cfg *config.Config, orch *orchestrator.Orchestrator, broadcaster *sse.Broadcaster) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:        version,
		config:         cfg,
		orch:           orch,
		sseBroadcaster: broadcaster,
		router:         chi.NewRouter(),
		stats:          NewStats(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	svc.setupRoutes()
	return svc
}

// setupRoutes registers all HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Use(s.requestLogger)

	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/ready", s.handleReady)
	s.router.Get("/api/version", s.handleVersion)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/sessions", s.handleListSessions)
		r.Get("/api/sessions/{id}", s.handleGetSession)
		r.Post("/api/sessions/{id}/generate-description", s.handleGenerateDescription)
		r.Post("/api/sessions/{id}/refine-description", s.handleRefineDescription)
		r.Post("/api/sessions/{id}/generate-image", s.handleGenerateImage)

		r.Get("/api/events", s.sseBroadcaster.ServeHTTP)
		r.Get("/api/stats", s.handleStats)
	})
}

// requestLogger tags each request with a uuid and logs its outcome.
func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("requestId", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush passes flushing through so SSE streaming works behind the logger.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requireReady rejects API requests until the service has finished starting.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "service is starting")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Service) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.WorkerPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", s.version).Msg("worker listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	s.ready.Store(true)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("worker stopped")
	return <-errCh
}

// Close releases service resources.
func (s *Service) Close() {
	s.cancel()
}
