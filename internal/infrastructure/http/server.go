// Package http provides the operational HTTP server: Prometheus metrics
// and a health check. It is only started when a listen address is set.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// StatusFunc reports health details; a non-nil error means unhealthy.
type StatusFunc func(ctx context.Context) (map[string]any, error)

// Server exposes /metrics and /healthz.
type Server struct {
	addr    string
	metrics http.Handler
	status  StatusFunc
	logger  *log.Logger
}

// NewServer creates the ops server. status may be nil.
func NewServer(addr string, metrics http.Handler, status StatusFunc, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:    addr,
		metrics: metrics,
		status:  status,
		logger:  logger,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics)
	return r
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	s.logger.Printf("[INFO] Metrics server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	code := http.StatusOK

	if s.status != nil {
		details, err := s.status(r.Context())
		for k, v := range details {
			body[k] = v
		}
		if err != nil {
			body["status"] = "unavailable"
			body["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("[DEBUG] %s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
