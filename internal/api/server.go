// Package api provides the HTTP status server surfacesync exposes while it
// runs on a schedule: Prometheus metrics plus liveness, health and status
// endpoints describing the last ingest run.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anstrom/surfacesync/internal/logging"
)

const apiPrefix = "/api/v1"

// Server timeout constants.
const (
	serverShutdownTimeout = 10 * time.Second
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	maxHeaderBytes        = 1 << 16
)

// Server serves metrics and run status over HTTP.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	status     *RunStatus
	gatherer   prometheus.Gatherer
	logger     *logging.Logger
	version    string
	startTime  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and lifecycle logs.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version string reported by /api/v1/status.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a status server listening on addr.
func New(addr string, gatherer prometheus.Gatherer, status *RunStatus, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		status:    status,
		gatherer:  gatherer,
		logger:    logging.Default(),
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("api")

	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}
	return s
}

// Start serves until ctx is cancelled, then shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting status server", "address", s.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("status server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Status server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("Status server stopped")
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the routed handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Registered on the root router so a wrong method answers 405, not 404.
	s.router.HandleFunc(apiPrefix+"/liveness", s.livenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/health", s.healthHandler).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/status", s.statusHandler).Methods(http.MethodGet)
}

func (s *Server) setupMiddleware() {
	s.router.Use(handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
	))
	s.router.Use(s.loggingMiddleware)
	s.router.Use(handlers.CompressHandler)
}

func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
	})
}

// healthHandler reports 503 while the most recent run has failed.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	outcome := s.status.Outcome()

	status, code := "healthy", http.StatusOK
	if outcome == OutcomeFailure {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"last_run":  outcome,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	runs, failures := s.status.Counts()
	response := map[string]any{
		"service":   "surfacesync",
		"version":   s.version,
		"uptime":    time.Since(s.startTime).String(),
		"runs":      runs,
		"failures":  failures,
		"last_run":  s.status.Last(),
		"timestamp": time.Now().UTC(),
	}
	if next := s.status.NextRun(); !next.IsZero() {
		response["next_run"] = next.UTC()
	}
	writeJSON(w, http.StatusOK, response)
}

// loggingMiddleware logs HTTP requests at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr)
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// recoveryLogger routes panics caught by handlers.RecoveryHandler to the logger.
type recoveryLogger struct {
	logger *logging.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("Panic in HTTP handler", "error", fmt.Sprint(v...))
}
