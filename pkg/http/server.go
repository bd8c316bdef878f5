package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"demovoice-server/pkg/errors"
	"demovoice-server/pkg/metrics"
	"demovoice-server/pkg/pipeline"
	"demovoice-server/pkg/session"
	"demovoice-server/pkg/version"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Processor runs the full recording-to-audio pipeline for one request.
type Processor interface {
	Process(ctx context.Context, req *session.ProcessRequest) *pipeline.Result
}

// Server represents the HTTP server exposing the processing API, health
// checks, and metrics
type Server struct {
	config     *Config
	logger     *logrus.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	processor  Processor
	wsHub      *ProgressHub
	startTime  time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, config *Config, processor Processor, wsHub *ProgressHub) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	server := &Server{
		config:    config,
		logger:    logger,
		processor: processor,
		wsHub:     wsHub,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	server.mux = mux

	// Wrap handlers with middleware that adds Server header
	addServerHeader := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Server", version.ServerHeader())
			next(w, r)
		}
	}

	// Register standard endpoints
	mux.HandleFunc("/health", addServerHeader(server.healthHandler))
	mux.HandleFunc("/health/live", addServerHeader(server.livenessHandler))
	mux.HandleFunc("/health/ready", addServerHeader(server.readinessHandler))
	mux.HandleFunc("/status", addServerHeader(server.statusHandler))

	// Processing API
	mux.HandleFunc("/api/process", addServerHeader(server.processHandler))
	mux.HandleFunc("/api/recording/instructions", addServerHeader(server.instructionsHandler))

	if wsHub != nil {
		mux.HandleFunc("/ws/progress", wsHub.ServeWs)
		logger.Info("Progress WebSocket endpoint registered at /ws/progress")
	}

	if config.EnableMetrics {
		if registry := metrics.GetRegistry(); registry != nil {
			promHandler := promhttp.HandlerFor(
				registry,
				promhttp.HandlerOpts{
					EnableOpenMetrics: true,
					Registry:          registry,
				},
			)
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", version.ServerHeader())
				promHandler.ServeHTTP(w, r)
			})
			logger.Info("Prometheus metrics endpoint enabled at /metrics")
		}
	} else {
		logger.Info("Metrics endpoint disabled")
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	s.logger.WithField("port", s.config.Port).Info("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles the /health endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  time.Since(s.startTime).String(),
		"version": version.Version,
	})
}

// livenessHandler reports that the process is alive
func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// readinessHandler reports whether the server can accept processing requests
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "processor not configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusHandler handles the /status endpoint
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"version":    version.Version,
		"started_at": s.startTime.Format(time.RFC3339),
	}
	if s.wsHub != nil {
		status["progress_clients"] = s.wsHub.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

// ErrorResponse sends a standardized error response
func (s *Server) ErrorResponse(w http.ResponseWriter, err error) {
	errors.WriteError(w, err)
	s.logger.WithError(err).Warn("HTTP error response sent")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
