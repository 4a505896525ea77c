// Package server exposes the pipeline over a small HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config holds the server's dependencies and settings.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Analyzer Analyzer
	Ingestor Ingestor
	Tuner    Tuner
	Trigger  Trigger
	Logger   *slog.Logger
	Version  string
}

// Server wraps the HTTP listener and its handlers.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// New creates a server with all routes configured.
func New(cfg Config) *Server {
	h := &handlers{
		analyzer: cfg.Analyzer,
		ingestor: cfg.Ingestor,
		tuner:    cfg.Tuner,
		trigger:  cfg.Trigger,
		logger:   cfg.Logger,
		version:  cfg.Version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /v1/analyze", h.handleAnalyze)
	mux.HandleFunc("POST /v1/ingest/run", h.handleIngestRun)
	mux.HandleFunc("GET /v1/examples/latest", h.handleLatestExamples)
	mux.HandleFunc("POST /v1/finetune", h.handleFineTune)
	mux.HandleFunc("GET /v1/finetune/history", h.handleFineTuneHistory)

	// Middleware chain (outermost executes first): logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("server: listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
