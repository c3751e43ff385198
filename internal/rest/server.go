// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
)

// Server represents the REST API server.
type Server struct {
	server    *http.Server
	service   *passkey.Service
	handler   *passkeyhttp.Handler
	checker   *health.Checker
	port      int
	tlsConfig *tls.Config
	logger    *slog.Logger
}

// Config holds the REST server configuration.
type Config struct {
	// Host is the interface to bind to (default: all interfaces)
	Host string

	// Port is the HTTP port to listen on (default: 8080)
	Port int

	// Service is the passkey ceremony service (required)
	Service *passkey.Service

	// TLSConfig is the TLS configuration for HTTPS (optional)
	TLSConfig *tls.Config

	// Logger is the structured logger (optional, defaults to stderr text)
	Logger *slog.Logger

	// MetricsEnabled exposes Prometheus metrics when true
	MetricsEnabled bool

	// MetricsPath is the metrics endpoint path (default: /metrics)
	MetricsPath string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("passkey service is required")
	}

	// Set defaults
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	server := &Server{
		service:   cfg.Service,
		handler:   passkeyhttp.NewHandler(cfg.Service).WithLogger(log),
		checker:   health.NewChecker(),
		port:      cfg.Port,
		tlsConfig: cfg.TLSConfig,
		logger:    log,
	}

	router := server.setupRouter(cfg)

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter(cfg *Config) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware()) // Add correlation ID before logging
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)

	// Health endpoints (no auth required)
	r.Get("/health", s.HealthHandler)
	r.Head("/health", s.HealthHandler)

	// Kubernetes-style health probes
	r.Get("/health/live", s.LivenessHandler)
	r.Get("/health/ready", s.ReadinessHandler)
	r.Get("/health/startup", s.StartupHandler)

	// Prometheus metrics
	if cfg.MetricsEnabled {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	// Ceremony endpoints
	r.Route("/api/v1/passkey", func(r chi.Router) {
		r.With(metrics.CeremonyMiddleware(metrics.CeremonyRegistration, metrics.PhaseBegin)).
			Post("/register/options", s.handler.RegistrationOptions)
		r.With(metrics.CeremonyMiddleware(metrics.CeremonyRegistration, metrics.PhaseFinish)).
			Post("/register/verify", s.handler.VerifyRegistration)
		r.With(metrics.CeremonyMiddleware(metrics.CeremonyAuthentication, metrics.PhaseBegin)).
			Post("/login/options", s.handler.AuthenticationOptions)
		r.With(metrics.CeremonyMiddleware(metrics.CeremonyAuthentication, metrics.PhaseFinish)).
			Post("/login/verify", s.handler.VerifyAuthentication)
	})

	return r
}

// Start starts the REST API server.
func (s *Server) Start() error {
	s.checker.MarkStarted()

	if s.tlsConfig != nil {
		s.logger.Info("starting HTTPS server", "port", s.port)

		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
	} else {
		s.logger.Info("starting HTTP server", "port", s.port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.checker.MarkNotStarted()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// HealthChecker returns the server's health checker so callers can
// register readiness checks, such as a storage ping.
func (s *Server) HealthChecker() *health.Checker {
	return s.checker
}
