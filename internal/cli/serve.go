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

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/internal/rest"
	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/jeremyhahn/go-passkey/pkg/passkey/sqlite"
)

// serveCmd starts the Relying Party server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the passkey server",
	Long: `Start the WebAuthn Relying Party server.

The server loads its configuration from the file given with --config,
falling back to built-in defaults with PASSKEY_* environment overrides.
It serves ceremony endpoints under /api/v1/passkey until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(configPath())
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	},
}

// runServer assembles the service stack from the configuration and blocks
// until the context is cancelled or a shutdown signal arrives.
func runServer(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logger.Info("starting go-passkey",
		"version", Version,
		"rp_id", cfg.WebAuthn.RPID,
		"storage", cfg.Storage.Backend)

	// Build the credential store
	var store passkey.UserStore
	var storeCheck health.CheckFunc

	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		sqliteStore, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		defer func() {
			if err := sqliteStore.Close(); err != nil {
				logger.Error("failed to close sqlite store", "error", err)
			}
		}()

		store = sqliteStore
		storeCheck = func(ctx context.Context) health.CheckResult {
			result := health.CheckResult{Name: "sqlite", Status: health.StatusHealthy}
			if err := sqliteStore.DB().PingContext(ctx); err != nil {
				result.Status = health.StatusUnhealthy
				result.Error = err.Error()
			}
			return result
		}
	default:
		store = passkey.NewMemoryUserStore()
	}

	// Build the ceremony service
	svcCfg, err := cfg.WebAuthn.ServiceConfig()
	if err != nil {
		return err
	}

	svc, err := passkey.NewService(passkey.ServiceParams{
		Config: svcCfg,
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create passkey service: %w", err)
	}

	// Build the TLS configuration if enabled
	tlsConfig, err := cfg.TLS.LoadTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to load TLS configuration: %w", err)
	}

	// Build the REST server
	server, err := rest.NewServer(&rest.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Service:        svc,
		TLSConfig:      tlsConfig,
		Logger:         logger,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	})
	if err != nil {
		return err
	}

	if storeCheck != nil {
		server.HealthChecker().RegisterCheck("store", storeCheck)
	}

	// Collect runtime resource metrics while the server runs
	collectorCtx, cancelCollector := context.WithCancel(ctx)
	defer cancelCollector()
	if cfg.Metrics.Enabled {
		metrics.StartResourceCollector(collectorCtx, 30*time.Second)
	}

	// Start the server and wait for shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	select {
	case <-ctx.Done():
		logger.Info("context cancelled")
	case sig := <-shutdownCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
