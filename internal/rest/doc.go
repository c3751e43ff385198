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

// Package rest provides the REST API server for the go-passkey service.
//
// The server exposes the passkey ceremony endpoints over HTTP, along with
// health probes and Prometheus metrics. It wires the composable handlers
// from pkg/passkey/http into a chi router with logging, correlation ID,
// metrics, CORS, and panic recovery middleware.
//
// # Server Setup
//
//	import (
//	    "github.com/jeremyhahn/go-passkey/internal/rest"
//	    "github.com/jeremyhahn/go-passkey/pkg/passkey"
//	)
//
//	svc, _ := passkey.NewService(passkey.ServiceParams{
//	    Config: &passkey.Config{
//	        RPID:          "example.com",
//	        RPDisplayName: "Example Corp",
//	        RPOrigins:     []string{"https://example.com"},
//	    },
//	    Store: passkey.NewMemoryUserStore(),
//	})
//
//	server, _ := rest.NewServer(&rest.Config{
//	    Port:           8080,
//	    Service:        svc,
//	    MetricsEnabled: true,
//	})
//
//	// Start server
//	go server.Start()
//
//	// Graceful shutdown
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	server.Stop(ctx)
//
// # API Endpoints
//
// Ceremonies:
//   - POST /api/v1/passkey/register/options - Begin a registration ceremony
//   - POST /api/v1/passkey/register/verify - Finish a registration ceremony
//   - POST /api/v1/passkey/login/options - Begin an authentication ceremony
//   - POST /api/v1/passkey/login/verify - Finish an authentication ceremony
//
// Health:
//   - GET /health - Aggregate health status
//   - GET /health/live - Kubernetes liveness probe
//   - GET /health/ready - Kubernetes readiness probe
//   - GET /health/startup - Kubernetes startup probe
//
// Metrics:
//   - GET /metrics - Prometheus metrics (when enabled)
package rest
