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

// Package http provides composable HTTP handlers for passkey ceremonies.
//
// This package lets applications add passkey registration and login to an
// existing HTTP server without coupling to go-passkey's internal REST
// implementation.
//
// # Usage
//
// Create a handler from a passkey service and mount it on your router:
//
//	svc, _ := passkey.NewService(...)
//	handler := passkeyhttp.NewHandler(svc)
//
//	// For chi router:
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
//
//	// For stdlib http.ServeMux:
//	passkeyhttp.MountStdlib(mux, "/api/v1/passkey", handler)
//
// # Endpoints
//
// The handler provides the following endpoints:
//
//	POST /register/options - Start registration ceremony
//	POST /register/verify  - Complete registration
//	POST /login/options    - Start authentication ceremony
//	POST /login/verify     - Complete authentication
//
// Each request body carries the username; the verify endpoints
// additionally carry the authenticator response under "attestation" or
// "assertion" respectively.
//
// # Response Format
//
// All responses are JSON. Successful option responses return the WebAuthn
// options directly; successful verifies return {"verified": true}. Error
// responses have the format:
//
//	{
//	    "error": "error_code",
//	    "message": "Human-readable message"
//	}
//
// The login endpoints intentionally return the same error for an unknown
// user and a user without credentials.
package http
