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

// Package passkey implements the Relying Party side of WebAuthn (FIDO2)
// registration and authentication ceremonies.
//
// This package wraps the go-webauthn/webauthn library and provides:
//   - A ceremony engine (Service) driving the four ceremony operations
//   - Single-slot challenge tracking with TTL expiry (ChallengeLedger)
//   - A pluggable storage interface (UserStore) with an in-memory
//     implementation for development/testing
//   - A mock authenticator for exercising ceremonies in tests
//
// # Architecture
//
// The package is designed with a layered architecture:
//
//  1. Service layer (Service) - Ceremony orchestration, challenge
//     lifecycle, counter anti-replay
//  2. Verification layer (RegistrationVerifier, AuthenticationVerifier) -
//     Cryptographic validation, backed by go-webauthn
//  3. Storage layer (UserStore) - Pluggable persistence
//  4. HTTP layer (pkg/passkey/http) - Composable HTTP handlers
//
// # Usage
//
// Basic usage with in-memory storage (for development):
//
//	svc, err := passkey.NewService(passkey.ServiceParams{
//	    Config: &passkey.Config{
//	        RPID:          "localhost",
//	        RPDisplayName: "My App",
//	        RPOrigins:     []string{"https://localhost:3000"},
//	    },
//	    Store: passkey.NewMemoryUserStore(),
//	})
//
// For production, implement UserStore with your database; the sqlite
// subpackage provides a SQL-backed implementation.
//
// # HTTP Handlers
//
// The http subpackage provides handlers that can be mounted on any router:
//
//	handler := passkeyhttp.NewHandler(svc)
//	passkeyhttp.MountChi(r, handler)
//
// # WebAuthn Specification Compliance
//
// This implementation follows the W3C Web Authentication specification:
//   - https://www.w3.org/TR/webauthn-2/
//   - https://www.w3.org/TR/webauthn-3/
//
// Note: WebAuthn requires HTTPS for all operations. Browsers will only
// expose the WebAuthn API in secure contexts.
package passkey
