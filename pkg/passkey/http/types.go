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

package http

import "encoding/json"

// OptionsRequest is the request body for the options endpoints.
type OptionsRequest struct {
	// Username identifies the account the ceremony is for (required).
	Username string `json:"username"`
}

// VerifyRegistrationRequest is the request body for completing registration.
type VerifyRegistrationRequest struct {
	// Username identifies the account the ceremony is for (required).
	Username string `json:"username"`

	// Attestation is the authenticator's credential creation response,
	// passed through verbatim from navigator.credentials.create().
	Attestation json.RawMessage `json:"attestation"`
}

// VerifyAuthenticationRequest is the request body for completing authentication.
type VerifyAuthenticationRequest struct {
	// Username identifies the account the ceremony is for (required).
	Username string `json:"username"`

	// Assertion is the authenticator's credential request response,
	// passed through verbatim from navigator.credentials.get().
	Assertion json.RawMessage `json:"assertion"`
}

// VerifyResponse is the response after a successful verification.
type VerifyResponse struct {
	// Verified is true when the ceremony completed successfully.
	Verified bool `json:"verified"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeUserNotFound        = "user_not_found"
	ErrorCodeNoChallenge         = "no_challenge"
	ErrorCodeChallengeExpired    = "challenge_expired"
	ErrorCodeChallengeMismatch   = "challenge_mismatch"
	ErrorCodeNoCredentials       = "no_credentials"
	ErrorCodeUnknownCredential   = "unknown_credential"
	ErrorCodeDuplicateCredential = "duplicate_credential"
	ErrorCodeVerificationFailed  = "verification_failed"
	ErrorCodeCounterReplay       = "counter_replay"
	ErrorCodeInternalError       = "internal_error"
)
