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

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// Handler provides HTTP handlers for passkey ceremonies.
// These handlers can be mounted on any HTTP router.
type Handler struct {
	service *passkey.Service
	logger  *slog.Logger
}

// NewHandler creates a new passkey HTTP handler.
func NewHandler(service *passkey.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// RegistrationOptions handles POST /register/options
//
// Request body:
//
//	{"username": "alice"}
//
// Response: WebAuthn PublicKeyCredentialCreationOptions. The account is
// created on first contact.
func (h *Handler) RegistrationOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req OptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	options, err := h.service.BeginRegistration(r.Context(), req.Username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// VerifyRegistration handles POST /register/verify
//
// Request body:
//
//	{"username": "alice", "attestation": { ...credential creation response... }}
//
// Response: {"verified": true}
func (h *Handler) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req VerifyRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Attestation))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid attestation response")
		return
	}

	result, err := h.service.FinishRegistration(r.Context(), req.Username, response)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, VerifyResponse{Verified: result.Verified})
}

// AuthenticationOptions handles POST /login/options
//
// Request body:
//
//	{"username": "alice"}
//
// Response: WebAuthn PublicKeyCredentialRequestOptions listing every
// registered credential in allowCredentials.
func (h *Handler) AuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req OptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	options, err := h.service.BeginAuthentication(r.Context(), req.Username)
	if err != nil {
		h.handleAuthenticationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// VerifyAuthentication handles POST /login/verify
//
// Request body:
//
//	{"username": "alice", "assertion": { ...credential request response... }}
//
// Response: {"verified": true}
func (h *Handler) VerifyAuthentication(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req VerifyAuthenticationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Assertion))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid assertion response")
		return
	}

	result, err := h.service.FinishAuthentication(r.Context(), req.Username, response)
	if err != nil {
		h.handleAuthenticationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, VerifyResponse{Verified: result.Verified})
}

// handleServiceError maps registration-path service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkey.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodeUserNotFound, "user not found")
	case errors.Is(err, passkey.ErrNoChallenge):
		h.writeError(w, http.StatusBadRequest, ErrorCodeNoChallenge, "no ceremony in progress")
	case errors.Is(err, passkey.ErrChallengeExpired):
		h.writeError(w, http.StatusBadRequest, ErrorCodeChallengeExpired, "challenge expired")
	case errors.Is(err, passkey.ErrChallengePurposeMismatch):
		h.writeError(w, http.StatusBadRequest, ErrorCodeChallengeMismatch, "challenge does not match ceremony")
	case errors.Is(err, passkey.ErrDuplicateCredential):
		h.writeError(w, http.StatusConflict, ErrorCodeDuplicateCredential, "credential already registered")
	case errors.Is(err, passkey.ErrVerificationFailed):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
	default:
		h.logger.Error("passkey service error", "error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// handleAuthenticationError maps authentication-path service errors to
// HTTP responses. An unknown user and a user without credentials produce
// byte-identical responses so the endpoint cannot be used to probe which
// accounts exist.
func (h *Handler) handleAuthenticationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkey.ErrUserNotFound), errors.Is(err, passkey.ErrNoCredentials):
		h.writeError(w, http.StatusBadRequest, ErrorCodeNoCredentials, "no credentials registered")
	case errors.Is(err, passkey.ErrUnknownCredential):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeUnknownCredential, "unknown credential")
	case errors.Is(err, passkey.ErrCounterReplay):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeCounterReplay, "signature counter did not advance")
	default:
		h.handleServiceError(w, err)
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
