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

package passkey

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/go-webauthn/webauthn/protocol"
)

// Service is the ceremony engine. It issues challenges for registration
// and authentication ceremonies, verifies the authenticator responses,
// and maintains per-user credential state through the injected store.
//
// Each operation is an independent, short-lived request; the engine holds
// no in-process state beyond what is persisted, so any number of Service
// instances may serve the same store concurrently.
type Service struct {
	config     *Config
	store      UserStore
	ledger     *ChallengeLedger
	regVerify  RegistrationVerifier
	authVerify AuthenticationVerifier
	logger     *slog.Logger
	configured bool
}

// ServiceParams contains dependencies for creating a passkey service.
type ServiceParams struct {
	// Config is the Relying Party configuration (required).
	Config *Config

	// Store is the user/credential persistence layer (required).
	Store UserStore

	// RegistrationVerifier overrides the registration half of the
	// verification capability. Optional; defaults to the go-webauthn
	// backed ProtocolVerifier.
	RegistrationVerifier RegistrationVerifier

	// AuthenticationVerifier overrides the authentication half of the
	// verification capability. Optional; defaults to the go-webauthn
	// backed ProtocolVerifier.
	AuthenticationVerifier AuthenticationVerifier

	// Logger receives audit events such as suspected counter replay.
	// Optional; defaults to slog.Default().
	Logger *slog.Logger
}

// NewService creates a new passkey service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	regVerify := params.RegistrationVerifier
	authVerify := params.AuthenticationVerifier
	if regVerify == nil || authVerify == nil {
		verifier, err := NewProtocolVerifier(params.Config)
		if err != nil {
			return nil, err
		}
		if regVerify == nil {
			regVerify = verifier
		}
		if authVerify == nil {
			authVerify = verifier
		}
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:     params.Config,
		store:      params.Store,
		ledger:     NewChallengeLedger(params.Store, params.Config.ChallengeTTL),
		regVerify:  regVerify,
		authVerify: authVerify,
		logger:     logger,
		configured: true,
	}, nil
}

// BeginRegistration starts a registration ceremony for the username,
// lazily creating the user on first contact. The returned options embed a
// fresh challenge that invalidates any previously outstanding one.
func (s *Service) BeginRegistration(ctx context.Context, username string) (*protocol.CredentialCreation, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		if !IsUserNotFound(err) {
			return nil, WrapError("find user", err)
		}
		user, err = s.store.CreateUser(ctx, username)
		if err != nil {
			return nil, WrapError("create user", err)
		}
	}

	exclusions := make([]protocol.CredentialDescriptor, len(user.Credentials))
	for i, cred := range user.Credentials {
		exclusions[i] = cred.Descriptor()
	}

	options, state, err := s.regVerify.RegistrationOptions(user, exclusions)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Issue(ctx, username, PurposeRegistration, state); err != nil {
		return nil, err
	}

	return options, nil
}

// FinishRegistration completes a registration ceremony. The outstanding
// challenge is consumed regardless of the verification outcome; on success
// the verified credential is appended to the user's collection.
func (s *Service) FinishRegistration(ctx context.Context, username string, response *protocol.ParsedCredentialCreationData) (*RegistrationResult, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		return nil, WrapError("find user", err)
	}

	challenge, err := s.ledger.Consume(ctx, username, PurposeRegistration)
	if err != nil {
		return nil, err
	}

	cred, err := s.regVerify.VerifyRegistration(user, sessionState(challenge), response)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendCredential(ctx, username, cred); err != nil {
		return nil, WrapError("append credential", err)
	}

	return &RegistrationResult{Verified: true, Credential: cred}, nil
}

// BeginAuthentication starts an authentication ceremony. The returned
// options list every registered credential in allowCredentials so the
// browser can offer any of the user's authenticators.
func (s *Service) BeginAuthentication(ctx context.Context, username string) (*protocol.CredentialAssertion, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		return nil, WrapError("find user", err)
	}
	if len(user.Credentials) == 0 {
		return nil, NewError("begin authentication", ErrNoCredentials)
	}

	options, state, err := s.authVerify.AuthenticationOptions(user)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Issue(ctx, username, PurposeAuthentication, state); err != nil {
		return nil, err
	}

	return options, nil
}

// FinishAuthentication completes an authentication ceremony. The
// credential is selected by explicit ID match against the assertion's
// claimed credential ID; the stored signature counter must strictly
// advance (when nonzero) or the assertion is rejected as a suspected
// cloned-authenticator replay.
func (s *Service) FinishAuthentication(ctx context.Context, username string, response *protocol.ParsedCredentialAssertionData) (*AuthenticationResult, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	user, err := s.store.FindUser(ctx, username)
	if err != nil {
		return nil, WrapError("find user", err)
	}

	challenge, err := s.ledger.Consume(ctx, username, PurposeAuthentication)
	if err != nil {
		return nil, err
	}

	cred := user.CredentialByID(response.RawID)
	if cred == nil {
		return nil, NewError("finish authentication", ErrUnknownCredential)
	}

	outcome, err := s.authVerify.VerifyAuthentication(user, sessionState(challenge), cred, response)
	if err != nil {
		return nil, err
	}

	if outcome.CloneWarning || (cred.SignCount != 0 && outcome.NewSignCount <= cred.SignCount) {
		s.logger.Warn("suspected cloned authenticator",
			"username", username,
			"credential_id", base64.RawURLEncoding.EncodeToString(cred.ID),
			"stored_count", cred.SignCount,
			"reported_count", outcome.NewSignCount)
		return nil, NewError("finish authentication", ErrCounterReplay)
	}

	if err := s.store.UpdateSignCount(ctx, username, cred.ID, outcome.NewSignCount); err != nil {
		return nil, WrapError("update sign count", err)
	}
	cred.SignCount = outcome.NewSignCount

	return &AuthenticationResult{Verified: true, Credential: cred}, nil
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

func sessionState(ch *Challenge) *SessionState {
	return &SessionState{
		Challenge: ch.Value,
		Data:      ch.Session,
	}
}
