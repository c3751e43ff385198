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
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// ProtocolVerifier implements the verification capability on top of the
// go-webauthn library. Ceremony options (and the challenges embedded in
// them) come from the library; the engine captures the challenge into the
// ledger and replays the serialized session data at verification time.
type ProtocolVerifier struct {
	webauthn *webauthn.WebAuthn
}

// compile-time interface checks
var (
	_ RegistrationVerifier   = (*ProtocolVerifier)(nil)
	_ AuthenticationVerifier = (*ProtocolVerifier)(nil)
	_ Verifier               = (*ProtocolVerifier)(nil)
)

// NewProtocolVerifier creates a verifier from the service configuration.
// The config must already be validated.
func NewProtocolVerifier(cfg *Config) (*ProtocolVerifier, error) {
	wa, err := webauthn.New(cfg.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}
	return &ProtocolVerifier{webauthn: wa}, nil
}

// RegistrationOptions builds credential creation options for the user.
func (v *ProtocolVerifier) RegistrationOptions(user *User, exclusions []protocol.CredentialDescriptor) (*protocol.CredentialCreation, *SessionState, error) {
	options, session, err := v.webauthn.BeginRegistration(user,
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		return nil, nil, WrapError("build registration options", err)
	}

	state, err := marshalSession(session)
	if err != nil {
		return nil, nil, WrapError("build registration options", err)
	}

	return options, state, nil
}

// VerifyRegistration validates an attestation response and returns the
// verified credential record.
func (v *ProtocolVerifier) VerifyRegistration(user *User, state *SessionState, response *protocol.ParsedCredentialCreationData) (*Credential, error) {
	session, err := unmarshalSession(state)
	if err != nil {
		return nil, WrapError("verify registration", err)
	}

	credential, err := v.webauthn.CreateCredential(user, *session, response)
	if err != nil {
		return nil, NewError("verify registration", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	return FromWebAuthnCredential(credential), nil
}

// AuthenticationOptions builds credential request options for the user.
// Every registered credential appears in allowCredentials with its
// transport hints.
func (v *ProtocolVerifier) AuthenticationOptions(user *User) (*protocol.CredentialAssertion, *SessionState, error) {
	options, session, err := v.webauthn.BeginLogin(user)
	if err != nil {
		return nil, nil, WrapError("build authentication options", err)
	}

	state, err := marshalSession(session)
	if err != nil {
		return nil, nil, WrapError("build authentication options", err)
	}

	return options, state, nil
}

// VerifyAuthentication validates an assertion response against the
// selected credential. The credential was chosen by explicit ID match in
// the engine; the session's allow list is narrowed to that single ID, so
// an assertion naming any other credential fails.
func (v *ProtocolVerifier) VerifyAuthentication(user *User, state *SessionState, cred *Credential, response *protocol.ParsedCredentialAssertionData) (*AssertionOutcome, error) {
	session, err := unmarshalSession(state)
	if err != nil {
		return nil, WrapError("verify authentication", err)
	}
	session.AllowedCredentialIDs = [][]byte{cred.ID}

	validated, err := v.webauthn.ValidateLogin(user, *session, response)
	if err != nil {
		return nil, NewError("verify authentication", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	return &AssertionOutcome{
		NewSignCount: validated.Authenticator.SignCount,
		CloneWarning: validated.Authenticator.CloneWarning,
	}, nil
}

func marshalSession(session *webauthn.SessionData) (*SessionState, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}
	return &SessionState{
		Challenge: session.Challenge,
		Data:      data,
	}, nil
}

func unmarshalSession(state *SessionState) (*webauthn.SessionData, error) {
	var session webauthn.SessionData
	if err := json.Unmarshal(state.Data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session data: %w", err)
	}
	return &session, nil
}
