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

	"github.com/go-webauthn/webauthn/protocol"
)

// UserStore is the persistence contract consumed by the ceremony engine.
// Every mutation is keyed by username and must be atomic with respect to
// concurrent requests for the same user; concurrent operations for
// different users are fully independent.
type UserStore interface {
	// FindUser retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	FindUser(ctx context.Context, username string) (*User, error)

	// CreateUser creates a new user with a fresh ID, an empty credential
	// list, and no outstanding challenge.
	// Returns ErrUserAlreadyExists if the username is taken.
	CreateUser(ctx context.Context, username string) (*User, error)

	// SetChallenge atomically overwrites the user's outstanding challenge.
	// Returns ErrUserNotFound if the user does not exist.
	SetChallenge(ctx context.Context, username string, challenge *Challenge) error

	// ClearChallenge atomically reads and clears the user's outstanding
	// challenge. Returns ErrNoChallenge if none is outstanding and
	// ErrUserNotFound if the user does not exist.
	ClearChallenge(ctx context.Context, username string) (*Challenge, error)

	// AppendCredential appends a credential record to the user's
	// collection. Returns ErrDuplicateCredential if the credential ID is
	// already bound to the user and ErrUserNotFound if the user does not
	// exist.
	AppendCredential(ctx context.Context, username string, cred *Credential) error

	// UpdateSignCount atomically persists a new signature counter (and
	// last-used timestamp) for the identified credential. Returns
	// ErrUnknownCredential if no such credential exists for the user.
	UpdateSignCount(ctx context.Context, username string, credentialID []byte, newCount uint32) error
}

// SessionState carries a challenge value together with opaque verifier
// state captured when ceremony options were built. The engine stores it in
// the challenge ledger and replays it at verification time.
type SessionState struct {
	// Challenge is the base64url-encoded challenge value.
	Challenge string

	// Data is opaque verifier state (serialized session data).
	Data []byte
}

// RegistrationVerifier is the registration half of the verification
// capability. Implementations validate attestation responses against the
// expected challenge, origin, and RP ID, and return the verified
// credential material.
type RegistrationVerifier interface {
	// RegistrationOptions builds the credential creation options for the
	// user, excluding already-registered credentials, and returns the
	// session state binding the embedded challenge.
	RegistrationOptions(user *User, exclusions []protocol.CredentialDescriptor) (*protocol.CredentialCreation, *SessionState, error)

	// VerifyRegistration validates an attestation response against the
	// session state. Returns the verified credential on success and
	// ErrVerificationFailed (wrapped) on any cryptographic or binding
	// failure.
	VerifyRegistration(user *User, state *SessionState, response *protocol.ParsedCredentialCreationData) (*Credential, error)
}

// AssertionOutcome is the structured result of a verified assertion.
type AssertionOutcome struct {
	// NewSignCount is the signature counter reported by the authenticator.
	NewSignCount uint32

	// CloneWarning is set when the verifier observed a non-advancing counter.
	CloneWarning bool
}

// AuthenticationVerifier is the authentication half of the verification
// capability.
type AuthenticationVerifier interface {
	// AuthenticationOptions builds the credential request options for the
	// user, listing every registered credential, and returns the session
	// state binding the embedded challenge.
	AuthenticationOptions(user *User) (*protocol.CredentialAssertion, *SessionState, error)

	// VerifyAuthentication validates an assertion response against the
	// session state and the selected credential's public key and stored
	// signature counter. Returns the assertion outcome on success and
	// ErrVerificationFailed (wrapped) on failure.
	VerifyAuthentication(user *User, state *SessionState, cred *Credential, response *protocol.ParsedCredentialAssertionData) (*AssertionOutcome, error)
}

// Verifier combines both halves of the verification capability.
type Verifier interface {
	RegistrationVerifier
	AuthenticationVerifier
}
