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
	"bytes"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// CeremonyPurpose identifies which ceremony a challenge was issued for.
// A challenge issued for one purpose must never validate the other.
type CeremonyPurpose string

const (
	// PurposeRegistration marks a challenge issued by BeginRegistration.
	PurposeRegistration CeremonyPurpose = "registration"

	// PurposeAuthentication marks a challenge issued by BeginAuthentication.
	PurposeAuthentication CeremonyPurpose = "authentication"
)

// Challenge is the single outstanding ceremony challenge for a user.
// At most one Challenge is live per user; issuing a new one overwrites
// any prior challenge.
type Challenge struct {
	// Value is the base64url-encoded random challenge embedded in the
	// ceremony options and echoed back in the client data.
	Value string `json:"value"`

	// Purpose is the ceremony the challenge was issued for.
	Purpose CeremonyPurpose `json:"purpose"`

	// IssuedTo is the username the challenge was issued for.
	IssuedTo string `json:"issued_to"`

	// ExpiresAt is the absolute expiry; ceremonies presented after this
	// instant fail closed.
	ExpiresAt time.Time `json:"expires_at"`

	// Session is opaque verifier state captured when the challenge was
	// issued and replayed at verification time. The ledger never
	// interprets it.
	Session []byte `json:"session,omitempty"`
}

// Expired reports whether the challenge has passed its expiry at the given instant.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Credential is a passkey credential record stored by the Relying Party.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	// Unique within a user's credential collection.
	ID []byte `json:"id"`

	// PublicKey is the credential's public key in COSE format, opaque to
	// this package beyond being handed to the verifier.
	PublicKey []byte `json:"public_key"`

	// AttestationType indicates the type of attestation used.
	AttestationType string `json:"attestation_type"`

	// Transports lists the transports advertised by the authenticator.
	// Used only to populate option hints, never for security decisions.
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty"`

	// Flags contains authenticator flags captured at registration.
	Flags CredentialFlags `json:"flags"`

	// AAGUID is the authenticator's model identifier.
	AAGUID []byte `json:"aaguid,omitempty"`

	// SignCount is the authenticator's signature counter, used to detect
	// cloned-authenticator replay. Monotonically non-decreasing.
	SignCount uint32 `json:"sign_count"`

	// CloneWarning records that a non-advancing counter was observed for
	// this credential at some point.
	CloneWarning bool `json:"clone_warning,omitempty"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// CredentialFlags contains authenticator capability flags.
type CredentialFlags struct {
	UserPresent    bool `json:"user_present"`
	UserVerified   bool `json:"user_verified"`
	BackupEligible bool `json:"backup_eligible"`
	BackupState    bool `json:"backup_state"`
}

// Descriptor returns the credential as a WebAuthn credential descriptor,
// suitable for excludeCredentials and allowCredentials lists.
func (c *Credential) Descriptor() protocol.CredentialDescriptor {
	return protocol.CredentialDescriptor{
		Type:         protocol.PublicKeyCredentialType,
		CredentialID: c.ID,
		Transport:    c.Transports,
	}
}

// ToWebAuthn converts the record to the go-webauthn library's type.
func (c *Credential) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:              c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       c.Transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    c.Flags.UserPresent,
			UserVerified:   c.Flags.UserVerified,
			BackupEligible: c.Flags.BackupEligible,
			BackupState:    c.Flags.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
	}
}

// FromWebAuthnCredential creates a Credential record from the go-webauthn
// library's type, as returned by a successful registration verification.
func FromWebAuthnCredential(wc *webauthn.Credential) *Credential {
	return &Credential{
		ID:              wc.ID,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		Transports:      wc.Transport,
		Flags: CredentialFlags{
			UserPresent:    wc.Flags.UserPresent,
			UserVerified:   wc.Flags.UserVerified,
			BackupEligible: wc.Flags.BackupEligible,
			BackupState:    wc.Flags.BackupState,
		},
		AAGUID:    wc.Authenticator.AAGUID,
		SignCount: wc.Authenticator.SignCount,
		CreatedAt: time.Now().UTC(),
	}
}

// User is a Relying Party user account. The ID is generated at first
// registration attempt and immutable thereafter; the username is the
// primary lookup key.
type User struct {
	// ID is the opaque WebAuthn user handle.
	ID []byte `json:"id"`

	// Username is the unique human-readable handle.
	Username string `json:"username"`

	// DisplayName is shown by the authenticator UI. Defaults to the username.
	DisplayName string `json:"display_name"`

	// Credentials holds the user's credential records in registration order.
	Credentials []*Credential `json:"credentials"`

	// CurrentChallenge is the single outstanding ceremony challenge, nil
	// when no ceremony is in flight.
	CurrentChallenge *Challenge `json:"current_challenge,omitempty"`

	// CreatedAt is when the account was lazily created.
	CreatedAt time.Time `json:"created_at"`
}

// CredentialByID returns the credential with the given ID, or nil if the
// user has no matching credential. Selection is always by explicit ID
// match, never positional.
func (u *User) CredentialByID(id []byte) *Credential {
	for _, c := range u.Credentials {
		if bytes.Equal(c.ID, id) {
			return c
		}
	}
	return nil
}

// WebAuthnID returns the user's WebAuthn user handle.
func (u *User) WebAuthnID() []byte {
	return u.ID
}

// WebAuthnName returns the username.
func (u *User) WebAuthnName() string {
	return u.Username
}

// WebAuthnDisplayName returns the display name, falling back to the username.
func (u *User) WebAuthnDisplayName() string {
	if u.DisplayName == "" {
		return u.Username
	}
	return u.DisplayName
}

// WebAuthnCredentials returns the user's credentials in the go-webauthn
// library's representation.
func (u *User) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.Credentials))
	for i, c := range u.Credentials {
		creds[i] = c.ToWebAuthn()
	}
	return creds
}

// RegistrationResult is the outcome of a successful FinishRegistration.
type RegistrationResult struct {
	// Verified is true when the attestation response passed verification
	// and the credential was persisted.
	Verified bool `json:"verified"`

	// Credential is the newly registered credential record.
	Credential *Credential `json:"-"`
}

// AuthenticationResult is the outcome of a successful FinishAuthentication.
type AuthenticationResult struct {
	// Verified is true when the assertion passed verification and the
	// signature counter advanced.
	Verified bool `json:"verified"`

	// Credential is the credential record the assertion was verified
	// against, with its updated signature counter.
	Credential *Credential `json:"-"`
}
