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
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations. All of these are expected,
// recoverable outcomes that surface to the transport layer as client
// failures; only store faults are treated as server errors.
var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when attempting to create a user that already exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUnknownCredential is returned when an assertion references a
	// credential ID that is not registered for the user.
	ErrUnknownCredential = errors.New("unknown credential")

	// ErrDuplicateCredential is returned when registering a credential ID
	// that is already bound to the user.
	ErrDuplicateCredential = errors.New("credential already registered")

	// ErrNoChallenge is returned when no challenge is outstanding for the user.
	ErrNoChallenge = errors.New("no outstanding challenge")

	// ErrChallengeExpired is returned when the outstanding challenge has
	// passed its expiry. The challenge is still consumed.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrChallengePurposeMismatch is returned when the outstanding challenge
	// was issued for the other ceremony type. The challenge is still consumed.
	ErrChallengePurposeMismatch = errors.New("challenge purpose mismatch")

	// ErrNoCredentials is returned when a user has no registered credentials.
	ErrNoCredentials = errors.New("user has no registered credentials")

	// ErrVerificationFailed is returned when the authenticator response
	// fails cryptographic verification.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrCounterReplay is returned when an assertion's signature counter
	// did not advance past the stored counter, indicating a possible
	// cloned authenticator.
	ErrCounterReplay = errors.New("signature counter did not advance")

	// ErrNotConfigured is returned when the service is not properly configured.
	ErrNotConfigured = errors.New("passkey service not configured")
)

// CeremonyError wraps an error with the operation that produced it.
type CeremonyError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *CeremonyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CeremonyError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *CeremonyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new CeremonyError with the given operation and error.
func NewError(op string, err error) error {
	return &CeremonyError{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsUnknownCredential returns true if the error indicates the assertion
// referenced an unregistered credential.
func IsUnknownCredential(err error) bool {
	return errors.Is(err, ErrUnknownCredential)
}

// IsChallengeFailure returns true if the error indicates the challenge was
// missing, expired, or bound to the other ceremony purpose.
func IsChallengeFailure(err error) bool {
	return errors.Is(err, ErrNoChallenge) ||
		errors.Is(err, ErrChallengeExpired) ||
		errors.Is(err, ErrChallengePurposeMismatch)
}

// IsVerificationFailed returns true if the error indicates verification failed.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}

// IsCounterReplay returns true if the error indicates a suspected
// cloned-authenticator replay.
func IsCounterReplay(err error) bool {
	return errors.Is(err, ErrCounterReplay)
}
