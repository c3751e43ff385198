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
	"crypto/rand"
	"encoding/base64"
	"time"
)

// challengeEntropy is the number of random bytes in a generated challenge
// value. The WebAuthn specification requires at least 16.
const challengeEntropy = 32

// NewChallengeValue generates a fresh base64url-encoded random challenge.
func NewChallengeValue() (string, error) {
	buf := make([]byte, challengeEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ChallengeLedger is the single source of truth for the challenge, if any,
// outstanding for a user. It owns the single challenge slot persisted on
// the user record: issuing overwrites, consuming clears exactly once.
type ChallengeLedger struct {
	store UserStore
	ttl   time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewChallengeLedger creates a ledger over the given store with the given
// challenge TTL.
func NewChallengeLedger(store UserStore, ttl time.Duration) *ChallengeLedger {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ChallengeLedger{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue records a challenge for the user, overwriting any outstanding one.
// The challenge value and opaque session state come from the verifier that
// built the ceremony options; the ledger stamps purpose and expiry. A
// verifier that supplies no challenge value gets a ledger-generated one.
func (l *ChallengeLedger) Issue(ctx context.Context, username string, purpose CeremonyPurpose, state *SessionState) (*Challenge, error) {
	value := state.Challenge
	if value == "" {
		generated, err := NewChallengeValue()
		if err != nil {
			return nil, WrapError("issue challenge", err)
		}
		value = generated
	}
	ch := &Challenge{
		Value:     value,
		Purpose:   purpose,
		IssuedTo:  username,
		ExpiresAt: l.now().Add(l.ttl).UTC(),
		Session:   state.Data,
	}
	if err := l.store.SetChallenge(ctx, username, ch); err != nil {
		return nil, WrapError("issue challenge", err)
	}
	return ch, nil
}

// Consume atomically retrieves and clears the user's outstanding challenge.
//
// The clear happens unconditionally: an expired or purpose-mismatched
// challenge is consumed before the error is returned, so a rejected
// response can never be retried against the same challenge.
func (l *ChallengeLedger) Consume(ctx context.Context, username string, purpose CeremonyPurpose) (*Challenge, error) {
	ch, err := l.store.ClearChallenge(ctx, username)
	if err != nil {
		return nil, WrapError("consume challenge", err)
	}
	if ch.Purpose != purpose {
		return nil, NewError("consume challenge", ErrChallengePurposeMismatch)
	}
	if ch.Expired(l.now()) {
		return nil, NewError("consume challenge", ErrChallengeExpired)
	}
	return ch, nil
}

// TTL returns the ledger's challenge time-to-live.
func (l *ChallengeLedger) TTL() time.Duration {
	return l.ttl
}
