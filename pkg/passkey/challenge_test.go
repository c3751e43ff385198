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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*ChallengeLedger, *MemoryUserStore) {
	t.Helper()
	store := NewMemoryUserStore()
	_, err := store.CreateUser(context.Background(), "alice")
	require.NoError(t, err)
	return NewChallengeLedger(store, time.Minute), store
}

func testState(t *testing.T) *SessionState {
	t.Helper()
	value, err := NewChallengeValue()
	require.NoError(t, err)
	return &SessionState{Challenge: value, Data: []byte(`{}`)}
}

func TestNewChallengeValue(t *testing.T) {
	a, err := NewChallengeValue()
	require.NoError(t, err)
	b, err := NewChallengeValue()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, challengeEntropy)
}

func TestLedgerIssueGeneratesMissingChallenge(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	issued, err := ledger.Issue(ctx, "alice", PurposeRegistration, &SessionState{Data: []byte(`{}`)})
	require.NoError(t, err)
	require.NotEmpty(t, issued.Value)

	raw, err := base64.RawURLEncoding.DecodeString(issued.Value)
	require.NoError(t, err)
	assert.Len(t, raw, challengeEntropy)
}

func TestLedgerIssueAndConsume(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	state := testState(t)
	issued, err := ledger.Issue(ctx, "alice", PurposeRegistration, state)
	require.NoError(t, err)
	assert.Equal(t, state.Challenge, issued.Value)
	assert.Equal(t, "alice", issued.IssuedTo)
	assert.Equal(t, state.Data, issued.Session)

	consumed, err := ledger.Consume(ctx, "alice", PurposeRegistration)
	require.NoError(t, err)
	assert.Equal(t, issued.Value, consumed.Value)

	// The slot holds at most one challenge; consuming again finds nothing.
	_, err = ledger.Consume(ctx, "alice", PurposeRegistration)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestLedgerIssueOverwrites(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Issue(ctx, "alice", PurposeRegistration, testState(t))
	require.NoError(t, err)

	second, err := ledger.Issue(ctx, "alice", PurposeAuthentication, testState(t))
	require.NoError(t, err)

	consumed, err := ledger.Consume(ctx, "alice", PurposeAuthentication)
	require.NoError(t, err)
	assert.Equal(t, second.Value, consumed.Value)
}

func TestLedgerPurposeMismatchConsumes(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Issue(ctx, "alice", PurposeRegistration, testState(t))
	require.NoError(t, err)

	_, err = ledger.Consume(ctx, "alice", PurposeAuthentication)
	assert.ErrorIs(t, err, ErrChallengePurposeMismatch)

	// The mismatch consumed the challenge; even the right purpose is too late.
	_, err = ledger.Consume(ctx, "alice", PurposeRegistration)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestLedgerExpiryConsumes(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Issue(ctx, "alice", PurposeRegistration, testState(t))
	require.NoError(t, err)

	ledger.now = func() time.Time {
		return time.Now().Add(ledger.TTL() + time.Second)
	}

	_, err = ledger.Consume(ctx, "alice", PurposeRegistration)
	assert.ErrorIs(t, err, ErrChallengeExpired)

	ledger.now = time.Now
	_, err = ledger.Consume(ctx, "alice", PurposeRegistration)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestLedgerBoundaryNotExpired(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	issue := time.Now()
	ledger.now = func() time.Time { return issue }

	_, err := ledger.Issue(ctx, "alice", PurposeRegistration, testState(t))
	require.NoError(t, err)

	// Exactly at the expiry instant the challenge is still valid.
	ledger.now = func() time.Time { return issue.Add(ledger.TTL()) }
	_, err = ledger.Consume(ctx, "alice", PurposeRegistration)
	assert.NoError(t, err)
}

func TestLedgerUnknownUser(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Issue(ctx, "nobody", PurposeRegistration, testState(t))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = ledger.Consume(ctx, "nobody", PurposeRegistration)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLedgerDefaultTTL(t *testing.T) {
	ledger := NewChallengeLedger(NewMemoryUserStore(), 0)
	assert.Equal(t, 2*time.Minute, ledger.TTL())
}
