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
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-memory implementation of UserStore. All
// mutations run under a single mutex, which trivially satisfies the
// per-user linearizability the ceremony engine requires. Intended for
// development and testing.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

var _ UserStore = (*MemoryUserStore)(nil)

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*User),
	}
}

// FindUser retrieves a user by username.
func (s *MemoryUserStore) FindUser(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

// CreateUser creates a new user with a fresh random ID.
func (s *MemoryUserStore) CreateUser(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, ErrUserAlreadyExists
	}

	user := &User{
		ID:          []byte(uuid.NewString()),
		Username:    username,
		DisplayName: username,
		Credentials: make([]*Credential, 0),
		CreatedAt:   time.Now().UTC(),
	}
	s.users[username] = user

	return cloneUser(user), nil
}

// SetChallenge atomically overwrites the user's outstanding challenge.
func (s *MemoryUserStore) SetChallenge(ctx context.Context, username string, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	user.CurrentChallenge = challenge
	return nil
}

// ClearChallenge atomically reads and clears the user's outstanding challenge.
func (s *MemoryUserStore) ClearChallenge(ctx context.Context, username string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if user.CurrentChallenge == nil {
		return nil, ErrNoChallenge
	}

	challenge := user.CurrentChallenge
	user.CurrentChallenge = nil
	return challenge, nil
}

// AppendCredential appends a credential to the user's collection,
// rejecting duplicate credential IDs.
func (s *MemoryUserStore) AppendCredential(ctx context.Context, username string, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	for _, existing := range user.Credentials {
		if bytes.Equal(existing.ID, cred.ID) {
			return ErrDuplicateCredential
		}
	}

	user.Credentials = append(user.Credentials, cloneCredential(cred))
	return nil
}

// UpdateSignCount persists a new signature counter for the credential.
func (s *MemoryUserStore) UpdateSignCount(ctx context.Context, username string, credentialID []byte, newCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	for _, cred := range user.Credentials {
		if bytes.Equal(cred.ID, credentialID) {
			cred.SignCount = newCount
			cred.LastUsedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrUnknownCredential
}

// Count returns the number of users in the store.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Clear removes all users from the store.
func (s *MemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*User)
}

// cloneUser returns a copy detached from the store's canonical record so
// callers cannot mutate persisted state outside of store operations.
func cloneUser(u *User) *User {
	clone := *u
	clone.Credentials = make([]*Credential, len(u.Credentials))
	for i, c := range u.Credentials {
		clone.Credentials[i] = cloneCredential(c)
	}
	if u.CurrentChallenge != nil {
		ch := *u.CurrentChallenge
		clone.CurrentChallenge = &ch
	}
	return &clone
}

func cloneCredential(c *Credential) *Credential {
	clone := *c
	return &clone
}
