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

// Package sqlite provides a SQLite-backed passkey.UserStore built on the
// CGO-free modernc.org/sqlite driver. Challenge and sign-count mutations
// run in transactions, giving the per-user atomicity the ceremony engine
// requires.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username     TEXT PRIMARY KEY,
	id           BLOB NOT NULL,
	display_name TEXT NOT NULL,
	challenge    TEXT,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	credential_id BLOB PRIMARY KEY,
	username      TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
	payload       TEXT NOT NULL,
	sign_count    INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	last_used_at  INTEGER
);

CREATE INDEX IF NOT EXISTS idx_credentials_username ON credentials(username);
`

// Store implements passkey.UserStore over SQLite.
type Store struct {
	db *sql.DB
}

var _ passkey.UserStore = (*Store)(nil)

// Open opens a passkey SQLite store at the given path and applies the
// schema. The WAL journal and busy timeout pragmas keep concurrent
// ceremony requests from tripping over each other.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing database handle and applies the schema.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the raw database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FindUser retrieves a user with all credential records, in registration order.
func (s *Store) FindUser(ctx context.Context, username string) (*passkey.User, error) {
	var (
		id            []byte
		displayName   string
		challengeJSON sql.NullString
		createdAt     int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, challenge, created_at FROM users WHERE username = ?`,
		username).Scan(&id, &displayName, &challengeJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, passkey.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	user := &passkey.User{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		Credentials: make([]*passkey.Credential, 0),
		CreatedAt:   fromMillis(createdAt),
	}

	if challengeJSON.Valid {
		var ch passkey.Challenge
		if err := json.Unmarshal([]byte(challengeJSON.String), &ch); err != nil {
			return nil, fmt.Errorf("decode challenge: %w", err)
		}
		user.CurrentChallenge = &ch
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload, sign_count, last_used_at FROM credentials WHERE username = ? ORDER BY rowid`,
		username)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			payload    string
			signCount  int64
			lastUsedAt sql.NullInt64
		)
		if err := rows.Scan(&payload, &signCount, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}

		var cred passkey.Credential
		if err := json.Unmarshal([]byte(payload), &cred); err != nil {
			return nil, fmt.Errorf("decode credential: %w", err)
		}
		// The columns are authoritative for mutable fields.
		cred.SignCount = uint32(signCount)
		if lastUsedAt.Valid {
			cred.LastUsedAt = fromMillis(lastUsedAt.Int64)
		}
		user.Credentials = append(user.Credentials, &cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return user, nil
}

// CreateUser creates a new user with a fresh random ID.
func (s *Store) CreateUser(ctx context.Context, username string) (*passkey.User, error) {
	user := &passkey.User{
		ID:          []byte(uuid.NewString()),
		Username:    username,
		DisplayName: username,
		Credentials: make([]*passkey.Credential, 0),
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, id, display_name, challenge, created_at) VALUES (?, ?, ?, NULL, ?)`,
		user.Username, user.ID, user.DisplayName, toMillis(user.CreatedAt))
	if isConstraintError(err) {
		return nil, passkey.ErrUserAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// SetChallenge atomically overwrites the user's outstanding challenge.
func (s *Store) SetChallenge(ctx context.Context, username string, challenge *passkey.Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET challenge = ? WHERE username = ?`,
		string(payload), username)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return passkey.ErrUserNotFound
	}
	return nil
}

// ClearChallenge atomically reads and clears the user's outstanding challenge.
func (s *Store) ClearChallenge(ctx context.Context, username string) (*passkey.Challenge, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var challengeJSON sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT challenge FROM users WHERE username = ?`, username).Scan(&challengeJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, passkey.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query challenge: %w", err)
	}
	if !challengeJSON.Valid {
		return nil, passkey.ErrNoChallenge
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET challenge = NULL WHERE username = ?`, username); err != nil {
		return nil, fmt.Errorf("clear challenge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	var ch passkey.Challenge
	if err := json.Unmarshal([]byte(challengeJSON.String), &ch); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return &ch, nil
}

// AppendCredential appends a credential record to the user's collection.
func (s *Store) AppendCredential(ctx context.Context, username string, cred *passkey.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE username = ?`, username).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return passkey.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("query user: %w", err)
	}

	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (credential_id, username, payload, sign_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		cred.ID, username, string(payload), int64(cred.SignCount), toMillis(createdAt))
	if isConstraintError(err) {
		return passkey.ErrDuplicateCredential
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}

	return tx.Commit()
}

// UpdateSignCount atomically persists a new signature counter and
// last-used timestamp for the credential.
func (s *Store) UpdateSignCount(ctx context.Context, username string, credentialID []byte, newCount uint32) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET sign_count = ?, last_used_at = ? WHERE username = ? AND credential_id = ?`,
		int64(newCount), toMillis(time.Now().UTC()), username, credentialID)
	if err != nil {
		return fmt.Errorf("update sign count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err = s.db.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE username = ?`, username).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return passkey.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("query user: %w", err)
		}
		return passkey.ErrUnknownCredential
	}
	return nil
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT ||
		code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
