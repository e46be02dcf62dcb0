// Package storage implements the raw-record cache: one SQLite database per
// user holding (date, category) -> JSON payload rows with upsert-replace
// semantics. It is the single source of truth for "do we already have this
// data" and the only durable state the engine keeps.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"
)

// StorageError wraps any read or write failure of the underlying store.
// Callers must treat it as "the cache is untrustworthy", never as empty data.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Store manages the per-user raw-record databases under a base directory.
// Access to each user's database is serialized with a per-user mutex; keys
// for different users never overlap, so cross-user calls run concurrently.
type Store struct {
	dir string
	log *slog.Logger

	mu    sync.Mutex
	users map[int64]*userDB
}

type userDB struct {
	mu sync.Mutex
	db *sql.DB
}

// Open prepares a store rooted at dir. User databases are created lazily on
// first access.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("open", fmt.Errorf("creating data dir %s: %w", dir, err))
	}
	return &Store{dir: dir, log: log, users: make(map[int64]*userDB)}, nil
}

// Close closes every open user database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, u := range s.users {
		if err := u.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing db for user %d: %w", id, err)
		}
		delete(s.users, id)
	}
	return firstErr
}

// forUser returns the database handle for one user, opening and migrating
// the schema on first use.
func (s *Store) forUser(userID int64) (*userDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		return u, nil
	}

	userDir := filepath.Join(s.dir, "users", strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, storageErr("open", fmt.Errorf("creating user dir %s: %w", userDir, err))
	}

	dbPath := filepath.Join(userDir, "raw.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open", fmt.Errorf("opening %s: %w", dbPath, err))
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS raw_records (
		user_id    INTEGER NOT NULL,
		date       TEXT    NOT NULL,
		category   TEXT    NOT NULL,
		payload    TEXT    NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, date, category)
	)`)
	if err != nil {
		db.Close()
		return nil, storageErr("open", fmt.Errorf("creating raw_records table: %w", err))
	}

	u := &userDB{db: db}
	s.users[userID] = u
	s.log.Info("opened raw data store", "user", userID, "path", dbPath)
	return u, nil
}
