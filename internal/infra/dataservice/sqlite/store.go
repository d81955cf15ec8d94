// Package sqlite provides a SQLite-backed data service that mirrors the
// in-memory semantics, snapshotting the full state to a single table as
// JSON buckets after every successful mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"recordcore/internal/infra/dataservice/memory"
	"recordcore/pkg/domain"
)

// Store persists the in-memory state to a SQLite file.
type Store struct {
	*memory.Service
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) a snapshotting SQLite-backed store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "recordcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Service: memory.NewService(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const stateBucket = "record_state"

func (s *Store) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, stateBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var state memory.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	s.Service.ImportState(state)
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(s.Service.ExportState())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO state (bucket, payload) VALUES (?, ?)
		 ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
		stateBucket, payload,
	); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// RegisterSchema installs the schema and persists the new state.
func (s *Store) RegisterSchema(schema domain.Schema) error {
	s.Service.RegisterSchema(schema)
	return s.persist()
}

// Create persists the mutation durably after the in-memory write succeeds.
func (s *Store) Create(ctx context.Context, table string, fields map[string]any, parameters map[string]any) (domain.MutationResult, error) {
	result, err := s.Service.Create(ctx, table, fields, parameters)
	if err != nil || !result.Succeeded {
		return result, err
	}
	if err := s.persist(); err != nil {
		return result, err
	}
	return result, nil
}

// Update persists the mutation durably after the in-memory write succeeds.
func (s *Store) Update(ctx context.Context, table string, fields map[string]any, parameters map[string]any) (domain.MutationResult, error) {
	result, err := s.Service.Update(ctx, table, fields, parameters)
	if err != nil || !result.Succeeded {
		return result, err
	}
	if err := s.persist(); err != nil {
		return result, err
	}
	return result, nil
}

// Close flushes state and closes the database.
func (s *Store) Close() error {
	if err := s.persist(); err != nil {
		return err
	}
	return s.db.Close()
}

// Path returns the backing database file path.
func (s *Store) Path() string { return s.path }
