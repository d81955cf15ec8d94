// Package postgres provides a Postgres-backed data service mirroring the
// in-memory semantics, snapshotting state to a JSONB table after every
// successful mutation.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"recordcore/internal/infra/dataservice/memory"
	"recordcore/pkg/domain"
)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/recordcore?sslmode=disable"
)

const stateBucket = "record_state"

// Store persists the in-memory state to Postgres.
type Store struct {
	*memory.Service
	db *sql.DB
}

// NewStore opens a Postgres-backed store using dsn (falling back to a local
// default), ensures the state table exists, and hydrates from any existing
// snapshot.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	s := &Store{Service: memory.NewService(), db: db}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, stateBucket).Scan(&payload)
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

func (s *Store) persist(ctx context.Context) error {
	payload, err := json.Marshal(s.Service.ExportState())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO state (bucket, payload) VALUES ($1, $2)
		 ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload`,
		stateBucket, payload,
	); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// RegisterSchema installs the schema and persists the new state.
func (s *Store) RegisterSchema(ctx context.Context, schema domain.Schema) error {
	s.Service.RegisterSchema(schema)
	return s.persist(ctx)
}

// Create persists the mutation durably after the in-memory write succeeds.
func (s *Store) Create(ctx context.Context, table string, fields map[string]any, parameters map[string]any) (domain.MutationResult, error) {
	result, err := s.Service.Create(ctx, table, fields, parameters)
	if err != nil || !result.Succeeded {
		return result, err
	}
	if err := s.persist(ctx); err != nil {
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
	if err := s.persist(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
