// Package store caches per-extension analysis reports in Postgres, keyed
// by extension id and a content hash of its analyzed files, so that
// re-running the analyzer over an unchanged extension skips the PDG/
// data-flow/detector pipeline entirely.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-extaint/internal/aggregate"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a Postgres-backed cache of Report values.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New verifies the connection and ensures the cache table exists.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: failed to ping database: %w", err)
	}
	s := &Store{pool: pool, log: logger.Named("store")}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS extension_reports (
            extension_id  TEXT NOT NULL,
            content_hash  TEXT NOT NULL,
            run_id        TEXT NOT NULL,
            report        JSONB NOT NULL,
            analyzed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (extension_id, content_hash)
        );`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("store: failed to create extension_reports table: %w", err)
	}
	return nil
}

// GetCachedReport returns a previously stored Report for extensionID at
// contentHash, if present.
func (s *Store) GetCachedReport(ctx context.Context, extensionID, contentHash string) (*aggregate.Report, bool, error) {
	const q = `SELECT report FROM extension_reports WHERE extension_id = $1 AND content_hash = $2`
	row := s.pool.QueryRow(ctx, q, extensionID, contentHash)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: failed to query cached report for %s: %w", extensionID, err)
	}

	var report aggregate.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, fmt.Errorf("store: failed to decode cached report for %s: %w", extensionID, err)
	}
	return &report, true, nil
}

// PutReport upserts a Report for extensionID at contentHash, stamped with
// the analysis run that produced it.
func (s *Store) PutReport(ctx context.Context, extensionID, contentHash, runID string, report aggregate.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("store: failed to encode report for %s: %w", extensionID, err)
	}
	const q = `
        INSERT INTO extension_reports (extension_id, content_hash, run_id, report)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (extension_id, content_hash) DO UPDATE SET
            run_id = EXCLUDED.run_id,
            report = EXCLUDED.report,
            analyzed_at = now();`
	if _, err := s.pool.Exec(ctx, q, extensionID, contentHash, runID, data); err != nil {
		return fmt.Errorf("store: failed to persist report for %s: %w", extensionID, err)
	}
	return nil
}
