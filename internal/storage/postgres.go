package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS conversion_audit (
	id           UUID PRIMARY KEY,
	from_token   TEXT NOT NULL,
	to_token     TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	rate         DOUBLE PRECISION NOT NULL,
	path_length  INTEGER NOT NULL,
	duration_ms  BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversion_audit_created_at_idx
	ON conversion_audit (created_at DESC);
`

// PostgresStore implements AuditStore backed by PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to Postgres and ensures the audit schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) RecordConversion(ctx context.Context, rec ConversionRecord) (ConversionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO conversion_audit (id, from_token, to_token, block_number, rate, path_length, duration_ms, created_at)
		VALUES (:id, :from_token, :to_token, :block_number, :rate, :path_length, :duration_ms, :created_at)
	`, rec)
	if err != nil {
		return ConversionRecord{}, fmt.Errorf("insert conversion audit: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) RecentConversions(ctx context.Context, limit int) ([]ConversionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []ConversionRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, from_token, to_token, block_number, rate, path_length, duration_ms, created_at
		FROM conversion_audit
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent conversions: %w", err)
	}
	return records, nil
}

var _ AuditStore = (*PostgresStore)(nil)
