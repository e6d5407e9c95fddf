// Package storage persists conversion audit records.
package storage

import (
	"context"
	"time"
)

// ConversionRecord is one audited conversion rate computation.
type ConversionRecord struct {
	ID          string    `db:"id" json:"id"`
	FromToken   string    `db:"from_token" json:"from_token"`
	ToToken     string    `db:"to_token" json:"to_token"`
	BlockNumber uint64    `db:"block_number" json:"block_number"`
	Rate        float64   `db:"rate" json:"rate"`
	PathLength  int       `db:"path_length" json:"path_length"`
	DurationMS  int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AuditStore records conversion computations. Implementations must be safe
// for concurrent use.
type AuditStore interface {
	RecordConversion(ctx context.Context, rec ConversionRecord) (ConversionRecord, error)
	RecentConversions(ctx context.Context, limit int) ([]ConversionRecord, error)
}
