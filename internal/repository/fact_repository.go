package repository

import (
	"context"
	"database/sql"

	"historia-diaria/internal/domain/entity"
)

// DBTX is the subset of *sql.DB used by the repositories. It is satisfied by
// *sql.DB, *sql.Tx and the circuit-breaker wrapped database.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FactRepository stores daily facts. Every operation is scoped to the table
// selected by the run mode.
type FactRepository interface {
	// Insert stores fact and returns its generated id.
	Insert(ctx context.Context, mode entity.RunMode, fact *entity.HistoricalFact) (int64, error)
	// GetByPublishDate returns the most recently created fact published on
	// date (YYYY-MM-DD). Returns (nil, nil) if there is none.
	GetByPublishDate(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error)
	// ListRecent returns up to limit facts ordered by publish_date DESC, created_at DESC.
	ListRecent(ctx context.Context, mode entity.RunMode, limit int) ([]*entity.HistoricalFact, error)
	ListAll(ctx context.Context, mode entity.RunMode) ([]*entity.HistoricalFact, error)
	Count(ctx context.Context, mode entity.RunMode) (int64, error)
}
