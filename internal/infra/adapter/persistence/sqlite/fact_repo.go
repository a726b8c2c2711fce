package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/repository"
)

// FactRepo is the SQLite store used for local development. Dates are kept as
// YYYY-MM-DD text and sources as a JSON array.
type FactRepo struct {
	db  repository.DBTX
	now func() time.Time
}

func NewFactRepo(db repository.DBTX) repository.FactRepository {
	return &FactRepo{db: db, now: time.Now}
}

// timestampLayout keeps fractional seconds fixed-width so text order matches time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const factColumns = `id, historical_date, publish_date, title, description, category, sources, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (*entity.HistoricalFact, error) {
	var (
		fact      entity.HistoricalFact
		sources   sql.NullString
		createdAt string
		updatedAt sql.NullString
	)
	if err := row.Scan(
		&fact.ID, &fact.HistoricalDate, &fact.PublishDate, &fact.Title, &fact.Description,
		&fact.Category, &sources, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	fact.Sources = []string{}
	if sources.Valid && sources.String != "" {
		if err := json.Unmarshal([]byte(sources.String), &fact.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources: %w", err)
		}
	}

	t, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	fact.CreatedAt = t
	if updatedAt.Valid {
		u, err := time.Parse(timestampLayout, updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		fact.UpdatedAt = &u
	}
	return &fact, nil
}

func (repo *FactRepo) Insert(ctx context.Context, mode entity.RunMode, fact *entity.HistoricalFact) (int64, error) {
	sources := fact.Sources
	if sources == nil {
		sources = []string{}
	}
	encoded, err := json.Marshal(sources)
	if err != nil {
		return 0, fmt.Errorf("Insert: marshal sources: %w", err)
	}

	now := repo.now().UTC()
	publishDate := fact.PublishDate
	if publishDate == "" {
		publishDate = entity.FormatDate(now)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (historical_date, title, description, category, sources, publish_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`, mode.Table())
	res, err := repo.db.ExecContext(ctx, query,
		fact.HistoricalDate, fact.Title, fact.Description, fact.Category,
		string(encoded), publishDate, now.Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("Insert %s: %w", mode.Table(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("Insert %s: LastInsertId: %w", mode.Table(), err)
	}
	fact.CreatedAt = now
	return id, nil
}

func (repo *FactRepo) GetByPublishDate(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE publish_date = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`, factColumns, mode.Table())

	fact, err := scanFact(repo.db.QueryRowContext(ctx, query, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByPublishDate: %w", err)
	}
	return fact, nil
}

func (repo *FactRepo) ListRecent(ctx context.Context, mode entity.RunMode, limit int) ([]*entity.HistoricalFact, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY publish_date DESC, created_at DESC, id DESC
LIMIT ?`, factColumns, mode.Table())

	facts, err := repo.list(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: %w", err)
	}
	return facts, nil
}

func (repo *FactRepo) ListAll(ctx context.Context, mode entity.RunMode) ([]*entity.HistoricalFact, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY publish_date DESC, created_at DESC, id DESC`, factColumns, mode.Table())

	facts, err := repo.list(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return facts, nil
}

func (repo *FactRepo) Count(ctx context.Context, mode entity.RunMode) (int64, error) {
	var n int64
	if err := repo.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, mode.Table())).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (repo *FactRepo) list(ctx context.Context, query string, args ...any) ([]*entity.HistoricalFact, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	facts := make([]*entity.HistoricalFact, 0, 16)
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return facts, nil
}
