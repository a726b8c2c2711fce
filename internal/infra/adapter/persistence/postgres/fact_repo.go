package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/repository"
)

type FactRepo struct{ db repository.DBTX }

func NewFactRepo(db repository.DBTX) repository.FactRepository {
	return &FactRepo{db: db}
}

const factColumns = `id, historical_date, publish_date, title, description, category, sources, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (*entity.HistoricalFact, error) {
	var (
		fact           entity.HistoricalFact
		historicalDate time.Time
		publishDate    time.Time
		sources        textArray
		updatedAt      sql.NullTime
	)
	if err := row.Scan(
		&fact.ID, &historicalDate, &publishDate, &fact.Title, &fact.Description,
		&fact.Category, &sources, &fact.CreatedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	fact.HistoricalDate = entity.FormatDate(historicalDate)
	fact.PublishDate = entity.FormatDate(publishDate)
	fact.Sources = []string(sources)
	if updatedAt.Valid {
		fact.UpdatedAt = &updatedAt.Time
	}
	return &fact, nil
}

// Insert leaves publish_date to the column default when the fact has none.
func (repo *FactRepo) Insert(ctx context.Context, mode entity.RunMode, fact *entity.HistoricalFact) (int64, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (historical_date, title, description, category, sources, publish_date)
VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, '')::date, CURRENT_DATE))
RETURNING id, created_at`, mode.Table())

	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		fact.HistoricalDate, fact.Title, fact.Description, fact.Category,
		textArray(fact.Sources), fact.PublishDate,
	).Scan(&id, &fact.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("Insert %s: %w", mode.Table(), err)
	}
	return id, nil
}

func (repo *FactRepo) GetByPublishDate(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE publish_date = $1
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
LIMIT $1`, factColumns, mode.Table())

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
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, mode.Table())
	if err := repo.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (repo *FactRepo) list(ctx context.Context, query string, args ...any) ([]*entity.HistoricalFact, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	facts := make([]*entity.HistoricalFact, 0, 16)
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}
