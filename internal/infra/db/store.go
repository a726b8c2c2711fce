package db

import (
	"context"
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/infra/adapter/persistence/postgres"
	"historia-diaria/internal/infra/adapter/persistence/sqlite"
	"historia-diaria/internal/observability/metrics"
	"historia-diaria/internal/repository"
)

// NewFactRepository returns the fact repository for dialect over conn, with
// query latency recorded in db_query_duration_seconds.
func NewFactRepository(dialect Dialect, conn repository.DBTX) repository.FactRepository {
	var repo repository.FactRepository
	if dialect == DialectSQLite {
		repo = sqlite.NewFactRepo(conn)
	} else {
		repo = postgres.NewFactRepo(conn)
	}
	return &instrumentedRepo{next: repo}
}

type instrumentedRepo struct {
	next repository.FactRepository
}

func observe(op string, start time.Time, err error) {
	metrics.RecordDBQuery(op, time.Since(start), err)
}

func (r *instrumentedRepo) Insert(ctx context.Context, mode entity.RunMode, fact *entity.HistoricalFact) (int64, error) {
	start := time.Now()
	id, err := r.next.Insert(ctx, mode, fact)
	observe("insert", start, err)
	return id, err
}

func (r *instrumentedRepo) GetByPublishDate(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error) {
	start := time.Now()
	f, err := r.next.GetByPublishDate(ctx, mode, date)
	observe("get_by_publish_date", start, err)
	return f, err
}

func (r *instrumentedRepo) ListRecent(ctx context.Context, mode entity.RunMode, limit int) ([]*entity.HistoricalFact, error) {
	start := time.Now()
	facts, err := r.next.ListRecent(ctx, mode, limit)
	observe("list_recent", start, err)
	return facts, err
}

func (r *instrumentedRepo) ListAll(ctx context.Context, mode entity.RunMode) ([]*entity.HistoricalFact, error) {
	start := time.Now()
	facts, err := r.next.ListAll(ctx, mode)
	observe("list_all", start, err)
	return facts, err
}

func (r *instrumentedRepo) Count(ctx context.Context, mode entity.RunMode) (int64, error) {
	start := time.Now()
	n, err := r.next.Count(ctx, mode)
	observe("count", start, err)
	return n, err
}

// RefreshFactGauges sets facts_total and the last publish timestamp of mode
// from the store.
func RefreshFactGauges(ctx context.Context, repo repository.FactRepository, mode entity.RunMode) error {
	n, err := repo.Count(ctx, mode)
	if err != nil {
		return err
	}
	metrics.UpdateFactsTotal(mode.String(), n)

	latest, err := repo.ListRecent(ctx, mode, 1)
	if err != nil {
		return err
	}
	if len(latest) == 1 {
		if day, err := entity.ParseDate(latest[0].PublishDate); err == nil {
			metrics.RecordLastPublish(mode.String(), day)
		}
	}
	return nil
}
