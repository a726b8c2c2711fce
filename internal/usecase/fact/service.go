package fact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/repository"
)

const (
	// DefaultLimit is the list size used when the caller gives none.
	DefaultLimit = 10
	// MaxLimit caps every list request.
	MaxLimit = 100

	maxCacheTTL = time.Hour
)

// TodayCache caches today's fact. Implementations must be safe for
// concurrent use; errors are logged and otherwise ignored.
type TodayCache interface {
	Get(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error)
	Set(ctx context.Context, mode entity.RunMode, date string, fact *entity.HistoricalFact, ttl time.Duration) error
}

// Service reads published facts. Cache is optional.
type Service struct {
	Repo  repository.FactRepository
	Cache TodayCache
}

// HomeView is everything the home page needs.
type HomeView struct {
	Today   *entity.HistoricalFact
	Archive *Archive
}

// Today returns the fact published on the calendar day of now, or
// ErrFactNotFound.
func (s *Service) Today(ctx context.Context, mode entity.RunMode, now time.Time) (*entity.HistoricalFact, error) {
	date := entity.FormatDate(now)

	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, mode, date)
		if err != nil {
			slog.WarnContext(ctx, "today cache read failed",
				slog.String("date", date),
				slog.Any("error", err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	f, err := s.Repo.GetByPublishDate(ctx, mode, date)
	if err != nil {
		return nil, fmt.Errorf("get today's fact: %w", err)
	}
	if f == nil {
		return nil, ErrFactNotFound
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, mode, date, f, ttlUntilEndOfDay(now)); err != nil {
			slog.WarnContext(ctx, "today cache write failed",
				slog.String("date", date),
				slog.Any("error", err))
		}
	}
	return f, nil
}

// ByDate returns the fact published on date (YYYY-MM-DD), bypassing the
// cache, or ErrFactNotFound.
func (s *Service) ByDate(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error) {
	if _, err := entity.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	f, err := s.Repo.GetByPublishDate(ctx, mode, date)
	if err != nil {
		return nil, fmt.Errorf("get fact for %s: %w", date, err)
	}
	if f == nil {
		return nil, ErrFactNotFound
	}
	return f, nil
}

// Recent returns up to limit facts, newest publish_date first. limit is
// capped at MaxLimit.
func (s *Service) Recent(ctx context.Context, mode entity.RunMode, limit int) ([]*entity.HistoricalFact, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	facts, err := s.Repo.ListRecent(ctx, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent facts: %w", err)
	}
	return facts, nil
}

// Archive groups up to limit recent facts by year and month.
func (s *Service) Archive(ctx context.Context, mode entity.RunMode, limit int) (*Archive, error) {
	facts, err := s.Recent(ctx, mode, limit)
	if err != nil {
		return nil, err
	}
	return GroupArchive(facts), nil
}

// Home loads today's fact and the archive concurrently. A missing fact for
// today is not an error: HomeView.Today is nil.
func (s *Service) Home(ctx context.Context, mode entity.RunMode, now time.Time, limit int) (*HomeView, error) {
	var view HomeView
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := s.Today(gctx, mode, now)
		if err != nil && !errors.Is(err, ErrFactNotFound) {
			return err
		}
		view.Today = f
		return nil
	})
	g.Go(func() error {
		a, err := s.Archive(gctx, mode, limit)
		if err != nil {
			return err
		}
		view.Archive = a
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &view, nil
}

func normalizeLimit(limit int) (int, error) {
	if limit < 1 {
		return 0, ErrInvalidLimit
	}
	return min(limit, MaxLimit), nil
}

// ttlUntilEndOfDay keeps a cached fact no later than midnight in now's zone.
func ttlUntilEndOfDay(now time.Time) time.Duration {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	ttl := midnight.Sub(now)
	if ttl > maxCacheTTL {
		return maxCacheTTL
	}
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
