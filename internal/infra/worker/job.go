package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/usecase/generate"
)

// ErrJobRunning is returned when a run starts while another is in progress.
var ErrJobRunning = errors.New("daily job already running")

// FactLookup finds the fact already published for a date.
type FactLookup interface {
	GetByPublishDate(ctx context.Context, mode entity.RunMode, date string) (*entity.HistoricalFact, error)
}

// Generator runs the generation pipeline.
type Generator interface {
	Run(ctx context.Context, mode entity.RunMode, date time.Time) (*generate.Result, error)
}

// Announcer delivers a published fact and returns how many channels accepted it.
type Announcer interface {
	Deliver(ctx context.Context, fact *entity.HistoricalFact) int
}

// Job publishes the fact of the day once per day.
type Job struct {
	Facts     FactLookup
	Generator Generator
	// Announcer is optional.
	Announcer Announcer
	Config    Config
	Metrics   *Metrics
	Logger    *slog.Logger
	// OnPublished is called after a successful run, before notifying.
	OnPublished func(ctx context.Context, res *generate.Result)
	// NotifyTimeout bounds the announcement; zero means two minutes.
	NotifyTimeout time.Duration

	now func() time.Time
	mu  sync.Mutex
}

// Run executes one tick. It returns the outcome (success, failure or
// skipped) and the pipeline error of a failed run. A day that already has a
// fact is skipped.
func (j *Job) Run(ctx context.Context) (string, error) {
	if !j.mu.TryLock() {
		j.logger().WarnContext(ctx, "daily job skipped, previous run still active")
		return OutcomeSkipped, ErrJobRunning
	}
	defer j.mu.Unlock()

	now := time.Now
	if j.now != nil {
		now = j.now
	}
	today := now().In(j.Config.Location())
	day := entity.FormatDate(today)
	mode := j.Config.RunMode
	logger := j.logger().With(slog.String("publish_date", day), slog.String("mode", mode.String()))

	existing, err := j.Facts.GetByPublishDate(ctx, mode, day)
	if err != nil {
		j.metrics().RecordRun(OutcomeFailure, 0)
		return OutcomeFailure, fmt.Errorf("check existing fact: %w", err)
	}
	if existing != nil {
		logger.InfoContext(ctx, "fact already published today, skipping",
			slog.Int64("id", existing.ID),
			slog.String("title", existing.Title))
		j.metrics().RecordRun(OutcomeSkipped, 0)
		return OutcomeSkipped, nil
	}

	start := time.Now()
	runCtx := ctx
	if j.Config.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.Config.GenerateTimeout)
		defer cancel()
	}

	logger.InfoContext(ctx, "daily job started", slog.Duration("timeout", j.Config.GenerateTimeout))
	res, err := j.Generator.Run(runCtx, mode, today)
	elapsed := time.Since(start)
	if err != nil {
		j.metrics().RecordRun(OutcomeFailure, elapsed.Seconds())
		logger.ErrorContext(ctx, "daily job failed",
			slog.Duration("duration", elapsed),
			slog.Any("error", err))
		return OutcomeFailure, err
	}

	j.metrics().RecordRun(OutcomeSuccess, elapsed.Seconds())
	logger.InfoContext(ctx, "daily job published fact",
		slog.String("run_id", res.RunID),
		slog.Int64("id", res.Fact.ID),
		slog.String("source", res.Source),
		slog.Duration("duration", elapsed))

	if j.OnPublished != nil {
		j.OnPublished(ctx, res)
	}
	j.announce(ctx, logger, res.Fact)
	return OutcomeSuccess, nil
}

func (j *Job) announce(ctx context.Context, logger *slog.Logger, fact *entity.HistoricalFact) {
	if j.Announcer == nil {
		return
	}
	timeout := j.NotifyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sent := j.Announcer.Deliver(ctx, fact)
	j.metrics().Notifications.Add(float64(sent))
	logger.InfoContext(ctx, "fact announced", slog.Int("channels", sent))
}

func (j *Job) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

func (j *Job) metrics() *Metrics {
	if j.Metrics == nil {
		return defaultMetrics
	}
	return j.Metrics
}
