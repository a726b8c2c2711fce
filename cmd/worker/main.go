package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"historia-diaria/internal/bootstrap"
	"historia-diaria/internal/handler/http/respond"
	"historia-diaria/internal/infra/db"
	"historia-diaria/internal/infra/notifier"
	workerPkg "historia-diaria/internal/infra/worker"
	"historia-diaria/internal/observability/metrics"
	"historia-diaria/internal/observability/tracing"
	"historia-diaria/internal/usecase/generate"
	envcfg "historia-diaria/pkg/config"
)

func main() {
	logger := bootstrap.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(envcfg.GetEnvFloat("OTEL_SAMPLE_RATIO", 1.0))
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.DefaultMetrics()
	workerConfig := workerPkg.LoadConfig(logger, workerMetrics.Config)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("generate_timeout", workerConfig.GenerateTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.String("run_mode", workerConfig.RunMode.String()))

	store, driver, err := bootstrap.Generation(ctx, logger)
	if err != nil {
		logger.Error("failed to build generation pipeline", slog.Any("error", respond.SanitizeError(err)))
		os.Exit(bootstrap.ExitCode(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	go metrics.CollectDBStats(ctx, store.DB, 15*time.Second)

	if err := db.RefreshFactGauges(ctx, store.Facts, workerConfig.RunMode); err != nil {
		logger.Warn("failed to refresh fact gauges", slog.Any("error", err))
	}

	job := &workerPkg.Job{
		Facts:     store.Facts,
		Generator: driver,
		Config:    workerConfig,
		Metrics:   workerMetrics,
		Logger:    logger,
		OnPublished: func(ctx context.Context, res *generate.Result) {
			if err := db.RefreshFactGauges(ctx, store.Facts, workerConfig.RunMode); err != nil {
				logger.WarnContext(ctx, "failed to refresh fact gauges", slog.Any("error", err))
			}
		},
	}
	if announcers := notifier.FromEnv(logger); announcers.Len() > 0 {
		job.Announcer = announcers
		logger.Info("notification channels initialized", slog.Int("channels", announcers.Len()))
	} else {
		logger.Info("notification channels disabled")
	}

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	healthDone := make(chan struct{})
	go func() {
		defer close(healthDone)
		if err := healthServer.Start(ctx); err != nil {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	c, err := startCron(ctx, logger, job, workerConfig)
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Location().String()))

	if workerConfig.RunOnStart {
		go runJob(ctx, logger, job)
	}

	<-ctx.Done()
	logger.Info("shutting down worker...")
	healthServer.SetReady(false)

	// Wait for an in-flight run to finish before closing the database.
	<-c.Stop().Done()
	<-healthDone
	logger.Info("worker stopped")
}

// startCron schedules the daily job in the configured time zone. Overlapping
// ticks are skipped and a panicking run does not kill the scheduler.
func startCron(ctx context.Context, logger *slog.Logger, job *workerPkg.Job, cfg workerPkg.Config) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(cfg.CronSchedule, func() { runJob(ctx, logger, job) }); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// runJob executes a single daily run and logs its outcome.
func runJob(ctx context.Context, logger *slog.Logger, job *workerPkg.Job) {
	outcome, err := job.Run(ctx)
	if err != nil {
		// Mask secrets before logging.
		logger.Error("daily job finished with error",
			slog.String("outcome", outcome),
			slog.Any("error", respond.SanitizeError(err)))
		return
	}
	logger.Info("daily job finished", slog.String("outcome", outcome))
}
