// Package main runs the fact generation pipeline once and exits.
// Usage: historia-generate [--mode prod|test] [--date YYYY-MM-DD]
//
// Exit status is 0 when a fact was stored (AI or fallback), 1 when the run
// failed and 2 when required configuration is missing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"historia-diaria/internal/bootstrap"
	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/observability/tracing"
	"historia-diaria/internal/usecase/generate"
	envcfg "historia-diaria/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		modeFlag string
		dateFlag string
	)
	flag.StringVar(&modeFlag, "mode", "", "Target table: prod or test (default RUN_MODE or prod)")
	flag.StringVar(&dateFlag, "date", "", "Publish date YYYY-MM-DD (default today)")
	flag.Parse()

	logger := bootstrap.Logger()

	if modeFlag == "" {
		modeFlag = envcfg.GetEnvString("RUN_MODE", entity.RunModeProduction.String())
	}
	mode, err := entity.ParseRunMode(modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return bootstrap.ExitFailure
	}
	date := time.Now()
	if dateFlag != "" {
		if date, err = entity.ParseDate(dateFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --date: %v\n", err)
			return bootstrap.ExitFailure
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(envcfg.GetEnvFloat("OTEL_SAMPLE_RATIO", 1.0))
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	res, err := generateOnce(ctx, logger, mode, date)
	if err != nil {
		logger.Error("generation failed",
			slog.String("mode", mode.String()),
			slog.String("publish_date", entity.FormatDate(date)),
			slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
			fmt.Fprintf(os.Stderr, "  caused by: %v\n", e)
		}
		return bootstrap.ExitCode(err)
	}

	fmt.Printf("Stored fact %d for %s in %s (source=%s, model=%s, attempts=%d, %s)\n",
		res.Fact.ID, res.Fact.PublishDate, mode.Table(), res.Source, res.Model, res.Attempts,
		res.Duration.Round(time.Millisecond))
	fmt.Printf("  %s  [%s]\n", res.Fact.Title, res.Fact.Category)
	return bootstrap.ExitOK
}

func generateOnce(ctx context.Context, logger *slog.Logger, mode entity.RunMode, date time.Time) (*generate.Result, error) {
	store, driver, err := bootstrap.Generation(ctx, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	return driver.Run(ctx, mode, date)
}
