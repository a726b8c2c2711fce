// Package bootstrap assembles the components shared by the binaries: the
// logger, the fact store and the generation pipeline.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"historia-diaria/internal/config"
	"historia-diaria/internal/infra/db"
	"historia-diaria/internal/infra/llm"
	"historia-diaria/internal/observability/logging"
	"historia-diaria/internal/repository"
	"historia-diaria/internal/resilience/circuitbreaker"
	"historia-diaria/internal/usecase/generate"
	envcfg "historia-diaria/pkg/config"
)

// Exit codes shared by the command line tools.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitMissingConf = 2
)

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrConfigurationMissing):
		return ExitMissingConf
	default:
		return ExitFailure
	}
}

// Logger loads the dotenv files, builds the JSON or text logger selected by
// LOG_FORMAT and installs it as the default.
func Logger() *slog.Logger {
	loaded := envcfg.LoadDotenv()
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	for _, name := range loaded {
		logger.Debug("dotenv file loaded", slog.String("file", name))
	}
	return logger
}

// Store is an open fact store.
type Store struct {
	DB      *sql.DB
	Dialect db.Dialect
	Breaker *circuitbreaker.DBCircuitBreaker
	Facts   repository.FactRepository
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// OpenStore connects to the database described by the environment, applies
// the schema unless DB_AUTO_MIGRATE=false and returns the instrumented
// repository behind the database circuit breaker.
func OpenStore(ctx context.Context, logger *slog.Logger) (*Store, error) {
	cfg, err := db.LoadConfig()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if envcfg.GetEnvBool("DB_AUTO_MIGRATE", true) {
		if err := db.MigrateUp(conn, cfg.Dialect, db.WithUniquePublishDate(cfg.UniquePublishDate)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database schema ready",
			slog.String("driver", string(cfg.Dialect)),
			slog.Bool("unique_publish_date", cfg.UniquePublishDate))
	}

	breaker := circuitbreaker.NewDBCircuitBreaker(conn)
	return &Store{
		DB:      conn,
		Dialect: cfg.Dialect,
		Breaker: breaker,
		Facts:   db.NewFactRepository(cfg.Dialect, breaker),
	}, nil
}

// Generation checks the AI credentials, then opens the store and builds the
// pipeline over it. Missing credentials fail before the database is touched.
// The caller closes the returned store.
func Generation(ctx context.Context, logger *slog.Logger) (*Store, *generate.Driver, error) {
	aiCfg, err := config.LoadAIConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := OpenStore(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	driver, err := Pipeline(ctx, logger, aiCfg, store.Facts)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, driver, nil
}

// Pipeline builds the generation driver writing through facts. The provider
// is the one selected by aiCfg; the fallback list comes from
// FALLBACK_FACTS_PATH or the embedded default.
func Pipeline(ctx context.Context, logger *slog.Logger, aiCfg *config.AIConfig, facts generate.FactInserter) (*generate.Driver, error) {
	provider, err := llm.New(ctx, aiCfg)
	if err != nil {
		return nil, err
	}

	invCfg := generate.DefaultInvokerConfig(aiCfg.Models)
	invCfg.Temperature = aiCfg.Temperature
	invCfg.MaxOutputTokens = aiCfg.MaxOutputTokens
	invoker, err := generate.NewInvoker(provider, invCfg, generate.WithInvokerLogger(logger))
	if err != nil {
		return nil, err
	}

	fallbackFacts, err := config.LoadFallbackFacts()
	if err != nil {
		return nil, err
	}
	fallback, err := generate.NewFallbackSelector(fallbackFacts, nil)
	if err != nil {
		return nil, err
	}

	logger.Info("generation pipeline ready",
		slog.String("provider", provider.Name()),
		slog.Any("models", aiCfg.Models),
		slog.Int("fallback_facts", fallback.Len()))

	return generate.NewDriver(generate.DriverDeps{
		Generator: invoker,
		Parser:    generate.NewParser(nil),
		Fallback:  fallback,
		Writer:    generate.NewPersistenceWriter(facts),
		Logger:    logger,
	}, generate.DefaultDriverConfig())
}
