// Package db opens the fact store and manages its schema. PostgreSQL (pgx) is
// the production backend; SQLite (modernc, pure Go) serves local development.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"historia-diaria/internal/config"
	"historia-diaria/internal/resilience/retry"
	envcfg "historia-diaria/pkg/config"
)

// Dialect names a supported database backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "pgx"
}

// ParseDialect accepts postgres, postgresql, pgx and sqlite, case-insensitively.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", s)
	}
}

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns the default connection pool configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Config describes how to reach the fact store.
type Config struct {
	Dialect Dialect
	DSN     string
	Pool    ConnectionConfig

	// UniquePublishDate adds a unique index on publish_date during migration,
	// so a second insert for the same day is rejected by the store.
	UniquePublishDate bool
}

// LoadConfig reads DB_DRIVER, DATABASE_URL, DB_UNIQUE_PUBLISH_DATE and the
// pool settings. DATABASE_URL is required.
func LoadConfig() (Config, error) {
	dialect, err := ParseDialect(envcfg.GetEnvString("DB_DRIVER", string(DialectPostgres)))
	if err != nil {
		return Config{}, err
	}
	dsn := envcfg.GetEnvString("DATABASE_URL", "")
	if dsn == "" {
		return Config{}, fmt.Errorf("%w: DATABASE_URL not set", config.ErrConfigurationMissing)
	}
	return Config{
		Dialect:           dialect,
		DSN:               dsn,
		Pool:              getConnectionConfigFromEnv(),
		UniquePublishDate: envcfg.GetEnvBool("DB_UNIQUE_PUBLISH_DATE", false),
	}, nil
}

// Open creates the connection pool and waits until the database answers a ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect, err)
	}

	pool := cfg.Pool
	if cfg.Dialect == DialectSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY.
		pool.MaxOpenConns, pool.MaxIdleConns = 1, 1
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.String("driver", string(cfg.Dialect)),
		slog.Int("max_open_conns", pool.MaxOpenConns),
		slog.Int("max_idle_conns", pool.MaxIdleConns),
		slog.Duration("conn_max_lifetime", pool.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", pool.ConnMaxIdleTime))

	err = retry.WithBackoff(ctx, retry.DBConfig(), func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connection established successfully")
	return db, nil
}

// Ping reports whether db answers within timeout.
func Ping(ctx context.Context, db interface {
	PingContext(context.Context) error
}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("database ping timed out after %s", timeout)
		}
		return err
	}
	return nil
}

// getConnectionConfigFromEnv reads connection pool configuration from environment variables.
// Non-positive values fall back to the defaults.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()

	if val := envcfg.GetEnvInt("DB_MAX_OPEN_CONNS", 0); val > 0 {
		cfg.MaxOpenConns = val
	}
	if val := envcfg.GetEnvInt("DB_MAX_IDLE_CONNS", 0); val > 0 {
		cfg.MaxIdleConns = val
	}
	if val := envcfg.GetEnvDuration("DB_CONN_MAX_LIFETIME", 0); val > 0 {
		cfg.ConnMaxLifetime = val
	}
	if val := envcfg.GetEnvDuration("DB_CONN_MAX_IDLE_TIME", 0); val > 0 {
		cfg.ConnMaxIdleTime = val
	}

	return cfg
}
