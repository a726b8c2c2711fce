package db

import (
	"database/sql"
	"fmt"

	"historia-diaria/internal/domain/entity"
)

// MigrateOption adjusts MigrateUp.
type MigrateOption func(*migrateOptions)

type migrateOptions struct {
	uniquePublishDate bool
}

// WithUniquePublishDate adds a unique index on publish_date to every fact table.
func WithUniquePublishDate(enabled bool) MigrateOption {
	return func(o *migrateOptions) { o.uniquePublishDate = enabled }
}

const postgresFactTable = `
CREATE TABLE IF NOT EXISTS %s (
    id              BIGSERIAL PRIMARY KEY,
    historical_date DATE NOT NULL,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL,
    category        TEXT NOT NULL DEFAULT '',
    sources         TEXT[] NOT NULL DEFAULT '{}',
    publish_date    DATE NOT NULL DEFAULT CURRENT_DATE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ
)`

const sqliteFactTable = `
CREATE TABLE IF NOT EXISTS %s (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    historical_date TEXT NOT NULL,
    title           TEXT NOT NULL,
    description     TEXT NOT NULL,
    category        TEXT NOT NULL DEFAULT '',
    sources         TEXT NOT NULL DEFAULT '[]',
    publish_date    TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    updated_at      TEXT
)`

// MigrateUp creates the production and test fact tables with their indexes.
// It is idempotent.
func MigrateUp(db *sql.DB, dialect Dialect, opts ...MigrateOption) error {
	var o migrateOptions
	for _, opt := range opts {
		opt(&o)
	}

	ddl := postgresFactTable
	if dialect == DialectSQLite {
		ddl = sqliteFactTable
	}

	for _, mode := range entity.Modes() {
		table := mode.Table()
		if _, err := db.Exec(fmt.Sprintf(ddl, table)); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}

		indexes := []string{
			// today's fact and recent list lookups
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_publish_date ON %[1]s(publish_date DESC)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_historical_date ON %[1]s(historical_date)`, table),
		}
		if o.uniquePublishDate {
			indexes = append(indexes,
				fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS uq_%[1]s_publish_date ON %[1]s(publish_date)`, table))
		}
		for _, idx := range indexes {
			if _, err := db.Exec(idx); err != nil {
				return fmt.Errorf("create index on %s: %w", table, err)
			}
		}
	}

	return nil
}

// MigrateDown drops the fact tables. All stored facts are lost.
func MigrateDown(db *sql.DB) error {
	modes := entity.Modes()
	for i := len(modes) - 1; i >= 0; i-- {
		if _, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, modes[i].Table())); err != nil {
			return err
		}
	}
	return nil
}
