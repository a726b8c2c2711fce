// Package worker holds the building blocks of the daily scheduler: its
// configuration, the daily generation job, metrics and a health server.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/pkg/config"
)

// Config controls the daily scheduler.
type Config struct {
	// CronSchedule is a five-field cron expression evaluated in Timezone.
	CronSchedule string
	// Timezone is the IANA zone of the schedule and of "today".
	Timezone string
	// GenerateTimeout bounds one pipeline run, outer retries and fallback included.
	GenerateTimeout time.Duration
	// HealthPort serves /health, /health/ready and /metrics.
	HealthPort int
	// RunMode selects the table written by the worker.
	RunMode entity.RunMode
	// RunOnStart runs the job once right after startup.
	RunOnStart bool
}

// Limits of GenerateTimeout.
const (
	MinGenerateTimeout = time.Minute
	MaxGenerateTimeout = 2 * time.Hour
)

// DefaultConfig runs at 00:05 Madrid time with a 15 minute budget.
func DefaultConfig() Config {
	return Config{
		CronSchedule:    "5 0 * * *",
		Timezone:        "Europe/Madrid",
		GenerateTimeout: 15 * time.Minute,
		HealthPort:      9091,
		RunMode:         entity.RunModeProduction,
	}
}

// Location returns the schedule location, UTC if Timezone does not load.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.GenerateTimeout, MinGenerateTimeout, MaxGenerateTimeout); err != nil {
		errs = append(errs, fmt.Errorf("generate timeout: %w", err))
	}
	if err := config.ValidatePort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	return errors.Join(errs...)
}

// LoadConfig reads CRON_SCHEDULE, WORKER_TIMEZONE, GENERATE_TIMEOUT,
// WORKER_HEALTH_PORT, RUN_MODE and WORKER_RUN_ON_START. Invalid values fall
// back to the defaults; the fallbacks are logged and counted in metrics.
func LoadConfig(logger *slog.Logger, metrics *config.Metrics) Config {
	def := DefaultConfig()
	rep := config.NewReporter(logger, metrics)

	cfg := Config{
		CronSchedule: config.Take(rep, "cron_schedule",
			config.LoadString("CRON_SCHEDULE", def.CronSchedule, config.ValidateCronSchedule)),
		Timezone: config.Take(rep, "timezone",
			config.LoadString("WORKER_TIMEZONE", def.Timezone, config.ValidateTimezone)),
		GenerateTimeout: config.Take(rep, "generate_timeout",
			config.LoadDuration("GENERATE_TIMEOUT", def.GenerateTimeout, func(d time.Duration) error {
				return config.ValidateDuration(d, MinGenerateTimeout, MaxGenerateTimeout)
			})),
		HealthPort: config.Take(rep, "health_port",
			config.LoadInt("WORKER_HEALTH_PORT", def.HealthPort, config.ValidatePort)),
		RunMode: config.Take(rep, "run_mode",
			config.Load("RUN_MODE", def.RunMode, entity.ParseRunMode, nil)),
		RunOnStart: config.Take(rep, "run_on_start",
			config.LoadBool("WORKER_RUN_ON_START", false)),
	}
	rep.Done()
	return cfg
}
