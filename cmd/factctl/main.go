// Package main is the operator CLI for the fact store: schema migrations,
// sample data, inspection and manual pipeline runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"historia-diaria/internal/bootstrap"
	"historia-diaria/internal/domain/entity"
	envcfg "historia-diaria/pkg/config"
)

var (
	modeFlag     string
	timezoneFlag string
	timeout      time.Duration

	logger *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factctl",
	Short: "Operate the Historia Diaria fact store",
	Long: `factctl manages the daily historical fact store.

Available subcommands:
  migrate  - Create or drop the fact tables
  seed     - Insert the sample facts
  check    - List stored facts and today's fact
  today    - Show today's fact
  archive  - Print the grouped archive
  generate - Run the generation pipeline once
  token    - Issue an admin token for the web endpoint`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = bootstrap.Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "",
		"Target table: prod or test (default RUN_MODE or prod)")
	rootCmd.PersistentFlags().StringVar(&timezoneFlag, "tz", "",
		"Time zone deciding which day is today (default SITE_TIMEZONE or Europe/Madrid)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 20*time.Minute, "Operation timeout")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(bootstrap.ExitCode(err))
	}
}

// runMode resolves --mode, then RUN_MODE, then production.
func runMode() (entity.RunMode, error) {
	raw := modeFlag
	if raw == "" {
		raw = envcfg.GetEnvString("RUN_MODE", entity.RunModeProduction.String())
	}
	return entity.ParseRunMode(raw)
}

// location resolves --tz, then SITE_TIMEZONE, then Europe/Madrid.
func location() (*time.Location, error) {
	name := timezoneFlag
	if name == "" {
		name = envcfg.GetEnvString("SITE_TIMEZONE", "Europe/Madrid")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}

// withStore opens the fact store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *bootstrap.Store) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close database", slog.Any("error", cerr))
		}
	}()

	err = fn(ctx, store)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s: %w", cmd.Name(), timeout, err)
	}
	return err
}
