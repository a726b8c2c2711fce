package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"historia-diaria/internal/bootstrap"
	"historia-diaria/internal/config"
	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/infra/db"
	factUC "historia-diaria/internal/usecase/fact"
)

var (
	migrateDown    bool
	typewriterFlag bool
	archiveLimit   int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the fact tables and indexes",
	Long: `Create the production and test fact tables with their indexes.
The command is idempotent. With --down both tables are dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		cfg, err := db.LoadConfig()
		if err != nil {
			return err
		}
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		if migrateDown {
			if err := db.MigrateDown(conn); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("fact tables dropped"))
			return nil
		}
		if err := db.MigrateUp(conn, cfg.Dialect, db.WithUniquePublishDate(cfg.UniquePublishDate)); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("schema ready ("+string(cfg.Dialect)+")"))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample facts",
	Long: `Insert the sample facts (the fallback list) with publish dates counting
back one day at a time from today. Use --mode test for the test table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := runMode()
		if err != nil {
			return err
		}
		loc, err := location()
		if err != nil {
			return err
		}
		samples, err := config.LoadFallbackFacts()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, store *bootstrap.Store) error {
			for _, f := range seedFacts(samples, time.Now().In(loc)) {
				id, err := store.Facts.Insert(ctx, mode, f)
				if err != nil {
					return fmt.Errorf("insert %q: %w", f.Title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
					okStyle.Render(fmt.Sprintf("#%d", id)), dimStyle.Render(f.PublishDate), f.Title)
			}
			return nil
		})
	},
}

// seedFacts copies samples and assigns publish dates today, yesterday and so on.
func seedFacts(samples []entity.HistoricalFact, today time.Time) []*entity.HistoricalFact {
	out := make([]*entity.HistoricalFact, len(samples))
	for i := range samples {
		f := samples[i].Clone()
		f.ID = 0
		f.PublishDate = entity.FormatDate(today.AddDate(0, 0, -i))
		out[i] = &f
	}
	return out
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "List stored facts and today's fact",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := runMode()
		if err != nil {
			return err
		}
		loc, err := location()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, store *bootstrap.Store) error {
			facts, err := store.Facts.ListAll(ctx, mode)
			if err != nil {
				return err
			}
			today, err := store.Facts.GetByPublishDate(ctx, mode, entity.FormatDate(time.Now().In(loc)))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCheck(mode, facts, today))
			return nil
		})
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's fact",
	Long: `Show the fact published today. With --typewriter the title is typed
one character every 50ms, like the web page does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := runMode()
		if err != nil {
			return err
		}
		loc, err := location()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, store *bootstrap.Store) error {
			svc := &factUC.Service{Repo: store.Facts}
			fact, err := svc.Today(ctx, mode, time.Now().In(loc))
			if errors.Is(err, factUC.ErrFactNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("No hay dato histórico para hoy."))
				return nil
			}
			if err != nil {
				return err
			}
			if typewriterFlag {
				return runTypewriter(ctx, cmd.OutOrStdout(), fact)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderFact(fact))
			return nil
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Print the archive grouped by year and month",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := runMode()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, store *bootstrap.Store) error {
			svc := &factUC.Service{Repo: store.Facts}
			archive, err := svc.Archive(ctx, mode, archiveLimit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderArchive(archive))
			return nil
		})
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Drop the fact tables instead")
	todayCmd.Flags().BoolVar(&typewriterFlag, "typewriter", false, "Type the title like the web page")
	archiveCmd.Flags().IntVarP(&archiveLimit, "limit", "n", factUC.MaxLimit, "Number of recent facts to group")
}
