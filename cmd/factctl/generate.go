package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"historia-diaria/internal/bootstrap"
	"historia-diaria/internal/config"
	"historia-diaria/internal/domain/entity"
	hauth "historia-diaria/internal/handler/http/auth"
)

var (
	dateFlag     string
	subjectFlag  string
	tokenTTLFlag time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the generation pipeline once",
	Long: `Generate a fact with the configured AI provider and store it, falling back
to a preverified fact when every model fails. Exit status is 1 when the run
fails and 2 when the provider credentials are missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := runMode()
		if err != nil {
			return err
		}
		loc, err := location()
		if err != nil {
			return err
		}
		date := time.Now().In(loc)
		if dateFlag != "" {
			if date, err = entity.ParseDate(dateFlag); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}

		aiCfg, err := config.LoadAIConfig()
		if err != nil {
			return err
		}

		return withStore(cmd, func(ctx context.Context, store *bootstrap.Store) error {
			driver, err := bootstrap.Pipeline(ctx, logger, aiCfg, store.Facts)
			if err != nil {
				return err
			}
			res, err := driver.Run(ctx, mode, date)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderFact(res.Fact))
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(fmt.Sprintf(
				"run %s: source=%s model=%s attempts=%d duration=%s",
				res.RunID, res.Source, res.Model, res.Attempts, res.Duration.Round(time.Millisecond))))
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin token for POST /api/admin/generate",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := hauth.LoadConfig()
		if err != nil {
			return err
		}
		ttl := tokenTTLFlag
		if ttl <= 0 {
			ttl = cfg.TokenTTL
		}
		token, err := hauth.IssueToken(cfg.Secret, subjectFlag, hauth.RoleAdmin, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Publish date YYYY-MM-DD (default today)")
	tokenCmd.Flags().StringVar(&subjectFlag, "subject", "operator", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTLFlag, "ttl", 0, "Token lifetime (default JWT_TTL)")
}
