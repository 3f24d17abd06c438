package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mailops/autoreply/pkg/autoreply"
	"github.com/mailops/autoreply/pkg/config"
	"github.com/mailops/autoreply/pkg/gmail"
	"github.com/mailops/autoreply/pkg/logger"
	"github.com/mailops/autoreply/pkg/rules"
	"github.com/mailops/autoreply/pkg/state"
	"github.com/mailops/autoreply/pkg/template"
)

var (
	dryRun       bool
	dateOverride string
	accountsFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one auto-reply batch pass over all configured accounts",
	RunE:  runBatch,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report intended actions without sending or mutating anything")
	runCmd.Flags().StringVar(&dateOverride, "date", "", "Override the reference date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&accountsFlag, "accounts", "", "Comma-separated account list (overrides ACCOUNTS)")

	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	// A missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	log := logger.NewLogger(debugLogging)

	settings, err := config.FromEnv()
	if err != nil {
		return err
	}
	if dryRun {
		settings.DryRun = true
	}
	if dateOverride != "" {
		settings.DateOverride = dateOverride
	}
	if accountsFlag != "" {
		settings.Accounts = config.ParseAccounts(accountsFlag)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if settings.DryRun {
		log.Info("Dry-run mode: no replies will be sent and no labels applied")
	}

	connector := gmail.NewConnector(settings.CredentialsFile, settings.TokenDir, log)
	runner := autoreply.NewRunner(
		connector,
		rules.NewFileStore(settings.RulesDir),
		state.NewFileStore(settings.StateDir),
		template.NewFileRenderer(settings.TemplatesDir),
		settings,
		log,
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
	defer cancel()

	reports := runner.RunAll(ctx)

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	if failed == len(reports) && failed > 0 {
		return fmt.Errorf("all %d accounts failed", failed)
	}
	return nil
}
