package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mailops/autoreply/pkg/config"
	"github.com/mailops/autoreply/pkg/gmail"
	"github.com/mailops/autoreply/pkg/logger"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Run the OAuth flow for each account without processing mail",
	Long: `auth walks every configured account through the OAuth consent
flow so tokens get cached on disk. Run this once per account before the
first batch pass, or after revoking access.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		log := logger.NewLogger(debugLogging)

		settings, err := config.FromEnv()
		if err != nil {
			return err
		}
		if accountsFlag != "" {
			settings.Accounts = config.ParseAccounts(accountsFlag)
		}
		if err := settings.Validate(); err != nil {
			return err
		}

		connector := gmail.NewConnector(settings.CredentialsFile, settings.TokenDir, log)
		for _, account := range settings.Accounts {
			if _, err := connector.Connect(cmd.Context(), account); err != nil {
				log.Error(fmt.Sprintf("OAuth failed for %s: %v", account, err))
				continue
			}
			log.Info(fmt.Sprintf("OAuth complete for %s", account))
		}
		return nil
	},
}

func init() {
	authCmd.Flags().StringVar(&accountsFlag, "accounts", "", "Comma-separated account list (overrides ACCOUNTS)")

	rootCmd.AddCommand(authCmd)
}
