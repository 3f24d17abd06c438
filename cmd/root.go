package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var debugLogging bool

var rootCmd = &cobra.Command{
	Use:   "autoreply",
	Short: "Keyword-driven Gmail auto-reply batch tool",
	Long: `autoreply polls Gmail accounts for unread messages in a recent
window, classifies them against ordered keyword and rating rules, and
either sends a templated reply (at most once per conversation thread,
ever) or applies labels and read-state without replying.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
