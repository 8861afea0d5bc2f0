// Package cli implements the esbilla command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"esbilla/internal/platform/config"
	"esbilla/internal/platform/logger"
)

var (
	envFile string

	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "esbilla",
	Short: "GDPR consent runtime",
	Long:  "Boots the consent runtime against a page, and serves a development backend with fixtures for it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(envFile)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
		log = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file read before ESBILLA_* variables")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
