// Package cli provides the command-line interface for the back office.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/twocards/backoffice/internal/app"
	"github.com/twocards/backoffice/internal/config"
)

// skipApp marks commands that run without opening the database.
const skipApp = "skip-app"

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	envFile string

	cfg         *config.Config
	logger      *slog.Logger
	closeLogger func() error
	application *app.App
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "backoffice",
	Short: "Back office for the digital gift-card store",
	Long: `Back office for the digital gift-card store: catalog and voucher
management, storefront sync, integration credentials, audit trail and the
live support chat.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		logger, closeLogger = config.SetupLogger(cfg.Log)
		slog.SetDefault(logger)

		if cmd.Annotations[skipApp] == "true" {
			return nil
		}

		application, err = app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// shutdown runs after every command, including failed ones.
func shutdown() {
	if application != nil {
		if err := application.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
		}
		application = nil
	}
	if closeLogger != nil {
		_ = closeLogger()
		closeLogger = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(chatCmd)
}
