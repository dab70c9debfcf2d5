// Package main provides the feedctl CLI: one-off runs and catalog inspection against the same
// configuration as the API service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"sgxfeed/internal/app"
	"sgxfeed/internal/config"
	"sgxfeed/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedctl",
		Short: "Operate the SGX daily file ingestion",
		Long: `feedctl runs the ingestion pipeline for a single business date and inspects the
version catalog and object store. Configuration is read from the environment (and .env).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newVersionsCmd(),
		newObjectsCmd(),
		newMigrateCmd(),
		newDatesCmd(),
	)
	return rootCmd
}

// cliLogger logs to stderr so stdout carries only command output.
func cliLogger(cfg *config.AppConfig) *slog.Logger {
	return logging.New(os.Stderr, cfg.Location(), logging.ParseLevel(cfg.LogLevel))
}

func buildApp(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	return app.Build(ctx, cfg, cliLogger(cfg))
}
