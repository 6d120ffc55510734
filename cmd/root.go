package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"employee-timesheet/internal/config"
	"employee-timesheet/internal/storage"
)

// skipMigrateAnnotation marks commands that manage the schema themselves.
const skipMigrateAnnotation = "skip-migrate"

var (
	cfgFile  string
	cfg      *config.Config
	provider storage.Provider
)

var rootCmd = &cobra.Command{
	Use:   "employee-timesheet",
	Short: "Employee timesheet tracker",
	Long:  `Record weekly productive hours, review them as an administrator and export them as CSV or Excel.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Failed to read .env: %v\n", err)
		}

		initCLILogger()

		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}

		ctx := context.Background()
		if cmd.Annotations[skipMigrateAnnotation] == "true" {
			provider, err = storage.Open(&cfg.Storage)
		} else {
			provider, err = storage.NewProvider(ctx, &cfg.Storage)
		}
		if err != nil {
			slog.Error("Failed to initialize storage provider", "error", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Cleanup
		if provider != nil {
			provider.Close()
		}
	},
}

// initCLILogger keeps command output readable: only errors, as text on stderr.
func initCLILogger() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	slog.SetDefault(logger)
}

// fail prints a message and exits with status 1.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	if provider != nil {
		provider.Close()
	}
	os.Exit(1)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./instance/config.yaml)")
}
