package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	app "employee-timesheet/internal"
	"employee-timesheet/internal/access"
	"employee-timesheet/internal/config"
	"employee-timesheet/internal/email"
	"employee-timesheet/internal/nonce"
	"employee-timesheet/internal/routes"
	"employee-timesheet/internal/storage"
	"employee-timesheet/internal/timesheet"
)

const shutdownTimeout = 10 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the timesheet web server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := ServerMain(ctx, provider); err != nil {
			slog.Error("Server stopped", "error", err)
			fail("Server stopped: %v", err)
		}
	},
}

// Initialize logger
func initLogger(cfg *config.Config) *slog.Logger {
	// Determine level from config and set it on the handler options.
	var level slog.Level
	invalid := false
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		invalid = true
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	if invalid {
		slog.Warn("Invalid log level in config, defaulting to INFO", "log_level", cfg.LogLevel)
	}
	slog.Debug("Logger initialized", "level", level.String())
	return logger
}

// ensureSecret generates a throwaway signing secret for development setups.
func ensureSecret(cfg *config.Config) error {
	if cfg.Secret != "" {
		return nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	cfg.Secret = hex.EncodeToString(b)
	slog.Warn("No secret configured, using a random one. Sessions end when the server restarts.")
	return nil
}

// LoadAccessRBAC loads the policy and grants the admin role to the configured usernames.
func LoadAccessRBAC(cfg *config.Config) (*access.RBAC, error) {
	rbac := access.GetRBAC()
	if err := rbac.LoadPolicy(cfg.RBAC.PolicyFile); err != nil {
		return nil, fmt.Errorf("failed to load RBAC policy %q: %w", cfg.RBAC.PolicyFile, err)
	}
	for _, username := range cfg.RBAC.Admins {
		rbac.AssignRole(strings.TrimSpace(username), access.RoleAdmin)
	}
	return rbac, nil
}

// newMailer returns nil when nobody is to be notified.
func newMailer(cfg *config.Config) email.Sender {
	if cfg.Email.Host == "" || len(cfg.Email.Notify) == 0 {
		slog.Info("Email notifications disabled")
		return nil
	}
	client, err := email.NewClient(cfg.Email)
	if err != nil {
		slog.Warn("Failed to create email client, notifications disabled", "error", err)
		return nil
	}
	return client
}

// NewServices wires the application services on top of storage.
func NewServices(cfg *config.Config, storageProvider storage.Provider, rbac *access.RBAC) (*routes.Services, error) {
	intake, err := access.NewRequestIntake(storageProvider, newMailer(cfg), cfg.Email.Notify)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(cfg.BaseURL, "http://") || strings.HasPrefix(cfg.BaseURL, "https://") {
		intake.ReviewURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/admin-dashboard/requests"
	}

	timesheets := timesheet.NewService(storageProvider, timesheet.Settings{
		DefaultTargetHours: cfg.Timesheet.TargetHours(),
		StrictHours:        cfg.Timesheet.StrictHours,
		ResetStaleWeek:     cfg.Timesheet.ResetStaleWeek,
	})

	return &routes.Services{
		Config:     cfg,
		Storage:    storageProvider,
		RBAC:       rbac,
		Timesheets: timesheets,
		Intake:     intake,
		Now:        time.Now,
	}, nil
}

func ServerMain(ctx context.Context, storageProvider storage.Provider) error {
	if config.Cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	cfg := config.Cfg

	// Use the provider passed from cobra command (already initialized)
	if storageProvider == nil {
		return fmt.Errorf("storage provider is nil")
	}

	initLogger(cfg)

	if err := ensureSecret(cfg); err != nil {
		return err
	}

	if err := nonce.InitNonceStore(cfg, storageProvider); err != nil {
		return err
	}
	defer nonce.Store.Close()

	rbac, err := LoadAccessRBAC(cfg)
	if err != nil {
		return err
	}

	services, err := NewServices(cfg, storageProvider, rbac)
	if err != nil {
		return err
	}

	engine, err := app.HTTPServer(services)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	return app.Serve(srv, stop, shutdownTimeout)
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
