package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"employee-timesheet/internal/email"
)

const DEFAULT_SUPPORT_URL = "https://github.com/employee-timesheet/employee-timesheet"
const QR_IMAGE_SIZE = 256

type RBACConfig struct {
	PolicyFile string   `mapstructure:"policy_file"` // Path to the RBAC policy file. Empty uses the built-in policy.
	Admins     []string `mapstructure:"admins"`      // Usernames that always get the admin role
}

// TimesheetConfig controls the weekly timesheet behaviour.
type TimesheetConfig struct {
	// Target hours given to entries created through the weekly grid
	DefaultTargetHours string `mapstructure:"default_target_hours"`
	// Maximum span of an explicit admin date filter, in days. 0 falls back to timesheet.MaxViewDays.
	MaxRangeDays int `mapstructure:"max_range_days"`
	// Maximum span of an explicit employee date filter, in days. 0 falls back to timesheet.MaxViewDays.
	EmployeeMaxRangeDays int `mapstructure:"employee_max_range_days"`
	// Reject a whole weekly submission when one value does not parse
	StrictHours bool `mapstructure:"strict_hours"`
	// Show the current week when the latest entry is older than the current week
	ResetStaleWeek bool `mapstructure:"reset_stale_week"`
	// IANA zone used to decide what "today" is
	Timezone string `mapstructure:"timezone"`

	location *time.Location
}

// TargetHours returns the parsed default target hours.
func (t TimesheetConfig) TargetHours() decimal.Decimal {
	d, err := decimal.NewFromString(t.DefaultTargetHours)
	if err != nil {
		slog.Warn("Invalid default target hours, using 8", "value", t.DefaultTargetHours)
		return decimal.NewFromInt(8)
	}
	return d
}

// Location returns the configured time zone, falling back to UTC. LoadConfig
// resolves it once; hand-built configs look it up on each call.
func (t TimesheetConfig) Location() *time.Location {
	if t.location != nil {
		return t.location
	}
	return loadLocation(t.Timezone)
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

type ExportConfig struct {
	// CSV encoding, "utf-8" or "utf-16"
	Encoding string `mapstructure:"encoding"`
}

type Config struct {
	// Secret key for signing tokens. Must be set in production.
	Secret string `mapstructure:"secret"`
	// Nonce janitor interval is TokenExpirySkew x2 seconds
	TokenExpirySkew uint   `mapstructure:"token_expiry_skew"`
	NonceStore      string `mapstructure:"nonce_store"`
	LogLevel        string `mapstructure:"log_level"`

	// Address the HTTP server listens on
	Listen string `mapstructure:"listen"`

	// Comma separated list of allowed CIDR networks. Empty means allow all.
	AllowedNetworks string `mapstructure:"allowed_networks"`

	RBAC RBACConfig `mapstructure:"rbac"`

	// User authentication TTL in days.
	UserAuthTTL uint `mapstructure:"user_auth_ttl"`

	BaseURL    string `mapstructure:"base_url"` // Base URL for the application. May be relative, e.g. /timesheet/, or absolute.
	SupportURL string `mapstructure:"support_url"`

	Storage Storage `mapstructure:"storage"`

	Timesheet TimesheetConfig `mapstructure:"timesheet"`
	Export    ExportConfig    `mapstructure:"export"`

	Email email.SMTPConfig `mapstructure:"email"`
}

var Cfg *Config

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from the config file and environment variables,
// stores it in Cfg and returns it.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, path := range configFile {
		if path != "" {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	// Load configuration from environment variables
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		slog.Debug("No config file found, using defaults and environment")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if cfg.TokenExpirySkew == 0 {
		cfg.TokenExpirySkew = 1
	}

	if cfg.Timesheet.MaxRangeDays < 0 || cfg.Timesheet.EmployeeMaxRangeDays < 0 {
		return nil, fmt.Errorf("timesheet range limits must not be negative")
	}
	cfg.Timesheet.location = loadLocation(cfg.Timesheet.Timezone)

	// Convert relative sqlite path to absolute instance folder
	if cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path == ":memory:" || cfg.Storage.SQLite.Path == "" {
			// In-memory database, do nothing
		} else if !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			return nil, fmt.Errorf("SECRET configuration variable is required in production")
		}
		slog.Warn("Secret is not set. Do not use in production.")
	}

	Cfg = &cfg
	return &cfg, nil
}
