// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/artpar/apphost/core/capability"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "APPHOST_"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Assets   AssetsConfig   `yaml:"assets" envPrefix:"ASSETS_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
	Tracing  TracingConfig  `yaml:"tracing" envPrefix:"TRACING_"`
	Admin    AdminConfig    `yaml:"admin" envPrefix:"ADMIN_"`
	Policy   PolicyConfig   `yaml:"policy" envPrefix:"POLICY_"`
	Apps     []AppConfig    `yaml:"apps"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the stores.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn" env:"DSN"`
}

// AssetsConfig configures where app assets are served from.
type AssetsConfig struct {
	// BaseURL is the absolute root under which each app has a private
	// namespace ({base}/apps/{appId}/...).
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"FORMAT"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"` // Enable /metrics endpoint
	Path    string `yaml:"path" env:"PATH"`       // Custom path (default: /metrics)
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// AdminConfig configures the admin API.
type AdminConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// TokenHash is the bcrypt hash of the admin bearer token.
	TokenHash string `yaml:"token_hash" env:"TOKEN_HASH"`
}

// PolicyConfig holds dispatch policy switches.
type PolicyConfig struct {
	// ConcealUnauthorized reports permission_denied instead of
	// method_not_found on modules the app may not use.
	ConcealUnauthorized bool `yaml:"conceal_unauthorized" env:"CONCEAL_UNAUTHORIZED"`

	// PruneApps revokes apps that are in the store but not in the config.
	PruneApps bool `yaml:"prune_apps" env:"PRUNE_APPS"`
}

// AppConfig declares a platform app and the permissions granted to it.
type AppConfig struct {
	ID          string   `yaml:"id"`
	Permissions []string `yaml:"permissions"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes. Environment variables are
// expanded inside the document and APPHOST_* variables override it.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// No apps are declared; grants are managed through the admin API or CLI.
//
// Environment variables:
//
//	APPHOST_ASSETS_BASE_URL           - Asset root URL (required)
//	APPHOST_DATABASE_DRIVER           - sqlite or memory (default: sqlite)
//	APPHOST_DATABASE_DSN              - Database path (default: apphost.db)
//	APPHOST_SERVER_HOST               - Server host (default: 127.0.0.1)
//	APPHOST_SERVER_PORT               - Server port (default: 8080)
//	APPHOST_LOG_LEVEL                 - Log level: debug, info, warn, error (default: info)
//	APPHOST_LOG_FORMAT                - Log format: json or console (default: json)
//	APPHOST_METRICS_ENABLED           - Enable /metrics endpoint
//	APPHOST_TRACING_ENDPOINT          - OTLP/HTTP endpoint
//	APPHOST_ADMIN_TOKEN_HASH          - bcrypt hash of the admin token
//	APPHOST_POLICY_CONCEAL_UNAUTHORIZED - Conceal methods of unauthorized modules
func LoadFromEnv() (*Config, error) {
	var cfg Config

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set %sASSETS_BASE_URL", EnvPrefix)
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv(EnvPrefix+"ASSETS_BASE_URL") != ""
}

// applyEnvOverrides applies APPHOST_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "apphost.db"
	}

	cfg.Assets.BaseURL = strings.TrimRight(cfg.Assets.BaseURL, "/")

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
}

// Validate checks a configuration with defaults applied.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Assets.BaseURL == "" {
		errs = append(errs, errors.New("assets.base_url is required"))
	} else if u, err := url.Parse(cfg.Assets.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("assets.base_url must be an absolute URL, got %q", cfg.Assets.BaseURL))
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", cfg.Server.Port))
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for sqlite"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be 'sqlite' or 'memory', got %q", cfg.Database.Driver))
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format))
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", cfg.Metrics.Path))
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", cfg.Tracing.SampleRatio))
	}

	if cfg.Admin.Enabled && !strings.HasPrefix(cfg.Admin.TokenHash, "$2") {
		errs = append(errs, errors.New("admin.token_hash must be a bcrypt hash when the admin API is enabled"))
	}

	seen := make(map[string]bool, len(cfg.Apps))
	for i, a := range cfg.Apps {
		if strings.TrimSpace(a.ID) == "" {
			errs = append(errs, fmt.Errorf("apps[%d].id is required", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("apps[%d]: duplicate app id %q", i, a.ID))
		}
		seen[a.ID] = true

		if _, err := capability.ParseAll(a.Permissions); err != nil {
			errs = append(errs, fmt.Errorf("apps[%d] (%s): %w", i, a.ID, err))
		}
	}

	return errors.Join(errs...)
}
