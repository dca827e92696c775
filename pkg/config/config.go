package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unklstewy/adsb-terminal/pkg/adsb"
)

// Environment profiles.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers for the preferences blob.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Environment variable names recognised by Load.
const (
	EnvVarEnvironment   = "ADSB_TERMINAL_ENV"
	EnvVarFeedURL       = "ADSB_TERMINAL_FEED_URL"
	EnvVarDBPassword    = "ADSB_TERMINAL_DB_PASSWORD"
	EnvVarRedisPassword = "ADSB_TERMINAL_REDIS_PASSWORD"
	EnvVarLogLevel      = "ADSB_TERMINAL_LOG_LEVEL"
)

// Config represents the complete application configuration.
type Config struct {
	// Environment selects the profile defaults ("development" or "production")
	Environment string `json:"environment"`

	Feed      FeedConfig      `json:"feed"`
	Reference ReferenceConfig `json:"reference"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	Server    ServerConfig    `json:"server"`
}

// FeedConfig describes the readsb receiver.
type FeedConfig struct {
	// BaseURL is the receiver data directory; aircraft.json is fetched below it
	BaseURL string `json:"base_url"`

	// PollIntervalSeconds is how often to refresh aircraft data (default: 5)
	PollIntervalSeconds float64 `json:"poll_interval_seconds"`

	// TimeoutSeconds bounds a single request (default: 10)
	TimeoutSeconds float64 `json:"timeout_seconds"`

	// RequestsPerSecond caps outgoing requests; 0 = unlimited
	RequestsPerSecond float64 `json:"requests_per_second"`

	// Retry controls backoff after a failed poll
	Retry RetryConfig `json:"retry"`
}

// RetryConfig mirrors adsb.RetryConfig in file-friendly units.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first (default: 2)
	MaxRetries int `json:"max_retries"`

	// InitialDelayMs is the delay before the first retry (default: 1000)
	InitialDelayMs int `json:"initial_delay_ms"`

	// MaxDelayMs caps any single delay (default: 30000)
	MaxDelayMs int `json:"max_delay_ms"`

	// Multiplier is the exponential factor (default: 2)
	Multiplier float64 `json:"multiplier"`
}

// ReferenceConfig locates the reference tables. Values are URLs or paths.
type ReferenceConfig struct {
	AircraftModels string `json:"aircraft_models"`
	Airlines       string `json:"airlines"`
}

// StorageConfig selects where preferences are persisted.
type StorageConfig struct {
	// Driver is "file", "postgres" or "redis" (default: "file")
	Driver string `json:"driver"`

	// Path is the preferences file for the file driver; empty = user config dir
	Path string `json:"path"`

	// Key is the storage key; empty = the built-in preferences key
	Key string `json:"key"`

	// Database is used by the postgres driver
	Database DatabaseConfig `json:"database"`

	// Redis is used by the redis driver
	Redis RedisConfig `json:"redis"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// LoggingConfig controls the log sink. The dashboard owns the terminal, so
// logs always go to a file.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level"`

	// Dir holds adsb-terminal.log; empty = user cache dir
	Dir string `json:"dir"`
}

// ServerConfig contains the optional status HTTP server configuration.
type ServerConfig struct {
	// Enabled starts the server alongside the dashboard
	Enabled bool `json:"enabled"`

	// Host is the server bind address (default: "127.0.0.1")
	Host string `json:"host"`

	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Load reads configuration from a JSON file over the profile defaults and
// applies environment overrides. A missing file yields the defaults.
// The profile comes from ADSB_TERMINAL_ENV, else the file's "environment".
func Load(path string) (*Config, error) {
	env := os.Getenv(EnvVarEnvironment)

	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data = b
	}

	if env == "" && len(data) > 0 {
		var probe struct {
			Environment string `json:"environment"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		env = probe.Environment
	}

	cfg := DefaultConfigFor(env)
	if len(data) > 0 {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.Environment = normalizeEnv(env)
	}

	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the development profile.
func DefaultConfig() *Config {
	return DefaultConfigFor(EnvDevelopment)
}

// DefaultConfigFor returns defaults for a profile. Unknown names fall back
// to development.
func DefaultConfigFor(env string) *Config {
	cfg := &Config{
		Environment: EnvDevelopment,
		Feed: FeedConfig{
			BaseURL:             "http://192.168.3.200/run/readsb",
			PollIntervalSeconds: 5,
			TimeoutSeconds:      10,
			RequestsPerSecond:   0,
			Retry: RetryConfig{
				MaxRetries:     2,
				InitialDelayMs: 1000,
				MaxDelayMs:     30000,
				Multiplier:     2,
			},
		},
		Reference: ReferenceConfig{
			AircraftModels: "data/aircraft-models.csv",
			Airlines:       "data/airlines.csv",
		},
		Storage: StorageConfig{
			Driver: StorageFile,
			Database: DatabaseConfig{
				Host:         "localhost",
				Port:         5432,
				Database:     "adsb_terminal",
				Username:     "adsb",
				SSLMode:      "disable",
				MaxOpenConns: 4,
				MaxIdleConns: 2,
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Logging: LoggingConfig{
			Level: "debug",
		},
		Server: ServerConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    "8080",
		},
	}

	if normalizeEnv(env) == EnvProduction {
		cfg.Environment = EnvProduction
		cfg.Feed.BaseURL = "http://localhost/run/readsb"
		cfg.Reference.AircraftModels = "/usr/share/adsb-terminal/aircraft-models.csv"
		cfg.Reference.Airlines = "/usr/share/adsb-terminal/airlines.csv"
		cfg.Logging.Level = "info"
	}

	return cfg
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvProduction, "prod":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.Feed.BaseURL == "" {
		errs = append(errs, errors.New("feed.base_url is required"))
	}
	if c.Feed.PollIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("feed.poll_interval_seconds must be positive, got %v", c.Feed.PollIntervalSeconds))
	}
	if c.Feed.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("feed.timeout_seconds must not be negative, got %v", c.Feed.TimeoutSeconds))
	}
	if c.Feed.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("feed.retry.max_retries must not be negative, got %d", c.Feed.Retry.MaxRetries))
	}

	switch c.Storage.Driver {
	case StorageFile, StoragePostgres, StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be file, postgres or redis, got %q", c.Storage.Driver))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not recognised", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// PollInterval returns the feed refresh period.
func (f FeedConfig) PollInterval() time.Duration {
	return time.Duration(f.PollIntervalSeconds * float64(time.Second))
}

// Timeout returns the per-request timeout.
func (f FeedConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds * float64(time.Second))
}

// RetryPolicy converts the file settings to an adsb.RetryConfig.
func (f FeedConfig) RetryPolicy() adsb.RetryConfig {
	rc := adsb.DefaultRetryConfig()
	rc.MaxRetries = f.Retry.MaxRetries
	if f.Retry.InitialDelayMs > 0 {
		rc.InitialDelay = time.Duration(f.Retry.InitialDelayMs) * time.Millisecond
	}
	if f.Retry.MaxDelayMs > 0 {
		rc.MaxDelay = time.Duration(f.Retry.MaxDelayMs) * time.Millisecond
	}
	if f.Retry.Multiplier > 0 {
		rc.Multiplier = f.Retry.Multiplier
	}
	return rc
}

// PollerConfig builds the adsb poller settings.
func (f FeedConfig) PollerConfig() adsb.PollerConfig {
	return adsb.PollerConfig{
		Interval: f.PollInterval(),
		Retry:    f.RetryPolicy(),
	}
}

// ClientOptions builds the readsb client settings. The caller sets Logger.
func (f FeedConfig) ClientOptions() adsb.ClientOptions {
	return adsb.ClientOptions{
		Timeout:           f.Timeout(),
		RequestsPerSecond: f.RequestsPerSecond,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if feedURL := os.Getenv(EnvVarFeedURL); feedURL != "" {
		c.Feed.BaseURL = feedURL
	}
	if dbPassword := os.Getenv(EnvVarDBPassword); dbPassword != "" {
		c.Storage.Database.Password = dbPassword
	}
	if redisPassword := os.Getenv(EnvVarRedisPassword); redisPassword != "" {
		c.Storage.Redis.Password = redisPassword
	}
	if level := os.Getenv(EnvVarLogLevel); level != "" {
		c.Logging.Level = level
	}
}
