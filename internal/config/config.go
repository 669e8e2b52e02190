package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all critiqal client configuration.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Feed          FeedConfig          `yaml:"feed"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// APIConfig configures the HTTP transport.
type APIConfig struct {
	BaseURL string      `yaml:"base_url"`
	Timeout string      `yaml:"timeout"` // "0" = no client timeout; the caller's context governs
	Retry   RetryConfig `yaml:"retry"`
}

// RetryConfig configures retries of requests that never got a response.
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	Delay      string `yaml:"delay"`
}

// AuthMode selects how credentials travel to the server.
type AuthMode string

const (
	AuthCookie AuthMode = "cookie" // session cookies plus refresh cookie
	AuthBearer AuthMode = "bearer" // Authorization header plus stored refresh token
)

// AuthConfig configures the credential strategy. Exactly one per deployment.
type AuthConfig struct {
	Mode AuthMode `yaml:"mode"`
}

// StorageConfig configures the durable key-value store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite, file, memory
	Path   string `yaml:"path"`
}

// FeedConfig configures the post feed.
type FeedConfig struct {
	Limit int `yaml:"limit"`
}

// NotificationsConfig configures transient notifications.
type NotificationsConfig struct {
	DefaultDuration string `yaml:"default_duration"`
}

// DefaultDir returns the directory holding config and state (~/.critiqal).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".critiqal"
	}
	return filepath.Join(home, ".critiqal")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: "0",
			Retry: RetryConfig{
				MaxRetries: 2,
				Delay:      "500ms",
			},
		},
		Auth: AuthConfig{
			Mode: AuthCookie,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join(DefaultDir(), "state.db"),
		},
		Feed: FeedConfig{
			Limit: 50,
		},
		Notifications: NotificationsConfig{
			DefaultDuration: "4s",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "console",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("CRITIQAL_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if mode := os.Getenv("CRITIQAL_AUTH_MODE"); mode != "" {
		c.Auth.Mode = AuthMode(strings.ToLower(mode))
	}
	if driver := os.Getenv("CRITIQAL_STORAGE"); driver != "" {
		c.Storage.Driver = driver
	}
	if path := os.Getenv("CRITIQAL_DB"); path != "" {
		c.Storage.Path = path
	}
}

// GetTimeout returns the HTTP client timeout. Zero means none.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetRetryDelay returns the fixed delay before a transient retry.
func (c *Config) GetRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.API.Retry.Delay)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetNotificationDuration returns the default notification lifetime.
func (c *Config) GetNotificationDuration() time.Duration {
	d, err := time.ParseDuration(c.Notifications.DefaultDuration)
	if err != nil || d <= 0 {
		return 4 * time.Second
	}
	return d
}

// GetFeedLimit returns the feed page size.
func (c *Config) GetFeedLimit() int {
	if c.Feed.Limit <= 0 {
		return 50
	}
	return c.Feed.Limit
}

// ValidAuthModes lists all supported credential strategies.
var ValidAuthModes = []AuthMode{AuthCookie, AuthBearer}

// ValidStorageDrivers lists all supported store drivers.
var ValidStorageDrivers = []string{"sqlite", "file", "memory"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url not configured (set CRITIQAL_API_URL)")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q (want an absolute URL such as http://localhost:8080/api)", c.API.BaseURL)
	}

	validMode := false
	for _, m := range ValidAuthModes {
		if c.Auth.Mode == m {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid auth mode: %s (valid: %v)", c.Auth.Mode, ValidAuthModes)
	}

	validDriver := false
	for _, d := range ValidStorageDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidStorageDrivers)
	}
	if c.Storage.Driver != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path required for driver %s", c.Storage.Driver)
	}

	if c.API.Retry.MaxRetries < 0 {
		return fmt.Errorf("api.retry.max_retries must be >= 0, got %d", c.API.Retry.MaxRetries)
	}

	if err := c.Logging.validate(); err != nil {
		return err
	}

	return nil
}
