package config

import (
	"fmt"
	"os"
	"time"

	"github.com/JaimeStill/docgate/pkg/bus"
	"github.com/JaimeStill/docgate/pkg/storage"
	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvDocgateEnv             = "DOCGATE_ENV"
	EnvDocgateShutdownTimeout = "DOCGATE_SHUTDOWN_TIMEOUT"
	EnvDocgateVersion         = "DOCGATE_VERSION"
)

var storageEnv = &storage.Env{
	ConnectionString: "DOCGATE_STORAGE_CONNECTION_STRING",
	ServiceURL:       "DOCGATE_STORAGE_SERVICE_URL",
	ContainerName:    "DOCGATE_STORAGE_CONTAINER_NAME",
	SASWindow:        "DOCGATE_STORAGE_SAS_WINDOW",
	MaxRetries:       "DOCGATE_STORAGE_MAX_RETRIES",
	TryTimeout:       "DOCGATE_STORAGE_TRY_TIMEOUT",
}

var busEnv = &bus.Env{
	Brokers:        "DOCGATE_BUS_BROKERS",
	ClientID:       "DOCGATE_BUS_CLIENT_ID",
	Username:       "DOCGATE_BUS_USERNAME",
	Password:       "DOCGATE_BUS_PASSWORD",
	SASLMechanism:  "DOCGATE_BUS_SASL_MECHANISM",
	TLS:            "DOCGATE_BUS_TLS",
	Partition:      "DOCGATE_BUS_PARTITION",
	MaxAttempts:    "DOCGATE_BUS_MAX_ATTEMPTS",
	DialTimeout:    "DOCGATE_BUS_DIAL_TIMEOUT",
	SessionTimeout: "DOCGATE_BUS_SESSION_TIMEOUT",
	StartOffset:    "DOCGATE_BUS_START_OFFSET",
}

// Config is the root configuration for the docgate service.
type Config struct {
	Server          ServerConfig   `toml:"server"`
	Storage         storage.Config `toml:"storage"`
	Bus             bus.Config     `toml:"bus"`
	Gateway         GatewayConfig  `toml:"gateway"`
	ShutdownTimeout string         `toml:"shutdown_timeout"`
	Version         string         `toml:"version"`
}

// Env returns the DOCGATE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDocgateEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Parse decodes a TOML document into a Config without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Storage.Merge(&overlay.Storage)
	c.Bus.Merge(&overlay.Bus)
	c.Gateway.Merge(&overlay.Gateway)
}

// Finalize applies defaults, environment variable overrides, and validation
// to the root config and every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Bus.Finalize(busEnv); err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	if err := c.Gateway.Finalize(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDocgateShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvDocgateVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath() string {
	if env := os.Getenv(EnvDocgateEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
