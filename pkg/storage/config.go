package storage

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Azure Blob Storage connection parameters.
// Either ConnectionString or ServiceURL must be set. ServiceURL authenticates
// with the default Azure credential chain, which cannot sign SAS tokens.
type Config struct {
	ConnectionString string `toml:"connection_string"`
	ServiceURL       string `toml:"service_url"`
	ContainerName    string `toml:"container_name"`
	SASWindow        string `toml:"sas_window"`
	MaxRetries       int    `toml:"max_retries"`
	TryTimeout       string `toml:"try_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ConnectionString string
	ServiceURL       string
	ContainerName    string
	SASWindow        string
	MaxRetries       string
	TryTimeout       string
}

// SASWindowDuration returns SASWindow as a time.Duration.
func (c *Config) SASWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.SASWindow)
	return d
}

// TryTimeoutDuration returns TryTimeout as a time.Duration.
func (c *Config) TryTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.TryTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.ServiceURL != "" {
		c.ServiceURL = overlay.ServiceURL
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.SASWindow != "" {
		c.SASWindow = overlay.SASWindow
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.TryTimeout != "" {
		c.TryTimeout = overlay.TryTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.ContainerName == "" {
		c.ContainerName = "documents"
	}
	if c.SASWindow == "" {
		c.SASWindow = "5m"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.TryTimeout == "" {
		c.TryTimeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ConnectionString != "" {
		if v := os.Getenv(env.ConnectionString); v != "" {
			c.ConnectionString = v
		}
	}
	if env.ServiceURL != "" {
		if v := os.Getenv(env.ServiceURL); v != "" {
			c.ServiceURL = v
		}
	}
	if env.ContainerName != "" {
		if v := os.Getenv(env.ContainerName); v != "" {
			c.ContainerName = v
		}
	}
	if env.SASWindow != "" {
		if v := os.Getenv(env.SASWindow); v != "" {
			c.SASWindow = v
		}
	}
	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxRetries = n
			}
		}
	}
	if env.TryTimeout != "" {
		if v := os.Getenv(env.TryTimeout); v != "" {
			c.TryTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container_name required")
	}
	if c.ConnectionString == "" && c.ServiceURL == "" {
		return fmt.Errorf("connection_string or service_url required")
	}
	d, err := time.ParseDuration(c.SASWindow)
	if err != nil {
		return fmt.Errorf("invalid sas_window: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("sas_window must be positive")
	}
	if _, err := time.ParseDuration(c.TryTimeout); err != nil {
		return fmt.Errorf("invalid try_timeout: %w", err)
	}
	return nil
}
