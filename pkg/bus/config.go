package bus

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StartOffsetEarliest = "earliest"
	StartOffsetLatest   = "latest"

	MechanismPlain = "plain"
)

// Config holds Kafka connection and client parameters.
type Config struct {
	Brokers        []string `toml:"brokers"`
	ClientID       string   `toml:"client_id"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	SASLMechanism  string   `toml:"sasl_mechanism"`
	TLS            bool     `toml:"tls"`
	Partition      *int     `toml:"partition"`
	MaxAttempts    int      `toml:"max_attempts"`
	DialTimeout    string   `toml:"dial_timeout"`
	SessionTimeout string   `toml:"session_timeout"`
	StartOffset    string   `toml:"start_offset"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Brokers        string
	ClientID       string
	Username       string
	Password       string
	SASLMechanism  string
	TLS            string
	Partition      string
	MaxAttempts    string
	DialTimeout    string
	SessionTimeout string
	StartOffset    string
}

// PartitionValue returns the configured outbound partition.
// -1 means records are routed by key hash.
func (c *Config) PartitionValue() int {
	if c.Partition == nil {
		return -1
	}
	return *c.Partition
}

// DialTimeoutDuration returns DialTimeout as a time.Duration.
func (c *Config) DialTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DialTimeout)
	return d
}

// SessionTimeoutDuration returns SessionTimeout as a time.Duration.
func (c *Config) SessionTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.SessionTimeout)
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
	if len(overlay.Brokers) > 0 {
		c.Brokers = overlay.Brokers
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.Username != "" {
		c.Username = overlay.Username
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.SASLMechanism != "" {
		c.SASLMechanism = overlay.SASLMechanism
	}
	if overlay.TLS {
		c.TLS = true
	}
	if overlay.Partition != nil {
		p := *overlay.Partition
		c.Partition = &p
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.DialTimeout != "" {
		c.DialTimeout = overlay.DialTimeout
	}
	if overlay.SessionTimeout != "" {
		c.SessionTimeout = overlay.SessionTimeout
	}
	if overlay.StartOffset != "" {
		c.StartOffset = overlay.StartOffset
	}
}

func (c *Config) loadDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.ClientID == "" {
		c.ClientID = "docgate"
	}
	if c.Partition == nil {
		p := -1
		c.Partition = &p
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "6s"
	}
	if c.StartOffset == "" {
		c.StartOffset = StartOffsetEarliest
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Brokers != "" {
		if v := os.Getenv(env.Brokers); v != "" {
			c.Brokers = splitList(v)
		}
	}
	if env.ClientID != "" {
		if v := os.Getenv(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if env.Username != "" {
		if v := os.Getenv(env.Username); v != "" {
			c.Username = v
		}
	}
	if env.Password != "" {
		if v := os.Getenv(env.Password); v != "" {
			c.Password = v
		}
	}
	if env.SASLMechanism != "" {
		if v := os.Getenv(env.SASLMechanism); v != "" {
			c.SASLMechanism = v
		}
	}
	if env.TLS != "" {
		if v := os.Getenv(env.TLS); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.TLS = b
			}
		}
	}
	if env.Partition != "" {
		if v := os.Getenv(env.Partition); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Partition = &n
			}
		}
	}
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAttempts = n
			}
		}
	}
	if env.DialTimeout != "" {
		if v := os.Getenv(env.DialTimeout); v != "" {
			c.DialTimeout = v
		}
	}
	if env.SessionTimeout != "" {
		if v := os.Getenv(env.SessionTimeout); v != "" {
			c.SessionTimeout = v
		}
	}
	if env.StartOffset != "" {
		if v := os.Getenv(env.StartOffset); v != "" {
			c.StartOffset = v
		}
	}
}

func (c *Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers required")
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("brokers must not contain empty addresses")
		}
	}
	switch strings.ToLower(c.SASLMechanism) {
	case "":
	case MechanismPlain:
		if c.Username == "" {
			return fmt.Errorf("username required for sasl_mechanism %s", c.SASLMechanism)
		}
	default:
		return fmt.Errorf("unsupported sasl_mechanism: %s", c.SASLMechanism)
	}
	if c.PartitionValue() < -1 {
		return fmt.Errorf("invalid partition: %d", c.PartitionValue())
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf("invalid dial_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.SessionTimeout); err != nil {
		return fmt.Errorf("invalid session_timeout: %w", err)
	}
	switch c.StartOffset {
	case StartOffsetEarliest, StartOffsetLatest:
	default:
		return fmt.Errorf("invalid start_offset: %s", c.StartOffset)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
