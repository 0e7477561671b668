package tracking

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Env maps environment variable names for tracking configuration.
type Env struct {
	Backend       string
	TTL           string
	MaxEntries    string
	SweepInterval string
}

// Config controls where statuses live and how long they are retained.
type Config struct {
	Backend       string `toml:"backend"`
	TTL           string `toml:"ttl"`
	MaxEntries    int    `toml:"max_entries"`
	SweepInterval string `toml:"sweep_interval"`
}

// TTLDuration returns the retention window after the last write.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// SweepIntervalDuration returns the period between eviction sweeps.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.MaxEntries != 0 {
		c.MaxEntries = overlay.MaxEntries
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.TTL == "" {
		c.TTL = "24h"
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 10000
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.TTL != "" {
		if v := os.Getenv(env.TTL); v != "" {
			c.TTL = v
		}
	}
	if env.MaxEntries != "" {
		if v := os.Getenv(env.MaxEntries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxEntries = n
			}
		}
	}
	if env.SweepInterval != "" {
		if v := os.Getenv(env.SweepInterval); v != "" {
			c.SweepInterval = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}
	if d, err := time.ParseDuration(c.TTL); err != nil || d <= 0 {
		return fmt.Errorf("invalid ttl: %q", c.TTL)
	}
	if d, err := time.ParseDuration(c.SweepInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid sweep_interval: %q", c.SweepInterval)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max_entries must not be negative")
	}
	return nil
}
