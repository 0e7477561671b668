package processing

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Env maps environment variable names for processing configuration.
type Env struct {
	Delay      string
	Operations string
}

// Config controls the processing job.
type Config struct {
	// Delay is how long a job holds the ocr stage before completing.
	Delay      string   `toml:"delay"`
	Operations []string `toml:"operations"`
}

// DelayDuration parses and returns the stage delay.
func (c *Config) DelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.Delay)
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
	if overlay.Delay != "" {
		c.Delay = overlay.Delay
	}
	if overlay.Operations != nil {
		c.Operations = overlay.Operations
	}
}

func (c *Config) loadDefaults() {
	if c.Delay == "" {
		c.Delay = "5s"
	}
	if len(c.Operations) == 0 {
		c.Operations = []string{"summary", "qa"}
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Delay != "" {
		if v := os.Getenv(env.Delay); v != "" {
			c.Delay = v
		}
	}
	if env.Operations != "" {
		if v := os.Getenv(env.Operations); v != "" {
			var ops []string
			for op := range strings.SplitSeq(v, ",") {
				if op = strings.TrimSpace(op); op != "" {
					ops = append(ops, op)
				}
			}
			c.Operations = ops
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.Delay)
	if err != nil {
		return fmt.Errorf("invalid delay: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	return nil
}
