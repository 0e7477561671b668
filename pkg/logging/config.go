package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Env names the environment variables read by Config.Finalize.
type Env struct {
	Level  string
	Format string
	Source string
}

// Config selects the server's log level and handler. Source adds the
// calling file and line to every record.
type Config struct {
	Level  Level  `toml:"level"`
	Format Format `toml:"format"`
	Source bool   `toml:"source"`
}

// ParseLevel reads a level name case-insensitively. "warning" is accepted
// for warn.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = string(LevelWarn)
	}
	l := Level(s)
	if err := l.Validate(); err != nil {
		return "", err
	}
	return l, nil
}

func (c *Config) Finalize(env *Env) error {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatText
	}
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}

	level, err := ParseLevel(string(c.Level))
	if err != nil {
		return err
	}
	c.Level = level
	c.Format = Format(strings.ToLower(string(c.Format)))
	return c.Format.Validate()
}

// Merge applies the overlay's set fields. Source can only be switched on.
func (c *Config) Merge(overlay *Config) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	c.Source = c.Source || overlay.Source
}

func (c *Config) loadEnv(env *Env) error {
	if v := os.Getenv(env.Level); env.Level != "" && v != "" {
		c.Level = Level(v)
	}
	if v := os.Getenv(env.Format); env.Format != "" && v != "" {
		c.Format = Format(v)
	}
	if v := os.Getenv(env.Source); env.Source != "" && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env.Source, err)
		}
		c.Source = on
	}
	return nil
}
