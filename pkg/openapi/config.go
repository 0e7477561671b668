package openapi

import "os"

// Config holds the document metadata served with the generated spec.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Version     string `toml:"version"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Title       string
	Description string
	Version     string
}

func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return nil
}

func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
}

func (c *Config) loadDefaults() {
	if c.Title == "" {
		c.Title = "Upload Lab API"
	}
	if c.Description == "" {
		c.Description = "Resumable uploads, content pinning and asynchronous document processing."
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Title != "" {
		if v := os.Getenv(env.Title); v != "" {
			c.Title = v
		}
	}
	if env.Description != "" {
		if v := os.Getenv(env.Description); v != "" {
			c.Description = v
		}
	}
	if env.Version != "" {
		if v := os.Getenv(env.Version); v != "" {
			c.Version = v
		}
	}
}
