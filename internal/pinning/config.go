package pinning

import (
	"fmt"
	"os"
	"strconv"
)

// Backend names accepted by Config.Backend.
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// Env maps environment variable names for pinning configuration.
type Env struct {
	Backend      string
	Prefix       string
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle string
}

// S3Config addresses an S3-compatible bucket such as MinIO.
type S3Config struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// Config selects the content store that pinned bytes are written to.
type Config struct {
	Backend string   `toml:"backend"`
	Prefix  string   `toml:"prefix"`
	S3      S3Config `toml:"s3"`
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
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.S3.Bucket != "" {
		c.S3.Bucket = overlay.S3.Bucket
	}
	if overlay.S3.Region != "" {
		c.S3.Region = overlay.S3.Region
	}
	if overlay.S3.Endpoint != "" {
		c.S3.Endpoint = overlay.S3.Endpoint
	}
	if overlay.S3.AccessKey != "" {
		c.S3.AccessKey = overlay.S3.AccessKey
	}
	if overlay.S3.SecretKey != "" {
		c.S3.SecretKey = overlay.S3.SecretKey
	}
	if overlay.S3.UsePathStyle {
		c.S3.UsePathStyle = true
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFilesystem
	}
	if c.Prefix == "" {
		c.Prefix = "pins"
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, target *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}

	set(env.Backend, &c.Backend)
	set(env.Prefix, &c.Prefix)
	set(env.Bucket, &c.S3.Bucket)
	set(env.Region, &c.S3.Region)
	set(env.Endpoint, &c.S3.Endpoint)
	set(env.AccessKey, &c.S3.AccessKey)
	set(env.SecretKey, &c.S3.SecretKey)

	if env.UsePathStyle != "" {
		if v := os.Getenv(env.UsePathStyle); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.S3.UsePathStyle = b
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendFilesystem:
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket required for s3 backend")
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}
	return nil
}
