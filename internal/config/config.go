// Package config loads csvdb settings from a YAML file and CSVDB_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFile is the config file looked up in the working directory when none
// is given explicitly.
const DefaultFile = "csvdb.yaml"

// Config holds every setting of the csvdb tool.
type Config struct {
	File         string  `mapstructure:"file"`
	Latin1       bool    `mapstructure:"latin1"`
	KeyColumn    string  `mapstructure:"key"`
	HeaderOffset int     `mapstructure:"header_offset"`
	LogLevel     string  `mapstructure:"log_level"`
	Format       string  `mapstructure:"format"`
	Server       Server  `mapstructure:"server"`
	History      History `mapstructure:"history"`
}

// Server configures the HTTP API.
type Server struct {
	Addr       string     `mapstructure:"addr"`
	JWTSecret  string     `mapstructure:"jwt_secret"`
	Watch      bool       `mapstructure:"watch"`
	RateLimits RateLimits `mapstructure:"rate_limits"`
}

// RateLimits is the per client request budget, per minute. 0 disables the
// limit.
type RateLimits struct {
	ReadPerMin  int `mapstructure:"read_per_min"`
	WritePerMin int `mapstructure:"write_per_min"`
}

// History configures git commits of every change.
type History struct {
	Enabled     bool   `mapstructure:"enabled"`
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

// New returns a viper instance holding the defaults and bound to the CSVDB_*
// environment variables. Nested keys use an underscore, e.g.
// CSVDB_SERVER_ADDR.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("file", "")
	v.SetDefault("latin1", false)
	v.SetDefault("key", "id")
	v.SetDefault("header_offset", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("format", "text")
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.watch", false)
	v.SetDefault("server.rate_limits.read_per_min", 6000)
	v.SetDefault("server.rate_limits.write_per_min", 60)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.author_name", "csvdb")
	v.SetDefault("history.author_email", "csvdb@localhost")
	v.SetEnvPrefix("CSVDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the result.
//
// An explicit path must exist. Without one, DefaultFile is read from the
// working directory when present.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.KeyColumn == "" {
		return errors.New("key column must not be empty")
	}
	if c.HeaderOffset < 0 {
		return fmt.Errorf("header offset must be >= 0, got %d", c.HeaderOffset)
	}
	switch c.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q, want text, json or yaml", c.Format)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return c.Server.RateLimits.Validate()
}

// Validate checks that the limits are not negative.
func (r *RateLimits) Validate() error {
	if r.ReadPerMin < 0 {
		return fmt.Errorf("read_per_min must be >= 0, got %d", r.ReadPerMin)
	}
	if r.WritePerMin < 0 {
		return fmt.Errorf("write_per_min must be >= 0, got %d", r.WritePerMin)
	}
	return nil
}
