// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authcore settings from defaults, an optional YAML
// file and command-line flags, in that order of precedence.
package config

import (
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/authcore/internal/logging"
)

// Environment variables consulted when the file and flags leave a value unset.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTokenSecret = "AUTHCORE_TOKEN_SECRET"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MinTokenSecretLength mirrors the token service's requirement so bad
// configuration fails at startup.
const MinTokenSecretLength = 32

const (
	redacted         = "[REDACTED]"
	redactedPassword = "xxxxx"
)

// Config is the full service configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http" yaml:"http"`
	Metrics   MetricsConfig   `koanf:"metrics" yaml:"metrics"`
	Database  DatabaseConfig  `koanf:"database" yaml:"database"`
	Store     StoreConfig     `koanf:"store" yaml:"store"`
	Token     TokenConfig     `koanf:"token" yaml:"token"`
	RoleCache RoleCacheConfig `koanf:"role_cache" yaml:"role_cache"`
	Log       LogConfig       `koanf:"log" yaml:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" yaml:"addr"`
	AllowedOrigins    []string      `koanf:"allowed_origins" yaml:"allowed_origins"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string `koanf:"url" yaml:"url"`
	MaxConns       int32  `koanf:"max_conns" yaml:"max_conns"`
	ConnectRetries uint64 `koanf:"connect_retries" yaml:"connect_retries"`
}

// StoreConfig selects the account store.
type StoreConfig struct {
	Driver string `koanf:"driver" yaml:"driver"`
}

// TokenConfig configures bearer token issuance.
type TokenConfig struct {
	Secret string        `koanf:"secret" yaml:"secret"`
	TTL    time.Duration `koanf:"ttl" yaml:"ttl"`
	Issuer string        `koanf:"issuer" yaml:"issuer"`
}

// RoleCacheConfig sizes the role lookup cache.
type RoleCacheConfig struct {
	Size int           `koanf:"size" yaml:"size"`
	TTL  time.Duration `koanf:"ttl" yaml:"ttl"`
}

// LogConfig configures the service logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// defaults are loaded before the file and flags.
var defaults = map[string]any{
	"http.addr":                ":8080",
	"http.allowed_origins":     []string{"http://localhost:3000"},
	"http.read_header_timeout": "10s",
	"http.shutdown_timeout":    "10s",
	"metrics.addr":             "127.0.0.1:9100",
	"database.max_conns":       0,
	"database.connect_retries": 5,
	"store.driver":             DriverPostgres,
	"token.ttl":                "24h",
	"token.issuer":             "authcore",
	"role_cache.size":          64,
	"role_cache.ttl":           "5m",
	"log.format":               "json",
	"log.level":                "info",
}

// RegisterFlags adds the overridable settings to fs. Flag names are the
// dotted configuration keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http.addr", ":8080", "API listen address")
	fs.String("metrics.addr", "127.0.0.1:9100", "metrics/health listen address (empty = disabled)")
	fs.String("store.driver", DriverPostgres, "account store: postgres or memory")
	fs.Duration("token.ttl", 24*time.Hour, "bearer token lifetime")
	fs.String("log.format", "json", "log format: json or text")
	fs.String("log.level", "info", "log level: debug, info, warn or error")
}

// Load reads and validates the configuration. path may be empty; flags may
// be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges defaults, the file, flags and the environment fallbacks
// without validating the result. Commands that need only part of the
// configuration, such as migrate, use it directly.
func Read(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(EnvDatabaseURL)
	}
	if cfg.Token.Secret == "" {
		cfg.Token.Secret = os.Getenv(EnvTokenSecret)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout", "http.shutdown_timeout must be positive")
	}
	if !slices.Contains([]string{DriverPostgres, DriverMemory}, c.Store.Driver) {
		return invalid("store.driver", "store.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Store.Driver)
	}
	if c.Store.Driver == DriverPostgres && c.Database.URL == "" {
		return invalid("database.url", "database.url or %s is required for the postgres store", EnvDatabaseURL)
	}
	if len(c.Token.Secret) < MinTokenSecretLength {
		return invalid("token.secret", "token.secret (or %s) must be at least %d bytes", EnvTokenSecret, MinTokenSecretLength)
	}
	if c.Token.TTL <= 0 {
		return invalid("token.ttl", "token.ttl must be positive")
	}
	if c.RoleCache.Size <= 0 {
		return invalid("role_cache.size", "role_cache.size must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level %q is not a level", c.Log.Level)
	}
	return nil
}

// Redacted returns a copy safe to print: the token secret and the database
// password are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.HTTP.AllowedOrigins = slices.Clone(c.HTTP.AllowedOrigins)
	if out.Token.Secret != "" {
		out.Token.Secret = redacted
	}
	if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), redactedPassword)
			out.Database.URL = u.String()
		}
	}
	return &out
}
