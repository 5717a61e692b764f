// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvTokenSecret, "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "token:\n  secret: "+testSecret+"\nstore:\n  driver: memory\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Token.TTL)
	assert.Equal(t, "authcore", cfg.Token.Issuer)
	assert.Equal(t, 64, cfg.RoleCache.Size)
	assert.Equal(t, 5*time.Minute, cfg.RoleCache.TTL)
	assert.Equal(t, uint64(5), cfg.Database.ConnectRetries)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
http:
  addr: ":9090"
  allowed_origins: ["https://*.example.com"]
database:
  url: postgres://u:p@db:5432/authcore
  max_conns: 8
token:
  secret: `+testSecret+`
  ttl: 15m
log:
  format: text
  level: debug
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://*.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/authcore", cfg.Database.URL)
	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, 15*time.Minute, cfg.Token.TTL)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "http:\n  addr: \":9090\"\nlog:\n  level: warn\ntoken:\n  secret: "+testSecret+"\nstore:\n  driver: memory\n")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--http.addr=:7070", "--token.ttl=1h"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr, "changed flag wins")
	assert.Equal(t, time.Hour, cfg.Token.TTL)
	assert.Equal(t, "warn", cfg.Log.Level, "unchanged flag keeps the file value")
}

func TestLoad_EnvironmentFallbacks(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://env@db/authcore")
	t.Setenv(EnvTokenSecret, testSecret)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/authcore", cfg.Database.URL)
	assert.Equal(t, testSecret, cfg.Token.Secret)
}

func TestLoad_FileValueBeatsEnvironment(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://env@db/authcore")
	t.Setenv(EnvTokenSecret, testSecret)
	path := writeConfig(t, "database:\n  url: postgres://file@db/authcore\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file@db/authcore", cfg.Database.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestRead_SkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabaseURL, "postgres://u:p@db/authcore")

	cfg, err := Read("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/authcore", cfg.Database.URL)
	assert.Empty(t, cfg.Token.Secret)

	_, err = Load("", nil)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "token.secret")
}

func validConfig() *Config {
	return &Config{
		HTTP:      HTTPConfig{Addr: ":8080", ShutdownTimeout: time.Second},
		Database:  DatabaseConfig{URL: "postgres://db/authcore"},
		Store:     StoreConfig{Driver: DriverPostgres},
		Token:     TokenConfig{Secret: testSecret, TTL: time.Hour},
		RoleCache: RoleCacheConfig{Size: 1},
		Log:       LogConfig{Format: "json", Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"zero shutdown timeout", func(c *Config) { c.HTTP.ShutdownTimeout = 0 }, "http.shutdown_timeout"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"postgres without url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"short secret", func(c *Config) { c.Token.Secret = "short" }, "token.secret"},
		{"zero ttl", func(c *Config) { c.Token.TTL = 0 }, "token.ttl"},
		{"zero cache", func(c *Config) { c.RoleCache.Size = 0 }, "role_cache.size"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}

	t.Run("memory store needs no url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Driver = DriverMemory
		cfg.Database.URL = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = "postgres://authcore:hunter2@db:5432/authcore"
	cfg.HTTP.AllowedOrigins = []string{"http://localhost:3000"}

	out := cfg.Redacted()
	assert.Equal(t, "[REDACTED]", out.Token.Secret)
	assert.NotContains(t, out.Database.URL, "hunter2")
	assert.True(t, strings.HasPrefix(out.Database.URL, "postgres://authcore:"))

	out.HTTP.AllowedOrigins[0] = "changed"
	assert.Equal(t, testSecret, cfg.Token.Secret, "original untouched")
	assert.Equal(t, "http://localhost:3000", cfg.HTTP.AllowedOrigins[0])
}
