// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/dataimport/internal/featureflags"
	"github.com/tombee/dataimport/internal/tracing"
	dierrors "github.com/tombee/dataimport/pkg/errors"
	"github.com/tombee/dataimport/pkg/okapi"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OKAPI_URL", "OKAPI_TENANT", "OKAPI_TOKEN", "OKAPI_TIMEOUT_MS",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE", "DATAIMPORT_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, okapi.DefaultURL, cfg.Okapi.URL)
	assert.Zero(t, cfg.Okapi.TimeoutMillis)
	assert.Nil(t, cfg.SystemUser.Enabled)
	assert.Equal(t, "DATA_IMPORT", cfg.Configuration.Module)
	assert.Equal(t, "127.0.0.1:9130", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "dataimport", cfg.Tracing.ServiceName)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Okapi, cfg.Okapi)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), `
okapi:
  url: http://okapi:9130
  tenant: diku
  timeout_ms: 1500
system_user:
  enabled: false
configuration:
  module: CUSTOM
log:
  level: debug
  format: text
tracing:
  enabled: true
  storage:
    path: /tmp/spans.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://okapi:9130", cfg.Okapi.URL)
	assert.Equal(t, "diku", cfg.Okapi.Tenant)
	assert.Equal(t, 1500, cfg.Okapi.TimeoutMillis)
	require.NotNil(t, cfg.SystemUser.Enabled)
	assert.False(t, *cfg.SystemUser.Enabled)
	assert.Equal(t, "CUSTOM", cfg.Configuration.Module)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "/tmp/spans.db", cfg.Tracing.Storage.Path)

	// untouched sections keep their defaults
	assert.Equal(t, "127.0.0.1:9130", cfg.Server.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.Tracing.Storage.Retention)
	assert.Equal(t, 512, cfg.Tracing.BatchSize)
}

func TestLoad_MinimalFileGetsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), "okapi:\n  url: \"\"\nlog:\n  level: \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, okapi.DefaultURL, cfg.Okapi.URL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), "okapi:\n  url: http://file\n  tenant: filetenant\n")

	t.Setenv("OKAPI_URL", "http://env")
	t.Setenv("OKAPI_TOKEN", "envtoken")
	t.Setenv("OKAPI_TIMEOUT_MS", "250")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_SOURCE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env", cfg.Okapi.URL)
	assert.Equal(t, "filetenant", cfg.Okapi.Tenant)
	assert.Equal(t, "envtoken", cfg.Okapi.Token)
	assert.Equal(t, 250, cfg.Okapi.TimeoutMillis)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.AddSource)
}

func TestLoad_BadTimeoutEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("OKAPI_TIMEOUT_MS", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Okapi.TimeoutMillis)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		key  string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), "config_file"},
		{"bad yaml", writeConfig(t, t.TempDir(), "okapi: [\n"), "config_file"},
		{"invalid values", writeConfig(t, t.TempDir(), "log:\n  level: loud\n"), "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)

			var cfgErr *dierrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"trace level", func(c *Config) { c.Log.Level = "trace" }, ""},
		{"negative timeout", func(c *Config) { c.Okapi.TimeoutMillis = -1 }, "okapi.timeout_ms"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad sampling rate", func(c *Config) { c.Tracing.Sampling.Rate = 1.5 }, "tracing.sampling.rate"},
		{"rate limit", func(c *Config) { c.Server.RateLimit = "100/minute" }, ""},
		{"bad rate limit", func(c *Config) { c.Server.RateLimit = "fast" }, "server.rate_limit"},
		{"bad exporter", func(c *Config) {
			c.Tracing.Exporters = []tracing.ExporterConfig{{Type: "zipkin"}}
		}, "tracing.exporters[0].type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var vErr *dierrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestParseRateLimit(t *testing.T) {
	tests := []struct {
		in    string
		count int
		per   time.Duration
		err   bool
	}{
		{in: "10/second", count: 10, per: time.Second},
		{in: "100/minute", count: 100, per: time.Minute},
		{in: "5/hour", count: 5, per: time.Hour},
		{in: "1/day", count: 1, per: 24 * time.Hour},
		{in: "100", err: true},
		{in: "0/minute", err: true},
		{in: "-3/minute", err: true},
		{in: "ten/minute", err: true},
		{in: "10/week", err: true},
		{in: "10/minute/extra", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			count, per, err := ParseRateLimit(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.per, per)
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "text"
	cfg.Log.AddSource = true

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "text", string(lc.Format))
	assert.True(t, lc.AddSource)
	assert.NotNil(t, lc.Output)
}

func TestDefaultParams(t *testing.T) {
	cfg := Default()
	cfg.Okapi.Tenant = "diku"

	params := okapi.FromMap(cfg.DefaultParams(), okapi.WithTimeout(cfg.Okapi.TimeoutMillis))
	assert.Equal(t, okapi.DefaultURL, params.URL())
	assert.Equal(t, "diku", params.Tenant())
	assert.Equal(t, "", params.Token())
	assert.Equal(t, okapi.DefaultTimeoutMillis, params.TimeoutMillis())

	assert.NotContains(t, cfg.DefaultParams(), okapi.HeaderToken)
}

func TestApply(t *testing.T) {
	flags := featureflags.NewSystemUser(func(string) string { return "" })
	cfg := Default()

	disabled := false
	cfg.SystemUser.Enabled = &disabled
	cfg.Apply(flags)
	assert.False(t, flags.Raw())
	assert.True(t, flags.SystemUserEnabled())

	cfg.SystemUser.Enabled = nil
	cfg.Apply(flags)
	assert.True(t, flags.Raw())
	assert.False(t, flags.SystemUserEnabled())

	// nil flags is a no-op
	cfg.Apply(nil)
}

func TestResolvePath(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Equal(t, "/explicit.yaml", ResolvePath("/explicit.yaml"))
	assert.Equal(t, "", ResolvePath(""), "no default file yet")

	def, err := ConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(def, []byte("{}\n"), 0o600))
	assert.Equal(t, def, ResolvePath(""))

	t.Setenv("DATAIMPORT_CONFIG", "/from/env.yaml")
	assert.Equal(t, "/from/env.yaml", ResolvePath(""))
}
