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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/dataimport/internal/log"
	"github.com/tombee/dataimport/internal/tracing"
	dierrors "github.com/tombee/dataimport/pkg/errors"
	"github.com/tombee/dataimport/pkg/okapi"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config represents the complete data import configuration.
type Config struct {
	Okapi         OkapiConfig         `yaml:"okapi"`
	SystemUser    SystemUserConfig    `yaml:"system_user"`
	Configuration ConfigurationConfig `yaml:"configuration"`
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Tracing       tracing.Config      `yaml:"tracing"`
}

// OkapiConfig holds the default connection parameters used when a caller
// does not supply its own.
type OkapiConfig struct {
	// URL is the Okapi base address.
	// Environment: OKAPI_URL
	// Default: localhost
	URL string `yaml:"url"`

	// Tenant is the default tenant identifier.
	// Environment: OKAPI_TENANT
	Tenant string `yaml:"tenant"`

	// Token is the default access token.
	// Environment: OKAPI_TOKEN
	Token string `yaml:"token"`

	// TimeoutMillis bounds each outbound request. Zero means the package
	// default of 30s.
	// Environment: OKAPI_TIMEOUT_MS
	TimeoutMillis int `yaml:"timeout_ms"`
}

// SystemUserConfig pins the system-user setting. When Enabled is nil the
// SYSTEM_USER_ENABLED environment variable is consulted on every call.
type SystemUserConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// ConfigurationConfig configures lookups against mod-configuration.
type ConfigurationConfig struct {
	// Module is the module name entries are filed under.
	// Default: DATA_IMPORT
	Module string `yaml:"module"`
}

// ServerConfig configures the HTTP server run by "okapictl serve".
type ServerConfig struct {
	// Addr is the listen address.
	// Default: 127.0.0.1:9130
	Addr string `yaml:"addr"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RateLimit caps requests per tenant, as <count>/<unit> where unit is
	// second, minute, hour or day (e.g. "100/minute").
	// Default: unlimited
	RateLimit string `yaml:"rate_limit"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: json
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE (1 or true)
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Okapi: OkapiConfig{
			URL: okapi.DefaultURL,
		},
		Configuration: ConfigurationConfig{
			Module: "DATA_IMPORT",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:9130",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Load loads configuration from an optional YAML file, then applies
// environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &dierrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	// Apply defaults to any zero values (handles minimal configs)
	cfg.applyDefaults()

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &dierrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Okapi.URL == "" {
		c.Okapi.URL = defaults.Okapi.URL
	}
	if c.Configuration.Module == "" {
		c.Configuration.Module = defaults.Configuration.Module
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	t := &c.Tracing
	if t.ServiceName == "" {
		t.ServiceName = defaults.Tracing.ServiceName
	}
	if t.BatchSize == 0 {
		t.BatchSize = defaults.Tracing.BatchSize
	}
	if t.BatchInterval == 0 {
		t.BatchInterval = defaults.Tracing.BatchInterval
	}
	if t.Storage.Retention == 0 {
		t.Storage.Retention = defaults.Tracing.Storage.Retention
	}
	if t.Storage.CleanupInterval == 0 {
		t.Storage.CleanupInterval = defaults.Tracing.Storage.CleanupInterval
	}
}

func (c *Config) loadFromFile(path string) error {
	path, err := ExpandHome(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("OKAPI_URL"); val != "" {
		c.Okapi.URL = val
	}
	if val := os.Getenv("OKAPI_TENANT"); val != "" {
		c.Okapi.Tenant = val
	}
	if val := os.Getenv("OKAPI_TOKEN"); val != "" {
		c.Okapi.Token = val
	}
	if val := os.Getenv("OKAPI_TIMEOUT_MS"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			c.Okapi.TimeoutMillis = ms
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Okapi.TimeoutMillis < 0 {
		errs = append(errs, &dierrors.ValidationError{
			Field:   "okapi.timeout_ms",
			Message: "must not be negative",
		})
	}

	if !log.IsValidLevel(c.Log.Level) {
		errs = append(errs, &dierrors.ValidationError{
			Field:      "log.level",
			Message:    fmt.Sprintf("unknown level %q", c.Log.Level),
			Suggestion: "use one of trace, debug, info, warn, error",
		})
	}

	switch log.Format(c.Log.Format) {
	case log.FormatJSON, log.FormatText:
	default:
		errs = append(errs, &dierrors.ValidationError{
			Field:      "log.format",
			Message:    fmt.Sprintf("unknown format %q", c.Log.Format),
			Suggestion: "use json or text",
		})
	}

	for i, exp := range c.Tracing.Exporters {
		if !tracing.ValidExporterType(exp.Type) {
			errs = append(errs, &dierrors.ValidationError{
				Field:   fmt.Sprintf("tracing.exporters[%d].type", i),
				Message: fmt.Sprintf("unknown exporter type %q", exp.Type),
			})
		}
	}

	if c.Server.RateLimit != "" {
		if _, _, err := ParseRateLimit(c.Server.RateLimit); err != nil {
			errs = append(errs, &dierrors.ValidationError{
				Field:      "server.rate_limit",
				Message:    err.Error(),
				Suggestion: "use <count>/<unit>, e.g. 100/minute",
			})
		}
	}

	if rate := c.Tracing.Sampling.Rate; rate < 0 || rate > 1 {
		errs = append(errs, &dierrors.ValidationError{
			Field:   "tracing.sampling.rate",
			Message: "must be between 0 and 1",
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LoggerConfig returns the logger configuration derived from c.
func (c *Config) LoggerConfig() *log.Config {
	lc := log.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = log.Format(c.Log.Format)
	lc.AddSource = c.Log.AddSource
	return lc
}

// DefaultParams returns Okapi connection parameters built from the
// configured defaults. Empty values are left out so the package defaults
// apply.
func (c *Config) DefaultParams() map[string]string {
	params := make(map[string]string, 4)
	if c.Okapi.URL != "" {
		params[okapi.HeaderURL] = c.Okapi.URL
	}
	if c.Okapi.Tenant != "" {
		params[okapi.HeaderTenant] = c.Okapi.Tenant
	}
	if c.Okapi.Token != "" {
		params[okapi.HeaderToken] = c.Okapi.Token
	}
	return params
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// ParseRateLimit parses a "<count>/<unit>" rate limit such as "100/hour".
func ParseRateLimit(rateLimit string) (int, time.Duration, error) {
	parts := strings.Split(rateLimit, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid rate_limit format %q, expected format: <count>/<unit> (e.g., 100/hour, 10/minute)", rateLimit)
	}

	count, err := strconv.Atoi(parts[0])
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("invalid rate_limit count %q, must be a positive integer", parts[0])
	}

	units := map[string]time.Duration{
		"second": time.Second,
		"minute": time.Minute,
		"hour":   time.Hour,
		"day":    24 * time.Hour,
	}
	per, ok := units[parts[1]]
	if !ok {
		return 0, 0, fmt.Errorf("invalid rate_limit unit %q, must be one of: second, minute, hour, day", parts[1])
	}
	return count, per, nil
}
