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

package shared

import (
	"context"
	"errors"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tombee/dataimport/internal/config"
	"github.com/tombee/dataimport/internal/featureflags"
	internallog "github.com/tombee/dataimport/internal/log"
	"github.com/tombee/dataimport/internal/tracing"
	"github.com/tombee/dataimport/internal/tracing/storage"
	"github.com/tombee/dataimport/pkg/okapi"
	"github.com/tombee/dataimport/pkg/rest"
)

// Runtime bundles what commands need to talk to Okapi: the loaded config,
// a logger, the system-user flag and an executor wired to both.
type Runtime struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Flags      *featureflags.SystemUser
	Executor   *rest.Executor

	// Provider is nil unless tracing is enabled or WithTelemetry is
	// given. Store is nil unless tracing is enabled with a storage path.
	Provider *tracing.OTelProvider
	Store    *storage.SQLiteStore
}

// LoadConfig resolves and loads the config named by --config, the
// DATAIMPORT_CONFIG variable or the default location.
func LoadConfig() (*config.Config, string, error) {
	path := config.ResolvePath(GetConfigPath())
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, NewConfigError("failed to load configuration", err)
	}
	return cfg, path, nil
}

// NewLogger builds the command logger. --verbose lowers the level to
// debug and --quiet raises it to error.
func NewLogger(cfg *config.Config) *slog.Logger {
	lc := cfg.LoggerConfig()
	switch {
	case GetVerbose():
		lc.Level = "debug"
	case GetQuiet():
		lc.Level = "error"
	}
	return internallog.New(lc)
}

// RuntimeOption configures NewRuntime.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	telemetry bool
}

// WithTelemetry starts the telemetry provider even when tracing is
// disabled, so that request metrics are always collected.
func WithTelemetry() RuntimeOption {
	return func(o *runtimeOptions) { o.telemetry = true }
}

// NewRuntime loads configuration and wires the executor. Tracing, when
// enabled, exports through the configured exporters and into the span
// store. Callers must Close the runtime.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg, path, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Logger:     NewLogger(cfg),
		Flags:      featureflags.Default(),
	}
	cfg.Apply(rt.Flags)

	execOpts := []rest.ExecutorOption{
		rest.WithLogger(rt.Logger),
		rest.WithPolicy(rt.Flags),
		rest.WithUserAgent(UserAgent()),
	}

	if cfg.Tracing.Enabled || o.telemetry {
		if err := rt.startTracing(ctx); err != nil {
			return nil, err
		}
		execOpts = append(execOpts,
			rest.WithTracerProvider(rt.Provider.TracerProvider()),
			rest.WithRecorder(rt.Provider.MetricsCollector()),
		)
	}

	rt.Executor = rest.NewExecutor(execOpts...)
	return rt, nil
}

func (rt *Runtime) startTracing(ctx context.Context) error {
	cfg := rt.Config.Tracing
	cfg.ServiceVersion = version

	var opts []sdktrace.TracerProviderOption
	if cfg.Enabled && cfg.Storage.Path != "" {
		store, err := OpenSpanStore(rt.Config)
		if err != nil {
			return err
		}
		rt.Store = store
		opts = append(opts, sdktrace.WithSpanProcessor(
			sdktrace.NewBatchSpanProcessor(tracing.NewStorageExporter(store, rt.Logger)),
		))
	}

	provider, err := tracing.NewOTelProviderWithConfig(ctx, cfg, opts...)
	if err != nil {
		if rt.Store != nil {
			_ = rt.Store.Close()
		}
		return NewExecutionError("failed to start tracing", err)
	}
	rt.Provider = provider
	return nil
}

// OpenSpanStore opens the configured span database.
func OpenSpanStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	path, err := config.ExpandHome(cfg.Tracing.Storage.Path)
	if err != nil {
		return nil, NewConfigError("invalid span storage path", err)
	}
	store, err := storage.New(storage.Config{Path: path})
	if err != nil {
		return nil, NewExecutionError("failed to open span storage", err)
	}
	return store, nil
}

// Params returns connection params from the configured defaults, with
// any non-empty override taking precedence.
func (rt *Runtime) Params(url, tenant, token string, timeoutMillis int) okapi.ConnectionParams {
	headers := rt.Config.DefaultParams()
	if url != "" {
		headers[okapi.HeaderURL] = url
	}
	if tenant != "" {
		headers[okapi.HeaderTenant] = tenant
	}
	if token != "" {
		headers[okapi.HeaderToken] = token
	}
	if timeoutMillis <= 0 {
		timeoutMillis = rt.Config.Okapi.TimeoutMillis
	}
	return okapi.FromMap(headers, okapi.WithTimeout(timeoutMillis))
}

// Close flushes spans and releases the span store.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Provider != nil {
		errs = append(errs, rt.Provider.Shutdown(ctx))
	}
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	}
	return errors.Join(errs...)
}
