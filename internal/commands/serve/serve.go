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

// Package serve implements "okapictl serve": the HTTP front for Okapi
// pass-through, MARC classification, configuration lookups and stored
// spans.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/dataimport/internal/commands/shared"
	"github.com/tombee/dataimport/internal/config"
	"github.com/tombee/dataimport/internal/configuration"
	internallog "github.com/tombee/dataimport/internal/log"
	"github.com/tombee/dataimport/internal/server"
	"github.com/tombee/dataimport/internal/tracing"
	"github.com/tombee/dataimport/pkg/marc"
)

// NewCommand creates the serve command.
func NewCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the data import HTTP server",
		Long: `Run the HTTP server until interrupted.

Routes:
  GET  /healthz                  health check
  *    /okapi/{path}             forward to Okapi with the caller's identity
  *    /system/okapi/{path}      forward with the system user identity
  POST /marc/record-type         classify a MARC JSON record
  GET  /configurations/{code}    look up a configuration value
  GET  /traces                   list stored spans (tracing storage only)
  GET  /metrics                  Prometheus metrics

Okapi connection parameters are read from the X-Okapi-Url, X-Okapi-Tenant
and X-Okapi-Token request headers. Changes to system_user.enabled in the
config file apply without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, addr, nil)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

// run serves until ctx is done. ready, when set, receives the server once
// it has been created.
func run(ctx context.Context, addr string, ready func(*server.Server)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := shared.NewRuntime(ctx, shared.WithTelemetry())
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	cfg := rt.Config
	logger := rt.Logger
	if addr == "" {
		addr = cfg.Server.Addr
	}

	v, _, _ := shared.GetVersion()
	logger.Info("okapictl starting", "version", v, "config", rt.ConfigPath)

	if rt.ConfigPath != "" {
		watcher, err := config.NewWatcher(rt.ConfigPath, cfg, rt.Flags,
			config.WithWatcherLogger(logger),
			config.OnReload(func(c *config.Config) {
				logger.Info("system user setting reloaded", "enabled", rt.Flags.SystemUserEnabled())
			}),
		)
		if err != nil {
			return shared.NewConfigError("failed to watch configuration", err)
		}
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	deps := server.Deps{
		Executor: rt.Executor,
		Configuration: configuration.NewClient(rt.Executor,
			configuration.WithModule(cfg.Configuration.Module),
			configuration.WithLogger(logger),
		),
		Analyzer:       marc.NewMarcAnalyzer(internallog.WithComponent(logger, "marc")),
		Metrics:        rt.Provider.MetricsCollector(),
		MetricsHandler: rt.Provider.MetricsHandler(),
		TracerProvider: rt.Provider.TracerProvider(),
		Logger:         logger,
		TimeoutMillis:  cfg.Okapi.TimeoutMillis,
	}

	if rt.Store != nil {
		deps.Spans = rt.Store
		retention := tracing.NewRetentionManager(rt.Store,
			cfg.Tracing.Storage.Retention, cfg.Tracing.Storage.CleanupInterval,
			internallog.WithComponent(logger, "retention"))
		retention.Start()
		defer retention.Stop()
	}

	if cfg.Server.RateLimit != "" {
		count, per, err := config.ParseRateLimit(cfg.Server.RateLimit)
		if err != nil {
			return shared.NewConfigError("invalid server.rate_limit", err)
		}
		deps.Limiter = server.NewTenantLimiter(count, per)
	}

	srv := server.New(addr, server.NewRouter(deps), logger)
	if ready != nil {
		ready(srv)
	}

	if err := srv.Start(ctx); err != nil {
		return shared.NewExecutionError(fmt.Sprintf("failed to serve on %s", addr), err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return shared.NewExecutionError("shutdown error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
