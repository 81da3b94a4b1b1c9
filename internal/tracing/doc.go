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

/*
Package tracing provides request correlation and OpenTelemetry wiring for
outbound Okapi calls.

# Request IDs

Okapi propagates a request id in X-Okapi-Request-Id. RequestIDMiddleware
guarantees one on every inbound request and stores it in the context;
outbound calls made with that context carry it forward:

	handler = tracing.RequestIDMiddleware(handler)

	id := tracing.FromContext(r.Context())

# Provider

NewOTelProviderWithConfig installs a global tracer provider with the
configured sampler and exporters, and a meter provider read by Prometheus:

	provider, err := tracing.NewOTelProviderWithConfig(ctx, cfg)
	if err != nil {
	    return err
	}
	defer provider.Shutdown(context.Background())

	mux.Handle("/metrics", provider.MetricsHandler())

	exec := rest.NewExecutor(
	    rest.WithTracerProvider(provider.TracerProvider()),
	    rest.WithRecorder(provider.MetricsCollector()),
	)

# Local storage

Finished spans can be kept in SQLite for later inspection. Pass a
StorageExporter to the provider and run a RetentionManager to prune:

	store, err := storage.New(storage.Config{Path: cfg.Storage.Path})
	provider, err := tracing.NewOTelProviderWithConfig(ctx, cfg,
	    sdktrace.WithBatcher(tracing.NewStorageExporter(store, logger)))

	retention := tracing.NewRetentionManager(store, cfg.Storage.Retention, cfg.Storage.CleanupInterval, logger)
	retention.Start()
	defer retention.Stop()
*/
package tracing
