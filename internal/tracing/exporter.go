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

package tracing

import (
	"context"
	"fmt"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tombee/dataimport/internal/tracing/export"
	"github.com/tombee/dataimport/internal/tracing/storage"
)

// SpanStore is the subset of the SQLite store the exporter writes to.
type SpanStore interface {
	StoreSpan(ctx context.Context, span *storage.Span) error
}

// StorageExporter writes finished spans to local storage.
type StorageExporter struct {
	store  SpanStore
	logger *slog.Logger
}

// NewStorageExporter creates a new storage exporter.
func NewStorageExporter(store SpanStore, logger *slog.Logger) *StorageExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageExporter{store: store, logger: logger}
}

// ExportSpans exports a batch of spans to storage. A span that fails to
// store is logged and skipped.
func (e *StorageExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		if err := e.store.StoreSpan(ctx, convertSpan(s)); err != nil {
			e.logger.Warn("failed to store span",
				"trace_id", s.SpanContext().TraceID().String(),
				"name", s.Name(),
				"error", err,
			)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter. Nothing is buffered.
func (e *StorageExporter) Shutdown(ctx context.Context) error {
	return nil
}

func convertSpan(s sdktrace.ReadOnlySpan) *storage.Span {
	span := &storage.Span{
		TraceID:       s.SpanContext().TraceID().String(),
		SpanID:        s.SpanContext().SpanID().String(),
		Name:          s.Name(),
		Kind:          s.SpanKind().String(),
		StartTime:     s.StartTime(),
		EndTime:       s.EndTime(),
		StatusCode:    int(s.Status().Code),
		StatusMessage: s.Status().Description,
		Attributes:    make(map[string]any, len(s.Attributes())),
	}
	if s.Parent().IsValid() {
		span.ParentID = s.Parent().SpanID().String()
	}
	for _, attr := range s.Attributes() {
		span.Attributes[string(attr.Key)] = attr.Value.AsInterface()
		if attr.Key == "okapi.tenant" {
			span.Tenant = attr.Value.AsString()
		}
	}
	return span
}

var _ sdktrace.SpanExporter = (*StorageExporter)(nil)

// CreateExporter creates a span exporter from configuration. It returns
// nil, nil for the "none" type.
func CreateExporter(ctx context.Context, cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Type {
	case "console":
		return export.NewConsoleExporter(export.ConsoleConfig{PrettyPrint: true})

	case "otlp", "otlp_http", "otlp-http":
		tlsConfig, err := export.BuildTLSConfig(export.TLSOptions{
			Enabled:           cfg.TLS.Enabled,
			VerifyCertificate: cfg.TLS.VerifyCertificate,
			CACertPath:        cfg.TLS.CACertPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config for %s exporter: %w", cfg.Type, err)
		}

		protocol := export.ProtocolGRPC
		if cfg.Type != "otlp" {
			protocol = export.ProtocolHTTP
		}
		return export.NewOTLPExporter(ctx, export.OTLPConfig{
			Protocol:  protocol,
			Endpoint:  cfg.Endpoint,
			Insecure:  !cfg.TLS.Enabled,
			TLSConfig: tlsConfig,
			Headers:   cfg.Headers,
			Timeout:   cfg.Timeout,
		})

	case "none", "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.Type)
	}
}

// CreateExportersFromConfig creates batch span processors for all configured
// exporters. Exporter creation failures are logged and skipped.
func CreateExportersFromConfig(ctx context.Context, cfg Config) []sdktrace.SpanProcessor {
	var processors []sdktrace.SpanProcessor

	for i, exporterCfg := range cfg.Exporters {
		exporter, err := CreateExporter(ctx, exporterCfg)
		if err != nil {
			slog.Warn("failed to create exporter, skipping",
				"index", i,
				"type", exporterCfg.Type,
				"endpoint", exporterCfg.Endpoint,
				"error", err)
			continue
		}
		if exporter == nil {
			continue
		}

		processors = append(processors, sdktrace.NewBatchSpanProcessor(exporter, batchOptions(cfg)...))
		slog.Info("created exporter",
			"type", exporterCfg.Type,
			"endpoint", exporterCfg.Endpoint)
	}

	return processors
}

func batchOptions(cfg Config) []sdktrace.BatchSpanProcessorOption {
	var opts []sdktrace.BatchSpanProcessorOption
	if cfg.BatchSize > 0 {
		opts = append(opts, sdktrace.WithMaxExportBatchSize(cfg.BatchSize))
	}
	if cfg.BatchInterval > 0 {
		opts = append(opts, sdktrace.WithBatchTimeout(cfg.BatchInterval))
	}
	return opts
}
