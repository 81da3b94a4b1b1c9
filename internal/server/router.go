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

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/dataimport/internal/configuration"
	internallog "github.com/tombee/dataimport/internal/log"
	"github.com/tombee/dataimport/internal/tracing"
	"github.com/tombee/dataimport/internal/tracing/storage"
	"github.com/tombee/dataimport/pkg/marc"
	"github.com/tombee/dataimport/pkg/okapi"
	"github.com/tombee/dataimport/pkg/rest"
)

// SpanLister reads stored spans.
type SpanLister interface {
	ListSpans(ctx context.Context, filter storage.SpanFilter) ([]*storage.Span, error)
}

// Deps wires the router. Executor is required; every other field is
// optional and its routes are left out when nil.
type Deps struct {
	Executor       *rest.Executor
	Configuration  *configuration.Client
	Analyzer       marc.RecordAnalyzer
	Spans          SpanLister
	Metrics        *tracing.MetricsCollector
	MetricsHandler http.Handler
	TracerProvider trace.TracerProvider
	Logger         *slog.Logger

	// Limiter, when set, rate limits every route except health per tenant.
	Limiter *TenantLimiter

	// TimeoutMillis is applied to connection params derived from every
	// inbound request. Zero keeps the package default.
	TimeoutMillis int
}

// Router serves the HTTP API.
type Router struct {
	deps       Deps
	logger     *slog.Logger
	classifier *rest.Classifier
	started    time.Time
	mux        *http.ServeMux
}

// NewRouter builds the handler chain. From the outside in: metrics, server
// spans, access log, request id, connection params, rate limit, routes.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		deps:       deps,
		logger:     internallog.WithComponent(logger, "router"),
		classifier: rest.NewClassifier(logger),
		started:    time.Now(),
		mux:        http.NewServeMux(),
	}
	r.routes()

	var h http.Handler = r.mux
	if deps.Limiter != nil {
		h = exceptHealth(deps.Limiter.Middleware(h), h)
	}
	h = okapi.Middleware(okapi.WithTimeout(deps.TimeoutMillis))(h)
	h = tracing.RequestIDMiddleware(h)
	h = internallog.HTTPMiddleware(logger)(h)
	h = tracing.ServerMiddleware("dataimport", deps.TracerProvider)(h)
	if deps.Metrics != nil {
		h = deps.Metrics.Middleware(h)
	}
	return h
}

func (r *Router) routes() {
	r.mux.HandleFunc("GET /healthz", r.handleHealth)
	r.mux.HandleFunc("/okapi/{path...}", r.handleProxy(false))
	r.mux.HandleFunc("/system/okapi/{path...}", r.handleProxy(true))

	if r.deps.MetricsHandler != nil {
		r.mux.Handle("GET /metrics", r.deps.MetricsHandler)
	}
	if r.deps.Analyzer != nil {
		r.mux.HandleFunc("POST /marc/record-type", r.handleRecordType)
	}
	if r.deps.Configuration != nil {
		r.mux.HandleFunc("GET /configurations/{code}", r.handleConfigValue)
	}
	if r.deps.Spans != nil {
		r.mux.HandleFunc("GET /traces", r.handleListSpans)
	}
}

func exceptHealth(limited, open http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			open.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}
