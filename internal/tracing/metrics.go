package tracing

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsCollector records Prometheus-compatible metrics for outbound Okapi
// calls and the inbound requests that trigger them.
type MetricsCollector struct {
	meter metric.Meter

	// Counters
	requestsTotal     metric.Int64Counter
	transportFailures metric.Int64Counter

	// Histograms
	requestDuration metric.Float64Histogram

	// Gauges
	inflight atomic.Int64
}

// NewMetricsCollector creates a new metrics collector using the given meter provider
func NewMetricsCollector(meterProvider metric.MeterProvider) (*MetricsCollector, error) {
	meter := meterProvider.Meter("dataimport")

	mc := &MetricsCollector{meter: meter}

	var err error

	mc.requestsTotal, err = meter.Int64Counter(
		"dataimport_okapi_requests_total",
		metric.WithDescription("Total number of outbound Okapi requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	mc.transportFailures, err = meter.Int64Counter(
		"dataimport_okapi_transport_failures_total",
		metric.WithDescription("Outbound requests that never received a response"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	mc.requestDuration, err = meter.Float64Histogram(
		"dataimport_okapi_request_duration_seconds",
		metric.WithDescription("Outbound Okapi request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"dataimport_inbound_requests_active",
		metric.WithDescription("Number of inbound requests currently being handled"),
		metric.WithUnit("{request}"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			observer.Observe(mc.inflight.Load())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return mc, nil
}

// RecordRequest records one completed outbound exchange. A zero status
// means no response was received.
func (mc *MetricsCollector) RecordRequest(ctx context.Context, method, tenant string, status int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("tenant", tenant),
		attribute.String("status_class", statusClass(status)),
	}

	mc.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	mc.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if status == 0 {
		mc.transportFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("tenant", tenant),
		))
	}
}

// Inflight returns the number of inbound requests currently tracked.
func (mc *MetricsCollector) Inflight() int64 {
	return mc.inflight.Load()
}

// Middleware tracks inbound requests in the active-requests gauge.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.inflight.Add(1)
		defer mc.inflight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

func statusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
