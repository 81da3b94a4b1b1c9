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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/tombee/dataimport/internal/configuration"
	"github.com/tombee/dataimport/internal/httputil"
	internallog "github.com/tombee/dataimport/internal/log"
	"github.com/tombee/dataimport/internal/tracing"
	"github.com/tombee/dataimport/internal/tracing/storage"
	dierrors "github.com/tombee/dataimport/pkg/errors"
	"github.com/tombee/dataimport/pkg/okapi"
	"github.com/tombee/dataimport/pkg/rest"
)

// OutcomeHeader reports how a proxied exchange was classified.
const OutcomeHeader = "X-Dataimport-Outcome"

// maxBodyBytes caps inbound payloads.
const maxBodyBytes = 10 << 20

// hopHeaders are inbound headers that must not be forwarded upstream.
var hopHeaders = []string{
	"Connection", "Content-Length", "Accept-Encoding", "Host",
	"Keep-Alive", "Transfer-Encoding", "Upgrade", "Te", "Trailer",
}

// HealthResponse is the response format for /healthz.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	checks := map[string]string{
		"api":     "ok",
		"runtime": runtime.Version(),
	}
	if r.deps.Metrics != nil {
		checks["inflight"] = strconv.FormatInt(r.deps.Metrics.Inflight(), 10)
	}
	if r.deps.Spans != nil {
		checks["span_storage"] = "enabled"
	}

	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(r.started).Round(time.Second).String(),
		Checks:    checks,
	})
}

// handleProxy forwards the request to Okapi with the caller's routing
// headers. Upstream responses are relayed as received; transport failures
// become 502, or 504 on timeout.
func (r *Router) handleProxy(systemUser bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		params, ok := okapi.FromContext(req.Context())
		if !ok {
			params = okapi.FromHTTPHeader(req.Header)
		}
		params = params.WithHeaders(params.Headers().Without(hopHeaders...))

		path := "/" + req.PathValue("path")
		if req.URL.RawQuery != "" {
			path += "?" + req.URL.RawQuery
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			httputil.WriteError(w, r.logger, &dierrors.ValidationError{Field: "body", Message: "failed to read request body: " + err.Error()})
			return
		}
		var payload rest.Body
		if len(data) > 0 {
			if !json.Valid(data) {
				httputil.WriteError(w, r.logger, &dierrors.ValidationError{Field: "body", Message: "request body must be JSON"})
				return
			}
			payload = rest.RawJSON(data)
		}

		exec := r.deps.Executor.Do
		if systemUser {
			exec = r.deps.Executor.DoWithSystemUser
		}
		resp, err := exec(req.Context(), params, path, req.Method, payload).Await(req.Context())
		result := r.classifier.Classify(resp, err)
		w.Header().Set(OutcomeHeader, result.Outcome.String())

		if resp == nil {
			r.requestLogger(req, params).Warn("proxied request failed",
				internallog.MethodKey, req.Method, "path", path, internallog.Error(result.Err))
			status := http.StatusBadGateway
			var timeout *dierrors.TimeoutError
			if errors.As(result.Err, &timeout) {
				status = http.StatusGatewayTimeout
			}
			msg := "upstream request failed"
			if result.Err != nil {
				msg = result.Err.Error()
			}
			httputil.WriteText(w, status, msg)
			return
		}

		if ct := resp.ContentType(); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.Code())
		_, _ = io.WriteString(w, resp.Body())
	}
}

// requestLogger scopes the router logger to the request id, tenant and
// token user.
func (r *Router) requestLogger(req *http.Request, params okapi.ConnectionParams) *slog.Logger {
	logger := r.logger
	if id := tracing.FromContext(req.Context()); id != "" {
		logger = internallog.WithRequestID(logger, id.String())
	}
	if tenant := params.Tenant(); tenant != "" {
		logger = internallog.WithTenant(logger, tenant)
	}
	if user := params.Claims().UserID; user != "" {
		logger = logger.With("user_id", user)
	}
	return logger
}

// RecordTypeResponse is the response format for POST /marc/record-type.
type RecordTypeResponse struct {
	RecordType string `json:"record_type"`
}

func (r *Router) handleRecordType(w http.ResponseWriter, req *http.Request) {
	var record map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(&record); err != nil {
		httputil.WriteError(w, r.logger, &dierrors.ValidationError{
			Field:   "body",
			Message: "record must be a JSON object",
		})
		return
	}

	rt := r.deps.Analyzer.Process(record)
	httputil.WriteJSON(w, http.StatusOK, RecordTypeResponse{RecordType: rt.String()})
}

// ConfigValueResponse is the response format for GET /configurations/{code}.
type ConfigValueResponse struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

func (r *Router) handleConfigValue(w http.ResponseWriter, req *http.Request) {
	params, ok := okapi.FromContext(req.Context())
	if !ok {
		params = okapi.FromHTTPHeader(req.Header)
	}
	code := req.PathValue("code")

	value, err := r.deps.Configuration.PropertyByCode(req.Context(), params, code).Await(req.Context())
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, ConfigValueResponse{Code: code, Value: value})
	case errors.Is(err, configuration.ErrNoConfigValues):
		httputil.WriteError(w, r.logger, &dierrors.NotFoundError{Resource: "configuration", ID: code})
	default:
		r.requestLogger(req, params).Warn("configuration lookup failed", "code", code, internallog.Error(err))
		httputil.WriteText(w, http.StatusBadGateway, err.Error())
	}
}

// SpanView is the JSON form of a stored span.
type SpanView struct {
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Tenant     string         `json:"tenant,omitempty"`
	StartTime  time.Time      `json:"start_time"`
	DurationMS int64          `json:"duration_ms"`
	Status     string         `json:"status"`
	Message    string         `json:"status_message,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewSpanView converts a stored span.
func NewSpanView(s *storage.Span) SpanView {
	return SpanView{
		TraceID:    s.TraceID,
		SpanID:     s.SpanID,
		ParentID:   s.ParentID,
		Name:       s.Name,
		Kind:       s.Kind,
		Tenant:     s.Tenant,
		StartTime:  s.StartTime,
		DurationMS: s.Duration().Milliseconds(),
		Status:     StatusName(s.StatusCode),
		Message:    s.StatusMessage,
		Attributes: s.Attributes,
	}
}

// StatusName returns "ok", "error" or "unset".
func StatusName(code int) string {
	switch code {
	case storage.StatusOK:
		return "ok"
	case storage.StatusError:
		return "error"
	default:
		return "unset"
	}
}

// ParseSince accepts an RFC 3339 timestamp or a duration relative to now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid since %q: want RFC 3339 time or positive duration", s)
	}
	return now.Add(-d), nil
}

func (r *Router) handleListSpans(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	filter := storage.SpanFilter{
		Tenant:    query.Get("tenant"),
		ErrorOnly: query.Get("errors") == "true",
		Limit:     100,
	}

	since, err := ParseSince(query.Get("since"), time.Now())
	if err != nil {
		httputil.WriteError(w, r.logger, &dierrors.ValidationError{Field: "since", Message: err.Error()})
		return
	}
	filter.Since = since

	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			httputil.WriteError(w, r.logger, &dierrors.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		filter.Limit = n
	}

	spans, err := r.deps.Spans.ListSpans(req.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r.logger, fmt.Errorf("failed to list spans: %w", err))
		return
	}

	views := make([]SpanView, 0, len(spans))
	for _, s := range spans {
		views = append(views, NewSpanView(s))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"spans": views,
		"count": len(views),
	})
}
