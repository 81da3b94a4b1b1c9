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

package rest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/dataimport/internal/log"
	dierrors "github.com/tombee/dataimport/pkg/errors"
	"github.com/tombee/dataimport/pkg/future"
	"github.com/tombee/dataimport/pkg/httpclient"
	"github.com/tombee/dataimport/pkg/okapi"
)

const tracerName = "github.com/tombee/dataimport/pkg/rest"

// Headers the executor always sets, overwriting caller values.
const (
	contentTypeJSON = "application/json"
	acceptJSONText  = "application/json, text/plain"
)

// RequestRecorder receives one observation per completed exchange.
// Status is 0 for transport failures.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, method, tenant string, status int, duration time.Duration)
}

// Executor issues outbound calls. It holds no per-call state and is safe
// for concurrent use.
type Executor struct {
	policy         okapi.CredentialPolicy
	logger         *slog.Logger
	userAgent      string
	instrument     bool
	tracerProvider trace.TracerProvider
	recorder       RequestRecorder
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPolicy sets the policy consulted by DoWithSystemUser.
func WithPolicy(p okapi.CredentialPolicy) ExecutorOption {
	return func(e *Executor) { e.policy = p }
}

// WithLogger sets the logger for the executor and its clients.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ExecutorOption {
	return func(e *Executor) { e.userAgent = ua }
}

// WithTracerProvider sets the provider for executor and client spans.
func WithTracerProvider(tp trace.TracerProvider) ExecutorOption {
	return func(e *Executor) { e.tracerProvider = tp }
}

// WithoutInstrumentation disables client spans on the per-call transport.
func WithoutInstrumentation() ExecutorOption {
	return func(e *Executor) { e.instrument = false }
}

// WithRecorder sets the recorder for per-request metrics.
func WithRecorder(r RequestRecorder) ExecutorOption {
	return func(e *Executor) { e.recorder = r }
}

// NewExecutor returns an Executor. Without WithPolicy, system-user mode
// is off.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		policy:     okapi.StaticPolicy(false),
		logger:     slog.Default(),
		userAgent:  httpclient.DefaultConfig().UserAgent,
		instrument: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do executes a call carrying the params' headers unchanged.
func (e *Executor) Do(ctx context.Context, params okapi.ConnectionParams, path, method string, payload Body) *future.Future[*WrappedResponse] {
	return e.Execute(ctx, params, path, method, payload, false)
}

// DoWithSystemUser executes a call without the token header when the
// policy reports system-user mode. The policy is consulted per call.
func (e *Executor) DoWithSystemUser(ctx context.Context, params okapi.ConnectionParams, path, method string, payload Body) *future.Future[*WrappedResponse] {
	strip := e.policy != nil && e.policy.SystemUserEnabled()
	if strip {
		e.logger.Log(ctx, log.LevelTrace, "request without token header for system user",
			"header", okapi.HeaderToken,
			"path", path,
			"method", method,
			"tenant", params.Tenant(),
		)
	}
	return e.Execute(ctx, params, path, method, payload, strip)
}

// Execute sends one request and returns immediately. The future fails
// with *errors.TransportError when no response was received, and
// otherwise completes with the response whatever its status.
//
// The URL is params.URL() + path with no normalization. Headers are a
// copy of params' headers, minus the token when stripCredential is set,
// with Content-Type and Accept overwritten. Only PUT and POST send a body.
func (e *Executor) Execute(ctx context.Context, params okapi.ConnectionParams, path, method string, payload Body, stripCredential bool) *future.Future[*WrappedResponse] {
	return future.Go(ctx, func(ctx context.Context) (*WrappedResponse, error) {
		return e.exchange(ctx, params, path, method, payload, stripCredential)
	})
}

// OutgoingHeaders returns the header set Execute would send. params is
// not modified.
func OutgoingHeaders(params okapi.ConnectionParams, stripCredential bool) *okapi.Headers {
	headers := params.Headers()
	if stripCredential {
		headers.Del(okapi.HeaderToken)
	}
	headers.Set("Content-Type", contentTypeJSON)
	headers.Set("Accept", acceptJSONText)
	return headers
}

func hasBody(method string) bool {
	return method == http.MethodPut || method == http.MethodPost
}

func (e *Executor) tracer() trace.Tracer {
	if e.tracerProvider != nil {
		return e.tracerProvider.Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}

func (e *Executor) exchange(ctx context.Context, params okapi.ConnectionParams, path, method string, payload Body, strip bool) (resp *WrappedResponse, err error) {
	rawURL := params.URL() + path
	logURL := httpclient.SanitizeURL(rawURL)
	start := time.Now()

	ctx, span := e.tracer().Start(ctx, "okapi "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("okapi.tenant", params.Tenant()),
			attribute.String("http.request.method", method),
			attribute.String("okapi.path", path),
			attribute.Bool("okapi.system_user", strip),
		),
	)
	defer func() {
		status := 0
		if resp != nil {
			status = resp.Code()
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if e.recorder != nil {
			e.recorder.RecordRequest(ctx, method, params.Tenant(), status, time.Since(start))
		}
	}()

	fail := func(cause error) error {
		if isTimeout(cause) {
			cause = &dierrors.TimeoutError{
				Operation: method + " " + logURL,
				Duration:  params.Timeout(),
				Cause:     cause,
			}
		}
		return &dierrors.TransportError{Method: method, URL: logURL, Cause: cause}
	}

	data, err := encodeBody(method, payload)
	if err != nil {
		return nil, fail(err)
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fail(err)
	}

	logger := log.WithRequest(e.logger, method, logURL)
	headers := OutgoingHeaders(params, strip)
	req.Header = headers.HTTP()
	logger.DebugContext(ctx, "doRequest headers",
		"headers", httpclient.RedactHeaders(req.Header),
		"tenant", params.Tenant(),
	)

	cfg := httpclient.DefaultConfig()
	if params.Timeout() > 0 {
		cfg.Timeout = params.Timeout()
	}
	cfg.UserAgent = e.userAgent
	cfg.Logger = e.logger
	cfg.Instrument = e.instrument
	cfg.TracerProvider = e.tracerProvider
	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, fail(err)
	}
	defer client.CloseIdleConnections()

	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fail(err)
	}

	log.Trace(logger, "response received",
		log.Int(log.StatusKey, httpResp.StatusCode),
		log.Duration("elapsed", time.Since(start).Milliseconds()),
		log.String("body", string(raw)),
	)
	return NewWrappedResponse(httpResp.StatusCode, string(raw), httpResp), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
