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

package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	dierrors "github.com/tombee/dataimport/pkg/errors"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "transport with url",
			err:     &dierrors.TransportError{Method: "GET", URL: "http://okapi:9130/x", Cause: errors.New("connection refused")},
			wantMsg: "transport failure on GET http://okapi:9130/x: connection refused",
		},
		{
			name:    "transport without url",
			err:     &dierrors.TransportError{Cause: errors.New("unsupported protocol scheme")},
			wantMsg: "transport failure: unsupported protocol scheme",
		},
		{
			name:    "not found with id",
			err:     &dierrors.NotFoundError{Resource: "configuration", ID: "MARC_FIELD_PROTECTION"},
			wantMsg: "configuration not found: MARC_FIELD_PROTECTION",
		},
		{
			name:    "not found path",
			err:     &dierrors.NotFoundError{Resource: "/instance-storage/instances/1"},
			wantMsg: "/instance-storage/instances/1 not found",
		},
		{
			name:    "bad request with body",
			err:     &dierrors.BadRequestError{StatusCode: 422, Body: "invalid"},
			wantMsg: "bad request [HTTP 422]: invalid",
		},
		{
			name:    "bad request without response",
			err:     &dierrors.BadRequestError{},
			wantMsg: "bad request: no response received",
		},
		{
			name:    "internal server error",
			err:     &dierrors.InternalServerError{StatusCode: 500, Body: "boom"},
			wantMsg: "internal server error [HTTP 500]: boom",
		},
		{
			name:    "conflict",
			err:     &dierrors.ConflictError{Resource: "job", Message: "already running"},
			wantMsg: "conflict on job: already running",
		},
		{
			name:    "validation with field",
			err:     &dierrors.ValidationError{Field: "okapi.timeout", Message: "must not be negative"},
			wantMsg: "validation failed on okapi.timeout: must not be negative",
		},
		{
			name:    "config with key",
			err:     &dierrors.ConfigError{Key: "okapi.url", Reason: "empty"},
			wantMsg: "config error at okapi.url: empty",
		},
		{
			name:    "timeout",
			err:     &dierrors.TimeoutError{Operation: "GET /x", Duration: 30 * time.Second},
			wantMsg: "GET /x operation timed out after 30s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		err       dierrors.ErrorClassifier
		wantType  string
		retryable bool
	}{
		{&dierrors.NotFoundError{}, "not_found", false},
		{&dierrors.BadRequestError{StatusCode: 400}, "bad_request", false},
		{&dierrors.InternalServerError{StatusCode: 500}, "internal_server_error", true},
		{&dierrors.ConflictError{}, "conflict", false},
		{&dierrors.ValidationError{}, "validation", false},
		{&dierrors.ConfigError{}, "config", false},
		{&dierrors.TimeoutError{}, "timeout", true},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			if got := tt.err.ErrorType(); got != tt.wantType {
				t.Errorf("ErrorType() = %q, want %q", got, tt.wantType)
			}
			if got := tt.err.IsRetryable(); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestTransportError_IsRetryable(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  bool
	}{
		{"nil cause", nil, false},
		{"canceled", context.Canceled, false},
		{"plain error", errors.New("json: unsupported type"), false},
		{"timeout", &dierrors.TimeoutError{Operation: "GET /"}, true},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &dierrors.TransportError{Cause: tt.cause}
			if got := err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	root := errors.New("dial tcp: connection refused")
	transport := &dierrors.TransportError{Method: "PUT", URL: "http://h:1234/x", Cause: root}
	wrapped := dierrors.Wrapf(transport, "updating %s", "record")

	if !errors.Is(wrapped, root) {
		t.Error("wrapped error should match root cause")
	}

	var got *dierrors.TransportError
	if !errors.As(wrapped, &got) {
		t.Fatal("errors.As should find TransportError")
	}
	if got.Method != "PUT" {
		t.Errorf("Method = %q, want PUT", got.Method)
	}

	var viaHelper *dierrors.TransportError
	if !dierrors.As(wrapped, &viaHelper) || viaHelper != transport {
		t.Error("As should find the same TransportError")
	}
	var notFound *dierrors.NotFoundError
	if dierrors.As(wrapped, &notFound) {
		t.Error("As should not match NotFoundError")
	}

	if dierrors.Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if dierrors.Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestTypeOf(t *testing.T) {
	err := fmt.Errorf("lookup: %w", &dierrors.NotFoundError{Resource: "x"})
	if got := dierrors.TypeOf(err); got != "not_found" {
		t.Errorf("TypeOf() = %q, want not_found", got)
	}
	if got := dierrors.TypeOf(errors.New("plain")); got != "unknown" {
		t.Errorf("TypeOf() = %q, want unknown", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"bad request", &dierrors.BadRequestError{StatusCode: 422}, http.StatusBadRequest},
		{"validation", &dierrors.ValidationError{Message: "x"}, http.StatusBadRequest},
		{"not found", &dierrors.NotFoundError{Resource: "x"}, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get: %w", &dierrors.NotFoundError{}), http.StatusNotFound},
		{"conflict", &dierrors.ConflictError{Message: "x"}, http.StatusConflict},
		{"internal", &dierrors.InternalServerError{StatusCode: 500}, http.StatusInternalServerError},
		{"transport", &dierrors.TransportError{Cause: errors.New("x")}, http.StatusInternalServerError},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dierrors.HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
