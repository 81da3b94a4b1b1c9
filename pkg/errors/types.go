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

package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// TransportError represents an outbound exchange that never produced a response.
// Use this for DNS failures, refused connections, malformed addresses, body
// serialization failures and timeouts.
type TransportError struct {
	// Method is the HTTP method of the attempted call
	Method string

	// URL is the sanitized target address
	URL string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("transport failure: %v", e.Cause)
	}
	return fmt.Sprintf("transport failure on %s %s: %v", e.Method, e.URL, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *TransportError) ErrorType() string { return "transport" }

// IsRetryable reports whether the cause looks transient. The request
// pipeline never retries on its own; this is advice for callers.
func (e *TransportError) IsRetryable() bool {
	if e.Cause == nil {
		return false
	}
	if errors.Is(e.Cause, context.Canceled) {
		return false
	}
	var timeout *TimeoutError
	if errors.As(e.Cause, &timeout) {
		return true
	}
	var opErr *net.OpError
	if errors.As(e.Cause, &opErr) {
		return opErr.Op == "dial" || opErr.Timeout()
	}
	var netErr net.Error
	if errors.As(e.Cause, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// NotFoundError represents a 404 response or an absent resource.
type NotFoundError struct {
	// Resource is the type or path of the resource (e.g., "/instance-storage/instances/1")
	Resource string

	// ID is the identifier that was not found
	ID string

	// Body is the response body, if the error came from a response
	Body string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return "not_found" }

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool { return false }

// BadRequestError is the catch-all for responses that are neither success,
// partial success, 404 nor 500. A StatusCode of zero means the executor
// reported success without a response.
type BadRequestError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *BadRequestError) Error() string {
	if e.StatusCode == 0 {
		return "bad request: no response received"
	}
	if e.Body == "" {
		return fmt.Sprintf("bad request [HTTP %d]", e.StatusCode)
	}
	return fmt.Sprintf("bad request [HTTP %d]: %s", e.StatusCode, e.Body)
}

// ErrorType implements ErrorClassifier.
func (e *BadRequestError) ErrorType() string { return "bad_request" }

// IsRetryable implements ErrorClassifier.
func (e *BadRequestError) IsRetryable() bool { return false }

// InternalServerError represents a 500 response whose body is not JSON.
type InternalServerError struct {
	StatusCode  int
	ContentType string
	Body        string
}

// Error implements the error interface.
func (e *InternalServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("internal server error [HTTP %d]", e.StatusCode)
	}
	return fmt.Sprintf("internal server error [HTTP %d]: %s", e.StatusCode, e.Body)
}

// ErrorType implements ErrorClassifier.
func (e *InternalServerError) ErrorType() string { return "internal_server_error" }

// IsRetryable implements ErrorClassifier.
func (e *InternalServerError) IsRetryable() bool { return true }

// ConflictError represents a write that collides with existing state.
type ConflictError struct {
	// Resource is the type of resource in conflict
	Resource string

	// Message is the human-readable error description
	Message string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("conflict: %s", e.Message)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ConflictError) ErrorType() string { return "conflict" }

// IsRetryable implements ErrorClassifier.
func (e *ConflictError) IsRetryable() bool { return false }

// ValidationError represents user input validation failures.
// Use this for invalid user input, malformed data, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// ConfigError represents configuration problems.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "okapi.url", "system_user.enabled")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// TimeoutError represents an exchange that exceeded its deadline.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "GET http://okapi:9130/users")
	Operation string

	// Duration is the configured limit
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *TimeoutError) ErrorType() string { return "timeout" }

// IsRetryable implements ErrorClassifier.
func (e *TimeoutError) IsRetryable() bool { return true }
