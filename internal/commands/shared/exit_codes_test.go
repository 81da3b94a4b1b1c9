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
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tombee/dataimport/internal/configuration"
	dierrors "github.com/tombee/dataimport/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitExecutionFailed},
		{"invalid input", NewInvalidInputError("bad", nil), ExitInvalidInput},
		{"config", NewConfigError("bad", nil), ExitConfigError},
		{"remote", NewRemoteError("bad", nil), ExitRemoteFailure},
		{"wrapped", fmt.Errorf("outer: %w", NewRemoteError("bad", nil)), ExitRemoteFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "request failed", NewRemoteError("request failed", nil).Error())

	err := NewRemoteError("request failed", &dierrors.NotFoundError{Resource: "/x"})
	assert.Equal(t, "request failed: /x not found", err.Error())

	var nf *dierrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, NewInvalidInputError("bad payload", &dierrors.ValidationError{
		Field:      "data",
		Message:    "not JSON",
		Suggestion: "quote the payload",
	}))

	out := buf.String()
	assert.Contains(t, out, "Error: bad payload: validation failed on data: not JSON")
	assert.Contains(t, out, "Suggestion: quote the payload")

	buf.Reset()
	PrintError(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestErrorCode(t *testing.T) {
	timeout := &dierrors.TransportError{
		Method: "GET",
		URL:    "http://okapi/x",
		Cause:  &dierrors.TimeoutError{Operation: "GET", Duration: time.Second},
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", &dierrors.ValidationError{Message: "x"}, ErrorCodeInvalidInput},
		{"config", &dierrors.ConfigError{Reason: "x"}, ErrorCodeInvalidConfig},
		{"not found", &dierrors.NotFoundError{Resource: "x"}, ErrorCodeNotFound},
		{"internal", &dierrors.InternalServerError{StatusCode: 500}, ErrorCodeInternal},
		{"bad request", &dierrors.BadRequestError{StatusCode: 422}, ErrorCodeBadRequest},
		{"transport", &dierrors.TransportError{Method: "GET", Cause: errors.New("refused")}, ErrorCodeTransport},
		{"timeout", timeout, ErrorCodeTimeout},
		{"wrapped remote", NewRemoteError("failed", &dierrors.NotFoundError{Resource: "x"}), ErrorCodeNotFound},
		{"exit input", NewInvalidInputError("bad", nil), ErrorCodeInvalidInput},
		{"no config values", NewRemoteError("lookup", configuration.ErrNoConfigValues), ErrorCodeNoConfigValues},
		{"unknown", errors.New("boom"), ErrorCodeExecutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}
