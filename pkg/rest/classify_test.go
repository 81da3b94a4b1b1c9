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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dierrors "github.com/tombee/dataimport/pkg/errors"
)

func response(code int, contentType, body string) *WrappedResponse {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return NewWrappedResponse(code, body, &http.Response{StatusCode: code, Header: h})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		resp        *WrappedResponse
		err         error
		wantOutcome Outcome
		wantKind    FailureKind
	}{
		{"transport failure", nil, errors.New("connection refused"), OutcomeFailure, KindTransport},
		{"transport failure wins over response", response(200, "", ""), errors.New("x"), OutcomeFailure, KindTransport},
		{"no response", nil, nil, OutcomeFailure, KindBadRequest},
		{"404", response(404, "text/plain", "missing"), nil, OutcomeFailure, KindNotFound},
		{"404 with JSON", response(404, "application/json", "{}"), nil, OutcomeFailure, KindNotFound},
		{"500 text", response(500, "text/plain", "boom"), nil, OutcomeFailure, KindInternalServerError},
		{"500 no content type", response(500, "", `{"errors":[]}`), nil, OutcomeFailure, KindInternalServerError},
		{"500 JSON", response(500, "application/json", `{"errors":[]}`), nil, OutcomePartialSuccess, KindNone},
		{"500 JSON with charset", response(500, "application/json; charset=utf-8", `{}`), nil, OutcomePartialSuccess, KindNone},
		{"500 JSON non-JSON body", response(500, "application/json", "not json"), nil, OutcomePartialSuccess, KindNone},
		{"200 empty", response(200, "", ""), nil, OutcomeSuccess, KindNone},
		{"200 non-JSON body", response(200, "text/plain", "plain"), nil, OutcomeSuccess, KindNone},
		{"201", response(201, "application/json", `{"id":"1"}`), nil, OutcomeSuccess, KindNone},
		{"204", response(204, "", ""), nil, OutcomeSuccess, KindNone},
		{"202 is not success", response(202, "", ""), nil, OutcomeFailure, KindBadRequest},
		{"400", response(400, "text/plain", "bad"), nil, OutcomeFailure, KindBadRequest},
		{"422", response(422, "application/json", `{"errors":[]}`), nil, OutcomeFailure, KindBadRequest},
		{"502", response(502, "text/html", ""), nil, OutcomeFailure, KindBadRequest},
		{"302", response(302, "", ""), nil, OutcomeFailure, KindBadRequest},
	}

	c := NewClassifier(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.resp, tt.err)
			assert.Equal(t, tt.wantOutcome, got.Outcome)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantOutcome != OutcomeFailure, got.OK())
			if tt.wantOutcome == OutcomeFailure {
				assert.Error(t, got.Err)
			} else {
				assert.NoError(t, got.Err)
			}

			again := c.Classify(tt.resp, tt.err)
			assert.Equal(t, got.Outcome, again.Outcome, "classification must be repeatable")
			assert.Equal(t, got.Kind, again.Kind, "classification must be repeatable")
		})
	}
}

func TestClassify_TypedErrors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	r := Classify(nil, cause)
	var transport *dierrors.TransportError
	require.ErrorAs(t, r.Err, &transport)
	assert.ErrorIs(t, r.Err, cause, "original cause must be attached")

	pre := &dierrors.TransportError{Method: "GET", URL: "http://h/x", Cause: cause}
	r = Classify(nil, pre)
	assert.Same(t, pre, r.Err, "transport errors are passed through")

	r = Classify(response(404, "", "nope"), nil)
	var notFound *dierrors.NotFoundError
	require.ErrorAs(t, r.Err, &notFound)
	assert.Equal(t, "nope", notFound.Body)

	r = Classify(response(500, "text/plain", "boom"), nil)
	var ise *dierrors.InternalServerError
	require.ErrorAs(t, r.Err, &ise)
	assert.Equal(t, 500, ise.StatusCode)
	assert.Equal(t, "boom", ise.Body)

	r = Classify(response(422, "", "invalid"), nil)
	var bad *dierrors.BadRequestError
	require.ErrorAs(t, r.Err, &bad)
	assert.Equal(t, 422, bad.StatusCode)

	r = Classify(nil, nil)
	require.ErrorAs(t, r.Err, &bad)
	assert.Zero(t, bad.StatusCode)
}

func TestClassify_Logging(t *testing.T) {
	tests := []struct {
		name       string
		resp       *WrappedResponse
		err        error
		wantLevel  string
		wantStatus float64
	}{
		{"not found", response(404, "", ""), nil, "ERROR", 404},
		{"internal", response(500, "text/plain", ""), nil, "ERROR", 500},
		{"bad request", response(422, "", ""), nil, "ERROR", 422},
		{"partial", response(500, "application/json", "{}"), nil, "WARN", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewClassifier(slog.New(slog.NewJSONHandler(&buf, nil)))
			c.Classify(tt.resp, tt.err)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantStatus, entry["status"])
		})
	}

	t.Run("success is not logged", func(t *testing.T) {
		var buf bytes.Buffer
		c := NewClassifier(slog.New(slog.NewJSONHandler(&buf, nil)))
		c.Classify(response(200, "", ""), nil)
		assert.Zero(t, buf.Len())
	})

	t.Run("transport failure carries the cause", func(t *testing.T) {
		var buf bytes.Buffer
		c := NewClassifier(slog.New(slog.NewJSONHandler(&buf, nil)))
		c.Classify(nil, errors.New("no such host"))
		assert.True(t, strings.Contains(buf.String(), "no such host"), buf.String())
	})
}

func TestClassify_Metrics(t *testing.T) {
	counter := classifications.WithLabelValues("partial_success", "none")
	before := testutil.ToFloat64(counter)

	NewClassifier(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).
		Classify(response(500, "application/json", "{}"), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestIsPartialSuccess(t *testing.T) {
	assert.True(t, IsPartialSuccess(response(500, "application/json", `{"errors":[]}`)))
	assert.True(t, IsPartialSuccess(response(500, "Application/JSON", "")))
	assert.False(t, IsPartialSuccess(response(500, "text/plain", "")))
	assert.False(t, IsPartialSuccess(response(500, "", "{}")))
	assert.False(t, IsPartialSuccess(response(200, "application/json", "{}")))
	assert.False(t, IsPartialSuccess(response(422, "application/json", "{}")))
	assert.False(t, IsPartialSuccess(nil))
}

func TestValidate(t *testing.T) {
	var got error
	onFailure := func(err error) { got = err }

	assert.True(t, Validate(response(200, "", ""), nil, onFailure))
	assert.Nil(t, got)

	assert.True(t, Validate(response(500, "application/json", "{}"), nil, onFailure))
	assert.Nil(t, got)

	assert.False(t, Validate(response(404, "", ""), nil, onFailure))
	var notFound *dierrors.NotFoundError
	assert.ErrorAs(t, got, &notFound)

	assert.False(t, Validate(nil, errors.New("x"), nil), "nil callback is allowed")
}

func TestOutcomeAndKindStrings(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "partial_success", OutcomePartialSuccess.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "unknown", Outcome(0).String())
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "internal_server_error", KindInternalServerError.String())
}
