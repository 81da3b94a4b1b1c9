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
	"errors"
	"log/slog"
	"net/http"

	dierrors "github.com/tombee/dataimport/pkg/errors"
)

// Outcome is the top-level classification of an exchange.
type Outcome int

const (
	// OutcomeSuccess is a 200, 201 or 204 response.
	OutcomeSuccess Outcome = iota + 1
	// OutcomePartialSuccess is a 500 response with a JSON content type.
	// The body is expected to list per-item results.
	OutcomePartialSuccess
	// OutcomeFailure is everything else; see FailureKind.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialSuccess:
		return "partial_success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// FailureKind distinguishes failures so callers can branch on them.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindTransport
	KindBadRequest
	KindNotFound
	KindInternalServerError
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindInternalServerError:
		return "internal_server_error"
	default:
		return "unknown"
	}
}

// Result is the classification of one exchange. Err is set only for
// failures and is one of *errors.TransportError, *errors.BadRequestError,
// *errors.NotFoundError or *errors.InternalServerError.
type Result struct {
	Outcome  Outcome
	Kind     FailureKind
	Response *WrappedResponse
	Err      error
}

// OK reports whether the exchange succeeded, fully or partially.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomePartialSuccess
}

// IsPartialSuccess reports whether resp is a 500 carrying a JSON content
// type. It is the same test Classify applies.
func IsPartialSuccess(resp *WrappedResponse) bool {
	return resp != nil &&
		resp.Code() == http.StatusInternalServerError &&
		IsJSONContentType(resp.ContentType())
}

// Classifier turns exchange outcomes into Results. Failures are logged
// at error level and partial successes at warn level; logging never
// changes the classification.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier returns a Classifier logging to logger, or to
// slog.Default() when logger is nil.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

func (c *Classifier) log() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Classify applies the rules in order, first match wins:
//
//  1. err != nil: transport failure carrying err
//  2. no response: bad request
//  3. 404: not found
//  4. 500 without a JSON content type: internal server error
//  5. 500 with a JSON content type: partial success
//  6. 200, 201, 204: success
//  7. anything else: bad request
//
// The result depends only on err, status and content type, so classifying
// the same input twice yields the same result.
func (c *Classifier) Classify(resp *WrappedResponse, err error) Result {
	r := classify(resp, err)
	recordClassification(r)

	logger := c.log()
	switch r.Outcome {
	case OutcomeFailure:
		if r.Kind == KindTransport {
			logger.Error("error during HTTP request", "outcome", r.Kind.String(), "error", err)
			break
		}
		if resp == nil {
			logger.Error("error during get response", "outcome", r.Kind.String())
			break
		}
		logger.Error("response status is not 200, 201 or 204",
			"status", resp.Code(),
			"outcome", r.Kind.String(),
		)
	case OutcomePartialSuccess:
		logger.Warn("partial success response",
			"status", resp.Code(),
			"outcome", r.Outcome.String(),
		)
	}

	return r
}

func classify(resp *WrappedResponse, err error) Result {
	if err != nil {
		var transport *dierrors.TransportError
		if !errors.As(err, &transport) {
			err = &dierrors.TransportError{Cause: err}
		}
		return Result{Outcome: OutcomeFailure, Kind: KindTransport, Err: err}
	}

	if resp == nil {
		return Result{
			Outcome: OutcomeFailure,
			Kind:    KindBadRequest,
			Err:     &dierrors.BadRequestError{},
		}
	}

	code := resp.Code()
	switch {
	case code == http.StatusNotFound:
		return Result{
			Outcome:  OutcomeFailure,
			Kind:     KindNotFound,
			Response: resp,
			Err:      &dierrors.NotFoundError{Resource: resourceOf(resp), Body: resp.Body()},
		}
	case code == http.StatusInternalServerError && !IsJSONContentType(resp.ContentType()):
		return Result{
			Outcome:  OutcomeFailure,
			Kind:     KindInternalServerError,
			Response: resp,
			Err: &dierrors.InternalServerError{
				StatusCode:  code,
				ContentType: resp.ContentType(),
				Body:        resp.Body(),
			},
		}
	case IsPartialSuccess(resp):
		return Result{Outcome: OutcomePartialSuccess, Response: resp}
	case code == http.StatusOK, code == http.StatusCreated, code == http.StatusNoContent:
		return Result{Outcome: OutcomeSuccess, Response: resp}
	default:
		return Result{
			Outcome:  OutcomeFailure,
			Kind:     KindBadRequest,
			Response: resp,
			Err:      &dierrors.BadRequestError{StatusCode: code, Body: resp.Body()},
		}
	}
}

func resourceOf(resp *WrappedResponse) string {
	if r := resp.Response(); r != nil && r.Request != nil && r.Request.URL != nil {
		return r.Request.URL.Path
	}
	return "resource"
}

var defaultClassifier = &Classifier{}

// Classify classifies with a Classifier logging to slog.Default().
func Classify(resp *WrappedResponse, err error) Result {
	return defaultClassifier.Classify(resp, err)
}

// Validate classifies an exchange and reports whether it succeeded,
// fully or partially. On failure the typed error is handed to onFailure
// when it is non-nil.
func Validate(resp *WrappedResponse, err error, onFailure func(error)) bool {
	r := Classify(resp, err)
	if !r.OK() && onFailure != nil {
		onFailure(r.Err)
	}
	return r.OK()
}
