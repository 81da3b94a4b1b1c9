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
	"errors"

	"github.com/tombee/dataimport/internal/configuration"
	dierrors "github.com/tombee/dataimport/pkg/errors"
)

// Error codes for structured JSON output
const (
	// Input errors (E001-E099)
	ErrorCodeInvalidInput = "E001" // Invalid argument or payload
	ErrorCodeFileNotFound = "E002" // Input file not found

	// Configuration errors (E200-E299)
	ErrorCodeInvalidConfig = "E201" // Config file unreadable or invalid

	// Remote errors (E400-E499)
	ErrorCodeNotFound       = "E401" // Okapi answered 404
	ErrorCodeInternal       = "E402" // Okapi answered 500 without JSON
	ErrorCodeBadRequest     = "E403" // Any other unsuccessful status
	ErrorCodeTransport      = "E404" // Request never got a response
	ErrorCodeTimeout        = "E405" // Request timed out
	ErrorCodeNoConfigValues = "E406" // No configuration entry matched

	// Anything else
	ErrorCodeExecutionFailed = "E500"
)

// ErrorCode maps err to a JSON error code.
func ErrorCode(err error) string {
	var timeout *dierrors.TimeoutError
	if errors.As(err, &timeout) {
		return ErrorCodeTimeout
	}
	if errors.Is(err, configuration.ErrNoConfigValues) {
		return ErrorCodeNoConfigValues
	}

	switch dierrors.TypeOf(err) {
	case "validation":
		return ErrorCodeInvalidInput
	case "config":
		return ErrorCodeInvalidConfig
	case "not_found":
		return ErrorCodeNotFound
	case "internal_server_error":
		return ErrorCodeInternal
	case "bad_request":
		return ErrorCodeBadRequest
	case "transport":
		return ErrorCodeTransport
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.Code {
		case ExitInvalidInput:
			return ErrorCodeInvalidInput
		case ExitConfigError:
			return ErrorCodeInvalidConfig
		}
	}
	return ErrorCodeExecutionFailed
}

// JSONErrorFor builds the JSON form of err.
func JSONErrorFor(err error) JSONError {
	je := JSONError{Code: ErrorCode(err), Message: err.Error()}
	var validation *dierrors.ValidationError
	if errors.As(err, &validation) {
		je.Suggestion = validation.Suggestion
	}
	return je
}
