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

// ErrorClassifier provides error categorization for handling decisions.
// Every failure kind produced by the request pipeline implements it so
// callers can branch without type switches.
type ErrorClassifier interface {
	error

	// ErrorType returns a string identifying the error category.
	// Examples: "transport", "not_found", "bad_request", "internal_server_error"
	ErrorType() string

	// IsRetryable returns true if the operation could succeed on a later attempt.
	IsRetryable() bool
}

// Compile-time checks.
var (
	_ ErrorClassifier = (*TransportError)(nil)
	_ ErrorClassifier = (*NotFoundError)(nil)
	_ ErrorClassifier = (*BadRequestError)(nil)
	_ ErrorClassifier = (*InternalServerError)(nil)
	_ ErrorClassifier = (*ConflictError)(nil)
	_ ErrorClassifier = (*ValidationError)(nil)
	_ ErrorClassifier = (*ConfigError)(nil)
	_ ErrorClassifier = (*TimeoutError)(nil)
)

// TypeOf returns the ErrorType of the first ErrorClassifier in err's chain,
// or "unknown".
func TypeOf(err error) string {
	var c ErrorClassifier
	if As(err, &c) {
		return c.ErrorType()
	}
	return "unknown"
}
