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
	"encoding/json"
	"mime"
	"net/http"
)

// WrappedResponse is an immutable snapshot of a completed exchange.
type WrappedResponse struct {
	code     int
	body     string
	json     any
	hasJSON  bool
	response *http.Response
}

// NewWrappedResponse captures a completed exchange. The JSON view is
// present exactly when body is valid JSON; anything else simply has no
// view. resp may be nil for synthetic responses.
func NewWrappedResponse(code int, body string, resp *http.Response) *WrappedResponse {
	w := &WrappedResponse{code: code, body: body, response: resp}
	if json.Valid([]byte(body)) {
		if err := json.Unmarshal([]byte(body), &w.json); err == nil {
			w.hasJSON = true
		}
	}
	return w
}

// Code returns the HTTP status code.
func (w *WrappedResponse) Code() int { return w.code }

// Body returns the raw response body.
func (w *WrappedResponse) Body() string { return w.body }

// JSON returns the decoded body and whether the body was JSON at all.
// A body of "null" yields (nil, true).
func (w *WrappedResponse) JSON() (any, bool) { return w.json, w.hasJSON }

// JSONObject returns the body as a JSON object, if it is one.
func (w *WrappedResponse) JSONObject() (map[string]any, bool) {
	m, ok := w.json.(map[string]any)
	return m, ok
}

// Decode unmarshals the body into v.
func (w *WrappedResponse) Decode(v any) error {
	return json.Unmarshal([]byte(w.body), v)
}

// Response returns the underlying response for header inspection. Its
// body has already been consumed.
func (w *WrappedResponse) Response() *http.Response { return w.response }

// Header returns the response headers, or an empty set.
func (w *WrappedResponse) Header() http.Header {
	if w.response == nil || w.response.Header == nil {
		return http.Header{}
	}
	return w.response.Header
}

// ContentType returns the Content-Type response header.
func (w *WrappedResponse) ContentType() string {
	return w.Header().Get("Content-Type")
}

// IsJSONContentType reports whether ct names application/json. Media type
// parameters such as charset are ignored.
func IsJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
