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

package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestID identifies one inbound request across the modules it fans out
// to. Okapi formats them freely, so any non-empty value is accepted.
type RequestID string

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// HeaderRequestID is the header Okapi uses to propagate request IDs.
const HeaderRequestID = "X-Okapi-Request-Id"

// maxRequestIDLength bounds inbound IDs before they reach logs.
const maxRequestIDLength = 256

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// String returns the string representation of the request ID.
func (id RequestID) String() string {
	return string(id)
}

// IsValid reports whether the ID is non-empty, bounded and printable.
func (id RequestID) IsValid() bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range string(id) {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// ToContext adds the request ID to the context.
func ToContext(ctx context.Context, id RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// FromContext retrieves the request ID from the context.
// Returns empty string if none is set.
func FromContext(ctx context.Context) RequestID {
	if id, ok := ctx.Value(requestIDKey).(RequestID); ok {
		return id
	}
	return ""
}

// ExtractFromRequest returns the request ID carried by r, if any.
func ExtractFromRequest(r *http.Request) (RequestID, bool) {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return RequestID(id), true
	}
	return "", false
}

// InjectIntoRequest sets the request ID header from ctx unless the
// request already carries one.
func InjectIntoRequest(ctx context.Context, req *http.Request) {
	if req.Header.Get(HeaderRequestID) != "" {
		return
	}
	if id := FromContext(ctx); id != "" {
		req.Header.Set(HeaderRequestID, id.String())
	}
}

// RequestIDMiddleware makes sure every inbound request has a request ID.
// Missing or malformed IDs are replaced by a generated one, which is also
// written back onto the request headers so header-derived connection
// params propagate it downstream.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, found := ExtractFromRequest(r)
		if !found || !id.IsValid() {
			id = NewRequestID()
			r.Header.Set(HeaderRequestID, id.String())
		}

		r = r.WithContext(ToContext(r.Context(), id))
		w.Header().Set(HeaderRequestID, id.String())

		next.ServeHTTP(w, r)
	})
}
