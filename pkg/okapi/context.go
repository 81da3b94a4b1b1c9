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

package okapi

import (
	"context"
	"net/http"
)

type paramsKeyType struct{}

var paramsKey = paramsKeyType{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p ConnectionParams) context.Context {
	return context.WithValue(ctx, paramsKey, p)
}

// FromContext returns the params stored by NewContext or Middleware.
func FromContext(ctx context.Context) (ConnectionParams, bool) {
	p, ok := ctx.Value(paramsKey).(ConnectionParams)
	return p, ok
}

// Middleware derives ConnectionParams from every inbound request's
// headers and stores them in the request context. Options apply to every
// request, typically WithTimeout from configuration.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := FromHTTPHeader(r.Header, opts...)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), p)))
		})
	}
}
