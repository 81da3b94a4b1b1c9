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

// Package okapi carries the routing context of a multi-tenant Okapi
// gateway: base address, tenant, token, timeout and the propagated
// header set of an inbound request.
package okapi

import (
	"net/http"
	"time"
)

// Well-known Okapi header names. Lookups are case-insensitive.
const (
	HeaderURL       = "x-okapi-url"
	HeaderTenant    = "x-okapi-tenant"
	HeaderToken     = "x-okapi-token"
	HeaderRequestID = "x-okapi-request-id"
	HeaderUserID    = "x-okapi-user-id"
)

// Defaults applied when a header or timeout is absent.
const (
	DefaultURL           = "localhost"
	DefaultTimeoutMillis = 30000
)

// ConnectionParams is the immutable routing context of one inbound request.
// The zero value is not useful; build one with NewConnectionParams,
// FromHTTPHeader or ForSystemUser.
type ConnectionParams struct {
	url           string
	tenant        string
	token         string
	timeoutMillis int
	headers       *Headers
}

// Option customizes ConnectionParams construction.
type Option func(*ConnectionParams)

// WithTimeout sets the request timeout in milliseconds. Values <= 0 keep
// the default.
func WithTimeout(millis int) Option {
	return func(p *ConnectionParams) {
		if millis > 0 {
			p.timeoutMillis = millis
		}
	}
}

// NewConnectionParams derives a context from inbound headers. Missing
// values fall back to the defaults and nothing is validated here: a bad
// base address surfaces when a request is attempted.
func NewConnectionParams(headers *Headers, opts ...Option) ConnectionParams {
	p := ConnectionParams{
		url:           DefaultURL,
		timeoutMillis: DefaultTimeoutMillis,
		headers:       headers.Clone(),
	}
	if v, ok := headers.Lookup(HeaderURL); ok {
		p.url = v
	}
	if v, ok := headers.Lookup(HeaderTenant); ok {
		p.tenant = v
	}
	if v, ok := headers.Lookup(HeaderToken); ok {
		p.token = v
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// FromMap is NewConnectionParams over a plain map.
func FromMap(headers map[string]string, opts ...Option) ConnectionParams {
	return NewConnectionParams(HeadersFromMap(headers), opts...)
}

// FromHTTPHeader is NewConnectionParams over an inbound http.Header.
func FromHTTPHeader(h http.Header, opts ...Option) ConnectionParams {
	return NewConnectionParams(HeadersFromHTTP(h), opts...)
}

// ForSystemUser derives a context for calls made under system identity.
// When the policy reports system-user mode, the token header is dropped
// before construction so neither Token nor Headers carries it.
func ForSystemUser(headers *Headers, policy CredentialPolicy, opts ...Option) ConnectionParams {
	if policy != nil && policy.SystemUserEnabled() {
		headers = headers.Without(HeaderToken)
	}
	return NewConnectionParams(headers, opts...)
}

// URL returns the base address calls are made against.
func (p ConnectionParams) URL() string { return p.url }

// Tenant returns the tenant identifier.
func (p ConnectionParams) Tenant() string { return p.tenant }

// Token returns the credential token, or "".
func (p ConnectionParams) Token() string { return p.token }

// TimeoutMillis returns the timeout in milliseconds.
func (p ConnectionParams) TimeoutMillis() int { return p.timeoutMillis }

// Timeout returns the timeout as a duration.
func (p ConnectionParams) Timeout() time.Duration {
	return time.Duration(p.timeoutMillis) * time.Millisecond
}

// Headers returns a copy of the propagated header set.
func (p ConnectionParams) Headers() *Headers {
	return p.headers.Clone()
}

// WithHeaders returns a copy of p whose header set is replaced by h.
// Base address, tenant, token and timeout are unchanged.
func (p ConnectionParams) WithHeaders(h *Headers) ConnectionParams {
	p.headers = h.Clone()
	return p
}
