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

// CredentialPolicy decides whether outbound calls run under system
// identity and must not carry the caller's token. Implementations may
// re-read their source on every call.
type CredentialPolicy interface {
	SystemUserEnabled() bool
}

// StaticPolicy is a fixed CredentialPolicy, resolved once per request
// scope or in tests.
type StaticPolicy bool

// SystemUserEnabled implements CredentialPolicy.
func (p StaticPolicy) SystemUserEnabled() bool { return bool(p) }

// PolicyFunc adapts a function to CredentialPolicy.
type PolicyFunc func() bool

// SystemUserEnabled implements CredentialPolicy.
func (f PolicyFunc) SystemUserEnabled() bool { return f() }
