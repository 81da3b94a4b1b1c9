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

// Package featureflags provides runtime feature flag management for the
// data import services.
package featureflags

import (
	"os"
	"strings"
	"sync"
)

// SystemUserEnv is the environment variable holding the raw system-user
// setting. Unset means "true".
const SystemUserEnv = "SYSTEM_USER_ENABLED"

// SystemUser is the process-wide credential policy. It reads its source
// each time it is consulted so a changed environment or a reloaded config
// file takes effect on the next call.
//
// The raw setting defaults to true, and system-user mode is its negation:
// outbound calls drop the caller's token only when the setting is
// explicitly false (or unparseable).
type SystemUser struct {
	mu       sync.RWMutex
	override *bool
	getenv   func(string) string
}

var (
	// global is the singleton used by Default
	global *SystemUser
	once   sync.Once
)

// Default returns the process-wide SystemUser policy backed by os.Getenv.
func Default() *SystemUser {
	once.Do(func() {
		global = NewSystemUser(os.Getenv)
	})
	return global
}

// NewSystemUser returns a policy that reads the raw setting through getenv.
// A nil getenv means os.Getenv.
func NewSystemUser(getenv func(string) string) *SystemUser {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &SystemUser{getenv: getenv}
}

// SystemUserEnabled reports whether outbound calls run under system
// identity. It implements okapi.CredentialPolicy.
func (s *SystemUser) SystemUserEnabled() bool {
	return !s.Raw()
}

// Raw returns the raw setting: the config override when one is set,
// otherwise the environment value, otherwise true.
func (s *SystemUser) Raw() bool {
	s.mu.RLock()
	override := s.override
	s.mu.RUnlock()

	if override != nil {
		return *override
	}
	if val := s.getenv(SystemUserEnv); val != "" {
		return parseBool(val)
	}
	return true
}

// SetOverride pins the raw setting, taking precedence over the
// environment. Used by config hot reload.
func (s *SystemUser) SetOverride(raw bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = &raw
}

// ClearOverride returns to reading the environment.
func (s *SystemUser) ClearOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = nil
}

// parseBool reports whether val is "true" in any letter case.
// Anything else, including "1" and padded values, is false.
func parseBool(val string) bool {
	return strings.EqualFold(val, "true")
}
