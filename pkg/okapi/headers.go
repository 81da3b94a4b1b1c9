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
	"net/http"
	"sort"
	"strings"
)

// Headers is an ordered multimap of header names to values with
// case-insensitive lookup. Names keep the spelling of their first
// insertion and iteration follows insertion order.
//
// Headers held by ConnectionParams are never mutated by the request
// pipeline. Code that needs a different set for a single call works on
// Clone or Without.
type Headers struct {
	entries []headerEntry
	index   map[string]int
}

type headerEntry struct {
	name   string
	values []string
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{index: make(map[string]int)}
}

// HeadersFromMap builds a header set from single-valued pairs. Map
// iteration order is random, so names are inserted sorted.
func HeadersFromMap(m map[string]string) *Headers {
	h := NewHeaders()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Add(name, m[name])
	}
	return h
}

// HeadersFromHTTP builds a header set from an http.Header, sorted by name.
func HeadersFromHTTP(src http.Header) *Headers {
	h := NewHeaders()
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range src[name] {
			h.Add(name, v)
		}
	}
	return h
}

func key(name string) string {
	return strings.ToLower(name)
}

func (h *Headers) init() {
	if h.index == nil {
		h.index = make(map[string]int)
	}
}

// Add appends a value to name, creating the entry if needed.
func (h *Headers) Add(name, value string) {
	h.init()
	if i, ok := h.index[key(name)]; ok {
		h.entries[i].values = append(h.entries[i].values, value)
		return
	}
	h.index[key(name)] = len(h.entries)
	h.entries = append(h.entries, headerEntry{name: name, values: []string{value}})
}

// Set replaces all values of name. An existing entry keeps its position.
func (h *Headers) Set(name, value string) {
	h.init()
	if i, ok := h.index[key(name)]; ok {
		h.entries[i].values = []string{value}
		return
	}
	h.Add(name, value)
}

// Get returns the first value of name, or "".
func (h *Headers) Get(name string) string {
	if h == nil {
		return ""
	}
	if i, ok := h.index[key(name)]; ok && len(h.entries[i].values) > 0 {
		return h.entries[i].values[0]
	}
	return ""
}

// Lookup is Get with a presence flag.
func (h *Headers) Lookup(name string) (string, bool) {
	if !h.Has(name) {
		return "", false
	}
	return h.Get(name), true
}

// Values returns a copy of all values of name.
func (h *Headers) Values(name string) []string {
	if h == nil {
		return nil
	}
	if i, ok := h.index[key(name)]; ok {
		return append([]string(nil), h.entries[i].values...)
	}
	return nil
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.index[key(name)]
	return ok
}

// Del removes name. Later entries shift down to keep order.
func (h *Headers) Del(name string) {
	if h == nil {
		return
	}
	i, ok := h.index[key(name)]
	if !ok {
		return
	}
	h.entries = append(h.entries[:i], h.entries[i+1:]...)
	delete(h.index, key(name))
	for j := i; j < len(h.entries); j++ {
		h.index[key(h.entries[j].name)] = j
	}
}

// Len returns the number of distinct names.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Names returns the header names in insertion order.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, len(h.entries))
	for i, e := range h.entries {
		names[i] = e.name
	}
	return names
}

// Each calls fn for every name and value in order.
func (h *Headers) Each(fn func(name, value string)) {
	if h == nil {
		return
	}
	for _, e := range h.entries {
		for _, v := range e.values {
			fn(e.name, v)
		}
	}
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	if h == nil {
		return c
	}
	c.entries = make([]headerEntry, len(h.entries))
	for i, e := range h.entries {
		c.entries[i] = headerEntry{name: e.name, values: append([]string(nil), e.values...)}
		c.index[key(e.name)] = i
	}
	return c
}

// Without returns a copy with the given names removed. The receiver is
// left untouched.
func (h *Headers) Without(names ...string) *Headers {
	c := h.Clone()
	for _, name := range names {
		c.Del(name)
	}
	return c
}

// Apply adds every value onto dst.
func (h *Headers) Apply(dst http.Header) {
	h.Each(func(name, value string) {
		dst.Add(name, value)
	})
}

// HTTP converts the set to an http.Header.
func (h *Headers) HTTP() http.Header {
	dst := make(http.Header, h.Len())
	h.Apply(dst)
	return dst
}

// Map flattens the set to its first values, keyed by original name.
func (h *Headers) Map() map[string]string {
	m := make(map[string]string, h.Len())
	if h == nil {
		return m
	}
	for _, e := range h.entries {
		if len(e.values) > 0 {
			m[e.name] = e.values[0]
		}
	}
	return m
}
