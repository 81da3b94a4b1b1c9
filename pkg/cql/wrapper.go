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

// Package cql builds CQL queries for Okapi list endpoints and the
// matching JSONB criteria for storage lookups.
package cql

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	dierrors "github.com/tombee/dataimport/pkg/errors"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Wrapper pairs a CQL query with optional paging. Wrappers are immutable;
// WithLimit and WithOffset return copies.
type Wrapper struct {
	field  string
	query  string
	limit  *int
	offset *int
}

// NewWrapper returns a wrapper whose query targets the JSONB column of
// table. The table name must be a plain SQL identifier.
func NewWrapper(table, query string) (*Wrapper, error) {
	if !identifier.MatchString(table) {
		return nil, &dierrors.ValidationError{
			Field:      "table",
			Message:    "invalid table name " + strconv.Quote(table),
			Suggestion: "use letters, digits and underscores only",
		}
	}
	return &Wrapper{field: table + ".jsonb", query: query}, nil
}

// NewPagedWrapper is NewWrapper with a limit and offset.
func NewPagedWrapper(table, query string, limit, offset int) (*Wrapper, error) {
	w, err := NewWrapper(table, query)
	if err != nil {
		return nil, err
	}
	return w.WithLimit(limit).WithOffset(offset), nil
}

// NewQuery returns a wrapper for a remote endpoint, with no table.
func NewQuery(query string) *Wrapper {
	return &Wrapper{query: query}
}

// Field returns "<table>.jsonb", or "" for a remote query.
func (w *Wrapper) Field() string { return w.field }

// Query returns the CQL text unchanged.
func (w *Wrapper) Query() string { return w.query }

// Limit returns the limit and whether one is set.
func (w *Wrapper) Limit() (int, bool) { return deref(w.limit) }

// Offset returns the offset and whether one is set.
func (w *Wrapper) Offset() (int, bool) { return deref(w.offset) }

// WithLimit returns a copy with the limit set.
func (w *Wrapper) WithLimit(n int) *Wrapper {
	c := *w
	c.limit = &n
	return &c
}

// WithOffset returns a copy with the offset set.
func (w *Wrapper) WithOffset(n int) *Wrapper {
	c := *w
	c.offset = &n
	return &c
}

// Values returns the query parameters Okapi list endpoints accept.
func (w *Wrapper) Values() url.Values {
	v := url.Values{}
	if w.query != "" {
		v.Set("query", w.query)
	}
	if n, ok := w.Offset(); ok {
		v.Set("offset", strconv.Itoa(n))
	}
	if n, ok := w.Limit(); ok {
		v.Set("limit", strconv.Itoa(n))
	}
	return v
}

// String renders the query followed by any paging clause.
func (w *Wrapper) String() string {
	var b strings.Builder
	b.WriteString(w.query)
	if n, ok := w.Limit(); ok {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(n))
	}
	if n, ok := w.Offset(); ok {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

func deref(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Quote returns s as a double-quoted CQL term. Quotes, backslashes and
// the masking characters * ? ^ are escaped.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\', '*', '?', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
