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

package cql

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dierrors "github.com/tombee/dataimport/pkg/errors"
)

const statusQuery = `status any "COMMITTED ERROR"`

func TestNewWrapper_NoPaging(t *testing.T) {
	w, err := NewWrapper("job_executions", statusQuery)
	require.NoError(t, err)

	assert.Equal(t, "job_executions.jsonb", w.Field())
	assert.Equal(t, statusQuery, w.Query())
	assert.NotContains(t, w.String(), "LIMIT")
	assert.NotContains(t, w.String(), "OFFSET")

	_, ok := w.Limit()
	assert.False(t, ok)
}

func TestNewPagedWrapper(t *testing.T) {
	w, err := NewPagedWrapper("job_executions", statusQuery, 20, 0)
	require.NoError(t, err)

	assert.Equal(t, statusQuery, w.Query())
	assert.Contains(t, w.String(), "LIMIT 20 OFFSET 0")

	limit, ok := w.Limit()
	assert.True(t, ok)
	assert.Equal(t, 20, limit)
}

func TestNewWrapper_InvalidTable(t *testing.T) {
	for _, table := range []string{"", "1abc", "jobs; DROP TABLE x", "a.b"} {
		_, err := NewWrapper(table, statusQuery)

		var validation *dierrors.ValidationError
		require.ErrorAs(t, err, &validation, "table %q", table)
		assert.Equal(t, "table", validation.Field)
	}
}

func TestWrapper_CopyOnWith(t *testing.T) {
	base := NewQuery("module==DATA_IMPORT")
	paged := base.WithLimit(3)

	_, ok := base.Limit()
	assert.False(t, ok)
	n, ok := paged.Limit()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestWrapper_Values(t *testing.T) {
	w := NewQuery(`module==DATA_IMPORT AND ( code=="X")`).WithOffset(0).WithLimit(3)

	want := url.Values{
		"query":  {`module==DATA_IMPORT AND ( code=="X")`},
		"offset": {"0"},
		"limit":  {"3"},
	}
	assert.Equal(t, want, w.Values())
	assert.Empty(t, NewQuery("").Values())
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"X":           `"X"`,
		`say "hi"`:    `"say \"hi\""`,
		`back\slash`:  `"back\\slash"`,
		"wild*card?^": `"wild\*card\?\^"`,
		"":            `""`,
	}
	for in, want := range tests {
		assert.Equal(t, want, Quote(in), "Quote(%q)", in)
	}
}

func TestNewCriteria(t *testing.T) {
	c := NewCriteria("id", "000000000000000")

	assert.Equal(t, []string{"id"}, c.Fields)
	assert.Equal(t, "=", c.Operation)
	assert.Equal(t, "000000000000000", c.Value)
}

func TestCriteria_Where(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		table    string
		want     string
		wantErr  string
	}{
		{
			name:     "equality",
			criteria: NewCriteria("id", "42"),
			table:    "records",
			want:     "records.jsonb->>'id' = $1",
		},
		{
			name:     "nested path",
			criteria: Criteria{Fields: []string{"status", "code"}, Operation: "<>", Value: "ERROR"},
			table:    "jobs",
			want:     "jobs.jsonb->'status'->>'code' <> $1",
		},
		{
			name:     "quote in key",
			criteria: NewCriteria("o'brien", "x"),
			table:    "t",
			want:     "t.jsonb->>'o''brien' = $1",
		},
		{name: "bad table", criteria: NewCriteria("id", "1"), table: "t;", wantErr: "table"},
		{name: "no field", criteria: Criteria{Operation: "="}, table: "t", wantErr: "fields"},
		{name: "bad operation", criteria: Criteria{Fields: []string{"id"}, Operation: "; --"}, table: "t", wantErr: "operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := tt.criteria.Where(tt.table)
			if tt.wantErr != "" {
				var validation *dierrors.ValidationError
				require.ErrorAs(t, err, &validation)
				assert.Equal(t, tt.wantErr, validation.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []any{tt.criteria.Value}, args)
		})
	}
}
