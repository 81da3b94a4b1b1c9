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
	"strconv"
	"strings"

	dierrors "github.com/tombee/dataimport/pkg/errors"
)

// Criteria filters rows by one JSONB key.
type Criteria struct {
	// Fields is the key path inside the JSONB document.
	Fields    []string
	Operation string
	Value     string
}

// NewCriteria returns an equality criteria on field.
func NewCriteria(field, value string) Criteria {
	return Criteria{Fields: []string{field}, Operation: "=", Value: value}
}

// Where renders the criteria as a parameterized SQL predicate against
// table's JSONB column, e.g. table.jsonb->>'id' = $1.
func (c Criteria) Where(table string) (string, []any, error) {
	if !identifier.MatchString(table) {
		return "", nil, &dierrors.ValidationError{Field: "table", Message: "invalid table name " + strconv.Quote(table)}
	}
	if len(c.Fields) == 0 {
		return "", nil, &dierrors.ValidationError{Field: "fields", Message: "criteria has no field"}
	}
	switch c.Operation {
	case "=", "<>", "<", "<=", ">", ">=", "LIKE":
	default:
		return "", nil, &dierrors.ValidationError{Field: "operation", Message: "unsupported operation " + strconv.Quote(c.Operation)}
	}

	var b strings.Builder
	b.WriteString(table)
	b.WriteString(".jsonb")
	for i, f := range c.Fields {
		if i == len(c.Fields)-1 {
			b.WriteString("->>")
		} else {
			b.WriteString("->")
		}
		b.WriteString("'" + strings.ReplaceAll(f, "'", "''") + "'")
	}
	b.WriteString(" " + c.Operation + " $1")
	return b.String(), []any{c.Value}, nil
}
