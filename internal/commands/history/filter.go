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

package history

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/dataimport/internal/server"
)

// Filter is a compiled --where expression over span fields.
//
// Available variables: name, kind, tenant, status, message, trace_id,
// span_id, parent_id, duration_ms and attributes (a map keyed by
// attribute name). Example:
//
//	status == "error" && attributes["http.response.status_code"] >= 500
type Filter struct {
	program *vm.Program
}

// CompileFilter compiles expression. An empty expression matches every
// span.
func CompileFilter(expression string) (*Filter, error) {
	if expression == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(expression,
		expr.Env(filterEnv(server.SpanView{})),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}
	return &Filter{program: program}, nil
}

// Match reports whether the span satisfies the expression.
func (f *Filter) Match(v server.SpanView) (bool, error) {
	if f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, filterEnv(v))
	if err != nil {
		return false, fmt.Errorf("expression evaluation failed: %w", err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T (%v)", out, out)
	}
	return matched, nil
}

func filterEnv(v server.SpanView) map[string]any {
	attrs := v.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return map[string]any{
		"name":        v.Name,
		"kind":        v.Kind,
		"tenant":      v.Tenant,
		"status":      v.Status,
		"message":     v.Message,
		"trace_id":    v.TraceID,
		"span_id":     v.SpanID,
		"parent_id":   v.ParentID,
		"duration_ms": v.DurationMS,
		"attributes":  attrs,
	}
}
