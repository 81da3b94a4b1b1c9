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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/dataimport/internal/server"
)

func TestFilter(t *testing.T) {
	view := server.SpanView{
		Name:       "GET /instances",
		Tenant:     "diku",
		Status:     "error",
		DurationMS: 250,
		Attributes: map[string]any{"http.response.status_code": float64(500)},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{`status == "error"`, true},
		{`tenant == "other"`, false},
		{"duration_ms >= 250 && duration_ms < 300", true},
		{`attributes["http.response.status_code"] >= 500`, true},
		{`name startsWith "GET"`, true},
		{`attributes["missing"] == nil`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			require.NoError(t, err)
			got, err := f.Match(view)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileFilter_Errors(t *testing.T) {
	_, err := CompileFilter("status ==")
	assert.Error(t, err)

	_, err = CompileFilter(`"not a bool"`)
	assert.Error(t, err)
}
