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

package rest

import (
	"encoding/json"
	"fmt"
)

// Body is a request payload that knows how to serialize itself. Build one
// with JSON; a nil Body sends no payload.
type Body interface {
	encode() ([]byte, error)
}

type jsonBody[T any] struct {
	value T
}

func (b jsonBody[T]) encode() ([]byte, error) {
	data, err := json.Marshal(b.value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return data, nil
}

// JSON returns a Body that serializes v with encoding/json.
func JSON[T any](v T) Body {
	return jsonBody[T]{value: v}
}

// RawJSON returns a Body sending data verbatim.
func RawJSON(data []byte) Body {
	return rawBody(data)
}

type rawBody []byte

func (b rawBody) encode() ([]byte, error) {
	if !json.Valid(b) {
		return nil, fmt.Errorf("raw body is not valid JSON")
	}
	return b, nil
}

// encodeBody serializes b for methods that carry a body. A missing
// payload on PUT or POST is sent as JSON null.
func encodeBody(method string, b Body) ([]byte, error) {
	if !hasBody(method) {
		return nil, nil
	}
	if b == nil {
		return []byte("null"), nil
	}
	return b.encode()
}
