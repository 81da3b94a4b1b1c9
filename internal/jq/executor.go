// Package jq runs jq expressions over decoded Okapi response bodies.
package jq

import (
	"context"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

// DefaultTimeout bounds a single query run.
const DefaultTimeout = 1 * time.Second

// Query is a compiled jq expression. It is safe for concurrent use.
type Query struct {
	src     string
	code    *gojq.Code
	timeout time.Duration
}

// Compile parses and compiles expression.
func Compile(expression string) (*Query, error) {
	parsed, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expression, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed for %q: %w", expression, err)
	}
	return &Query{src: expression, code: code, timeout: DefaultTimeout}, nil
}

// MustCompile is Compile for package-level expressions. It panics on error.
func MustCompile(expression string) *Query {
	q, err := Compile(expression)
	if err != nil {
		panic(err)
	}
	return q
}

// String returns the source expression.
func (q *Query) String() string { return q.src }

// All runs the query and collects every emitted value. data must be made
// of JSON-decoded types (map[string]any, []any, float64, ...).
func (q *Query) All(ctx context.Context, data any) ([]any, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	var results []any
	iter := q.code.RunWithContext(ctx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			return results, nil
		}
		if err, isErr := v.(error); isErr {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("jq %s: execution timeout after %v", q.src, q.timeout)
			}
			return nil, fmt.Errorf("jq %s: %w", q.src, err)
		}
		results = append(results, v)
	}
}

// First returns the first emitted value, or nil when there is none.
func (q *Query) First(ctx context.Context, data any) (any, error) {
	results, err := q.All(ctx, data)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}
