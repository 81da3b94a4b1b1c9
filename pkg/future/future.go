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

// Package future provides a minimal generic future for work that runs on
// its own goroutine. Callers decide whether and how long to wait.
package future

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Future holds the eventual result of an asynchronous operation. It
// completes exactly once and is safe for concurrent use.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// PanicError is the error a future fails with when its function panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Go runs fn on a new goroutine and returns immediately. A returned error
// or a panic inside fn fails the future.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.value, f.err = zero, &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Failed returns a future that already failed with err.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done returns a channel closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future completes or ctx is done. A ctx error
// does not affect the future itself.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then returns a future completed with fn applied to f's result.
func Then[T, U any](f *Future[T], fn func(T, error) (U, error)) *Future[U] {
	return Go(context.Background(), func(context.Context) (U, error) {
		<-f.done
		return fn(f.value, f.err)
	})
}
