// Copyright 2025 The webcrypto Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webcrypto

import "context"

// Result is a single-resolution deferred value: a handle to a computation
// that completes exactly once with either a value or an error. Every
// dispatcher operation returns one.
//
// A Result has no cancellation: once scheduled, the underlying operation
// runs to completion. Callers are free to abandon the handle.
type Result[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// NewResult returns an unresolved Result together with the function that
// completes it. The completion function must be called exactly once;
// later calls are ignored.
func NewResult[T any]() (*Result[T], func(value T, err error)) {
	r := &Result[T]{done: make(chan struct{})}
	complete := func(value T, err error) {
		select {
		case <-r.done:
		default:
			r.value = value
			r.err = err
			close(r.done)
		}
	}
	return r, complete
}

// Done returns a channel that is closed when the result has resolved.
func (r *Result[T]) Done() <-chan struct{} { return r.done }

// Wait blocks until the result resolves or ctx is done. A context error
// abandons the wait only; the underlying operation still runs to
// completion and the result remains retrievable.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
