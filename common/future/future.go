// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package future provides single-assignment values computed asynchronously.
package future

import "context"

// Promise is the producing end of a Future.
type Promise[T any] struct {
	C chan<- T
}

// Future is a value that becomes available once its promise is fulfilled.
// It may be awaited once.
type Future[T any] struct {
	C <-chan T
}

// Create returns a connected promise and future.
func Create[T any]() (Promise[T], Future[T]) {
	ch := make(chan T, 1)
	return Promise[T]{C: ch}, Future[T]{C: ch}
}

// Immediate returns a future that is already resolved to value.
func Immediate[T any](value T) Future[T] {
	promise, future := Create[T]()
	promise.Fulfill(value)
	return future
}

// Go runs fn in a new goroutine and returns a future of its result.
func Go[T any](fn func() T) Future[T] {
	promise, future := Create[T]()
	go func() {
		promise.Fulfill(fn())
	}()
	return future
}

// Fulfill resolves the future. It must be called at most once.
func (p Promise[T]) Fulfill(value T) {
	p.C <- value
	close(p.C)
}

// Await blocks until the value is available.
func (f Future[T]) Await() T {
	return <-f.C
}

// AwaitContext blocks until the value is available or ctx is done.
func (f Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case value := <-f.C:
		return value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
