// Copyright 2025 go-highway Authors
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

package device

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-thrustx/thrustx/contrib/workerpool"
)

// ErrWorkerPanic is matched by errors reporting a panic raised by an
// operator or a view closure while a kernel ran.
var ErrWorkerPanic = workerpool.ErrPanic

// Executor runs the parallel loops of the host reducer. Both methods block
// until every index in [0, n) was handed to fn and return a captured panic,
// if any.
//
// *workerpool.Pool implements Executor.
type Executor interface {
	ParallelFor(n int, fn func(start, end int)) error
	ParallelForBatched(n, batchSize int, fn func(start, end int)) error
}

var _ Executor = (*workerpool.Pool)(nil)

// GoExecutor spawns goroutines per call through an errgroup instead of
// keeping a pool alive. It suits short-lived programs and tests.
type GoExecutor struct {
	// Limit bounds the number of goroutines per call. 0 means GOMAXPROCS.
	Limit int
}

func (e GoExecutor) workers(n int) int {
	limit := e.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return max(1, min(limit, n))
}

// ParallelFor splits [0, n) into one contiguous chunk per goroutine.
func (e GoExecutor) ParallelFor(n int, fn func(start, end int)) error {
	if n <= 0 {
		return nil
	}
	workers := e.workers(n)
	chunkSize := (n + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			return workerpool.Guard(func() { fn(start, end) })
		})
	}
	return g.Wait()
}

// ParallelForBatched runs one task per batch with at most Limit in flight.
func (e GoExecutor) ParallelForBatched(n, batchSize int, fn func(start, end int)) error {
	if n <= 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	var g errgroup.Group
	g.SetLimit(e.workers((n + batchSize - 1) / batchSize))
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		g.Go(func() error {
			return workerpool.Guard(func() { fn(start, end) })
		})
	}
	return g.Wait()
}
