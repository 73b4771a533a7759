// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable worker pool for running
// reduction kernels. A Pool is created once and reused across many
// ReduceByN calls, so a call costs no goroutine spawns.
//
// Kernels run user code (operators and view closures) on the workers. A
// panic in that code is captured, the remaining chunks still finish, and the
// parallel call returns a *PanicError instead of crashing the process.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	err := pool.ParallelFor(numSegments, func(start, end int) {
//	    reduceSegments(start, end)
//	})
package workerpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-stack/stack"
)

// ErrPanic is matched by every error reporting a panic inside a work
// function.
var ErrPanic = errors.New("workerpool: work function panicked")

// PanicError carries the value and call stack of a captured panic.
type PanicError struct {
	Value any
	Stack stack.CallStack
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("workerpool: work function panicked: %v\n%+v", e.Value, e.Stack)
}

// Unwrap makes errors.Is(err, ErrPanic) hold.
func (e *PanicError) Unwrap() error { return ErrPanic }

// Guard runs fn and converts a panic into a *PanicError.
func Guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: stack.Trace().TrimRuntime()}
		}
	}()
	fn()
	return nil
}

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single chunk of a parallel operation.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
	failed  *atomic.Pointer[PanicError]
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker() {
	for item := range p.workC {
		item.run()
	}
}

func (item workItem) run() {
	defer item.barrier.Done()
	if err := Guard(item.fn); err != nil {
		var pe *PanicError
		errors.As(err, &pe)
		item.failed.CompareAndSwap(nil, pe)
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// ParallelFor executes fn for each index in [0, n) using the worker pool.
// Each worker processes a contiguous range of indices.
// Blocks until all work completes and returns the first captured panic.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) error {
	if n <= 0 {
		return nil
	}

	if p.closed.Load() {
		// Fallback to sequential if pool is closed
		return Guard(func() { fn(0, n) })
	}

	workers := min(p.numWorkers, n)
	if workers == 1 {
		return Guard(func() { fn(0, n) })
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	var failed atomic.Pointer[PanicError]
	wg.Add(workers)

	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			wg.Done()
			continue
		}

		p.workC <- workItem{
			fn:      func() { fn(start, end) },
			barrier: &wg,
			failed:  &failed,
		}
	}

	wg.Wait()
	return panicErr(&failed)
}

// ParallelForBatched executes fn for batches of indices using atomic work
// stealing. Segments whose views are expensive to evaluate balance better
// this way than with fixed chunks.
//
// fn receives (start, end) indices where work should process [start, end).
// batchSize controls how many items are grabbed per atomic operation.
func (p *Pool) ParallelForBatched(n int, batchSize int, fn func(start, end int)) error {
	if n <= 0 {
		return nil
	}

	if batchSize <= 0 {
		batchSize = 1
	}

	if p.closed.Load() {
		return Guard(func() { fn(0, n) })
	}

	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)

	if workers == 1 {
		return Guard(func() { fn(0, n) })
	}

	var nextBatch atomic.Int64
	var wg sync.WaitGroup
	var failed atomic.Pointer[PanicError]
	wg.Add(workers)

	for range workers {
		p.workC <- workItem{
			fn: func() {
				for {
					batch := int(nextBatch.Add(1)) - 1
					start := batch * batchSize
					if start >= n {
						return
					}
					end := min(start+batchSize, n)
					fn(start, end)
				}
			},
			barrier: &wg,
			failed:  &failed,
		}
	}

	wg.Wait()
	return panicErr(&failed)
}

func panicErr(failed *atomic.Pointer[PanicError]) error {
	if pe := failed.Load(); pe != nil {
		return pe
	}
	return nil
}
