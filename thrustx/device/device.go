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

// Package device is the host backend for thrustx reductions.
//
// The host device runs the segmented-reduction kernel on a persistent
// worker pool and hands out cache-line aligned scratch memory:
//
//	be := device.Host[float32]()
//	err := thrustx.ReduceByN(be, view, out, 128, thrustx.Plus[float32]{}, 0)
//
// Host backends share one pool and one allocator, sized from the
// environment (see ConfigFromEnv). New builds a backend with its own
// executor, block length or allocator.
//
// Contiguous float32 and float64 inputs reduced with thrustx.Plus use
// go-highway SIMD vectors.
package device

import (
	"sync"

	"github.com/ajroetker/go-thrustx/thrustx"
	"github.com/ajroetker/go-thrustx/thrustx/contrib/workerpool"
)

var (
	envConfig = sync.OnceValue(ConfigFromEnv)

	sharedPool = sync.OnceValue(func() *workerpool.Pool {
		return workerpool.New(envConfig().NumWorkers)
	})

	sharedAllocator = sync.OnceValue(func() *Allocator {
		return NewAllocator(envConfig().ScratchLimit)
	})
)

// SharedAllocator returns the allocator used by Host backends.
func SharedAllocator() *Allocator { return sharedAllocator() }

type options struct {
	exec      Executor
	blockLen  int
	allocator thrustx.Allocator
}

// Option configures a backend built by New.
type Option func(*options)

// WithExecutor runs the kernel on exec instead of the shared pool.
func WithExecutor(exec Executor) Option {
	return func(o *options) { o.exec = exec }
}

// WithBlockLen sets the number of elements per reduction block.
func WithBlockLen(n int) Option {
	return func(o *options) { o.blockLen = n }
}

// WithAllocator uses a instead of the shared allocator.
func WithAllocator(a thrustx.Allocator) Option {
	return func(o *options) { o.allocator = a }
}

// New returns a host backend for element type T.
func New[T thrustx.Number](opts ...Option) thrustx.Backend[T] {
	o := options{blockLen: envConfig().BlockLen}
	for _, opt := range opts {
		opt(&o)
	}
	if o.exec == nil {
		o.exec = sharedPool()
	}
	if o.allocator == nil {
		o.allocator = sharedAllocator()
	}
	return thrustx.Backend[T]{
		Primitive: NewReducer[T](o.exec, o.blockLen),
		Allocator: o.allocator,
	}
}

// Host returns the default host backend for element type T.
func Host[T thrustx.Number]() thrustx.Backend[T] {
	return New[T]()
}
