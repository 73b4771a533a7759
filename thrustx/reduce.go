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

package thrustx

import (
	"errors"
	"fmt"
)

// Primitive is a fixed-size segmented reduction kernel.
//
// ReduceByN calls QuerySize once to learn how many scratch bytes the kernel
// needs, then Execute once with a buffer of exactly that size. Execute must
// write out[s] = init op in[s*segmentSize] op ... op in[(s+1)*segmentSize-1]
// for every segment s in [0, numSegments).
type Primitive[T any] interface {
	QuerySize(in View[T], out []T, numSegments, segmentSize int, op Operator[T], init T) (int, error)
	Execute(scratch []byte, in View[T], out []T, numSegments, segmentSize int, op Operator[T], init T) error
}

// Allocator hands out raw scratch memory for a single kernel invocation.
type Allocator interface {
	Allocate(nbytes int) ([]byte, error)
	Free(buf []byte) error
}

// Backend pairs a reduction kernel with the allocator that feeds it scratch
// memory.
type Backend[T any] struct {
	Primitive Primitive[T]
	Allocator Allocator
}

const reduceByN = "reduce_by_n"

// ReduceByN reduces in to one value per segment of n consecutive elements,
// writing in.Len()/n results to the front of out.
//
// n must be positive and must divide in.Len(); in must be bounded and out
// must have room for every segment. Violations return an *ArgumentError
// (matching ErrInvalidArgument) before any allocation. An empty input is a
// no-op.
//
// The scratch buffer requested by the Primitive is allocated once and freed
// once, on every exit path including a panic inside the kernel.
func ReduceByN[T any](b Backend[T], in View[T], out []T, n int, op Operator[T], init T) error {
	if n <= 0 {
		return newArgumentError(reduceByN, "N must be positive, got %d", n)
	}
	if !in.Bounded() {
		return newArgumentError(reduceByN, "input view is unbounded")
	}
	total := in.Len()
	if total == 0 {
		return nil
	}
	if total%n != 0 {
		return newArgumentError(reduceByN, "N (%d) must be a divisor of the input length (%d)", n, total)
	}
	numSegments := total / n
	if len(out) < numSegments {
		return newArgumentError(reduceByN, "output has room for %d of %d segments", len(out), numSegments)
	}
	if op == nil {
		return newArgumentError(reduceByN, "nil operator")
	}
	if b.Primitive == nil || b.Allocator == nil {
		return fmt.Errorf("%s: %w", reduceByN, ErrNoBackend)
	}
	out = out[:numSegments]

	tempBytes, err := b.Primitive.QuerySize(in, out, numSegments, n, op, init)
	if err != nil {
		return fmt.Errorf("%s: query scratch size: %w", reduceByN, err)
	}
	if tempBytes < 0 {
		return fmt.Errorf("%s: primitive requested %d scratch bytes", reduceByN, tempBytes)
	}
	log := Logger()
	log.Debug(reduceByN, "phase", "size_queried", "segments", numSegments, "segment_size", n, "scratch_bytes", tempBytes)

	err = withScratch(b.Allocator, tempBytes, func(scratch []byte) error {
		log.Debug(reduceByN, "phase", "allocated", "scratch_bytes", len(scratch))
		return b.Primitive.Execute(scratch, in, out, numSegments, n, op, init)
	})
	if err != nil {
		log.Debug(reduceByN, "phase", "released", "error", err)
		return fmt.Errorf("%s: %w", reduceByN, err)
	}
	log.Debug(reduceByN, "phase", "released")
	return nil
}

// ReduceByNDefault is ReduceByN with the zero value of T as the initial
// value.
func ReduceByNDefault[T any](b Backend[T], in View[T], out []T, n int, op Operator[T]) error {
	var init T
	return ReduceByN(b, in, out, n, op, init)
}

// ReduceSlice is ReduceByN over a contiguous slice.
func ReduceSlice[T any](b Backend[T], in []T, out []T, n int, op Operator[T], init T) error {
	return ReduceByN(b, Of(in), out, n, op, init)
}

// withScratch allocates nbytes, runs fn with the buffer and frees it when fn
// returns or panics. A failed Free is joined to fn's error.
func withScratch(a Allocator, nbytes int, fn func(scratch []byte) error) (err error) {
	scratch, err := a.Allocate(nbytes)
	if err != nil {
		return fmt.Errorf("allocate %d scratch bytes: %w", nbytes, err)
	}
	defer func() {
		if ferr := a.Free(scratch); ferr != nil {
			err = errors.Join(err, fmt.Errorf("free scratch: %w", ferr))
		}
	}()
	return fn(scratch)
}
