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
	"errors"
	"fmt"
	"unsafe"

	"github.com/ajroetker/go-thrustx/thrustx"
)

// ErrScratchTooSmall is returned by Execute when the scratch buffer is
// smaller than QuerySize reported, or misaligned for the element type.
var ErrScratchTooSmall = errors.New("device: scratch buffer too small or misaligned")

// Reducer is the host fixed-size segmented reduction kernel.
//
// Every segment is cut into blocks of at most BlockLen elements. The first
// phase reduces each block to a partial stored in the scratch buffer, with
// blocks spread over the executor's workers so that a few long segments
// still use every core. The second phase folds init with each segment's
// partials, in order, into out. For an associative op this equals
//
//	out[s] = init op in[s*N] op in[s*N+1] op ... op in[s*N+N-1]
type Reducer[T thrustx.Number] struct {
	exec     Executor
	blockLen int
}

var _ thrustx.Primitive[float32] = (*Reducer[float32])(nil)

// NewReducer returns a Reducer running on exec. blockLen <= 0 selects
// DefaultBlockBytes worth of elements.
func NewReducer[T thrustx.Number](exec Executor, blockLen int) *Reducer[T] {
	if exec == nil {
		exec = GoExecutor{}
	}
	if blockLen <= 0 {
		blockLen = max(1, DefaultBlockBytes/elemSize[T]())
	}
	return &Reducer[T]{exec: exec, blockLen: blockLen}
}

// BlockLen returns the number of elements per block.
func (r *Reducer[T]) BlockLen() int { return r.blockLen }

func (r *Reducer[T]) blocksPerSegment(segmentSize int) int {
	return (segmentSize + r.blockLen - 1) / r.blockLen
}

// QuerySize returns the scratch bytes Execute needs: one T per block.
func (r *Reducer[T]) QuerySize(_ thrustx.View[T], _ []T, numSegments, segmentSize int, _ thrustx.Operator[T], _ T) (int, error) {
	if numSegments < 0 || segmentSize <= 0 {
		return 0, fmt.Errorf("%w: %d segments of %d elements", thrustx.ErrInvalidArgument, numSegments, segmentSize)
	}
	return numSegments * r.blocksPerSegment(segmentSize) * elemSize[T](), nil
}

// Execute runs the reduction. scratch must hold at least the number of bytes
// reported by QuerySize for the same geometry.
func (r *Reducer[T]) Execute(scratch []byte, in thrustx.View[T], out []T, numSegments, segmentSize int, op thrustx.Operator[T], init T) error {
	if numSegments < 0 || segmentSize <= 0 {
		return fmt.Errorf("%w: %d segments of %d elements", thrustx.ErrInvalidArgument, numSegments, segmentSize)
	}
	if numSegments == 0 {
		return nil
	}
	if len(out) < numSegments {
		return fmt.Errorf("%w: output has room for %d of %d segments", thrustx.ErrInvalidArgument, len(out), numSegments)
	}
	if in.Bounded() && in.Len() < numSegments*segmentSize {
		return fmt.Errorf("%w: input has %d of %d elements", thrustx.ErrInvalidArgument, in.Len(), numSegments*segmentSize)
	}

	blocks := r.blocksPerSegment(segmentSize)
	partials, err := scratchAs[T](scratch, numSegments*blocks)
	if err != nil {
		return err
	}

	fold := blockFolder(in, op)
	blockLen := r.blockLen
	// Short segments make for tiny blocks; grab several per atomic step.
	batch := max(1, blockLen/min(segmentSize, blockLen))

	err = r.exec.ParallelForBatched(len(partials), batch, func(start, end int) {
		for b := start; b < end; b++ {
			seg, blk := b/blocks, b%blocks
			lo := seg*segmentSize + blk*blockLen
			hi := min(lo+blockLen, (seg+1)*segmentSize)
			partials[b] = fold(lo, hi)
		}
	})
	if err != nil {
		return fmt.Errorf("reduce blocks: %w", err)
	}

	err = r.exec.ParallelFor(numSegments, func(start, end int) {
		for s := start; s < end; s++ {
			acc := init
			for _, p := range partials[s*blocks : (s+1)*blocks] {
				acc = op.Apply(acc, p)
			}
			out[s] = acc
		}
	})
	if err != nil {
		return fmt.Errorf("combine partials: %w", err)
	}
	return nil
}

func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// scratchAs reinterprets the front of scratch as n values of T.
func scratchAs[T thrustx.Number](scratch []byte, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	need := n * elemSize[T]()
	if len(scratch) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrScratchTooSmall, len(scratch), need)
	}
	var zero T
	p := unsafe.Pointer(unsafe.SliceData(scratch))
	if uintptr(p)%unsafe.Alignof(zero) != 0 {
		return nil, fmt.Errorf("%w: buffer at %p is not %d-byte aligned", ErrScratchTooSmall, p, unsafe.Alignof(zero))
	}
	return unsafe.Slice((*T)(p), n), nil
}
