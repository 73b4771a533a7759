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
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

var (
	// ErrOutOfMemory is returned when an allocation would exceed the
	// allocator's limit.
	ErrOutOfMemory = errors.New("device: scratch allocation exceeds limit")

	// ErrBadFree is returned when freeing a buffer the allocator does not
	// own, or one that was already freed.
	ErrBadFree = errors.New("device: free of unknown or already freed buffer")
)

// CacheLine is the alignment of every non-empty scratch buffer.
const CacheLine = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// Stats is a snapshot of allocator activity.
type Stats struct {
	Allocs    uint64
	Frees     uint64
	LiveBytes int64
	PeakBytes int64
}

// Allocator is the host scratch allocator. Buffers are cache-line aligned
// so that kernels may reinterpret them as arrays of any numeric type.
//
// Allocator never pools: each Allocate is a fresh allocation and Free drops
// it. It tracks live buffers so double and foreign frees are reported.
// It is safe for concurrent use.
type Allocator struct {
	limit int64

	mu        sync.Mutex
	live      map[*byte]int
	liveBytes int64
	peakBytes int64

	allocs atomic.Uint64
	frees  atomic.Uint64
}

// NewAllocator returns an allocator that refuses to have more than limit
// bytes outstanding. limit <= 0 disables the check.
func NewAllocator(limit int64) *Allocator {
	return &Allocator{limit: limit, live: make(map[*byte]int)}
}

// Allocate returns a cache-line aligned buffer of exactly nbytes bytes.
func (a *Allocator) Allocate(nbytes int) ([]byte, error) {
	if nbytes < 0 {
		return nil, fmt.Errorf("device: allocate %d bytes: negative size", nbytes)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limit > 0 && a.liveBytes+int64(nbytes) > a.limit {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrOutOfMemory, nbytes, a.liveBytes, a.limit)
	}
	a.allocs.Add(1)
	if nbytes == 0 {
		return []byte{}, nil
	}

	raw := make([]byte, nbytes+CacheLine-1)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(unsafe.SliceData(raw))) % uintptr(CacheLine)); rem != 0 {
		off = CacheLine - rem
	}
	buf := raw[off : off+nbytes : off+nbytes]

	a.live[unsafe.SliceData(buf)] = nbytes
	a.liveBytes += int64(nbytes)
	a.peakBytes = max(a.peakBytes, a.liveBytes)
	return buf, nil
}

// Free releases a buffer returned by Allocate.
func (a *Allocator) Free(buf []byte) error {
	if len(buf) == 0 {
		a.frees.Add(1)
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := unsafe.SliceData(buf)
	n, ok := a.live[key]
	if !ok || n != len(buf) {
		return fmt.Errorf("%w: %d bytes at %p", ErrBadFree, len(buf), key)
	}
	delete(a.live, key)
	a.liveBytes -= int64(n)
	a.frees.Add(1)
	return nil
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Allocs:    a.allocs.Load(),
		Frees:     a.frees.Load(),
		LiveBytes: a.liveBytes,
		PeakBytes: a.peakBytes,
	}
}
