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

// Package thrustx provides lazy array views and a fixed-size segmented
// reduction for numeric array libraries.
//
// # Views
//
// A View maps a logical index to a value through a pure index closure. Views
// never copy or own data: they hold references to caller-owned sequences and
// a few scalars, so composing them costs O(1) memory regardless of the
// logical length.
//
//   - Cycle(src, n):         src[i % n], unbounded
//   - Append(src, size, v):  src[i] for i < size, v otherwise
//   - Prepend(src, size, v): v at 0, src[i-1] after
//   - Replicate(src, n):     src[i / n], each element repeated n times
//   - OuterProduct(a, na, b, nb, f): f(a[i / nb], b[i % nb])
//
// Any View is itself a Sequence, so views nest:
//
//	base := thrustx.Of([]float32{1, 2, 3})
//	padded := thrustx.Append(thrustx.Replicate(base, 2), 6, 0)
//	ring := thrustx.Cycle(padded, 7).Take(21)
//
// The closures behind a view may be invoked concurrently and in any order by
// whatever consumes the view, typically a parallel kernel.
//
// # Segmented reduction
//
// ReduceByN reduces consecutive segments of N elements to one value each. It
// validates the segment geometry, asks a Backend's Primitive how much scratch
// memory the kernel needs, brackets the kernel with exactly one Allocate and
// one Free, and returns. The reduction itself is performed by the Primitive;
// see the device subpackage for the host implementation.
//
//	be := device.Host[float32]()
//	out := make([]float32, 3)
//	err := thrustx.ReduceSlice(be, []float32{1, 2, 3, 4, 5, 6}, out, 2, thrustx.Plus[float32]{}, 0)
//	// out == [3 7 11]
//
// # Debugging
//
// Set THRUSTX_DEBUG=1 to log reduction phases to stderr, or install a logger
// with SetLogger.
package thrustx
