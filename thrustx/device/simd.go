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
	"github.com/ajroetker/go-highway/hwy"

	"github.com/ajroetker/go-thrustx/thrustx"
)

// blockFolder returns the function reducing in[lo:hi] (hi > lo) with op,
// seeded with the first element rather than an initial value.
func blockFolder[T thrustx.Number](in thrustx.View[T], op thrustx.Operator[T]) func(lo, hi int) T {
	data, ok := in.Contiguous()
	if !ok {
		at := in.Func()
		return func(lo, hi int) T {
			acc := at(lo)
			for i := lo + 1; i < hi; i++ {
				acc = op.Apply(acc, at(i))
			}
			return acc
		}
	}
	if fold := simdFolder(data, op); fold != nil {
		return fold
	}
	return func(lo, hi int) T {
		acc := data[lo]
		for _, v := range data[lo+1 : hi] {
			acc = op.Apply(acc, v)
		}
		return acc
	}
}

// simdFolder returns a vectorized block sum when data is a float32 or
// float64 slice and op is Plus, or nil.
func simdFolder[T thrustx.Number](data []T, op thrustx.Operator[T]) func(lo, hi int) T {
	switch d := any(data).(type) {
	case []float32:
		if _, ok := any(op).(thrustx.Plus[float32]); ok {
			return func(lo, hi int) T { return any(sumFloats(d[lo:hi])).(T) }
		}
	case []float64:
		if _, ok := any(op).(thrustx.Plus[float64]); ok {
			return func(lo, hi int) T { return any(sumFloats(d[lo:hi])).(T) }
		}
	}
	return nil
}

// sumFloats computes the sum of all elements in a slice using hwy primitives.
//
// Lanes accumulate independently, so the rounding differs from a sequential
// fold but is the same on every call.
func sumFloats[F hwy.Floats](v []F) F {
	if len(v) == 0 {
		return 0
	}

	sum := hwy.Zero[F]()
	lanes := sum.NumLanes()

	// Process full vectors
	var i int
	for i = 0; i+lanes <= len(v); i += lanes {
		sum = hwy.Add(sum, hwy.Load(v[i:]))
	}

	result := hwy.ReduceSum(sum)

	// Handle tail elements with scalar code
	for ; i < len(v); i++ {
		result += v[i]
	}

	return result
}
