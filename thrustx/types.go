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

import "github.com/ajroetker/go-highway/hwy"

// Number is a constraint for the element types that can be stored in SIMD
// lanes, plus the platform-sized integers.
type Number interface {
	hwy.Floats | hwy.SignedInts | hwy.UnsignedInts | ~int | ~uint
}

// Sequence is a randomly indexable source of values.
type Sequence[T any] interface {
	At(i int) T
}

// Slice adapts a Go slice to Sequence.
type Slice[T any] []T

// At returns s[i].
func (s Slice[T]) At(i int) T { return s[i] }

// Len returns len(s).
func (s Slice[T]) Len() int { return len(s) }

// IndexFunc maps a logical index to a value. Index functions used by views
// must be pure: they may be called concurrently, redundantly and in any
// order.
type IndexFunc[T any] func(i int) T

// Operator is an associative binary operator used by reductions.
type Operator[T any] interface {
	Apply(a, b T) T
}

// BinaryOp adapts a plain function to Operator.
type BinaryOp[T any] func(a, b T) T

// Apply returns f(a, b).
func (f BinaryOp[T]) Apply(a, b T) T { return f(a, b) }

// Plus is the addition operator. Backends may recognize it and use
// vectorized kernels.
type Plus[T Number] struct{}

func (Plus[T]) Apply(a, b T) T { return a + b }

// Multiplies is the multiplication operator.
type Multiplies[T Number] struct{}

func (Multiplies[T]) Apply(a, b T) T { return a * b }

// Minimum returns the smaller operand. Comparisons with NaN are false, so a
// NaN first operand is kept.
type Minimum[T Number] struct{}

func (Minimum[T]) Apply(a, b T) T {
	if b < a {
		return b
	}
	return a
}

// Maximum returns the larger operand.
type Maximum[T Number] struct{}

func (Maximum[T]) Apply(a, b T) T {
	if b > a {
		return b
	}
	return a
}
