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

// This file holds the view composers. Each comes in two forms: a *Func
// constructor returning the bare index closure, for kernels that take a
// function, and a view constructor wrapping that closure with a length.

// CycleFunc returns the closure i -> src[i % n].
//
// Panics with an *ArgumentError if n <= 0.
func CycleFunc[T any](src Sequence[T], n int) IndexFunc[T] {
	if n <= 0 {
		panic(newArgumentError("cycle", "period %d must be positive", n))
	}
	at := indexer(src)
	return func(i int) T { return at(i % n) }
}

// Cycle returns an unbounded view repeating the first n elements of src.
//
// Example:
//
//	v := Cycle(Of([]int{10, 20, 30}), 3).Take(8)
//	// 10 20 30 10 20 30 10 20
func Cycle[T any](src Sequence[T], n int) View[T] {
	return View[T]{at: CycleFunc(src, n), n: Unbounded}
}

// AppendFunc returns the closure yielding src[i] for i < size and value for
// every i >= size.
func AppendFunc[T any](src Sequence[T], size int, value T) IndexFunc[T] {
	if size < 0 {
		panic(newArgumentError("append", "size %d is negative", size))
	}
	at := indexer(src)
	return func(i int) T {
		if i < size {
			return at(i)
		}
		return value
	}
}

// Append returns the first size elements of src followed by value. The view
// has length size+1; use Take to pad with more copies of value.
func Append[T any](src Sequence[T], size int, value T) View[T] {
	return View[T]{at: AppendFunc(src, size, value), n: size + 1}
}

// PrependFunc returns the closure yielding value at 0 and src[i-1] after.
func PrependFunc[T any](src Sequence[T], size int, value T) IndexFunc[T] {
	if size < 0 {
		panic(newArgumentError("prepend", "size %d is negative", size))
	}
	at := indexer(src)
	return func(i int) T {
		if i == 0 {
			return value
		}
		return at(i - 1)
	}
}

// Prepend returns value followed by the first size elements of src.
func Prepend[T any](src Sequence[T], size int, value T) View[T] {
	return View[T]{at: PrependFunc(src, size, value), n: size + 1}
}

// ReplicateFunc returns the closure i -> src[i / n].
//
// Panics with an *ArgumentError if n <= 0.
func ReplicateFunc[T any](src Sequence[T], n int) IndexFunc[T] {
	if n <= 0 {
		panic(newArgumentError("replicate", "factor %d must be positive", n))
	}
	at := indexer(src)
	return func(i int) T { return at(i / n) }
}

// Replicate returns a view in which every element of src appears n times in
// a row: [a b] -> [a a b b] for n = 2. The view is bounded when src reports
// a length.
func Replicate[T any](src Sequence[T], n int) View[T] {
	fn := ReplicateFunc(src, n)
	l := lengthOf(src)
	if l != Unbounded {
		l *= n
	}
	return View[T]{at: fn, n: l}
}

// OuterFunc returns the closure mapping a row-major linear index over a
// size1 x size2 grid to combine(src1[row], src2[col]).
//
// combine must be pure: the closure may run concurrently on many workers.
func OuterFunc[A, B, R any](src1 Sequence[A], size1 int, src2 Sequence[B], size2 int, combine func(A, B) R) IndexFunc[R] {
	if size1 < 0 || size2 < 0 {
		panic(newArgumentError("outer_product", "sizes %d x %d must be non-negative", size1, size2))
	}
	if combine == nil {
		panic(newArgumentError("outer_product", "nil combine function"))
	}
	at1, at2 := indexer(src1), indexer(src2)
	return func(i int) R {
		row := i / size2
		col := i % size2
		return combine(at1(row), at2(col))
	}
}

// OuterProduct returns the size1*size2 view of combine applied to every pair
// of src1 and src2 elements, in row-major order.
//
// Example:
//
//	v := OuterProduct(Of([]int{1, 2}), 2, Of([]int{10, 20}), 2,
//	    func(a, b int) int { return a * b })
//	// 10 20 20 40
func OuterProduct[A, B, R any](src1 Sequence[A], size1 int, src2 Sequence[B], size2 int, combine func(A, B) R) View[R] {
	return View[R]{at: OuterFunc(src1, size1, src2, size2, combine), n: size1 * size2}
}
