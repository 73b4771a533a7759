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

import "iter"

// Unbounded is the length of a view that has no natural end, such as a
// Cycle. Bound it with Take or Slice before handing it to a reduction.
const Unbounded = -1

// View is a lazy, non-owning, randomly indexable sequence.
//
// A View is a small value: an index closure, a logical length, and for views
// that sit directly on a slice, the slice itself so that kernels can take a
// contiguous fast path. Copying a View never copies elements.
type View[T any] struct {
	at   IndexFunc[T]
	n    int
	data []T
}

// Of returns a contiguous view of s.
func Of[T any](s []T) View[T] {
	return View[T]{
		at:   func(i int) T { return s[i] },
		n:    len(s),
		data: s,
	}
}

// Tabulate returns a view of length n whose element i is fn(i).
// n may be Unbounded.
func Tabulate[T any](n int, fn IndexFunc[T]) View[T] {
	if n < Unbounded {
		panic(newArgumentError("tabulate", "length %d is negative", n))
	}
	if fn == nil {
		panic(newArgumentError("tabulate", "nil index function"))
	}
	return View[T]{at: fn, n: n}
}

// Counting returns the unbounded view start, start+1, start+2, ...
func Counting(start int) View[int] {
	return View[int]{at: func(i int) int { return start + i }, n: Unbounded}
}

// Transform returns a view whose element i is f(src.At(i)). The result has
// the length of src when src reports one.
func Transform[T, R any](src Sequence[T], f func(T) R) View[R] {
	if f == nil {
		panic(newArgumentError("transform", "nil function"))
	}
	at := indexer(src)
	return View[R]{at: func(i int) R { return f(at(i)) }, n: lengthOf(src)}
}

// At returns the element at logical index i.
func (v View[T]) At(i int) T { return v.at(i) }

// Len returns the logical length, or Unbounded.
func (v View[T]) Len() int { return v.n }

// Bounded reports whether the view has a finite length.
func (v View[T]) Bounded() bool { return v.n != Unbounded }

// Func returns the view's index closure.
func (v View[T]) Func() IndexFunc[T] { return v.at }

// Contiguous returns the backing slice when the view is a plain window over
// one, so that kernels can read it directly.
func (v View[T]) Contiguous() ([]T, bool) {
	if v.data == nil || v.n != len(v.data) {
		return nil, false
	}
	return v.data, true
}

// Take returns the view with its logical length set to n. The index closure
// is unchanged, so n may exceed the natural length of views that are defined
// everywhere, such as Append.
func (v View[T]) Take(n int) View[T] {
	if n < 0 {
		panic(newArgumentError("take", "length %d is negative", n))
	}
	out := View[T]{at: v.at, n: n}
	if v.data != nil && n <= len(v.data) {
		out.data = v.data[:n]
	}
	return out
}

// Slice returns the window [lo, hi) of v, re-indexed from 0.
func (v View[T]) Slice(lo, hi int) View[T] {
	if lo < 0 || hi < lo || (v.Bounded() && hi > v.n) {
		panic(newArgumentError("slice", "bounds [%d:%d] out of range for length %d", lo, hi, v.n))
	}
	if lo == 0 {
		return v.Take(hi)
	}
	at := v.at
	out := View[T]{at: func(i int) T { return at(lo + i) }, n: hi - lo}
	if v.data != nil && hi <= len(v.data) {
		out.data = v.data[lo:hi]
	}
	return out
}

// All yields (index, value) pairs in order. Unbounded views yield until the
// consumer stops.
func (v View[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; v.n == Unbounded || i < v.n; i++ {
			if !yield(i, v.at(i)) {
				return
			}
		}
	}
}

// Values yields the view's values in order.
func (v View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; v.n == Unbounded || i < v.n; i++ {
			if !yield(v.at(i)) {
				return
			}
		}
	}
}

// Collect materializes a bounded view into a new slice.
func Collect[T any](v View[T]) []T {
	if !v.Bounded() {
		panic(newArgumentError("collect", "view is unbounded"))
	}
	out := make([]T, v.n)
	CopyTo(out, v)
	return out
}

// CopyTo writes the first min(len(dst), v.Len()) elements of v to dst and
// returns how many were written.
func CopyTo[T any](dst []T, v View[T]) int {
	n := len(dst)
	if v.Bounded() {
		n = min(n, v.n)
	}
	if data, ok := v.Contiguous(); ok {
		return copy(dst[:n], data)
	}
	for i := range n {
		dst[i] = v.at(i)
	}
	return n
}

// indexer returns the cheapest index closure for src.
func indexer[T any](src Sequence[T]) IndexFunc[T] {
	switch s := src.(type) {
	case View[T]:
		if s.data != nil {
			data := s.data
			return func(i int) T { return data[i] }
		}
		return s.at
	case Slice[T]:
		return func(i int) T { return s[i] }
	case nil:
		panic(newArgumentError("view", "nil source sequence"))
	default:
		return src.At
	}
}

// lengthOf returns the length src reports, or Unbounded.
func lengthOf[T any](src Sequence[T]) int {
	if l, ok := src.(interface{ Len() int }); ok {
		return l.Len()
	}
	return Unbounded
}
