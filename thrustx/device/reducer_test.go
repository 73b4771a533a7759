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
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-thrustx/thrustx"
	"github.com/ajroetker/go-thrustx/thrustx/contrib/workerpool"
)

// foldSegments is the sequential reference for ReduceByN.
func foldSegments[T any](in thrustx.View[T], n int, op thrustx.Operator[T], init T) []T {
	out := make([]T, in.Len()/n)
	for s := range out {
		acc := init
		for i := s * n; i < (s+1)*n; i++ {
			acc = op.Apply(acc, in.At(i))
		}
		out[s] = acc
	}
	return out
}

func executors(t *testing.T) map[string]Executor {
	pool := workerpool.New(4)
	t.Cleanup(pool.Close)
	single := workerpool.New(1)
	t.Cleanup(single.Close)
	return map[string]Executor{
		"pool":        pool,
		"pool_single": single,
		"goroutines":  GoExecutor{Limit: 3},
	}
}

func TestHostScenario(t *testing.T) {
	be := Host[int32]()
	out := make([]int32, 3)
	require.NoError(t, thrustx.ReduceSlice(be, []int32{1, 2, 3, 4, 5, 6}, out, 2, thrustx.Plus[int32]{}, 0))
	require.Equal(t, []int32{3, 7, 11}, out)
}

func TestReducerGeometries(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := lo.Times(840, func(int) int64 { return rng.Int63n(1000) - 500 })

	ops := map[string]thrustx.Operator[int64]{
		"plus": thrustx.Plus[int64]{},
		"max":  thrustx.Maximum[int64]{},
		"min":  thrustx.Minimum[int64]{},
	}

	for execName, exec := range executors(t) {
		for _, blockLen := range []int{1, 3, 7, 64, 0} {
			for _, n := range []int{1, 2, 5, 7, 8, 120, 840} {
				for opName, op := range ops {
					name := fmt.Sprintf("%s/block=%d/n=%d/%s", execName, blockLen, n, opName)
					t.Run(name, func(t *testing.T) {
						alloc := NewAllocator(0)
						be := New[int64](WithExecutor(exec), WithBlockLen(blockLen), WithAllocator(alloc))
						in := thrustx.Of(data)
						got := make([]int64, len(data)/n)
						require.NoError(t, thrustx.ReduceByN(be, in, got, n, op, 17))
						if diff := cmp.Diff(foldSegments(in, n, op, 17), got); diff != "" {
							t.Errorf("mismatch (-want +got):\n%s", diff)
						}
						st := alloc.Stats()
						require.Equal(t, uint64(1), st.Allocs)
						require.Equal(t, uint64(1), st.Frees)
						require.Zero(t, st.LiveBytes)
					})
				}
			}
		}
	}
}

func TestReducerOverComposedViews(t *testing.T) {
	base := []float64{1, 2, 3, 4, 5}
	views := map[string]thrustx.View[float64]{
		"cycle":     thrustx.Cycle(thrustx.Of(base), 5).Take(60),
		"replicate": thrustx.Replicate(thrustx.Of(base), 12),
		"append":    thrustx.Append(thrustx.Of(base), 5, 10).Take(60),
		"prepend":   thrustx.Prepend(thrustx.Cycle(thrustx.Of(base), 5), 59, -1),
		"outer": thrustx.OuterProduct(thrustx.Of(base), 5, thrustx.Of(base[:4]), 4,
			func(a, b float64) float64 { return a * b }).Take(20),
		"nested": thrustx.Cycle(thrustx.Append(thrustx.Replicate(thrustx.Of(base), 2), 10, 0), 11).Take(66),
	}
	for name, v := range views {
		for _, n := range []int{1, 2, 4, 5} {
			if v.Len()%n != 0 {
				continue
			}
			t.Run(fmt.Sprintf("%s/n=%d", name, n), func(t *testing.T) {
				be := New[float64](WithBlockLen(3), WithAllocator(NewAllocator(0)))
				got := make([]float64, v.Len()/n)
				require.NoError(t, thrustx.ReduceByN(be, v, got, n, thrustx.Plus[float64]{}, 0.5))
				require.Equal(t, foldSegments(v, n, thrustx.Plus[float64]{}, 0.5), got)
			})
		}
	}
}

func TestReducerSIMDSum(t *testing.T) {
	for _, size := range []int{1, 3, 8, 15, 16, 17, 33, 100, 4096} {
		data32 := lo.Times(size*4, func(i int) float32 { return float32(i%13) - 6 })
		data64 := lo.Map(data32, func(x float32, _ int) float64 { return float64(x) })

		out32 := make([]float32, 4)
		require.NoError(t, thrustx.ReduceSlice(New[float32](WithBlockLen(37)), data32, out32, size, thrustx.Plus[float32]{}, 1))
		require.Equal(t, foldSegments(thrustx.Of(data32), size, thrustx.Plus[float32]{}, 1), out32, "float32 size=%d", size)

		out64 := make([]float64, 4)
		require.NoError(t, thrustx.ReduceSlice(Host[float64](), data64, out64, size, thrustx.Plus[float64]{}, 1))
		require.Equal(t, foldSegments(thrustx.Of(data64), size, thrustx.Plus[float64]{}, 1), out64, "float64 size=%d", size)
	}
}

func TestSumFloats(t *testing.T) {
	require.Zero(t, sumFloats([]float32{}))
	v := lo.Times(67, func(i int) float64 { return float64(i) })
	require.Equal(t, float64(66*67/2), sumFloats(v))
}

func TestReducerQuerySize(t *testing.T) {
	r := NewReducer[float64](GoExecutor{}, 4)
	tests := []struct {
		segments, size, want int
	}{
		{3, 2, 3 * 1 * 8},
		{3, 4, 3 * 1 * 8},
		{3, 5, 3 * 2 * 8},
		{1, 17, 1 * 5 * 8},
		{0, 9, 0},
	}
	for _, tt := range tests {
		got, err := r.QuerySize(thrustx.View[float64]{}, nil, tt.segments, tt.size, thrustx.Plus[float64]{}, 0)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "segments=%d size=%d", tt.segments, tt.size)
	}

	_, err := r.QuerySize(thrustx.View[float64]{}, nil, 1, 0, thrustx.Plus[float64]{}, 0)
	require.ErrorIs(t, err, thrustx.ErrInvalidArgument)
}

func TestReducerDefaultBlockLen(t *testing.T) {
	require.Equal(t, DefaultBlockBytes/4, NewReducer[float32](nil, 0).BlockLen())
	require.Equal(t, DefaultBlockBytes/8, NewReducer[int64](nil, 0).BlockLen())
}

func TestReducerScratchChecks(t *testing.T) {
	r := NewReducer[int64](GoExecutor{}, 2)
	in := thrustx.Of([]int64{1, 2, 3, 4})
	out := make([]int64, 2)

	need, err := r.QuerySize(in, out, 2, 2, thrustx.Plus[int64]{}, 0)
	require.NoError(t, err)

	err = r.Execute(make([]byte, need-1), in, out, 2, 2, thrustx.Plus[int64]{}, 0)
	require.ErrorIs(t, err, ErrScratchTooSmall)

	buf, err := NewAllocator(0).Allocate(need + 1)
	require.NoError(t, err)
	err = r.Execute(buf[1:], in, out, 2, 2, thrustx.Plus[int64]{}, 0)
	require.ErrorIs(t, err, ErrScratchTooSmall, "misaligned scratch")

	err = r.Execute(buf[:need], in, out[:1], 2, 2, thrustx.Plus[int64]{}, 0)
	require.ErrorIs(t, err, thrustx.ErrInvalidArgument)

	err = r.Execute(buf[:need], in, out, 3, 2, thrustx.Plus[int64]{}, 0)
	require.ErrorIs(t, err, thrustx.ErrInvalidArgument, "input shorter than the geometry")
}

func TestReducerPanicReleasesScratch(t *testing.T) {
	for name, exec := range executors(t) {
		t.Run(name, func(t *testing.T) {
			alloc := NewAllocator(0)
			be := New[int](WithExecutor(exec), WithBlockLen(2), WithAllocator(alloc))
			bad := thrustx.BinaryOp[int](func(a, b int) int {
				if b == 13 {
					panic("unlucky")
				}
				return a + b
			})
			in := thrustx.Counting(0).Take(40)
			err := thrustx.ReduceByN(be, in, make([]int, 4), 10, bad, 0)
			require.ErrorIs(t, err, ErrWorkerPanic)

			st := alloc.Stats()
			require.Equal(t, uint64(1), st.Allocs)
			require.Equal(t, uint64(1), st.Frees)
			require.Zero(t, st.LiveBytes)
		})
	}
}

func TestReducerOutOfMemory(t *testing.T) {
	alloc := NewAllocator(8)
	be := New[int64](WithBlockLen(1), WithAllocator(alloc))
	out := make([]int64, 2)
	err := thrustx.ReduceSlice(be, []int64{1, 2, 3, 4}, out, 2, thrustx.Plus[int64]{}, 0)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, []int64{0, 0}, out)
	require.Zero(t, alloc.Stats().Allocs)
}

func TestConcurrentReductions(t *testing.T) {
	alloc := NewAllocator(0)
	be := New[int64](WithAllocator(alloc), WithBlockLen(16))
	data := lo.Times(1024, func(i int) int64 { return int64(i) })
	want := foldSegments(thrustx.Of(data), 64, thrustx.Plus[int64]{}, 0)

	var g errgroup.Group
	results := make([][]int64, 16)
	for i := range results {
		g.Go(func() error {
			results[i] = make([]int64, 16)
			return thrustx.ReduceSlice(be, data, results[i], 64, thrustx.Plus[int64]{}, 0)
		})
	}
	require.NoError(t, g.Wait())
	for i, got := range results {
		require.Equal(t, want, got, "call %d", i)
	}

	st := alloc.Stats()
	require.Equal(t, uint64(16), st.Allocs)
	require.Equal(t, uint64(16), st.Frees)
	require.Zero(t, st.LiveBytes)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("THRUSTX_NUM_WORKERS", "3")
	t.Setenv("THRUSTX_BLOCK_LEN", "128")
	t.Setenv("THRUSTX_SCRATCH_LIMIT", "not-a-number")
	require.Equal(t, Config{NumWorkers: 3, BlockLen: 128}, ConfigFromEnv())

	t.Setenv("THRUSTX_SCRATCH_LIMIT", "1048576")
	t.Setenv("THRUSTX_NUM_WORKERS", "-2")
	require.Equal(t, Config{BlockLen: 128, ScratchLimit: 1 << 20}, ConfigFromEnv())
}

func TestInfo(t *testing.T) {
	info := Info()
	require.NotEmpty(t, info.Arch)
	require.NotEmpty(t, info.SIMD)
	require.Positive(t, info.VectorBytes)
	require.Equal(t, CacheLine, info.CacheLine)
	require.Positive(t, info.NumWorkers)
	require.Contains(t, info.String(), info.SIMD)
}

func BenchmarkHostReduceSum(b *testing.B) {
	data := lo.Times(1<<20, func(i int) float32 { return float32(i & 7) })
	out := make([]float32, 1<<10)
	be := Host[float32]()

	b.ResetTimer()
	for b.Loop() {
		_ = thrustx.ReduceSlice(be, data, out, 1<<10, thrustx.Plus[float32]{}, 0)
	}
}
