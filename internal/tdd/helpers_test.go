package tdd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tdd/internal/config"
	"github.com/born-ml/tdd/internal/dense"
)

const tol = 1e-9

func newEngine(t *testing.T, coordinator string) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Coordinator = coordinator
	cfg.Parallel.Enabled = true
	cfg.Parallel.MinItems = 2
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func randomArray(t *testing.T, rng *rand.Rand, shape ...int) *dense.Array {
	t.Helper()
	data := make([]complex128, dense.Shape(shape).NumElements())
	for i := range data {
		data[i] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
	}
	a, err := dense.New(dense.Shape(shape), data)
	require.NoError(t, err)
	return a
}

func realArray(t *testing.T, shape []int, values ...float64) *dense.Array {
	t.Helper()
	a, err := dense.FromReal(dense.Shape(shape), values)
	require.NoError(t, err)
	return a
}

func build(t *testing.T, e *Engine, a *dense.Array, opts ...TensorOption) *TDD {
	t.Helper()
	d, err := e.AsTensor(a, opts...)
	require.NoError(t, err)
	return d
}

func assertArray(t *testing.T, want, got *dense.Array) {
	t.Helper()
	require.Equal(t, []int(want.Shape()), []int(got.Shape()))
	w, g := want.Data(), got.Data()
	for i := range w {
		assert.InDelta(t, real(w[i]), real(g[i]), tol, "real part at %d", i)
		assert.InDelta(t, imag(w[i]), imag(g[i]), tol, "imag part at %d", i)
	}
}

// unravel converts a flat row-major offset into coordinates.
func unravel(shape dense.Shape, flat int) []int {
	idx := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		idx[i] = flat % shape[i]
		flat /= shape[i]
	}
	return idx
}

// denseTensordot is the brute-force reference for Tensordot.
func denseTensordot(a, b *dense.Array, axesA, axesB []int) *dense.Array {
	sa, sb := a.Shape(), b.Shape()
	contracted := func(axes []int, ax int) int {
		for k, x := range axes {
			if x == ax {
				return k
			}
		}
		return -1
	}
	var outShape dense.Shape
	var freeA, freeB []int
	for ax := range sa {
		if contracted(axesA, ax) < 0 {
			freeA = append(freeA, ax)
			outShape = append(outShape, sa[ax])
		}
	}
	for ax := range sb {
		if contracted(axesB, ax) < 0 {
			freeB = append(freeB, ax)
			outShape = append(outShape, sb[ax])
		}
	}
	sumShape := make(dense.Shape, len(axesA))
	for k, ax := range axesA {
		sumShape[k] = sa[ax]
	}

	out := dense.Zeros(outShape)
	for o := 0; o < outShape.NumElements(); o++ {
		oi := unravel(outShape, o)
		var acc complex128
		for s := 0; s < sumShape.NumElements(); s++ {
			si := unravel(sumShape, s)
			ia := make([]int, len(sa))
			ib := make([]int, len(sb))
			for k, ax := range freeA {
				ia[ax] = oi[k]
			}
			for k, ax := range freeB {
				ib[ax] = oi[len(freeA)+k]
			}
			for k := range axesA {
				ia[axesA[k]] = si[k]
				ib[axesB[k]] = si[k]
			}
			acc += a.At(ia...) * b.At(ib...)
		}
		out.Data()[o] = acc
	}
	return out
}
