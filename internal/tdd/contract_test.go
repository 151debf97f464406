package tdd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tdd/internal/dense"
)

func TestContractMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(30))
	for _, ord := range [][]int{{0, 1, 2, 3}, {3, 1, 0, 2}} {
		e := newEngine(t, "trivial")
		a := randomArray(t, rng, 2, 2, 2, 2)
		d := build(t, e, a, WithOrder(ord...))

		r, err := d.Contract([]int{0}, []int{2})
		require.NoError(t, err)
		require.Equal(t, []int{2, 2}, []int(r.Shape()))

		want := dense.Zeros(dense.Shape{2, 2})
		for j := 0; j < 2; j++ {
			for l := 0; l < 2; l++ {
				var acc complex128
				for i := 0; i < 2; i++ {
					acc += a.At(i, j, i, l)
				}
				want.Set(acc, j, l)
			}
		}
		assertArray(t, want, r.Materialize())
	}
}

func TestContractSeveralPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	e := newEngine(t, "trivial")
	a := randomArray(t, rng, 2, 3, 3, 2, 2)
	d := build(t, e, a)

	// Pairs (0,3) and (1,2); the second pair is renumbered after the first.
	r, err := d.Contract([]int{0, 1}, []int{3, 2})
	require.NoError(t, err)
	require.Equal(t, []int{2}, []int(r.Shape()))

	got := r.Materialize()
	for m := 0; m < 2; m++ {
		var acc complex128
		for i := 0; i < 2; i++ {
			for j := 0; j < 3; j++ {
				acc += a.At(i, j, j, i, m)
			}
		}
		assert.InDelta(t, real(acc), real(got.At(m)), tol)
		assert.InDelta(t, imag(acc), imag(got.At(m)), tol)
	}

	tr, err := build(t, e, realArray(t, []int{2, 2}, 1, 2, 3, 4)).Trace(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, real(tr.Materialize().Data()[0]), tol)
}

func TestContractErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	e := newEngine(t, "trivial")
	d := build(t, e, randomArray(t, rng, 2, 3, 2))
	before := e.Stats()

	_, err := d.Contract([]int{0}, []int{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = d.Contract([]int{0, 1}, []int{2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = d.Contract([]int{0}, []int{0})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = d.Contract([]int{0}, []int{5})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	assert.Equal(t, before, e.Stats())

	same, err := d.Contract(nil, nil)
	require.NoError(t, err)
	assert.True(t, Equal(d, same))
}

func TestTensordotMatchesDense(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	cases := []struct {
		name         string
		shapeA       []int
		shapeB       []int
		axesA, axesB []int
	}{
		{"matmul", []int{2, 3}, []int{3, 2}, []int{1}, []int{0}},
		{"outer", []int{2}, []int{3}, nil, nil},
		{"two axes", []int{2, 3, 2}, []int{2, 3, 2}, []int{0, 1}, []int{2, 1}},
		{"full", []int{2, 2}, []int{2, 2}, []int{0, 1}, []int{0, 1}},
	}
	for _, coordinator := range []string{"trivial", "global"} {
		for _, tc := range cases {
			t.Run(coordinator+"/"+tc.name, func(t *testing.T) {
				e := newEngine(t, coordinator)
				a := randomArray(t, rng, tc.shapeA...)
				b := randomArray(t, rng, tc.shapeB...)
				labelsB := make([]int, len(tc.shapeB))
				for i := range labelsB {
					labelsB[i] = 10 + i
				}
				x := build(t, e, a)
				y := build(t, e, b, WithLabels(labelsB...))

				r, err := Tensordot(x, y, tc.axesA, tc.axesB)
				require.NoError(t, err)
				assertArray(t, denseTensordot(a, b, tc.axesA, tc.axesB), r.Materialize())
			})
		}
	}
}

func TestTensordotGlobalSharedLabels(t *testing.T) {
	rng := rand.New(rand.NewSource(34))
	e := newEngine(t, "global")
	a := randomArray(t, rng, 2, 2)
	b := randomArray(t, rng, 2, 2)

	// a(i0, i1) b(i1, i2): the contracted axis carries the same label.
	x := build(t, e, a, WithLabels(0, 1))
	y := build(t, e, b, WithLabels(1, 2))
	r, err := Tensordot(x, y, []int{1}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, r.Info().Labels())
	assertArray(t, denseTensordot(a, b, []int{1}, []int{0}), r.Materialize())

	// Uncontracted axes may not share a label.
	_, err = Tensordot(x, y, nil, nil)
	assert.ErrorIs(t, err, ErrOrderIncompatible)
}

func TestTensordotN(t *testing.T) {
	rng := rand.New(rand.NewSource(35))
	e := newEngine(t, "trivial")
	a := randomArray(t, rng, 2, 2, 3)
	b := randomArray(t, rng, 2, 3, 2)
	x, y := build(t, e, a), build(t, e, b)

	r, err := TensordotN(x, y, 2)
	require.NoError(t, err)
	assertArray(t, denseTensordot(a, b, []int{1, 2}, []int{0, 1}), r.Materialize())

	_, err = TensordotN(x, y, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestTensordotRearrangement(t *testing.T) {
	rng := rand.New(rand.NewSource(36))
	e := newEngine(t, "trivial")
	a := randomArray(t, rng, 2, 3)
	b := randomArray(t, rng, 3, 2)
	x, y := build(t, e, a), build(t, e, b)
	want := denseTensordot(a, b, []int{1}, []int{0})

	r, err := Tensordot(x, y, []int{1}, []int{0}, WithRearrangement(false, true, false, true))
	require.NoError(t, err)
	assertArray(t, want, r.Materialize())

	before := e.Stats()
	_, err = Tensordot(x, y, []int{1}, []int{0}, WithRearrangement(true, true, true, false))
	assert.ErrorIs(t, err, ErrShapeOrderMismatch)
	_, err = Tensordot(x, y, []int{1}, []int{0}, WithRearrangement(true))
	assert.ErrorIs(t, err, ErrShapeOrderMismatch)
	assert.Equal(t, before, e.Stats())
}

func TestTensordotErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(37))
	e := newEngine(t, "trivial")
	x := build(t, e, randomArray(t, rng, 2, 3))
	y := build(t, e, randomArray(t, rng, 2, 3))
	z := build(t, e, randomArray(t, rng, 2, 2, 3), WithBatch(1))
	before := e.Stats()

	_, err := Tensordot(x, y, []int{1}, []int{0})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Tensordot(x, y, []int{1}, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Tensordot(x, y, []int{2}, []int{1})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = Tensordot(x, z, []int{1}, []int{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	assert.Equal(t, before, e.Stats())

	other := newEngine(t, "trivial")
	w := build(t, other, randomArray(t, rng, 3, 2))
	assert.Panics(t, func() { _, _ = Tensordot(x, w, []int{1}, []int{0}) })
}
