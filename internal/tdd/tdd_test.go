package tdd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tdd/internal/config"
	"github.com/born-ml/tdd/internal/dense"
	"github.com/born-ml/tdd/internal/node"
)

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Epsilon = -1
	_, err := NewEngine(cfg)
	assert.Error(t, err)

	assert.Panics(t, func() {
		cfg := config.Default()
		cfg.Coordinator = "sifting"
		MustEngine(cfg)
	})
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	orders := [][]int{nil, {0, 1, 2}, {2, 0, 1}, {1, 2, 0}, {2, 1, 0}}
	for _, coordinator := range []string{"trivial", "global"} {
		e := newEngine(t, coordinator)
		a := randomArray(t, rng, 2, 3, 2)
		for _, ord := range orders {
			var opts []TensorOption
			if ord != nil {
				opts = append(opts, WithOrder(ord...))
			}
			d := build(t, e, a, opts...)
			assertArray(t, a, d.Materialize())
			if ord != nil {
				assert.Equal(t, ord, d.StorageOrder())
			}
		}
	}
}

func TestRoundTripBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	e := newEngine(t, "trivial")
	a := randomArray(t, rng, 3, 2, 2)

	d := build(t, e, a, WithBatch(1), WithOrder(1, 0))
	assert.Equal(t, []int{3}, []int(d.ParallelShape()))
	assert.Equal(t, []int{2, 2}, []int(d.Shape()))
	assert.Len(t, d.Weight(), 3)
	assertArray(t, a, d.Materialize())
}

func TestScalarDiagrams(t *testing.T) {
	e := newEngine(t, "trivial")
	s := e.Scalar(2 + 1i)
	assert.Equal(t, node.Terminal, s.Root())
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, complex(2, 1), s.Materialize().Data()[0])

	a, err := dense.New(dense.Shape{}, []complex128{3})
	require.NoError(t, err)
	d := build(t, e, a)
	assert.Equal(t, 0, d.Rank())
	assert.Equal(t, complex(3, 0), d.Materialize().Data()[0])
}

func TestAsTensorErrors(t *testing.T) {
	e := newEngine(t, "trivial")
	a := realArray(t, []int{2, 2}, 1, 2, 3, 4)
	before := e.Stats().Nodes

	_, err := e.AsTensor(a, WithOrder(0))
	assert.ErrorIs(t, err, ErrShapeOrderMismatch)
	_, err = e.AsTensor(a, WithOrder(1, 1))
	assert.ErrorIs(t, err, ErrShapeOrderMismatch)
	_, err = e.AsTensor(a, WithBatch(3))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	g := newEngine(t, "global")
	_, err = g.AsTensor(a, WithLabels(4, 4))
	assert.ErrorIs(t, err, ErrOrderIncompatible)

	assert.Equal(t, before, e.Stats().Nodes)
}

func TestCanonicalUniqueness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	e := newEngine(t, "trivial")
	a := randomArray(t, rng, 2, 2, 2)

	x := build(t, e, a)
	y := build(t, e, a.Clone())
	assert.Equal(t, x.Root(), y.Root())
	assert.True(t, Equal(x, y))

	// A scaled copy shares every node; only the dangling weight differs.
	scaled := a.Clone()
	for i := range scaled.Data() {
		scaled.Data()[i] *= 3i
	}
	z := build(t, e, scaled)
	assert.Equal(t, x.Root(), z.Root())
	assert.False(t, Equal(x, z))
	assert.True(t, Equal(x.Scale(3i), z))
}

func TestIdentityCompression(t *testing.T) {
	e := newEngine(t, "trivial")
	for n := 1; n <= 3; n++ {
		size := 1 << n
		shape := make([]int, 2*n)
		ord := make([]int, 0, 2*n)
		for k := 0; k < n; k++ {
			shape[k], shape[n+k] = 2, 2
			ord = append(ord, k, n+k)
		}
		data := make([]complex128, size*size)
		for i := 0; i < size; i++ {
			data[i*size+i] = 1
		}
		a, err := dense.New(dense.Shape(shape), data)
		require.NoError(t, err)

		d := build(t, e, a, WithOrder(ord...))
		assert.Equal(t, 3*n+1, d.Size(), "identity of size %d", size)
		assertArray(t, a, d.Materialize())
	}

	rng := rand.New(rand.NewSource(4))
	r := build(t, e, randomArray(t, rng, 2, 2, 2, 2), WithOrder(0, 2, 1, 3))
	assert.Equal(t, 16, r.Size())
	assert.Greater(t, r.Size(), 7)
}

func TestDontCareAxes(t *testing.T) {
	e := newEngine(t, "trivial")
	// Value depends on the first axis only.
	a := realArray(t, []int{2, 3}, 1, 1, 1, 5, 5, 5)
	d := build(t, e, a)
	assert.Equal(t, 2, d.Size())
	assertArray(t, a, d.Materialize())

	c := realArray(t, []int{2, 2}, 7, 7, 7, 7)
	assert.Equal(t, node.Terminal, build(t, e, c).Root())
}

func TestClone(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	e := newEngine(t, "trivial")
	d := build(t, e, randomArray(t, rng, 2, 2))
	c := d.Clone()
	assert.True(t, Equal(d, c))
	c.Weight()[0] = 99
	assert.True(t, Equal(d, c))
	assert.Contains(t, d.String(), "shape=[2 2]")
}
