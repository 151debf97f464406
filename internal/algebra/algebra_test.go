package algebra

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/parallel"
	"github.com/born-ml/tdd/internal/weight"
)

const eps = 1e-10

type cacheCounter struct{ hits, misses int }

func (c *cacheCounter) ObserveSumCache(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func newAlgebra(t *testing.T) *Algebra {
	t.Helper()
	return New(node.NewTable(eps, nil), 0, nil)
}

func rowMajor(dims []int) []int {
	strides := make([]int, len(dims))
	n := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = n
		n *= dims[i]
	}
	return strides
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// build constructs data of the given logical dims in identity storage order.
func build(a *Algebra, data []complex128, dims ...int) Edge {
	l := Layout{Width: 1, Dims: dims, Strides: rowMajor(dims)}
	return a.Build(data, l, identity(len(dims)), parallel.Config{})
}

func randomData(rng *rand.Rand, n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
	}
	return out
}

func assertClose(t *testing.T, want, got []complex128) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, real(want[i]), real(got[i]), 1e-9, "real part at %d", i)
		assert.InDelta(t, imag(want[i]), imag(got[i]), 1e-9, "imag part at %d", i)
	}
}

func TestNormalizeFactorsFirstNonZero(t *testing.T) {
	a := newAlgebra(t)
	e := a.Normalize(0, []Edge{
		{Node: node.Terminal, Weight: weight.Vec{0}},
		{Node: node.Terminal, Weight: weight.Vec{2}},
		{Node: node.Terminal, Weight: weight.Vec{4i}},
	}, weight.Vec{3})

	assert.Equal(t, weight.Vec{6}, e.Weight)
	n := a.Table().Node(e.Node)
	assert.Equal(t, weight.Vec{0}, n.Weight(0))
	assert.Equal(t, weight.Vec{1}, n.Weight(1))
	assert.Equal(t, weight.Vec{2i}, n.Weight(2))
}

func TestNormalizeZeroAndRedundant(t *testing.T) {
	a := newAlgebra(t)

	z := a.Normalize(0, []Edge{Zero(1), {Node: node.Terminal, Weight: weight.Vec{1e-12}}}, weight.Vec{1})
	assert.Equal(t, Zero(1), z)

	r := a.Normalize(0, []Edge{
		{Node: node.Terminal, Weight: weight.Vec{5}},
		{Node: node.Terminal, Weight: weight.Vec{5}},
	}, weight.Vec{2})
	assert.Equal(t, node.Terminal, r.Node)
	assert.Equal(t, weight.Vec{10}, r.Weight)
	assert.Equal(t, 1, a.Table().Len(), "redundant axes create no node")
}

func TestBuildMaterializeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := newAlgebra(t)
	dims := []int{2, 3, 2}
	data := randomData(rng, 12)

	for _, order := range [][]int{{0, 1, 2}, {2, 0, 1}, {1, 2, 0}} {
		l := Layout{Width: 1, Dims: dims, Strides: rowMajor(dims)}
		e := a.Build(data, l, order, parallel.Config{Enabled: true, NumWorkers: 2, MinItems: 2})

		storageDims := make([]int, len(order))
		for d, ax := range order {
			storageDims[d] = dims[ax]
		}
		got := a.Materialize(e, storageDims)

		// Reorder the reference into storage order.
		want := make([]complex128, len(data))
		sStrides := rowMajor(storageDims)
		lStrides := rowMajor(dims)
		for i := 0; i < 2; i++ {
			for j := 0; j < 3; j++ {
				for k := 0; k < 2; k++ {
					logical := []int{i, j, k}
					off := 0
					for d, ax := range order {
						off += logical[ax] * sStrides[d]
					}
					want[off] = data[i*lStrides[0]+j*lStrides[1]+k*lStrides[2]]
				}
			}
		}
		assertClose(t, want, got)
	}
}

func TestBuildScalar(t *testing.T) {
	a := newAlgebra(t)
	e := a.Build([]complex128{2 + 1i}, Layout{Width: 1}, nil, parallel.Config{})
	assert.Equal(t, node.Terminal, e.Node)
	assert.Equal(t, []complex128{2 + 1i}, a.Materialize(e, nil))
}

func TestCanonicalSharing(t *testing.T) {
	a := newAlgebra(t)
	data := []complex128{1, 2, 3, 4}
	scaled := []complex128{3i, 6i, 9i, 12i}

	x := build(a, data, 2, 2)
	y := build(a, data, 2, 2)
	z := build(a, scaled, 2, 2)

	assert.Equal(t, x, y)
	assert.Equal(t, x.Node, z.Node, "scalar multiples share the node")
	assert.True(t, x.Weight.Scale(3i).ApproxEqual(z.Weight, eps))
	assert.True(t, a.Equal(x, y))
	assert.False(t, a.Equal(x, z))
}

func TestDontCareReduction(t *testing.T) {
	a := newAlgebra(t)
	// f(i, j) = g(j): the first axis is redundant.
	e := build(a, []complex128{1, 5, 1, 5}, 2, 2)
	n := a.Table().Node(e.Node)
	assert.Equal(t, 1, n.Depth())
	assert.Equal(t, 2, a.Table().Size(e.Node))
	assertClose(t, []complex128{1, 5, 1, 5}, a.Materialize(e, []int{2, 2}))
}

func TestSumProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := newAlgebra(t)
	d1, d2, d3 := randomData(rng, 8), randomData(rng, 8), randomData(rng, 8)
	x, y, z := build(a, d1, 2, 2, 2), build(a, d2, 2, 2, 2), build(a, d3, 2, 2, 2)

	want := make([]complex128, 8)
	for i := range want {
		want[i] = d1[i] + d2[i] + d3[i]
	}
	dims := []int{2, 2, 2}

	xy := a.Sum(x, y)
	assert.True(t, a.Equal(xy, a.Sum(y, x)), "commutative")

	left := a.Sum(xy, z)
	right := a.Sum(x, a.Sum(y, z))
	assert.True(t, a.Equal(left, right), "associative")
	assertClose(t, want, a.Materialize(left, dims))
}

func TestSumWithNegationIsZero(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := newAlgebra(t)
	x := build(a, randomData(rng, 8), 2, 2, 2)

	z := a.Sum(x, a.Scale(x, -1))
	assert.Equal(t, Zero(1), z)
}

func TestSumBroadcastsSkippedAxes(t *testing.T) {
	a := newAlgebra(t)
	x := build(a, []complex128{1, 2, 1, 2}, 2, 2) // depends on axis 1 only
	y := build(a, []complex128{10, 10, 20, 20}, 2, 2) // depends on axis 0 only
	got := a.Materialize(a.Sum(x, y), []int{2, 2})
	assertClose(t, []complex128{11, 12, 21, 22}, got)

	s := a.Sum(x, a.Scalar(weight.Vec{1}))
	assertClose(t, []complex128{2, 3, 2, 3}, a.Materialize(s, []int{2, 2}))
}

func TestSumCache(t *testing.T) {
	obs := &cacheCounter{}
	a := New(node.NewTable(eps, nil), 0, obs)
	x := build(a, []complex128{1, 2, 3, 4}, 2, 2)
	y := build(a, []complex128{1, 0, 0, 1}, 2, 2)

	first := a.Sum(x, y)
	misses := obs.misses
	second := a.Sum(a.Scale(x, 2), a.Scale(y, 2))

	assert.Positive(t, a.CacheLen())
	assert.Equal(t, misses, obs.misses, "same ratio is served from the cache")
	assert.Positive(t, obs.hits)
	assert.True(t, a.Equal(a.Scale(first, 2), second))

	a.ClearCaches()
	assert.Equal(t, 0, a.CacheLen())
	assert.True(t, a.Equal(first, a.Sum(x, y)), "eviction only costs recomputation")
}

func TestSumCacheLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := New(node.NewTable(eps, nil), 2, nil)
	for i := 0; i < 5; i++ {
		a.Sum(build(a, randomData(rng, 4), 2, 2), build(a, randomData(rng, 4), 2, 2))
		assert.LessOrEqual(t, a.CacheLen(), 2)
	}
}

func TestBatchedWeights(t *testing.T) {
	a := newAlgebra(t)
	// Two batch elements of a length-2 vector; the second is all zero.
	data := []complex128{1, 2, 0, 0}
	l := Layout{Width: 2, Dims: []int{2}, Strides: []int{1}}
	e := a.Build(data, l, []int{0}, parallel.Config{})
	assertClose(t, data, a.Materialize(e, []int{2}))

	s := a.Sum(e, e)
	assertClose(t, []complex128{2, 4, 0, 0}, a.Materialize(s, []int{2}))
}
