package algebra

import (
	"fmt"

	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/parallel"
	"github.com/born-ml/tdd/internal/weight"
)

// Layout describes a dense row-major buffer holding width batch elements, each a
// block of the logical axes dims with the given strides.
type Layout struct {
	Width   int
	Dims    []int
	Strides []int
}

func (l Layout) block() int {
	n := 1
	for _, d := range l.Dims {
		n *= d
	}
	return n
}

// Build constructs the canonical diagram of data. order[d] is the logical axis
// branched on at storage depth d. Nodes are created leaves first, so every
// intermediate node is canonical by construction. The branches of the root
// axis may be built concurrently according to cfg.
func (a *Algebra) Build(data []complex128, l Layout, order []int, cfg parallel.Config) Edge {
	n := l.block()
	if len(data) != n*l.Width {
		panic(fmt.Sprintf("algebra: build: %d values for layout of %d", len(data), n*l.Width))
	}

	var rec func(level, offset int) Edge
	rec = func(level, offset int) Edge {
		if level == len(order) {
			w := make(weight.Vec, l.Width)
			for p := range w {
				w[p] = data[p*n+offset]
			}
			return a.edge(node.Terminal, w)
		}
		ax := order[level]
		succ := make([]Edge, l.Dims[ax])
		for k := range succ {
			succ[k] = rec(level+1, offset+k*l.Strides[ax])
		}
		return a.Normalize(level, succ, weight.Ones(l.Width))
	}

	if len(order) == 0 {
		return rec(0, 0)
	}

	ax := order[0]
	succ := make([]Edge, l.Dims[ax])
	// Workers only touch the unique table, which serializes its own inserts.
	_ = parallel.For(len(succ), func(k int) error {
		succ[k] = rec(1, k*l.Strides[ax])
		return nil
	}, cfg)
	return a.Normalize(0, succ, weight.Ones(l.Width))
}

// Materialize expands e into a dense buffer of shape [width, dims...] where dims
// are the storage-ordered axis sizes. Skipped axes are replicated.
func (a *Algebra) Materialize(e Edge, dims []int) []complex128 {
	width := len(e.Weight)
	strides := make([]int, len(dims))
	n := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = n
		n *= dims[i]
	}
	out := make([]complex128, width*n)

	var rec func(id node.ID, w weight.Vec, level, base int)
	rec = func(id node.ID, w weight.Vec, level, base int) {
		if w.IsZero(0) {
			return
		}
		if level == len(dims) {
			if id != node.Terminal {
				panic(fmt.Sprintf("algebra: node %d below the last axis", id))
			}
			for p, v := range w {
				out[p*n+base] = v
			}
			return
		}
		nd := a.table.Node(id)
		switch {
		case nd.Depth() == level:
			if nd.Arity() != dims[level] {
				panic(fmt.Sprintf("algebra: node %d has arity %d, axis %d has size %d", id, nd.Arity(), level, dims[level]))
			}
			for k := 0; k < dims[level]; k++ {
				rec(nd.Successor(k), w.Mul(nd.Weight(k)), level+1, base+k*strides[level])
			}
		case nd.Depth() > level:
			for k := 0; k < dims[level]; k++ {
				rec(id, w, level+1, base+k*strides[level])
			}
		default:
			panic(fmt.Sprintf("algebra: node %d at depth %d visited at level %d", id, nd.Depth(), level))
		}
	}
	rec(e.Node, e.Weight, 0, 0)
	return out
}
