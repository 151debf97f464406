// Package algebra implements the weighted-node algebra of decision diagrams:
// Normalize, Sum and Index, plus the Product, Build and Materialize routines
// composed from them.
//
// Every node is born in Normalize, which factors a canonical scalar out of the
// successor weights before consulting the unique table. Two edges denote the
// same tensor iff their node ids are equal and their weights agree within the
// table's epsilon.
package algebra

import (
	"math/cmplx"

	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/weight"
)

// Edge is a weighted reference to a node.
type Edge struct {
	Node   node.ID
	Weight weight.Vec
}

// Width returns the batch width of the edge weight.
func (e Edge) Width() int {
	return len(e.Weight)
}

// CacheObserver receives memoization events.
type CacheObserver interface {
	ObserveSumCache(hit bool)
}

type noopCacheObserver struct{}

func (noopCacheObserver) ObserveSumCache(bool) {}

// Algebra holds the memoization caches on top of a unique table. It is not safe
// for concurrent use, except that Build may fan out internally.
type Algebra struct {
	table *node.Table
	eps   float64

	sumCache   map[sumKey]Edge
	cacheLimit int
	obs        CacheObserver
}

// New creates an algebra over table. A cacheLimit of zero or less means the sum
// cache is never evicted.
func New(table *node.Table, cacheLimit int, obs CacheObserver) *Algebra {
	if obs == nil {
		obs = noopCacheObserver{}
	}
	return &Algebra{
		table:      table,
		eps:        table.Epsilon(),
		sumCache:   make(map[sumKey]Edge),
		cacheLimit: cacheLimit,
		obs:        obs,
	}
}

// Table returns the unique table.
func (a *Algebra) Table() *node.Table {
	return a.table
}

// ClearCaches drops every memoized result. Nodes are untouched.
func (a *Algebra) ClearCaches() {
	clear(a.sumCache)
}

// CacheLen returns the number of memoized sums.
func (a *Algebra) CacheLen() int {
	return len(a.sumCache)
}

// Zero returns the canonical all-zero edge of the given batch width.
func Zero(width int) Edge {
	return Edge{Node: node.Terminal, Weight: weight.Zeros(width)}
}

// Scalar returns a terminal edge carrying w.
func (a *Algebra) Scalar(w weight.Vec) Edge {
	return a.edge(node.Terminal, w)
}

// Scale multiplies the edge weight by c.
func (a *Algebra) Scale(e Edge, c complex128) Edge {
	return a.edge(e.Node, e.Weight.Scale(c))
}

// IsZero reports whether e is the zero tensor.
func (a *Algebra) IsZero(e Edge) bool {
	return e.Weight.IsZero(a.eps)
}

// Equal reports whether two edges denote the same tensor.
func (a *Algebra) Equal(x, y Edge) bool {
	if a.IsZero(x) && a.IsZero(y) {
		return len(x.Weight) == len(y.Weight)
	}
	return x.Node == y.Node && x.Weight.ApproxEqual(y.Weight, a.eps)
}

// edge builds an edge, collapsing zero weights to the canonical zero.
func (a *Algebra) edge(id node.ID, w weight.Vec) Edge {
	if w.IsZero(a.eps) {
		return Zero(len(w))
	}
	return Edge{Node: id, Weight: w}
}

// Normalize assembles a node at depth from already canonical successor edges and
// returns it as a canonical edge scaled by w.
//
// Per batch element, the first successor weight whose magnitude exceeds epsilon
// is factored out into the returned weight. When all branches carry the same node
// and the same normalized weight, the axis is redundant: no node is created and
// the shared successor is returned with the factor folded in.
func (a *Algebra) Normalize(depth int, succ []Edge, w weight.Vec) Edge {
	width := len(w)
	nodes := make([]node.ID, len(succ))
	ws := make([]weight.Vec, len(succ))
	for k, e := range succ {
		if e.Weight.IsZero(a.eps) {
			nodes[k] = node.Terminal
			ws[k] = weight.Zeros(width)
			continue
		}
		nodes[k] = e.Node
		ws[k] = e.Weight
	}

	norm := weight.Zeros(width)
	for p := 0; p < width; p++ {
		for k := range ws {
			if cmplx.Abs(ws[k][p]) > a.eps {
				norm[p] = ws[k][p]
				break
			}
		}
	}
	if norm.IsZero(a.eps) {
		return Zero(width)
	}
	for k := range ws {
		ws[k] = ws[k].Div(norm).Snap(a.eps)
	}

	redundant := true
	for k := 1; k < len(ws) && redundant; k++ {
		redundant = nodes[k] == nodes[0] && ws[k].ApproxEqual(ws[0], a.eps)
	}
	if redundant {
		return a.edge(nodes[0], w.Mul(norm).Mul(ws[0]))
	}

	id := a.table.LookupOrCreate(depth, ws, nodes)
	return a.edge(id, w.Mul(norm))
}

// branch returns the edge followed by e along value k of the axis at depth d.
// An edge whose node lies deeper than d does not depend on that axis and is
// returned unchanged.
func branch(e Edge, n *node.Node, d, k int) Edge {
	if n.Depth() != d {
		return e
	}
	return Edge{Node: n.Successor(k), Weight: e.Weight.Mul(n.Weight(k))}
}
