package algebra

import (
	"encoding/binary"
	"fmt"

	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/weight"
)

// sumKey identifies a memoized sum (x, 1) + (y, ratio) with x < y.
type sumKey struct {
	x, y  node.ID
	ratio string
}

func (a *Algebra) ratioKey(r weight.Vec) string {
	keys := r.AppendKeys(make([]int64, 0, 2*len(r)), a.eps)
	buf := make([]byte, 0, 8*len(keys))
	for _, k := range keys {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(k))
	}
	return string(buf)
}

// Sum returns the canonical edge of x + y. Both operands must share the batch
// width and the storage axes they branch on.
//
// Results are memoized by the ordered node pair and the weight ratio y/x, so the
// same sub-sum reached under different incoming weights is computed once.
func (a *Algebra) Sum(x, y Edge) Edge {
	if len(x.Weight) != len(y.Weight) {
		panic(fmt.Sprintf("algebra: sum of batch widths %d and %d", len(x.Weight), len(y.Weight)))
	}
	if a.IsZero(x) {
		return a.edge(y.Node, y.Weight)
	}
	if a.IsZero(y) {
		return a.edge(x.Node, x.Weight)
	}
	if x.Node == y.Node {
		return a.edge(x.Node, x.Weight.Add(y.Weight))
	}
	if x.Node > y.Node {
		x, y = y, x
	}

	// A weight vanishing in some batch element has no usable ratio.
	if x.Weight.HasZero(a.eps) {
		return a.sumRec(x, y)
	}

	ratio := y.Weight.Div(x.Weight)
	key := sumKey{x: x.Node, y: y.Node, ratio: a.ratioKey(ratio)}
	if e, ok := a.sumCache[key]; ok {
		a.obs.ObserveSumCache(true)
		return a.edge(e.Node, e.Weight.Mul(x.Weight))
	}
	a.obs.ObserveSumCache(false)

	e := a.sumRec(Edge{Node: x.Node, Weight: weight.Ones(len(ratio))}, Edge{Node: y.Node, Weight: ratio})
	if a.cacheLimit > 0 && len(a.sumCache) >= a.cacheLimit {
		clear(a.sumCache)
	}
	a.sumCache[key] = e
	return a.edge(e.Node, e.Weight.Mul(x.Weight))
}

// sumRec expands both operands along the shallower of their two axes.
func (a *Algebra) sumRec(x, y Edge) Edge {
	nx := a.table.Node(x.Node)
	ny := a.table.Node(y.Node)
	d := min(nx.Depth(), ny.Depth())

	arity := nx.Arity()
	if nx.Depth() != d {
		arity = ny.Arity()
	} else if ny.Depth() == d && ny.Arity() != arity {
		panic(fmt.Sprintf("algebra: sum of nodes with arity %d and %d at depth %d", arity, ny.Arity(), d))
	}

	succ := make([]Edge, arity)
	for k := range succ {
		succ[k] = a.Sum(branch(x, nx, d, k), branch(y, ny, d, k))
	}
	return a.Normalize(d, succ, weight.Ones(len(x.Weight)))
}
