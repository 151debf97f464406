package algebra

import (
	"fmt"

	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/weight"
)

// Product returns the outer product of two diagrams over disjoint axes. Storage
// depth d of x is placed at depth mapX[d] of the result and depth d of y at
// mapY[d]. Both maps must be strictly increasing and together cover the result
// depths without overlap.
func (a *Algebra) Product(x, y Edge, mapX, mapY []int) Edge {
	if len(x.Weight) != len(y.Weight) {
		panic(fmt.Sprintf("algebra: product of batch widths %d and %d", len(x.Weight), len(y.Weight)))
	}
	width := len(x.Weight)
	if a.IsZero(x) || a.IsZero(y) {
		return Zero(width)
	}

	mapped := func(n *node.Node, m []int) int {
		if n.IsTerminal() {
			return node.TerminalDepth
		}
		if n.Depth() >= len(m) {
			panic(fmt.Sprintf("algebra: depth %d outside product map of length %d", n.Depth(), len(m)))
		}
		return m[n.Depth()]
	}

	memo := make(map[[2]node.ID]Edge)
	var rec func(xi, yi node.ID) Edge
	rec = func(xi, yi node.ID) Edge {
		if xi == node.Terminal && yi == node.Terminal {
			return Edge{Node: node.Terminal, Weight: weight.Ones(width)}
		}
		key := [2]node.ID{xi, yi}
		if r, ok := memo[key]; ok {
			return r
		}
		nx := a.table.Node(xi)
		ny := a.table.Node(yi)
		mx, my := mapped(nx, mapX), mapped(ny, mapY)

		var r Edge
		if mx < my {
			succ := make([]Edge, nx.Arity())
			for k := range succ {
				c := rec(nx.Successor(k), yi)
				succ[k] = Edge{Node: c.Node, Weight: nx.Weight(k).Mul(c.Weight)}
			}
			r = a.Normalize(mx, succ, weight.Ones(width))
		} else {
			succ := make([]Edge, ny.Arity())
			for k := range succ {
				c := rec(xi, ny.Successor(k))
				succ[k] = Edge{Node: c.Node, Weight: ny.Weight(k).Mul(c.Weight)}
			}
			r = a.Normalize(my, succ, weight.Ones(width))
		}
		memo[key] = r
		return r
	}

	r := rec(x.Node, y.Node)
	return a.edge(r.Node, x.Weight.Mul(y.Weight).Mul(r.Weight))
}

// Relabel moves every storage depth d of e to depth m[d]. m must be strictly
// increasing.
func (a *Algebra) Relabel(e Edge, m []int) Edge {
	return a.Product(e, Edge{Node: node.Terminal, Weight: weight.Ones(len(e.Weight))}, m, nil)
}
