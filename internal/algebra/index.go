package algebra

import (
	"fmt"
	"sort"

	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/weight"
)

// Fix pins storage position Pos to branch Value.
type Fix struct {
	Pos   int
	Value int
}

// Index fixes the given storage positions of e, whose live axes have the arities
// in dims, and returns the reduced edge. The remaining axes are renumbered
// contiguously: an axis at depth d moves to d minus the number of fixed
// positions below d. Fixing an axis the diagram skips is a no-op on the values.
//
// Arguments are validated before any node is created.
func (a *Algebra) Index(e Edge, dims []int, fixes []Fix) (Edge, error) {
	value := make([]int, len(dims))
	for i := range value {
		value[i] = -1
	}
	positions := make([]int, 0, len(fixes))
	for _, f := range fixes {
		if f.Pos < 0 || f.Pos >= len(dims) {
			return Edge{}, fmt.Errorf("position %d with %d live axes: %w", f.Pos, len(dims), ErrIndexOutOfRange)
		}
		if value[f.Pos] >= 0 {
			return Edge{}, fmt.Errorf("position %d fixed twice: %w", f.Pos, ErrIndexOutOfRange)
		}
		if f.Value < 0 || f.Value >= dims[f.Pos] {
			return Edge{}, fmt.Errorf("value %d for axis of size %d: %w", f.Value, dims[f.Pos], ErrInvalidBranchValue)
		}
		value[f.Pos] = f.Value
		positions = append(positions, f.Pos)
	}
	if len(positions) == 0 || a.IsZero(e) {
		return a.edge(e.Node, e.Weight), nil
	}
	sort.Ints(positions)

	width := len(e.Weight)
	memo := make(map[node.ID]Edge)
	var rec func(id node.ID) Edge
	rec = func(id node.ID) Edge {
		if id == node.Terminal {
			return Edge{Node: node.Terminal, Weight: weight.Ones(width)}
		}
		if r, ok := memo[id]; ok {
			return r
		}
		n := a.table.Node(id)
		d := n.Depth()

		var r Edge
		if d < len(value) && value[d] >= 0 {
			v := value[d]
			c := rec(n.Successor(v))
			r = a.edge(c.Node, n.Weight(v).Mul(c.Weight))
		} else {
			succ := make([]Edge, n.Arity())
			for k := range succ {
				c := rec(n.Successor(k))
				succ[k] = Edge{Node: c.Node, Weight: n.Weight(k).Mul(c.Weight)}
			}
			shift := sort.SearchInts(positions, d)
			r = a.Normalize(d-shift, succ, weight.Ones(width))
		}
		memo[id] = r
		return r
	}

	r := rec(e.Node)
	return a.edge(r.Node, e.Weight.Mul(r.Weight)), nil
}
