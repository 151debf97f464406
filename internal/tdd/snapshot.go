package tdd

import (
	"fmt"
	"slices"

	"github.com/born-ml/tdd/internal/algebra"
	"github.com/born-ml/tdd/internal/dense"
	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/order"
	"github.com/born-ml/tdd/internal/serialization"
	"github.com/born-ml/tdd/internal/weight"
)

// Export copies t and every node it reaches into a self-contained snapshot.
func (e *Engine) Export(t *TDD) *serialization.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(t)

	// Children have smaller ids than their parents, so ascending id order
	// lists every record after its successors.
	seen := map[node.ID]bool{}
	stack := []node.ID{t.edge.Node}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == node.Terminal || seen[id] {
			continue
		}
		seen[id] = true
		n := e.table.Node(id)
		for k := 0; k < n.Arity(); k++ {
			stack = append(stack, n.Successor(k))
		}
	}
	ids := make([]node.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	ref := map[node.ID]int32{node.Terminal: serialization.TerminalRef}
	records := make([]serialization.NodeRecord, len(ids))
	for i, id := range ids {
		n := e.table.Node(id)
		rec := serialization.NodeRecord{
			Depth:      int32(n.Depth()),
			Successors: make([]int32, n.Arity()),
			Weights:    make([][]complex128, n.Arity()),
		}
		for k := range rec.Successors {
			rec.Successors[k] = ref[n.Successor(k)]
			rec.Weights[k] = slices.Clone(n.Weight(k))
		}
		records[i] = rec
		ref[id] = int32(i)
	}

	var labels []int
	if t.info.Kind() == order.KindGlobal {
		labels = t.info.Labels()
	}
	return &serialization.Snapshot{
		Header: serialization.Header{
			FormatVersion: serialization.FormatVersion,
			Epsilon:       e.cfg.Epsilon,
			Coordinator:   t.info.Kind().String(),
			Labels:        labels,
			DataShape:     t.Shape(),
			ParallelShape: t.ParallelShape(),
			IndexOrder:    t.IndexOrder(),
			Width:         t.edge.Width(),
			Root:          ref[t.edge.Node],
			NodeCount:     len(records),
		},
		Weight: slices.Clone(t.edge.Weight),
		Nodes:  records,
	}
}

// Import rebuilds a snapshot in e. Every record passes through normalization
// again, so the result is canonical under e's tolerance and shares nodes with
// existing diagrams.
func (e *Engine) Import(s *serialization.Snapshot) (*TDD, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	h := s.Header
	if h.Coordinator != e.coord.Kind().String() {
		return nil, fmt.Errorf("snapshot of %s coordinator in %s engine: %w", h.Coordinator, e.coord.Kind(), ErrOrderIncompatible)
	}
	info, err := e.coord.CreateOrderInfo(len(h.DataShape), h.Labels)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("import")()

	width := h.Width
	built := make([]algebra.Edge, len(s.Nodes))
	resolve := func(ref int32) algebra.Edge {
		if ref == serialization.TerminalRef {
			return algebra.Edge{Node: node.Terminal, Weight: weight.Ones(width)}
		}
		return built[ref]
	}
	for i, rec := range s.Nodes {
		succ := make([]algebra.Edge, len(rec.Successors))
		for k, ref := range rec.Successors {
			c := resolve(ref)
			succ[k] = algebra.Edge{Node: c.Node, Weight: weight.Vec(rec.Weights[k]).Mul(c.Weight)}
		}
		built[i] = e.alg.Normalize(int(rec.Depth), succ, weight.Ones(width))
	}
	root := resolve(h.Root)
	// Scaling by one collapses a zero weight to the canonical zero.
	edge := e.alg.Scale(algebra.Edge{Node: root.Node, Weight: weight.Vec(s.Weight).Mul(root.Weight)}, 1)

	return &TDD{
		eng:        e,
		gen:        e.gen,
		edge:       edge,
		shape:      dense.Shape(h.DataShape).Clone(),
		parallel:   dense.Shape(h.ParallelShape).Clone(),
		indexOrder: slices.Clone(h.IndexOrder),
		info:       info,
	}, nil
}
