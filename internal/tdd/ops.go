package tdd

import (
	"fmt"
	"slices"
	"sort"

	"github.com/born-ml/tdd/internal/algebra"
	"github.com/born-ml/tdd/internal/dense"
)

// sameEngine panics unless b belongs to a's engine.
func sameEngine(a, b *TDD) {
	if a.eng != b.eng {
		panic("tdd: " + ErrForeignEngine.Error())
	}
}

// Sum returns a + b. Both operands must share logical shape, batch shape and
// index order; the result keeps a's order info.
func Sum(a, b *TDD) (*TDD, error) {
	sameEngine(a, b)
	e := a.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(a)
	e.own(b)

	if !a.shape.Equal(b.shape) || !a.parallel.Equal(b.parallel) {
		return nil, fmt.Errorf("sum of %v%v and %v%v: %w",
			[]int(a.parallel), []int(a.shape), []int(b.parallel), []int(b.shape), ErrShapeMismatch)
	}
	if !slices.Equal(a.indexOrder, b.indexOrder) {
		return nil, fmt.Errorf("sum with index orders %v and %v: %w", a.indexOrder, b.indexOrder, ErrOrderIncompatible)
	}
	defer e.observe("sum")()

	edge := e.alg.Sum(a.edge, b.edge)
	return a.derive(edge, a.shape.Clone(), a.IndexOrder(), a.info), nil
}

// Add is Sum as a method.
func (t *TDD) Add(o *TDD) (*TDD, error) {
	return Sum(t, o)
}

// Fix pins a logical axis to a value.
type Fix struct {
	Axis  int
	Value int
}

// Index fixes the given logical axes and returns the reduced diagram. The
// remaining axes keep their relative order.
func (t *TDD) Index(fixes ...Fix) (*TDD, error) {
	e := t.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(t)

	axes := make([]int, len(fixes))
	seen := make(map[int]bool, len(fixes))
	for i, f := range fixes {
		if f.Axis < 0 || f.Axis >= len(t.shape) || seen[f.Axis] {
			return nil, fmt.Errorf("axis %d of rank %d: %w", f.Axis, len(t.shape), ErrIndexOutOfRange)
		}
		if f.Value < 0 || f.Value >= t.shape[f.Axis] {
			return nil, fmt.Errorf("value %d for axis %d of size %d: %w", f.Value, f.Axis, t.shape[f.Axis], ErrInvalidBranchValue)
		}
		seen[f.Axis] = true
		axes[i] = f.Axis
	}
	info, err := e.coord.IndexOrderInfo(t.info, axes)
	if err != nil {
		return nil, err
	}
	defer e.observe("index")()

	r, err := t.index(fixes)
	if err != nil {
		return nil, err
	}
	r.info = info
	return r, nil
}

// index does the work of Index without validation of the order info. The
// caller holds the engine lock.
func (t *TDD) index(fixes []Fix) (*TDD, error) {
	e := t.eng
	afixes := make([]algebra.Fix, len(fixes))
	removed := make(map[int]bool, len(fixes))
	var positions []int
	for i, f := range fixes {
		d := t.indexOrder[f.Axis]
		afixes[i] = algebra.Fix{Pos: d, Value: f.Value}
		removed[f.Axis] = true
		positions = append(positions, d)
	}
	edge, err := e.alg.Index(t.edge, t.storageDims(), afixes)
	if err != nil {
		return nil, err
	}
	sort.Ints(positions)

	shape := make(dense.Shape, 0, len(t.shape)-len(fixes))
	indexOrder := make([]int, 0, len(t.shape)-len(fixes))
	for ax, d := range t.indexOrder {
		if removed[ax] {
			continue
		}
		shape = append(shape, t.shape[ax])
		indexOrder = append(indexOrder, d-sort.SearchInts(positions, d))
	}
	return t.derive(edge, shape, indexOrder, t.info), nil
}

// Permute reorders the logical axes: result axis i is axis perm[i] of t. The
// node graph is shared untouched.
func (t *TDD) Permute(perm ...int) (*TDD, error) {
	e := t.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(t)

	if !dense.IsPermutation(perm, len(t.shape)) {
		return nil, fmt.Errorf("permutation %v of %d axes: %w", perm, len(t.shape), ErrShapeOrderMismatch)
	}
	info, err := e.coord.PermuteOrderInfo(t.info, perm)
	if err != nil {
		return nil, err
	}
	indexOrder := make([]int, len(perm))
	for i, p := range perm {
		indexOrder[i] = t.indexOrder[p]
	}
	return t.derive(t.edge, t.shape.Permute(perm), indexOrder, info), nil
}

// Scale returns c*t.
func (t *TDD) Scale(c complex128) *TDD {
	e := t.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(t)
	return t.derive(e.alg.Scale(t.edge, c), t.Shape(), t.IndexOrder(), t.info)
}

// Negate returns -t.
func (t *TDD) Negate() *TDD {
	return t.Scale(-1)
}

// Equal reports whether a and b denote the same tensor with the same index
// order, by node identity and weight comparison.
func Equal(a, b *TDD) bool {
	sameEngine(a, b)
	e := a.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(a)
	e.own(b)
	return a.shape.Equal(b.shape) &&
		a.parallel.Equal(b.parallel) &&
		slices.Equal(a.indexOrder, b.indexOrder) &&
		e.alg.Equal(a.edge, b.edge)
}

// Equal is the method form of Equal.
func (t *TDD) Equal(o *TDD) bool {
	return Equal(t, o)
}
