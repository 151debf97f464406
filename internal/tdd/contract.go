package tdd

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/tdd/internal/algebra"
)

// Contract traces t over the axis pairs (axesA[k], axesB[k]). The paired axes
// disappear; the remaining ones keep their relative order.
func (t *TDD) Contract(axesA, axesB []int) (*TDD, error) {
	e := t.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(t)

	if len(axesA) != len(axesB) {
		return nil, fmt.Errorf("%d axes paired with %d: %w", len(axesA), len(axesB), ErrShapeMismatch)
	}
	if err := checkAxes(len(t.shape), append(append([]int(nil), axesA...), axesB...)); err != nil {
		return nil, err
	}
	pairs := make([][2]int, len(axesA))
	for k := range axesA {
		i, j := axesA[k], axesB[k]
		if t.shape[i] != t.shape[j] {
			return nil, fmt.Errorf("trace of axis %d (size %d) with axis %d (size %d): %w",
				i, t.shape[i], j, t.shape[j], ErrShapeMismatch)
		}
		pairs[k] = [2]int{i, j}
	}
	info, err := e.coord.TraceOrderInfo(t.info, axesA, axesB)
	if err != nil {
		return nil, err
	}
	defer e.observe("contract")()

	r := t.trace(pairs)
	r.info = info
	e.log.Debug("contracted",
		slog.Int("pairs", len(pairs)),
		slog.Any("shape", []int(r.shape)),
		slog.Int("table_nodes", e.table.Len()))
	return r, nil
}

// Trace is Contract for a single pair.
func (t *TDD) Trace(i, j int) (*TDD, error) {
	return t.Contract([]int{i}, []int{j})
}

// trace eliminates pairs one at a time: the diagonal slices of a pair are
// indexed out and summed, then the pending pairs are renumbered. The caller
// holds the engine lock and has validated pairs.
func (t *TDD) trace(pairs [][2]int) *TDD {
	e := t.eng
	cur := t
	pending := append([][2]int(nil), pairs...)
	for len(pending) > 0 {
		i, j := pending[0][0], pending[0][1]
		var acc algebra.Edge
		var slice *TDD
		for v := 0; v < cur.shape[i]; v++ {
			s, err := cur.index([]Fix{{Axis: i, Value: v}, {Axis: j, Value: v}})
			if err != nil {
				panic(fmt.Sprintf("tdd: trace of validated pair (%d, %d): %v", i, j, err))
			}
			if v == 0 {
				acc = s.edge
			} else {
				acc = e.alg.Sum(acc, s.edge)
			}
			slice = s
		}
		cur = cur.derive(acc, slice.shape, slice.indexOrder, cur.info)

		pending = pending[1:]
		for k, p := range pending {
			pending[k] = [2]int{shiftDown(p[0], i, j), shiftDown(p[1], i, j)}
		}
	}
	if cur == t {
		cur = t.derive(t.edge, t.Shape(), t.IndexOrder(), t.info)
	}
	return cur
}

// shiftDown renumbers axis x after axes i and j were removed.
func shiftDown(x, i, j int) int {
	n := x
	if x > i {
		n--
	}
	if x > j {
		n--
	}
	return n
}

// TensordotOption configures Tensordot.
type TensordotOption func(*tensordotOptions)

type tensordotOptions struct {
	rearrangement []bool
}

// WithRearrangement overrides the coordinator's interleaving of the operands'
// storage levels: entry d is true when depth d of the product comes from a.
func WithRearrangement(r ...bool) TensordotOption {
	return func(o *tensordotOptions) {
		o.rearrangement = append([]bool(nil), r...)
	}
}

// Tensordot contracts axesA of a with axesB of b. The result axes are the
// remaining axes of a followed by the remaining axes of b.
func Tensordot(a, b *TDD, axesA, axesB []int, opts ...TensordotOption) (*TDD, error) {
	sameEngine(a, b)
	e := a.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(a)
	e.own(b)

	options := &tensordotOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if !a.parallel.Equal(b.parallel) {
		return nil, fmt.Errorf("tensordot of batch shapes %v and %v: %w", []int(a.parallel), []int(b.parallel), ErrShapeMismatch)
	}
	if len(axesA) != len(axesB) {
		return nil, fmt.Errorf("%d axes paired with %d: %w", len(axesA), len(axesB), ErrShapeMismatch)
	}
	if err := checkAxes(len(a.shape), axesA); err != nil {
		return nil, err
	}
	if err := checkAxes(len(b.shape), axesB); err != nil {
		return nil, err
	}
	ra, rb := len(a.shape), len(b.shape)
	pairs := make([][2]int, len(axesA))
	for k := range axesA {
		if a.shape[axesA[k]] != b.shape[axesB[k]] {
			return nil, fmt.Errorf("axis %d (size %d) against axis %d (size %d): %w",
				axesA[k], a.shape[axesA[k]], axesB[k], b.shape[axesB[k]], ErrShapeMismatch)
		}
		pairs[k] = [2]int{axesA[k], ra + axesB[k]}
	}

	info, err := e.coord.TensordotOrderInfo(a.info, b.info, axesA, axesB)
	if err != nil {
		return nil, err
	}
	rearr := options.rearrangement
	if rearr == nil {
		if rearr, err = e.coord.TensordotRearrangement(a.info, b.info, axesA, axesB); err != nil {
			return nil, err
		}
	}
	mapX, mapY, err := splitRearrangement(rearr, ra, rb)
	if err != nil {
		return nil, err
	}
	defer e.observe("tensordot")()

	edge := e.alg.Product(a.edge, b.edge, mapX, mapY)
	shape := append(a.shape.Clone(), b.shape...)
	indexOrder := make([]int, 0, ra+rb)
	for _, d := range a.indexOrder {
		indexOrder = append(indexOrder, mapX[d])
	}
	for _, d := range b.indexOrder {
		indexOrder = append(indexOrder, mapY[d])
	}
	product := a.derive(edge, shape, indexOrder, info)

	r := product.trace(pairs)
	r.info = info
	e.log.Debug("tensordot",
		slog.Any("axes_a", axesA),
		slog.Any("axes_b", axesB),
		slog.Any("shape", []int(r.shape)),
		slog.Int("table_nodes", e.table.Len()))
	return r, nil
}

// TensordotN contracts the last n axes of a with the first n axes of b.
func TensordotN(a, b *TDD, n int, opts ...TensordotOption) (*TDD, error) {
	if n < 0 || n > len(a.shape) || n > len(b.shape) {
		return nil, fmt.Errorf("contracting %d axes of ranks %d and %d: %w", n, len(a.shape), len(b.shape), ErrIndexOutOfRange)
	}
	axesA := make([]int, n)
	axesB := make([]int, n)
	for k := 0; k < n; k++ {
		axesA[k] = len(a.shape) - n + k
		axesB[k] = k
	}
	return Tensordot(a, b, axesA, axesB, opts...)
}

// splitRearrangement turns a rearrangement into the depth maps of the two
// operands.
func splitRearrangement(r []bool, ra, rb int) (mapX, mapY []int, err error) {
	if len(r) != ra+rb {
		return nil, nil, fmt.Errorf("rearrangement of length %d for ranks %d and %d: %w", len(r), ra, rb, ErrShapeOrderMismatch)
	}
	mapX = make([]int, 0, ra)
	mapY = make([]int, 0, rb)
	for d, fromA := range r {
		if fromA {
			mapX = append(mapX, d)
		} else {
			mapY = append(mapY, d)
		}
	}
	if len(mapX) != ra {
		return nil, nil, fmt.Errorf("rearrangement takes %d levels from an operand of rank %d: %w", len(mapX), ra, ErrShapeOrderMismatch)
	}
	return mapX, mapY, nil
}

// checkAxes validates a list of distinct logical axes.
func checkAxes(rank int, axes []int) error {
	seen := make(map[int]bool, len(axes))
	for _, ax := range axes {
		if ax < 0 || ax >= rank {
			return fmt.Errorf("axis %d of rank %d: %w", ax, rank, ErrIndexOutOfRange)
		}
		if seen[ax] {
			return fmt.Errorf("axis %d used twice: %w", ax, ErrIndexOutOfRange)
		}
		seen[ax] = true
	}
	return nil
}
