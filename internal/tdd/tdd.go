package tdd

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/born-ml/tdd/internal/algebra"
	"github.com/born-ml/tdd/internal/dense"
	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/order"
	"github.com/born-ml/tdd/internal/weight"
)

// TDD is an immutable handle to a canonical diagram. Operations return new
// handles that share the node graph.
type TDD struct {
	eng  *Engine
	gen  uint64
	edge algebra.Edge

	shape      dense.Shape // logical axis sizes
	parallel   dense.Shape // batch axis sizes
	indexOrder []int       // logical axis -> storage depth
	info       order.Info
}

// TensorOption configures AsTensor.
type TensorOption func(*tensorOptions)

type tensorOptions struct {
	batch  int
	order  []int
	labels []int
}

// WithBatch marks the first n axes of the input as batch axes.
func WithBatch(n int) TensorOption {
	return func(o *tensorOptions) {
		o.batch = n
	}
}

// WithOrder sets the construction order: order[d] is the logical axis stored at
// depth d. Without it the coordinator decides.
func WithOrder(order ...int) TensorOption {
	return func(o *tensorOptions) {
		o.order = slices.Clone(order)
	}
}

// WithLabels seeds the coordinator with one label per logical axis. The trivial
// coordinator ignores them.
func WithLabels(labels ...int) TensorOption {
	return func(o *tensorOptions) {
		o.labels = slices.Clone(labels)
	}
}

// AsTensor builds the canonical diagram of a.
func (e *Engine) AsTensor(a *dense.Array, opts ...TensorOption) (*TDD, error) {
	options := &tensorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	shape := a.Shape()
	if options.batch < 0 || options.batch > len(shape) {
		return nil, fmt.Errorf("batch rank %d for %d axes: %w", options.batch, len(shape), ErrShapeMismatch)
	}
	par := shape[:options.batch].Clone()
	logical := shape[options.batch:].Clone()
	rank := len(logical)

	info, err := e.coord.CreateOrderInfo(rank, options.labels)
	if err != nil {
		return nil, err
	}
	ord := options.order
	if ord == nil {
		ord = e.coord.AsTensorOrder(info)
	}
	if len(ord) != rank || !dense.IsPermutation(ord, rank) {
		return nil, fmt.Errorf("order %v for %d logical axes: %w", ord, rank, ErrShapeOrderMismatch)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("as_tensor")()

	layout := algebra.Layout{
		Width:   par.NumElements(),
		Dims:    logical,
		Strides: logical.ComputeStrides(),
	}
	edge := e.alg.Build(a.Data(), layout, ord, e.parallelConfig())
	t := &TDD{
		eng:        e,
		gen:        e.gen,
		edge:       edge,
		shape:      logical,
		parallel:   par,
		indexOrder: dense.InversePermutation(ord),
		info:       info,
	}
	e.log.Debug("diagram built",
		slog.Any("shape", []int(logical)),
		slog.Int("batch", options.batch),
		slog.Any("order", ord),
		slog.Int("table_nodes", e.table.Len()))
	return t, nil
}

// FromArray is AsTensor with no options.
func (e *Engine) FromArray(a *dense.Array) (*TDD, error) {
	return e.AsTensor(a)
}

// Scalar returns the rank-0 diagram holding v.
func (e *Engine) Scalar(v complex128) *TDD {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, _ := e.coord.CreateOrderInfo(0, nil)
	return &TDD{
		eng:        e,
		gen:        e.gen,
		edge:       e.alg.Scalar(weight.Vec{v}),
		shape:      dense.Shape{},
		parallel:   dense.Shape{},
		indexOrder: []int{},
		info:       info,
	}
}

// Materialize expands t into a dense array with the batch axes first and the
// logical axes in the caller's order.
func (t *TDD) Materialize() *dense.Array {
	e := t.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(t)
	defer e.observe("materialize")()

	dims := t.storageDims()
	width := t.edge.Width()
	buf := e.alg.Materialize(t.edge, dims)
	raw, err := dense.New(append(dense.Shape{width}, dims...), buf)
	if err != nil {
		panic(fmt.Sprintf("tdd: materialize: %v", err))
	}

	perm := make([]int, 1+len(t.indexOrder))
	for i, d := range t.indexOrder {
		perm[1+i] = 1 + d
	}
	out, err := dense.New(append(t.parallel.Clone(), t.shape...), raw.Transpose(perm...).Data())
	if err != nil {
		panic(fmt.Sprintf("tdd: materialize: %v", err))
	}
	return out
}

// Shape returns the logical axis sizes.
func (t *TDD) Shape() dense.Shape {
	return t.shape.Clone()
}

// ParallelShape returns the batch axis sizes.
func (t *TDD) ParallelShape() dense.Shape {
	return t.parallel.Clone()
}

// Rank returns the number of logical axes.
func (t *TDD) Rank() int {
	return len(t.shape)
}

// IndexOrder maps each logical axis to its storage depth.
func (t *TDD) IndexOrder() []int {
	return slices.Clone(t.indexOrder)
}

// StorageOrder lists the logical axis stored at each depth.
func (t *TDD) StorageOrder() []int {
	return dense.InversePermutation(t.indexOrder)
}

// Info returns the coordinator order info.
func (t *TDD) Info() order.Info {
	return t.info
}

// Weight returns a copy of the dangling weight.
func (t *TDD) Weight() weight.Vec {
	return t.edge.Weight.Clone()
}

// Root returns the root node id; node.Terminal for a bare scalar.
func (t *TDD) Root() node.ID {
	return t.edge.Node
}

// Engine returns the owning engine.
func (t *TDD) Engine() *Engine {
	return t.eng
}

// IsZero reports whether t is the all-zero tensor.
func (t *TDD) IsZero() bool {
	return t.eng.alg.IsZero(t.edge)
}

// Size returns the number of nodes reachable from the root, terminal included.
func (t *TDD) Size() int {
	e := t.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	e.own(t)
	return e.table.Size(t.edge.Node)
}

// Clone returns an independent handle to the same diagram.
func (t *TDD) Clone() *TDD {
	c := *t
	c.edge = algebra.Edge{Node: t.edge.Node, Weight: t.edge.Weight.Clone()}
	c.shape = t.shape.Clone()
	c.parallel = t.parallel.Clone()
	c.indexOrder = slices.Clone(t.indexOrder)
	return &c
}

// String summarizes t.
func (t *TDD) String() string {
	return fmt.Sprintf("TDD(shape=%v, parallel=%v, order=%v, root=%d, weight=%v)",
		[]int(t.shape), []int(t.parallel), t.indexOrder, t.edge.Node, t.edge.Weight)
}

// storageDims returns the axis sizes in storage order.
func (t *TDD) storageDims() []int {
	dims := make([]int, len(t.indexOrder))
	for ax, d := range t.indexOrder {
		dims[d] = t.shape[ax]
	}
	return dims
}

// derive returns a handle sharing t's engine and generation.
func (t *TDD) derive(edge algebra.Edge, shape dense.Shape, indexOrder []int, info order.Info) *TDD {
	return &TDD{
		eng:        t.eng,
		gen:        t.gen,
		edge:       edge,
		shape:      shape,
		parallel:   t.parallel.Clone(),
		indexOrder: indexOrder,
		info:       info,
	}
}
