package order

import "fmt"

// Trivial stores logical axis i at depth i and never reorders.
type Trivial struct{}

var _ Coordinator = Trivial{}

// Kind implements Coordinator.
func (Trivial) Kind() Kind { return KindTrivial }

// CreateOrderInfo implements Coordinator. The seed is ignored.
func (Trivial) CreateOrderInfo(rank int, _ []int) (Info, error) {
	if rank < 0 {
		return Info{}, fmt.Errorf("negative rank %d", rank)
	}
	return Info{kind: KindTrivial, labels: identityLabels(rank)}, nil
}

// AsTensorOrder implements Coordinator.
func (Trivial) AsTensorOrder(info Info) []int {
	return identityLabels(info.Rank())
}

// TensordotOrderInfo implements Coordinator.
func (Trivial) TensordotOrderInfo(a, b Info, axesA, axesB []int) (Info, error) {
	if err := checkKind(KindTrivial, a, b); err != nil {
		return Info{}, err
	}
	if err := checkPairs(a, b, axesA, axesB); err != nil {
		return Info{}, err
	}
	return Info{kind: KindTrivial, labels: identityLabels(a.Rank() + b.Rank() - 2*len(axesA))}, nil
}

// TensordotRearrangement implements Coordinator: all of a, then all of b.
func (Trivial) TensordotRearrangement(a, b Info, axesA, axesB []int) ([]bool, error) {
	if err := checkKind(KindTrivial, a, b); err != nil {
		return nil, err
	}
	if err := checkPairs(a, b, axesA, axesB); err != nil {
		return nil, err
	}
	out := make([]bool, a.Rank()+b.Rank())
	for i := 0; i < a.Rank(); i++ {
		out[i] = true
	}
	return out, nil
}

// TraceOrderInfo implements Coordinator.
func (Trivial) TraceOrderInfo(info Info, axesA, axesB []int) (Info, error) {
	if err := checkKind(KindTrivial, info); err != nil {
		return Info{}, err
	}
	if err := checkAxes(info.Rank(), append(append([]int(nil), axesA...), axesB...)); err != nil {
		return Info{}, err
	}
	return Info{kind: KindTrivial, labels: identityLabels(info.Rank() - len(axesA) - len(axesB))}, nil
}

// IndexOrderInfo implements Coordinator.
func (Trivial) IndexOrderInfo(info Info, axes []int) (Info, error) {
	if err := checkKind(KindTrivial, info); err != nil {
		return Info{}, err
	}
	if err := checkAxes(info.Rank(), axes); err != nil {
		return Info{}, err
	}
	return Info{kind: KindTrivial, labels: identityLabels(info.Rank() - len(axes))}, nil
}

// PermuteOrderInfo implements Coordinator.
func (Trivial) PermuteOrderInfo(info Info, perm []int) (Info, error) {
	if err := checkKind(KindTrivial, info); err != nil {
		return Info{}, err
	}
	if _, err := permuted(info.labels, perm); err != nil {
		return Info{}, err
	}
	return Info{kind: KindTrivial, labels: identityLabels(info.Rank())}, nil
}

func checkPairs(a, b Info, axesA, axesB []int) error {
	if len(axesA) != len(axesB) {
		return fmt.Errorf("%d axes paired with %d: %w", len(axesA), len(axesB), ErrOrderIncompatible)
	}
	if err := checkAxes(a.Rank(), axesA); err != nil {
		return err
	}
	return checkAxes(b.Rank(), axesB)
}
