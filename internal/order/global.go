package order

import (
	"fmt"
	"slices"
)

// Global labels every logical axis with a process-wide index and stores axes in
// ascending label order. Diagrams built independently over the same labels then
// share structure directly.
type Global struct{}

var _ Coordinator = Global{}

// Kind implements Coordinator.
func (Global) Kind() Kind { return KindGlobal }

// CreateOrderInfo implements Coordinator. seed holds one label per logical axis;
// nil labels axis i with i.
func (Global) CreateOrderInfo(rank int, seed []int) (Info, error) {
	if rank < 0 {
		return Info{}, fmt.Errorf("negative rank %d", rank)
	}
	if seed == nil {
		return Info{kind: KindGlobal, labels: identityLabels(rank)}, nil
	}
	if len(seed) != rank {
		return Info{}, fmt.Errorf("%d labels for rank %d: %w", len(seed), rank, ErrOrderIncompatible)
	}
	if err := checkDistinct(seed); err != nil {
		return Info{}, err
	}
	return Info{kind: KindGlobal, labels: slices.Clone(seed)}, nil
}

// AsTensorOrder implements Coordinator.
func (Global) AsTensorOrder(info Info) []int {
	return sortedAxes(info.labels)
}

// TensordotOrderInfo implements Coordinator. The result keeps the uncontracted
// labels of a followed by those of b; they must be distinct.
func (Global) TensordotOrderInfo(a, b Info, axesA, axesB []int) (Info, error) {
	if err := checkKind(KindGlobal, a, b); err != nil {
		return Info{}, err
	}
	if err := checkPairs(a, b, axesA, axesB); err != nil {
		return Info{}, err
	}
	labels := append(without(a.labels, axesA), without(b.labels, axesB)...)
	if err := checkDistinct(labels); err != nil {
		return Info{}, err
	}
	return Info{kind: KindGlobal, labels: labels}, nil
}

// TensordotRearrangement implements Coordinator by merging the label-sorted
// storage sequences of a and b. Ties go to a.
func (Global) TensordotRearrangement(a, b Info, axesA, axesB []int) ([]bool, error) {
	if err := checkKind(KindGlobal, a, b); err != nil {
		return nil, err
	}
	if err := checkPairs(a, b, axesA, axesB); err != nil {
		return nil, err
	}
	la := slices.Sorted(slices.Values(a.labels))
	lb := slices.Sorted(slices.Values(b.labels))
	out := make([]bool, 0, len(la)+len(lb))
	i, j := 0, 0
	for i < len(la) || j < len(lb) {
		if j == len(lb) || (i < len(la) && la[i] <= lb[j]) {
			out = append(out, true)
			i++
		} else {
			out = append(out, false)
			j++
		}
	}
	return out, nil
}

// TraceOrderInfo implements Coordinator.
func (Global) TraceOrderInfo(info Info, axesA, axesB []int) (Info, error) {
	if err := checkKind(KindGlobal, info); err != nil {
		return Info{}, err
	}
	if len(axesA) != len(axesB) {
		return Info{}, fmt.Errorf("%d axes paired with %d: %w", len(axesA), len(axesB), ErrOrderIncompatible)
	}
	if err := checkAxes(info.Rank(), append(append([]int(nil), axesA...), axesB...)); err != nil {
		return Info{}, err
	}
	return Info{kind: KindGlobal, labels: without(info.labels, axesA, axesB)}, nil
}

// IndexOrderInfo implements Coordinator.
func (Global) IndexOrderInfo(info Info, axes []int) (Info, error) {
	if err := checkKind(KindGlobal, info); err != nil {
		return Info{}, err
	}
	if err := checkAxes(info.Rank(), axes); err != nil {
		return Info{}, err
	}
	return Info{kind: KindGlobal, labels: without(info.labels, axes)}, nil
}

// PermuteOrderInfo implements Coordinator.
func (Global) PermuteOrderInfo(info Info, perm []int) (Info, error) {
	if err := checkKind(KindGlobal, info); err != nil {
		return Info{}, err
	}
	labels, err := permuted(info.labels, perm)
	if err != nil {
		return Info{}, err
	}
	return Info{kind: KindGlobal, labels: labels}, nil
}

func checkDistinct(labels []int) error {
	seen := make(map[int]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return fmt.Errorf("label %d used twice: %w", l, ErrOrderIncompatible)
		}
		seen[l] = true
	}
	return nil
}
