// Package order provides the coordinators that decide how logical tensor axes
// map to diagram storage depths, at construction and across binary operations.
//
// A coordinator is chosen once per engine. Info values are immutable; every
// operation returns a fresh one. Infos produced by different coordinators are
// not comparable.
package order

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrOrderIncompatible is returned when two order infos cannot be reconciled.
var ErrOrderIncompatible = errors.New("order infos are incompatible")

// Kind identifies a coordinator variant.
type Kind int

// Coordinator variants.
const (
	KindTrivial Kind = iota
	KindGlobal
)

// String returns the coordinator name.
func (k Kind) String() string {
	switch k {
	case KindTrivial:
		return "trivial"
	case KindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Info is the coordinator-owned order information of one diagram.
type Info struct {
	kind   Kind
	labels []int
}

// Kind returns the coordinator variant that produced the info.
func (i Info) Kind() Kind {
	return i.kind
}

// Rank returns the number of logical axes described.
func (i Info) Rank() int {
	return len(i.labels)
}

// Labels returns a copy of the per-axis labels. Trivial infos label axis i with i.
func (i Info) Labels() []int {
	return slices.Clone(i.labels)
}

// String formats the info for debugging.
func (i Info) String() string {
	return fmt.Sprintf("%s%v", i.kind, i.labels)
}

// Coordinator decides and merges variable orders.
type Coordinator interface {
	Kind() Kind
	// CreateOrderInfo creates the info of a fresh diagram of the given rank.
	// seed may be nil.
	CreateOrderInfo(rank int, seed []int) (Info, error)
	// AsTensorOrder returns the construction order: element d is the logical
	// axis stored at depth d.
	AsTensorOrder(info Info) []int
	TensordotOrderInfo(a, b Info, axesA, axesB []int) (Info, error)
	// TensordotRearrangement returns, for every storage depth of the outer
	// product, whether it is taken from a (true) or from b (false).
	TensordotRearrangement(a, b Info, axesA, axesB []int) ([]bool, error)
	TraceOrderInfo(info Info, axesA, axesB []int) (Info, error)
	IndexOrderInfo(info Info, axes []int) (Info, error)
	PermuteOrderInfo(info Info, perm []int) (Info, error)
}

// New returns the coordinator registered under name. The spellings used by
// older tooling ("trival", "global_order") are accepted.
func New(name string) (Coordinator, error) {
	switch name {
	case "", "trivial", "trival":
		return Trivial{}, nil
	case "global", "global_order":
		return Global{}, nil
	default:
		return nil, fmt.Errorf("unknown coordinator %q", name)
	}
}

func checkKind(want Kind, infos ...Info) error {
	for _, i := range infos {
		if i.kind != want {
			return fmt.Errorf("%s info used with %s coordinator: %w", i.kind, want, ErrOrderIncompatible)
		}
	}
	return nil
}

func checkAxes(rank int, axes []int) error {
	seen := make(map[int]bool, len(axes))
	for _, ax := range axes {
		if ax < 0 || ax >= rank || seen[ax] {
			return fmt.Errorf("axis %d invalid for rank %d: %w", ax, rank, ErrOrderIncompatible)
		}
		seen[ax] = true
	}
	return nil
}

// without returns labels minus the entries at axes.
func without(labels []int, axes ...[]int) []int {
	drop := make(map[int]bool)
	for _, list := range axes {
		for _, ax := range list {
			drop[ax] = true
		}
	}
	out := make([]int, 0, len(labels))
	for i, l := range labels {
		if !drop[i] {
			out = append(out, l)
		}
	}
	return out
}

func permuted(labels, perm []int) ([]int, error) {
	if len(perm) != len(labels) {
		return nil, fmt.Errorf("permutation %v for rank %d: %w", perm, len(labels), ErrOrderIncompatible)
	}
	if err := checkAxes(len(labels), perm); err != nil {
		return nil, err
	}
	out := make([]int, len(perm))
	for i, p := range perm {
		out[i] = labels[p]
	}
	return out, nil
}

// sortedAxes returns the logical axes ordered by ascending label, ties broken by
// axis number.
func sortedAxes(labels []int) []int {
	axes := make([]int, len(labels))
	for i := range axes {
		axes[i] = i
	}
	sort.SliceStable(axes, func(x, y int) bool { return labels[axes[x]] < labels[axes[y]] })
	return axes
}

func identityLabels(rank int) []int {
	out := make([]int, rank)
	for i := range out {
		out[i] = i
	}
	return out
}
