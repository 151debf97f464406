package serialization

import (
	"fmt"
	"time"
)

// Format constants.
const (
	MagicBytes      = "TDDX"
	FormatVersion   = 1
	FixedHeaderSize = 64   // 0x40 bytes
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in fixed header
	maxHeaderSize   = 16 * 1024 * 1024
)

// TerminalRef is the successor index that denotes the terminal node.
const TerminalRef int32 = -1

// Header is the JSON header of a .tdd file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	CreatedAt     time.Time         `json:"created_at"`
	Epsilon       float64           `json:"epsilon"`
	Coordinator   string            `json:"coordinator"`
	Labels        []int             `json:"labels,omitempty"`
	DataShape     []int             `json:"data_shape"`
	ParallelShape []int             `json:"parallel_shape"`
	IndexOrder    []int             `json:"index_order"` // logical axis -> storage depth
	Width         int               `json:"width"`       // batch elements per weight
	Root          int32             `json:"root"`        // record index, TerminalRef for a scalar
	NodeCount     int               `json:"node_count"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NodeRecord is one stored node. Successors refer to earlier records.
type NodeRecord struct {
	Depth      int32
	Successors []int32
	Weights    [][]complex128
}

// Snapshot is a self-contained copy of one diagram.
type Snapshot struct {
	Header Header
	Weight []complex128
	Nodes  []NodeRecord
}

// Validate checks the structural consistency of s.
func (s *Snapshot) Validate() error {
	h := &s.Header
	if len(h.IndexOrder) != len(h.DataShape) {
		return fmt.Errorf("%w: %d index order entries for rank %d", ErrCorrupt, len(h.IndexOrder), len(h.DataShape))
	}
	seen := make([]bool, len(h.IndexOrder))
	for _, d := range h.IndexOrder {
		if d < 0 || d >= len(seen) || seen[d] {
			return fmt.Errorf("%w: index order %v is not a permutation", ErrCorrupt, h.IndexOrder)
		}
		seen[d] = true
	}
	width := 1
	for _, n := range h.ParallelShape {
		if n <= 0 {
			return fmt.Errorf("%w: parallel shape %v", ErrCorrupt, h.ParallelShape)
		}
		width *= n
	}
	if h.Width != width || len(s.Weight) != width {
		return fmt.Errorf("%w: width %d, weight %d, parallel shape %v", ErrCorrupt, h.Width, len(s.Weight), h.ParallelShape)
	}
	if h.NodeCount != len(s.Nodes) {
		return fmt.Errorf("%w: header lists %d nodes, found %d", ErrCorrupt, h.NodeCount, len(s.Nodes))
	}
	if h.Root < TerminalRef || int(h.Root) >= len(s.Nodes) {
		return fmt.Errorf("%w: root %d out of range", ErrCorrupt, h.Root)
	}
	for i, n := range s.Nodes {
		if n.Depth < 0 || int(n.Depth) >= len(h.DataShape) {
			return fmt.Errorf("%w: node %d at depth %d", ErrCorrupt, i, n.Depth)
		}
		if len(n.Successors) != h.DataShape[depthAxis(h.IndexOrder, int(n.Depth))] {
			return fmt.Errorf("%w: node %d has %d branches", ErrCorrupt, i, len(n.Successors))
		}
		if len(n.Weights) != len(n.Successors) {
			return fmt.Errorf("%w: node %d has %d weights for %d branches", ErrCorrupt, i, len(n.Weights), len(n.Successors))
		}
		for k, c := range n.Successors {
			if c < TerminalRef || int(c) >= i {
				return fmt.Errorf("%w: node %d branch %d refers to %d", ErrCorrupt, i, k, c)
			}
			if c != TerminalRef && s.Nodes[c].Depth <= n.Depth {
				return fmt.Errorf("%w: node %d branch %d does not descend", ErrCorrupt, i, k)
			}
			if len(n.Weights[k]) != width {
				return fmt.Errorf("%w: node %d branch %d weight width %d", ErrCorrupt, i, k, len(n.Weights[k]))
			}
		}
	}
	return nil
}

// depthAxis returns the logical axis stored at depth d.
func depthAxis(indexOrder []int, d int) int {
	for ax, dd := range indexOrder {
		if dd == d {
			return ax
		}
	}
	return -1
}
