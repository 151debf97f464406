// Package node implements the canonical decision-diagram nodes and the unique
// table that hash-conses them.
//
// Nodes live in an arena owned by a Table and are referenced by ID (the arena
// index). The terminal sentinel is ID 0 and stands for the scalar 1. A node at
// depth d branches on storage axis d; depths strictly increase along every path
// and a path may skip axes the tensor does not depend on.
package node

import (
	"fmt"
	"math"

	"github.com/born-ml/tdd/internal/weight"
)

// ID references a node in its Table's arena.
type ID int32

// Terminal is the shared sentinel node representing scalar 1.
const Terminal ID = 0

// TerminalDepth is the depth reported by the terminal. It is larger than any
// real storage depth so that the terminal sorts below every branching node.
const TerminalDepth = math.MaxInt32

// Node is an immutable, canonical diagram node.
type Node struct {
	id      ID
	depth   int
	weights []weight.Vec
	succ    []ID
	keys    []int64
	hash    uint64
}

// ID returns the node's arena index.
func (n *Node) ID() ID {
	return n.id
}

// Depth returns the storage axis this node branches on.
func (n *Node) Depth() int {
	return n.depth
}

// IsTerminal reports whether n is the terminal sentinel.
func (n *Node) IsTerminal() bool {
	return n.id == Terminal
}

// Arity returns the number of branches.
func (n *Node) Arity() int {
	return len(n.succ)
}

// Weight returns the weight on branch k. The returned Vec must not be modified.
func (n *Node) Weight(k int) weight.Vec {
	return n.weights[k]
}

// Successor returns the node reached through branch k.
func (n *Node) Successor(k int) ID {
	return n.succ[k]
}

// String formats the node for debugging.
func (n *Node) String() string {
	if n.IsTerminal() {
		return "Node(terminal)"
	}
	return fmt.Sprintf("Node(id=%d depth=%d succ=%v weights=%v)", n.id, n.depth, n.succ, n.weights)
}

func (n *Node) sameKey(depth int, succ []ID, keys []int64) bool {
	if n.depth != depth || len(n.succ) != len(succ) || len(n.keys) != len(keys) {
		return false
	}
	for i := range succ {
		if n.succ[i] != succ[i] {
			return false
		}
	}
	for i := range keys {
		if n.keys[i] != keys[i] {
			return false
		}
	}
	return true
}
