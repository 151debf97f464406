package node

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/born-ml/tdd/internal/weight"
)

// Observer receives unique-table events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveLookup(hit bool)
	ObserveNodes(n int)
}

type noopObserver struct{}

func (noopObserver) ObserveLookup(bool) {}
func (noopObserver) ObserveNodes(int)   {}

// Table is the unique table: an arena of canonical nodes indexed by a
// structural hash. Weights are compared after quantization by eps.
//
// Lookup-then-insert happens under one lock, so LookupOrCreate may be called
// from several goroutines.
type Table struct {
	mu      sync.Mutex
	eps     float64
	nodes   []*Node
	buckets map[uint64][]ID
	obs     Observer
}

// NewTable creates a table holding only the terminal.
func NewTable(eps float64, obs Observer) *Table {
	if eps <= 0 {
		panic(fmt.Sprintf("node: epsilon must be positive, got %g", eps))
	}
	if obs == nil {
		obs = noopObserver{}
	}
	t := &Table{
		eps: eps,
		obs: obs,
	}
	t.resetArena()
	return t
}

func (t *Table) resetArena() {
	t.nodes = []*Node{{id: Terminal, depth: TerminalDepth}}
	t.buckets = make(map[uint64][]ID)
	t.obs.ObserveNodes(len(t.nodes))
}

// Epsilon returns the weight tolerance used for structural equality.
func (t *Table) Epsilon() float64 {
	return t.eps
}

// Len returns the number of nodes in the arena, terminal included.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// Node returns the node with the given id. An id that is not in the arena is a
// dangling reference and panics.
func (t *Table) Node(id ID) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(id)
}

func (t *Table) get(id ID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("node: dangling reference to node %d (arena holds %d nodes)", id, len(t.nodes)))
	}
	return t.nodes[id]
}

// Depth returns the depth of node id.
func (t *Table) Depth(id ID) int {
	return t.Node(id).depth
}

// LookupOrCreate returns the node structurally equal to (depth, weights, succ),
// creating it if needed. The slices are copied. Callers are responsible for
// normalizing weights first; see the algebra package.
func (t *Table) LookupOrCreate(depth int, weights []weight.Vec, succ []ID) ID {
	if len(weights) != len(succ) || len(succ) == 0 {
		panic(fmt.Sprintf("node: invalid node with %d weights and %d successors", len(weights), len(succ)))
	}
	if depth < 0 || depth >= TerminalDepth {
		panic(fmt.Sprintf("node: invalid depth %d", depth))
	}

	keys := make([]int64, 0, 2*len(weights)*len(weights[0]))
	for _, w := range weights {
		keys = w.AppendKeys(keys, t.eps)
	}
	h := hashKey(depth, succ, keys)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range succ {
		if child := t.get(s); child.depth <= depth {
			panic(fmt.Sprintf("node: successor %d at depth %d is not below depth %d", s, child.depth, depth))
		}
	}

	for _, id := range t.buckets[h] {
		if t.nodes[id].sameKey(depth, succ, keys) {
			t.obs.ObserveLookup(true)
			return id
		}
	}

	n := &Node{
		id:      ID(len(t.nodes)),
		depth:   depth,
		weights: make([]weight.Vec, len(weights)),
		succ:    append([]ID(nil), succ...),
		keys:    keys,
		hash:    h,
	}
	for i, w := range weights {
		n.weights[i] = w.Clone()
	}
	t.nodes = append(t.nodes, n)
	t.buckets[h] = append(t.buckets[h], n.id)
	t.obs.ObserveLookup(false)
	t.obs.ObserveNodes(len(t.nodes))
	return n.id
}

func hashKey(depth int, succ []ID, keys []int64) uint64 {
	buf := make([]byte, 0, 8*(2+len(succ)+len(keys)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(depth))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(succ)))
	for _, s := range succ {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(s))
	}
	for _, k := range keys {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(k))
	}
	return xxhash.Sum64(buf)
}

// Size returns the number of distinct nodes reachable from root, counting the
// terminal once.
func (t *Table) Size(root ID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := map[ID]struct{}{Terminal: {}}
	stack := []ID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		stack = append(stack, t.get(id).succ...)
	}
	return len(seen)
}

// Compact drops every node not reachable from roots and renumbers the rest.
// It returns the new ids of roots, in order. Any other id held by a caller
// becomes invalid.
func (t *Table) Compact(roots []ID) []ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	live := make([]bool, len(t.nodes))
	live[Terminal] = true
	stack := append([]ID(nil), roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[t.get(id).id] {
			continue
		}
		live[id] = true
		stack = append(stack, t.nodes[id].succ...)
	}

	// Successors always have smaller ids than their parents, so one ascending
	// pass sees every child before its parent.
	remap := make([]ID, len(t.nodes))
	old := t.nodes
	t.resetArena()
	for id := 1; id < len(old); id++ {
		if !live[id] {
			continue
		}
		n := old[id]
		succ := make([]ID, len(n.succ))
		for k, s := range n.succ {
			succ[k] = remap[s]
		}
		nn := &Node{
			id:      ID(len(t.nodes)),
			depth:   n.depth,
			weights: n.weights,
			succ:    succ,
			keys:    n.keys,
			hash:    hashKey(n.depth, succ, n.keys),
		}
		remap[id] = nn.id
		t.nodes = append(t.nodes, nn)
		t.buckets[nn.hash] = append(t.buckets[nn.hash], nn.id)
	}
	t.obs.ObserveNodes(len(t.nodes))

	out := make([]ID, len(roots))
	for i, r := range roots {
		out[i] = remap[r]
	}
	return out
}
