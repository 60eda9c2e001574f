package succession

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
	"github.com/bits-and-blooms/bitset"
)

// ErrConfiguration is returned when graph parameters cannot produce a valid
// succession mapping.
var ErrConfiguration = errors.New("invalid succession configuration")

// Graph is the succession mapping over a fixed node universe together with
// the executor offsets and quorum threshold. A Graph is read-only after
// construction and safe for concurrent use.
type Graph struct {
	size        int
	groupSize   int
	successor   []int
	predecessor []int
	offsets     []int
	threshold   int
}

// NewGraph builds the succession graph for n nodes in groups of groupSize.
// Node i succeeds to i-1, except the first node of each group which succeeds
// to i+groupSize-1 (all modulo n). The mapping must be a bijection.
func NewGraph(n, groupSize int, offsets []int, threshold int) (*Graph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: node count must be positive, got %d", ErrConfiguration, n)
	}
	if groupSize <= 0 {
		return nil, fmt.Errorf("%w: group size must be positive, got %d", ErrConfiguration, groupSize)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: at least one executor offset is required", ErrConfiguration)
	}
	if threshold < 0 || threshold > len(offsets) {
		return nil, fmt.Errorf("%w: threshold %d outside [0, %d]", ErrConfiguration, threshold, len(offsets))
	}

	g := &Graph{
		size:        n,
		groupSize:   groupSize,
		successor:   make([]int, n),
		predecessor: make([]int, n),
		offsets:     make([]int, len(offsets)),
		threshold:   threshold,
	}
	copy(g.offsets, offsets)

	for node := 0; node < n; node++ {
		g.successor[node] = successorOf(node, n, groupSize)
	}

	if err := g.buildPredecessors(); err != nil {
		return nil, err
	}

	return g, nil
}

func successorOf(node, n, groupSize int) int {
	if node%groupSize != 0 {
		return utils.Mod(node-1, n)
	}
	return utils.Mod(node+groupSize-1, n)
}

// buildPredecessors inverts the successor mapping and fails if it is not a
// bijection.
func (g *Graph) buildPredecessors() error {
	for i := range g.predecessor {
		g.predecessor[i] = -1
	}
	for node, succ := range g.successor {
		if prev := g.predecessor[succ]; prev != -1 {
			return fmt.Errorf("%w: nodes %d and %d share successor %d (n=%d, group size=%d)",
				ErrConfiguration, prev, node, succ, g.size, g.groupSize)
		}
		g.predecessor[succ] = node
	}
	for node, pred := range g.predecessor {
		if pred == -1 {
			return fmt.Errorf("%w: node %d has no predecessor", ErrConfiguration, node)
		}
	}
	return nil
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return g.size
}

// GroupSize returns the block size the graph was built with.
func (g *Graph) GroupSize() int {
	return g.groupSize
}

// Threshold returns the executor quorum.
func (g *Graph) Threshold() int {
	return g.threshold
}

// Offsets returns a copy of the executor offsets.
func (g *Graph) Offsets() []int {
	out := make([]int, len(g.offsets))
	copy(out, g.offsets)
	return out
}

// Successor returns the node that inherits from node.
func (g *Graph) Successor(node int) int {
	return g.successor[node]
}

// Predecessor returns the unique node whose successor is node.
func (g *Graph) Predecessor(node int) int {
	return g.predecessor[node]
}

// Executors returns the executor nodes of node: (node - offset) mod n for
// each offset, in offset order.
func (g *Graph) Executors(node int) []int {
	out := make([]int, len(g.offsets))
	for i, off := range g.offsets {
		out[i] = utils.Mod(node-off, g.size)
	}
	return out
}

// ControlledExecutors counts the executors of node that are in controlled.
func (g *Graph) ControlledExecutors(node int, controlled *bitset.BitSet) int {
	count := 0
	for _, off := range g.offsets {
		if controlled.Test(uint(utils.Mod(node-off, g.size))) {
			count++
		}
	}
	return count
}

// HasQuorum reports whether at least Threshold executors of node are
// controlled.
func (g *Graph) HasQuorum(node int, controlled *bitset.BitSet) bool {
	if g.threshold == 0 {
		return true
	}
	count := 0
	for _, off := range g.offsets {
		if controlled.Test(uint(utils.Mod(node-off, g.size))) {
			count++
			if count >= g.threshold {
				return true
			}
		}
	}
	return false
}

// Cycles returns the number of disjoint succession cycles.
func (g *Graph) Cycles() int {
	seen := bitset.New(uint(g.size))
	cycles := 0
	for start := 0; start < g.size; start++ {
		if seen.Test(uint(start)) {
			continue
		}
		cycles++
		for node := start; !seen.Test(uint(node)); node = g.successor[node] {
			seen.Set(uint(node))
		}
	}
	return cycles
}

// NewSet returns an empty controlled set sized for the graph.
func (g *Graph) NewSet() *bitset.BitSet {
	return bitset.New(uint(g.size))
}

// FullSet returns a controlled set containing every node.
func (g *Graph) FullSet() *bitset.BitSet {
	s := bitset.New(uint(g.size))
	s.FlipRange(0, uint(g.size))
	return s
}
