// Package cascade computes the closure of a controlled set under the
// inheritance rule: a node falls once its successor is controlled and enough
// of its executors are controlled to reach quorum.
//
// Each iteration is evaluated against the set as it stood at the start of the
// iteration, so the result does not depend on node visiting order.
package cascade

import (
	"github.com/GoSim-25-26J-441/inheritance-core/internal/succession"
	"github.com/bits-and-blooms/bitset"
)

// Result is the outcome of a single cascade.
type Result struct {
	Final      *bitset.BitSet
	Iterations int
	// Growth holds the number of nodes admitted in each iteration that
	// admitted at least one node.
	Growth []int
}

// FinalSize returns the number of controlled nodes at the fixed point.
func (r Result) FinalSize() int {
	return int(r.Final.Count())
}

// Run iterates Step from initial until no node is admitted or graph.Size()
// iterations have run. The caller's set is left untouched.
func Run(g *succession.Graph, initial *bitset.BitSet) Result {
	controlled := g.NewSet()
	if initial != nil {
		controlled.InPlaceUnion(initial)
	}

	res := Result{Final: controlled}
	for i := 0; i < g.Size(); i++ {
		newly := Step(g, controlled)
		added := int(newly.Count())
		if added == 0 {
			break
		}
		controlled.InPlaceUnion(newly)
		res.Iterations++
		res.Growth = append(res.Growth, added)
	}
	return res
}

// Step returns the nodes that one iteration would admit into controlled.
// controlled is not modified.
func Step(g *succession.Graph, controlled *bitset.BitSet) *bitset.BitSet {
	newly := g.NewSet()
	for node := 0; node < g.Size(); node++ {
		if controlled.Test(uint(node)) {
			continue
		}
		if !controlled.Test(uint(g.Successor(node))) {
			continue
		}
		if g.HasQuorum(node, controlled) {
			newly.Set(uint(node))
		}
	}
	return newly
}

// IsFixedPoint reports whether Step would admit nothing into set.
func IsFixedPoint(g *succession.Graph, set *bitset.BitSet) bool {
	return Step(g, set).None()
}
