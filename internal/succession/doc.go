// Package succession builds the relay succession graph used by the cascade
// simulation.
//
// Relays are numbered 0..N-1 and grouped into blocks of groupSize. Inside a
// block each relay's successor is the relay before it; the first relay of a
// block wraps to the last one, so every block closes into a cycle. When a
// relay's key is recovered, its successor inherits its duties, and a quorum
// of the relay's executors (the relays at fixed negative offsets from it) is
// needed to reconstruct the succession secret.
//
// Main Types:
//   - Graph: the immutable successor mapping plus the executor quorum rule
//
// Usage:
//
//	g, err := succession.NewGraph(600, 60, []int{9, 11, 17, 22, 29, 31}, 5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if g.HasQuorum(n, controlled) && controlled.Test(uint(g.Successor(n))) {
//	    // n can be taken over
//	}
package succession
