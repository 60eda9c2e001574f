// Package sampler draws initial controlled sets from a weighted pool of nodes.
//
// The pool models how available a relay's key material is: with time
// weighting, relays that joined long ago (low ids) are under-represented
// because much of their material has decayed.
package sampler

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
	"github.com/bits-and-blooms/bitset"
)

// ErrInsufficientPool is returned when a draw cannot reach the requested
// number of distinct nodes.
var ErrInsufficientPool = errors.New("insufficient distinct nodes in sample pool")

// Options configures BuildPool.
type Options struct {
	BucketSize   int
	TimeWeighted bool
	// MaxWeight is the weight of the most recent bucket; each bucket further
	// back loses one unit, down to a floor of 1.
	MaxWeight int
	// MaxDraws bounds how many pool entries Draw may take before giving up.
	// Zero means the pool length, which always suffices when the pool has
	// enough distinct nodes.
	MaxDraws int
}

// Pool is an immutable weighted multiset of nodes. Weighting is realized by
// repeating a bucket's members. It is safe for concurrent draws.
type Pool struct {
	universe     int
	bucketSize   int
	timeWeighted bool
	entries      []int
	weights      []int // per bucket, ascending id order
	distinct     int
	maxDraws     int
}

// BuildPool partitions [0, universe) into consecutive buckets of
// opts.BucketSize and repeats each bucket according to its weight.
func BuildPool(universe int, opts Options) (*Pool, error) {
	if universe <= 0 {
		return nil, fmt.Errorf("universe size must be positive, got %d", universe)
	}
	if opts.BucketSize <= 0 {
		return nil, fmt.Errorf("bucket size must be positive, got %d", opts.BucketSize)
	}
	if opts.TimeWeighted && opts.MaxWeight < 1 {
		return nil, fmt.Errorf("max weight must be at least 1, got %d", opts.MaxWeight)
	}
	if opts.MaxDraws < 0 {
		return nil, fmt.Errorf("max draws cannot be negative, got %d", opts.MaxDraws)
	}

	buckets := (universe + opts.BucketSize - 1) / opts.BucketSize
	p := &Pool{
		universe:     universe,
		bucketSize:   opts.BucketSize,
		timeWeighted: opts.TimeWeighted,
		weights:      make([]int, buckets),
	}

	for b := 0; b < buckets; b++ {
		w := 1
		if opts.TimeWeighted {
			w = BucketWeight(buckets-1-b, opts.MaxWeight)
		}
		p.weights[b] = w

		lo := b * opts.BucketSize
		hi := min(lo+opts.BucketSize, universe)
		for r := 0; r < w; r++ {
			for node := lo; node < hi; node++ {
				p.entries = append(p.entries, node)
			}
		}
		p.distinct += hi - lo
	}

	p.maxDraws = opts.MaxDraws
	if p.maxDraws == 0 || p.maxDraws > len(p.entries) {
		p.maxDraws = len(p.entries)
	}

	return p, nil
}

// BucketWeight is the time-decay weight of a bucket that lies distance
// buckets before the most recent one: max(maxWeight - distance, 1).
func BucketWeight(distance, maxWeight int) int {
	return max(maxWeight-distance, 1)
}

// Universe returns the size of the node universe.
func (p *Pool) Universe() int {
	return p.universe
}

// TimeWeighted reports whether recent buckets are over-represented.
func (p *Pool) TimeWeighted() bool {
	return p.timeWeighted
}

// Len returns the number of entries in the pool, counting repeats.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Distinct returns the number of distinct nodes in the pool.
func (p *Pool) Distinct() int {
	return p.distinct
}

// BucketWeights returns a copy of the per-bucket weights in ascending id order.
func (p *Pool) BucketWeights() []int {
	out := make([]int, len(p.weights))
	copy(out, p.weights)
	return out
}

// Weight returns the number of times node appears in the pool.
func (p *Pool) Weight(node int) int {
	if node < 0 || node >= p.universe {
		return 0
	}
	return p.weights[node/p.bucketSize]
}

// MaxDraws returns the draw budget of a single Draw call.
func (p *Pool) MaxDraws() int {
	return p.maxDraws
}

// Draw samples a set of size distinct nodes. It takes pool entries one at a
// time without replacement (a lazy Fisher-Yates pass over a private copy of
// the pool) and accumulates them until size distinct nodes are held; repeats
// of already held nodes are skipped. It fails with ErrInsufficientPool if the
// pool has fewer than size distinct nodes or the draw budget runs out first.
func (p *Pool) Draw(rng *utils.RandSource, size int) (*bitset.BitSet, error) {
	set, _, err := p.draw(rng, size)
	return set, err
}

func (p *Pool) draw(rng *utils.RandSource, size int) (*bitset.BitSet, int, error) {
	if size < 0 {
		return nil, 0, fmt.Errorf("draw size cannot be negative, got %d", size)
	}
	if size > p.distinct {
		return nil, 0, fmt.Errorf("%w: requested %d, pool has %d", ErrInsufficientPool, size, p.distinct)
	}

	set := bitset.New(uint(p.universe))
	if size == 0 {
		return set, 0, nil
	}

	scratch := make([]int, len(p.entries))
	copy(scratch, p.entries)

	have := 0
	draws := 0
	for draws < p.maxDraws {
		j := draws + rng.Intn(len(scratch)-draws)
		scratch[draws], scratch[j] = scratch[j], scratch[draws]
		node := uint(scratch[draws])
		draws++

		if !set.Test(node) {
			set.Set(node)
			have++
			if have == size {
				return set, draws, nil
			}
		}
	}

	return nil, draws, fmt.Errorf("%w: reached %d of %d distinct nodes after %d draws",
		ErrInsufficientPool, have, size, draws)
}
