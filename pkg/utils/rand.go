package utils

import (
	"math/rand"
	"time"
)

// RandSource is a seeded random number generator.
// It is not safe for concurrent use; derive one stream per goroutine with Stream.
type RandSource struct {
	seed int64
	rng  *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// The seed is used verbatim, so zero is a valid, reproducible seed.
func NewRandSource(seed int64) *RandSource {
	return &RandSource{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// ResolveSeed returns seed unchanged unless it is zero, in which case a
// time-based seed is returned. Callers should log the resolved value so a
// run can be replayed.
func ResolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// DeriveSeed mixes a parent seed and a stream index into an independent seed
// using the SplitMix64 finalizer.
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// Seed returns the seed the source was created with.
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Stream returns an independent source for the given stream index. The result
// depends only on this source's seed and the index, never on how much of this
// source has been consumed.
func (r *RandSource) Stream(index uint64) *RandSource {
	return NewRandSource(DeriveSeed(r.seed, index))
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// BernoulliBool returns true with probability p, false otherwise
func (r *RandSource) BernoulliBool(p float64) bool {
	return r.rng.Float64() < p
}
