// Package randutil creates explicit, seeded random streams for the randomized
// analyses. Nothing in this package touches the process-wide math/rand source.
//
// A *rand.Rand is not safe for concurrent use. Workers derive their own
// stream with Derive instead of sharing one.
package randutil

import "math/rand"

// New returns a deterministic generator for seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DeriveSeed mixes a parent seed and a stream identifier into a new seed
// using the SplitMix64 finalizer, so neighbouring stream ids do not produce
// correlated sequences.
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// Derive returns the generator for stream of parent. The result depends only
// on (parent, stream), never on call order.
func Derive(parent int64, stream uint64) *rand.Rand {
	return New(DeriveSeed(parent, stream))
}

// ShuffleInts performs an in-place Fisher–Yates shuffle of a.
func ShuffleInts(a []int, rng *rand.Rand) {
	for i := len(a) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}
