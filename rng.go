package biorithm

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext/prng"
)

// Rng is a seeded uniform sampler backed by a 64-bit MT19937 Mersenne
// twister. Two Rngs built from the same seed return identical sequences.
type Rng struct {
	src *rand.Rand
}

func NewRng(seed int) *Rng {
	mt := prng.NewMT19937_64()
	mt.Seed(uint64(seed))
	return &Rng{src: rand.New(mt)}
}

// Next returns a uniformly distributed value in [0,1).
func (r *Rng) Next() float64 { return r.src.Float64() }

// Signed returns a uniformly distributed value in [-1,1).
func (r *Rng) Signed() float64 { return r.Next()*2 - 1 }
