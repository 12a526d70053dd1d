// Package random provides cheap random booleans for the mutation engine.
package random

import "math/rand"

// BitSource produces independent random booleans by slicing bits out of
// one 64-bit random word, drawing a fresh word only on exhaustion. Not
// safe for concurrent use.
type BitSource struct {
	rng  *rand.Rand
	word uint64
	left uint
}

// NewBitSource wraps rng. The source panics on a nil rng at first use
// rather than here, matching the cost profile of the hot path.
func NewBitSource(rng *rand.Rand) *BitSource {
	return &BitSource{rng: rng}
}

// Bool returns the next random boolean, high bit first.
func (b *BitSource) Bool() bool {
	if b.left == 0 {
		b.word = b.rng.Uint64()
		b.left = 64
	}
	b.left--
	return (b.word>>b.left)&1 == 1
}
