// Package dropper simulates an erasure channel between an encoder and the
// block decoder. The decode tests and benchmarks use it to produce received
// symbol sets with a known loss rate.
package dropper

import (
	"math"
	"math/rand"

	"github.com/observe-l/rlcdecode/fec"
)

// Bernoulli loses each symbol independently with a fixed probability. It is
// not safe for concurrent use; the random source belongs to the caller.
type Bernoulli struct {
	lossRate float64
	rng      *rand.Rand
}

// New returns a channel losing each symbol with probability lossRate, clamped
// to [0, 1].
func New(lossRate float64, rng *rand.Rand) *Bernoulli {
	return &Bernoulli{lossRate: math.Min(math.Max(lossRate, 0), 1), rng: rng}
}

// LossRate returns the effective loss probability.
func (c *Bernoulli) LossRate() float64 { return c.lossRate }

// Lost reports whether the next symbol is erased. A lossless or fully lossy
// channel does not draw from the random source.
func (c *Bernoulli) Lost() bool {
	switch c.lossRate {
	case 0:
		return false
	case 1:
		return true
	}
	return c.rng.Float64() < c.lossRate
}

// Filter returns the packets that survive the channel, in their original
// order. The input slice is not modified.
func (c *Bernoulli) Filter(pkts []fec.Packet) []fec.Packet {
	out := make([]fec.Packet, 0, len(pkts))
	for _, p := range pkts {
		if !c.Lost() {
			out = append(out, p)
		}
	}
	return out
}
