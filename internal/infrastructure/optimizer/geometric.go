// Package optimizer implements the stochastic weight mutation engines.
package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/random"
)

// invalidIndex terminates the alteration plan.
const invalidIndex = ^uint32(0)

// Tuning holds the empirically determined mutation constants. They were
// arrived at by trial and error; override at your own risk.
type Tuning struct {
	// PMultiplier decays the interval-probability numerator each time a
	// fresh plan is drawn. Must be below 1.
	PMultiplier float64

	// PFloor resets the numerator once decay drives it below this value.
	PFloor float64

	// DeltaDecayDivisor bounds how fast the exploration magnitude decays:
	// each round shrinks it by a random amount up to
	// (WeightCardinality-1)/DeltaDecayDivisor.
	DeltaDecayDivisor int
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	return Tuning{
		PMultiplier:       0.99,
		PFloor:            0.1,
		DeltaDecayDivisor: 1000,
	}
}

// maxWeightDelta is the largest useful mutation magnitude.
const maxWeightDelta = training.WeightCardinality - 1

// Geometric owns the shared weight vector and adapts a two-phase
// exploration strategy to aggregate feedback.
//
// Exploring draws a sparse alteration plan whose index stride follows a
// geometric distribution and mutates the selected weights by random
// magnitudes. Once a plan stops improving after having improved at least
// once, the optimizer switches to crawling: unit-magnitude steps along
// the same directions, with one direction reversal allowed per crawl
// session, until the local maximum is exhausted.
//
// Not safe for concurrent use. Initial weights are randomized.
type Geometric struct {
	rng    *rand.Rand
	bits   *random.BitSource
	tuning Tuning

	count   int
	weights []training.Weight
	best    []training.Weight

	// Alteration plan, sentinel-terminated with invalidIndex.
	planIndexes    []uint32
	planDirections []bool

	pMax        float64
	p           float64
	maxInterval int
	maxDelta    int
	deltaDecay  int

	crawling           bool
	previouslyImproved bool
}

// NewGeometric creates an optimizer for weightCount weights, randomized
// linearly over the full weight range. A zero seed draws one from the
// clock.
func NewGeometric(weightCount int, seed int64, tuning Tuning) (*Geometric, error) {
	if weightCount < 1 {
		return nil, fmt.Errorf("%w: weight count is %d", training.ErrWeightCountMismatch, weightCount)
	}
	if tuning.PMultiplier <= 0 || tuning.PMultiplier >= 1 || tuning.PFloor <= 0 || tuning.DeltaDecayDivisor < 1 {
		return nil, fmt.Errorf("invalid tuning %+v", tuning)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))
	g := &Geometric{
		rng:            rng,
		bits:           random.NewBitSource(rng),
		tuning:         tuning,
		count:          weightCount,
		weights:        make([]training.Weight, weightCount),
		best:           make([]training.Weight, weightCount),
		planIndexes:    make([]uint32, weightCount+1),
		planDirections: make([]bool, weightCount),
		pMax:           float64(weightCount),
		deltaDecay:     maxWeightDelta / tuning.DeltaDecayDivisor,
	}
	if g.deltaDecay < 1 {
		g.deltaDecay = 1
	}

	for i := range g.weights {
		g.weights[i] = training.Weight(g.rng.Intn(training.WeightCardinality) + training.MinWeight)
	}
	copy(g.best, g.weights)
	g.randomizePlan()

	return g, nil
}

// WeightCount returns the fixed vector length.
func (g *Geometric) WeightCount() int { return g.count }

// Weights returns the live vector. Read-only for callers.
func (g *Geometric) Weights() []training.Weight { return g.weights }

// RestoreBest overwrites the live vector from the best-known snapshot,
// as the last mutation may have deteriorated it. Idempotent.
func (g *Geometric) RestoreBest() {
	copy(g.weights, g.best)
}

// SetWeights installs an externally loaded vector as both the live
// weights and the best snapshot.
func (g *Geometric) SetWeights(weights []training.Weight) error {
	if len(weights) != g.count {
		return fmt.Errorf("%w: got %d weights, need %d", training.ErrWeightCountMismatch, len(weights), g.count)
	}
	copy(g.weights, weights)
	copy(g.best, g.weights)
	return nil
}

// Apply reacts to the cycle verdict and draws the next mutation.
func (g *Geometric) Apply(feedback training.Feedback) {
	if feedback == training.Improved {
		g.improved()
	} else {
		g.notImproved()
	}
}

func (g *Geometric) improved() {
	copy(g.best, g.weights)
	g.previouslyImproved = true

	// Re-alter along the same plan since it improved, or re-randomize
	// until at least one weight actually moves.
	for g.alterWeights() {
		g.randomizePlan()
	}
}

func (g *Geometric) notImproved() {
	g.RestoreBest()

	if g.crawling {
		if g.previouslyImproved {
			// Crawling just stopped improving (or the reversed
			// directions never did): abandon the crawl.
			g.randomizePlan()
		} else {
			// This crawl never improved: reverse every direction and
			// retry. previouslyImproved guards the reversal to once
			// per crawl session.
			for i := 0; g.planIndexes[i] != invalidIndex; i++ {
				g.planDirections[i] = !g.planDirections[i]
			}
			g.previouslyImproved = true
		}
	} else {
		if g.previouslyImproved {
			// The plan improved before stalling: crawl the local
			// maximum along the same directions.
			g.crawling = true
			g.previouslyImproved = false
		} else {
			g.randomizePlan()
		}
	}

	for g.alterWeights() {
		g.randomizePlan()
	}
}

// Describe returns the optimizer debug line for progress reports.
func (g *Geometric) Describe() string {
	phase := "exploring"
	if g.crawling {
		phase = "crawling"
	}
	return fmt.Sprintf("%s, maximum weight delta %d/%d, maximum interval %d/%d",
		phase, g.maxDelta, maxWeightDelta, g.maxInterval, g.count)
}

// randomizePlan draws a fresh sparse alteration plan and leaves the
// exploring phase.
func (g *Geometric) randomizePlan() {
	g.crawling = false
	g.previouslyImproved = false

	// Decay the probability numerator, resetting once it gets too small.
	g.p *= g.tuning.PMultiplier
	if g.p < g.tuning.PFloor {
		g.p = g.pMax * g.tuning.PMultiplier
	}

	// Geometrically distributed maximum index interval in [1, count].
	g.maxInterval = g.geometricSample(g.p/g.pMax) + 1
	if g.maxInterval > g.count {
		g.maxInterval = g.count
	}

	i := 0
	if g.maxInterval > 1 {
		// Stride through index space with random steps up to the
		// interval; start in [0, interval), step in [1, interval].
		for wi := g.rng.Intn(g.maxInterval); wi < g.count; wi += g.rng.Intn(g.maxInterval) + 1 {
			g.planIndexes[i] = uint32(wi)
			g.planDirections[i] = g.bits.Bool()
			i++
		}
	} else {
		// Interval 1 selects every index.
		for ; i != g.count; i++ {
			g.planIndexes[i] = uint32(i)
			g.planDirections[i] = g.bits.Bool()
		}
	}
	g.planIndexes[i] = invalidIndex
}

// geometricSample draws from a geometric distribution (number of failures
// before the first success) with success probability p, by inverse
// transform sampling.
func (g *Geometric) geometricSample(p float64) int {
	if p >= 1 {
		return 0
	}
	u := g.rng.Float64()
	k := math.Log1p(-u) / math.Log1p(-p)
	if k >= float64(g.count) {
		return g.count
	}
	return int(k)
}

// alterWeights mutates every planned weight in its planned direction and
// reports true when no weight could move (all pinned at the range edge).
func (g *Geometric) alterWeights() bool {
	unaltered := true

	if g.crawling {
		for i := 0; g.planIndexes[i] != invalidIndex; i++ {
			wi := g.planIndexes[i]
			if g.planDirections[i] {
				if g.weights[wi] < training.MaxWeight {
					g.weights[wi]++
					unaltered = false
				}
			} else {
				if g.weights[wi] > training.MinWeight {
					g.weights[wi]--
					unaltered = false
				}
			}
		}
		return unaltered
	}

	// Linearly decay the maximum delta, recycling back to the top once
	// it would bottom out.
	decay := g.rng.Intn(g.deltaDecay) + 1
	if decay+2 > g.maxDelta {
		g.maxDelta = maxWeightDelta
	} else {
		g.maxDelta -= decay
	}

	for i := 0; g.planIndexes[i] != invalidIndex; i++ {
		wi := g.planIndexes[i]
		if g.planDirections[i] {
			if g.weights[wi] < training.MaxWeight {
				next := int(g.weights[wi]) + g.rng.Intn(g.maxDelta) + 1
				if next >= training.MaxWeight {
					g.weights[wi] = training.MaxWeight
				} else {
					g.weights[wi] = training.Weight(next)
				}
				unaltered = false
			}
		} else {
			if g.weights[wi] > training.MinWeight {
				next := int(g.weights[wi]) - g.rng.Intn(g.maxDelta) - 1
				if next <= training.MinWeight {
					g.weights[wi] = training.MinWeight
				} else {
					g.weights[wi] = training.Weight(next)
				}
				unaltered = false
			}
		}
	}
	return unaltered
}
