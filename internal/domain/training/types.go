// Package training provides the shared types and capability interfaces
// used across the supervised ranking trainer.
package training

import (
	"io"
	"math"
)

// Weight is one shared trainable parameter.
type Weight int16

// Value is an internal or sink value of a reduction network.
type Value int64

// Cell is one input cell of a candidate matrix.
type Cell uint16

// Weight range constants. Every mutation clamps into this range.
const (
	MinWeight = math.MinInt16
	MaxWeight = math.MaxInt16

	// WeightCardinality is the number of representable weight values.
	WeightCardinality = MaxWeight + 1 - MinWeight
)

// Feedback is the aggregate-rank verdict handed to the optimizer after
// each training cycle.
type Feedback int

const (
	// Improved means the aggregate rank strictly decreased.
	Improved Feedback = iota
	// NotImproved means the aggregate rank stayed equal or increased.
	NotImproved
)

// String returns the feedback name.
func (f Feedback) String() string {
	if f == Improved {
		return "improved"
	}
	return "not-improved"
}

// State is the lifecycle state of a training run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopped   State = "stopped"
	StateConverged State = "converged"
	StateExhausted State = "exhausted"
)

// Optimizer owns the shared weight vector and a best-known snapshot, and
// perturbs the vector between evaluation cycles according to feedback.
// Implementations are not safe for concurrent use; the training loop calls
// them strictly between evaluation batches.
type Optimizer interface {
	// Apply reacts to the verdict of the last evaluation cycle and draws
	// the next mutation. After Improved the current weights become the
	// best-known snapshot first.
	Apply(feedback Feedback)

	// Weights returns the live weight vector. Callers must treat it as
	// read-only; the optimizer is its single writer.
	Weights() []Weight

	// RestoreBest overwrites the live vector from the best-known
	// snapshot. Idempotent, callable at any time.
	RestoreBest()

	// SetWeights installs an externally loaded vector as both the live
	// weights and the best-known snapshot. Fails on length mismatch.
	SetWeights(weights []Weight) error

	// WeightCount returns the fixed length of the weight vector.
	WeightCount() int

	// Describe returns a one-line free-form summary of the current
	// exploration state, for progress reporting.
	Describe() string
}

// Network scores one candidate: fixed input cells plus a read-only weight
// slice reduce to one scalar sink value. Evaluate is deterministic and
// safe to call concurrently across distinct instances sharing one
// read-only weight vector.
type Network interface {
	Name() string
	SetName(name string)

	// RequiredWeightCount is fixed at construction from the grid shape.
	RequiredWeightCount() int

	// ReadCells populates the input grid from a little-endian byte
	// stream, once, at construction time.
	ReadCells(r io.Reader) error

	// Evaluate recomputes the full reduction and returns the sink value.
	// weights must be of length RequiredWeightCount.
	Evaluate(weights []Weight) Value
}

// NetworkBuilder instantiates a network for a given grid shape. It is how
// candidate groups stay generic over future network variants.
type NetworkBuilder func(rows, cols int) (Network, error)
