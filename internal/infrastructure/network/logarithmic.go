// Package network implements the fixed-point reduction networks that
// score one candidate matrix against a shared weight vector.
package network

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
)

// shiftCount bounds value growth across layers. Inputs occupy 16 bits,
// weights 16 bits, so first-layer values occupy at most 16+16+log2(cols)
// bits; every further layer adds at most 17 bits before the shift.
const shiftCount = 15

// Logarithmic reduces a rows-by-cols grid of input cells to a single sink
// value through layers that halve in size. Each input row feeds two
// independent weighted sums into the first internal layer (the same cols
// cells consumed twice, with disjoint weight slices); every later layer
// folds adjacent value pairs through one weight each, shifted right by
// shiftCount; an odd value at the tail of a layer folds alone.
//
// The value buffer is owned by the instance, so distinct instances may
// evaluate concurrently against one shared read-only weight slice.
type Logarithmic struct {
	name     string
	rows     int
	cols     int
	cells    []training.Cell
	values   []training.Value
	required int
}

// NewLogarithmic fails unless rows and cols are both at least 2.
func NewLogarithmic(rows, cols int) (*Logarithmic, error) {
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("%w: got %d rows by %d columns", training.ErrBadDimensions, rows, cols)
	}

	inputs := rows * cols

	// Internal layer sizes: rows*2, then (n+1)/2 down to 1.
	// e.g. 10 -> 5 -> 3 -> 2 -> 1.
	valueCount := 0
	for layer := rows * 2; layer != 0; {
		valueCount += layer
		if layer == 1 {
			layer = 0
		} else {
			layer = (layer + 1) / 2
		}
	}

	return &Logarithmic{
		rows:   rows,
		cols:   cols,
		cells:  make([]training.Cell, inputs),
		values: make([]training.Value, valueCount),
		// One weight per input consumed twice, one per internal value
		// except the sink itself.
		required: inputs*2 + valueCount - 1,
	}, nil
}

// Name returns the candidate name.
func (n *Logarithmic) Name() string { return n.name }

// SetName sets the candidate name.
func (n *Logarithmic) SetName(name string) { n.name = name }

// RequiredWeightCount returns the analytic weight count for the grid.
func (n *Logarithmic) RequiredWeightCount() int { return n.required }

// Rows returns the grid row count.
func (n *Logarithmic) Rows() int { return n.rows }

// Cols returns the grid column count.
func (n *Logarithmic) Cols() int { return n.cols }

// ReadCells populates the input grid from a little-endian u16 stream.
func (n *Logarithmic) ReadCells(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, n.cells); err != nil {
		return fmt.Errorf("%w: reading %d cells of '%s': %v", training.ErrDataFormat, len(n.cells), n.name, err)
	}
	return nil
}

// Evaluate recomputes every internal value serially, layer by layer, and
// returns the sink value. Nearly all of the training time is spent here:
// no allocation, O(RequiredWeightCount) multiply-adds.
//
// The right shift on a negative accumulator truncates toward -1, not
// toward zero (twos-complement arithmetic shift). That asymmetry is part
// of the scoring function, not an accident.
func (n *Logarithmic) Evaluate(weights []training.Weight) training.Value {
	inputs := len(n.cells)

	ingress, wi, egress := 0, 0, 0
	for ingress != inputs {
		last := ingress + n.cols

		// cols ingress cells into the first egress value.
		var sum int64
		for ; ingress != last; ingress, wi = ingress+1, wi+1 {
			sum += int64(n.cells[ingress]) * int64(weights[wi])
		}
		n.values[egress] = training.Value(sum)
		egress++

		// The exact same cols cells again, fresh weights, into the
		// second egress value.
		sum = 0
		for ingress -= n.cols; ingress != last; ingress, wi = ingress+1, wi+1 {
			sum += int64(n.cells[ingress]) * int64(weights[wi])
		}
		n.values[egress] = training.Value(sum)
		egress++
	}

	// Fold adjacent value pairs until exactly one value remains. For a
	// 5 by 5 grid the layers run 10 -> 5 -> 3 -> 2 -> 1.
	ingress = 0
	for lastIngress := egress - 1; ingress != lastIngress; lastIngress = egress - 1 {
		for ; ingress < lastIngress; ingress, wi, egress = ingress+2, wi+2, egress+1 {
			n.values[egress] = (n.values[ingress]*training.Value(weights[wi]) +
				n.values[ingress+1]*training.Value(weights[wi+1])) >> shiftCount
		}

		// Odd tail: the lone ingress value folds into the last egress
		// value through a single weight.
		if ingress == lastIngress {
			n.values[egress] = (n.values[ingress] * training.Value(weights[wi])) >> shiftCount
			ingress++
			wi++
			egress++
		}
	}

	return n.values[len(n.values)-1]
}
