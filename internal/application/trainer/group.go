// Package trainer drives the training loop: candidate groups, cycle
// dispatch, optimizer feedback and progress reporting.
package trainer

import (
	"fmt"
	"io"
	"sort"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/storage"
)

// Group holds one desired candidate plus its competitors, all sharing the
// same weight vector. Membership is immutable after construction.
type Group struct {
	name         string
	desiredName  string
	desiredIndex int
	members      []training.Network
	sinks        []training.Value
	weights      []training.Weight
}

// MemberSink pairs a member name with its latest sink value.
type MemberSink struct {
	Name string
	Sink training.Value
}

// LoadGroup builds a group named name from a candidate stream of
// streamSize bytes, instantiating one network per record via build. It
// fails if the stream does not match its header exactly, if any member
// fails to parse, or if desiredName is missing or duplicated.
func LoadGroup(name, desiredName string, r io.Reader, streamSize int64, build training.NetworkBuilder) (*Group, error) {
	if build == nil {
		return nil, fmt.Errorf("nil network builder")
	}
	if desiredName == "" {
		return nil, fmt.Errorf("%w: empty desired candidate name", training.ErrDataFormat)
	}

	header, err := storage.ReadCandidateHeader(r, streamSize)
	if err != nil {
		return nil, fmt.Errorf("group '%s': %w", name, err)
	}

	g := &Group{
		name:         name,
		desiredName:  desiredName,
		desiredIndex: -1,
		members:      make([]training.Network, header.MatrixCount),
		sinks:        make([]training.Value, header.MatrixCount),
	}

	for i := range g.members {
		memberName, err := storage.ReadCandidateName(r, header.NameSize)
		if err != nil {
			return nil, fmt.Errorf("group '%s': %w", name, err)
		}

		member, err := build(int(header.Rows), int(header.Cols))
		if err != nil {
			return nil, fmt.Errorf("group '%s', candidate '%s': %w", name, memberName, err)
		}
		member.SetName(memberName)
		if err := member.ReadCells(r); err != nil {
			return nil, fmt.Errorf("group '%s': %w", name, err)
		}
		g.members[i] = member

		if memberName == desiredName {
			if g.desiredIndex >= 0 {
				return nil, fmt.Errorf("%w: desired candidate '%s' encountered more than once in group '%s'",
					training.ErrDataFormat, desiredName, name)
			}
			g.desiredIndex = i
		}
	}

	if g.desiredIndex < 0 {
		return nil, fmt.Errorf("%w: desired candidate '%s' not found in group '%s'",
			training.ErrDataFormat, desiredName, name)
	}

	return g, nil
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// DesiredName returns the desired candidate's name.
func (g *Group) DesiredName() string { return g.desiredName }

// Size returns the member count.
func (g *Group) Size() int { return len(g.members) }

// RequiredWeightCount returns the weight count every member agrees on,
// or fails if they disagree.
func (g *Group) RequiredWeightCount() (int, error) {
	count := g.members[0].RequiredWeightCount()
	for _, member := range g.members {
		if member.RequiredWeightCount() != count {
			return 0, fmt.Errorf("required weight count not common across group '%s'", g.name)
		}
	}
	return count, nil
}

// BindWeights installs the shared read-only weight view all members
// evaluate against. Fails on a length mismatch.
func (g *Group) BindWeights(weights []training.Weight) error {
	count, err := g.RequiredWeightCount()
	if err != nil {
		return err
	}
	if len(weights) != count {
		return fmt.Errorf("%w: group '%s' requires %d weights, got %d",
			training.ErrWeightCountMismatch, g.name, count, len(weights))
	}
	g.weights = weights
	return nil
}

// EvaluateAll recomputes every member's sink value against the bound
// weights. Distinct groups may evaluate concurrently; each owns its own
// scratch state.
func (g *Group) EvaluateAll() {
	for i, member := range g.members {
		g.sinks[i] = member.Evaluate(g.weights)
	}
}

// DesiredRank counts members whose sink value is greater than or equal
// to the desired candidate's, the desired one included: rank 1 means the
// desired candidate's sink value is the unique maximum, and ties count
// against it.
func (g *Group) DesiredRank() int {
	desired := g.sinks[g.desiredIndex]
	rank := 0
	for _, sink := range g.sinks {
		if sink >= desired {
			rank++
		}
	}
	return rank
}

// SortedBySink returns every member name with its sink value, in
// descending sink order.
func (g *Group) SortedBySink() []MemberSink {
	sorted := make([]MemberSink, len(g.members))
	for i, member := range g.members {
		sorted[i] = MemberSink{Name: member.Name(), Sink: g.sinks[i]}
	}
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[b].Sink < sorted[a].Sink })
	return sorted
}
