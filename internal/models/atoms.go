package models

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// AtomCloud is an ordered list of atoms as read from a structure file.
type AtomCloud struct {
	// Positions are the atom centers in Angstroms
	Positions []r3.Vec

	// Elements holds the atomic number of each atom
	Elements []int
}

// NewAtomCloud pairs positions with atomic numbers.
func NewAtomCloud(positions []r3.Vec, elements []int) (*AtomCloud, error) {
	if len(positions) != len(elements) {
		return nil, fmt.Errorf("%w: %d positions but %d elements",
			ErrShapeMismatch, len(positions), len(elements))
	}
	return &AtomCloud{Positions: positions, Elements: elements}, nil
}

// Len returns the number of atoms.
func (a *AtomCloud) Len() int { return len(a.Positions) }

// Center returns the unweighted centroid of the atoms.
func (a *AtomCloud) Center() r3.Vec {
	var c r3.Vec
	if len(a.Positions) == 0 {
		return c
	}
	for _, p := range a.Positions {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(a.Positions)), c)
}

// Translated returns a copy of the cloud shifted by -offset.
func (a *AtomCloud) Translated(offset r3.Vec) *AtomCloud {
	positions := make([]r3.Vec, len(a.Positions))
	for i, p := range a.Positions {
		positions[i] = r3.Sub(p, offset)
	}
	elements := make([]int, len(a.Elements))
	copy(elements, a.Elements)
	return &AtomCloud{Positions: positions, Elements: elements}
}

// PointCloud is a density sampled at arbitrary 3D points. Projections are
// always taken along z.
type PointCloud struct {
	Weights []complex128
	Coords  []r3.Vec
}

// Len returns the number of points.
func (p PointCloud) Len() int { return len(p.Coords) }

// Validate checks that every point has exactly one weight.
func (p PointCloud) Validate() error {
	if len(p.Weights) != len(p.Coords) {
		return fmt.Errorf("%w: %d weights but %d coordinates",
			ErrShapeMismatch, len(p.Weights), len(p.Coords))
	}
	return nil
}
