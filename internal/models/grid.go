package models

import (
	"fmt"
)

// DensityGrid represents a cubic real-space voxel grid of a scattering
// potential. Voxel (x, y, z) is stored at z*N*N + y*N + x and sits at
// ((x-N/2), (y-N/2), (z-N/2)) * VoxelSize.
type DensityGrid struct {
	// Data is the voxel data in row-major order, x fastest
	Data []float64 `yaml:"data"`

	// N is the number of voxels along each side
	N int `yaml:"n"`

	// VoxelSize is the physical edge length of each voxel in Angstroms
	VoxelSize float64 `yaml:"voxelSize"`
}

// NewDensityGrid allocates an all-zero grid with n voxels per side.
func NewDensityGrid(n int, voxelSize float64) (*DensityGrid, error) {
	if err := validateCube(n, voxelSize); err != nil {
		return nil, err
	}
	return &DensityGrid{
		Data:      make([]float64, n*n*n),
		N:         n,
		VoxelSize: voxelSize,
	}, nil
}

// Index returns the flat offset of voxel (x, y, z).
func (g *DensityGrid) Index(x, y, z int) int { return z*g.N*g.N + y*g.N + x }

// At returns the value of voxel (x, y, z).
func (g *DensityGrid) At(x, y, z int) float64 { return g.Data[g.Index(x, y, z)] }

// Validate checks the cubic-grid invariants.
func (g *DensityGrid) Validate() error {
	if err := validateCube(g.N, g.VoxelSize); err != nil {
		return err
	}
	if len(g.Data) != g.N*g.N*g.N {
		return fmt.Errorf("%w: grid holds %d values, want %d^3",
			ErrShapeMismatch, len(g.Data), g.N)
	}
	return nil
}

// FourierGrid is the centered discrete Fourier transform of a DensityGrid.
// The zero frequency sits at index N/2 along every axis.
type FourierGrid struct {
	Data      []complex128
	N         int
	VoxelSize float64
}

// NewFourierGrid allocates an all-zero Fourier grid with n voxels per side.
func NewFourierGrid(n int, voxelSize float64) (*FourierGrid, error) {
	if err := validateCube(n, voxelSize); err != nil {
		return nil, err
	}
	return &FourierGrid{
		Data:      make([]complex128, n*n*n),
		N:         n,
		VoxelSize: voxelSize,
	}, nil
}

// Index returns the flat offset of frequency sample (x, y, z).
func (g *FourierGrid) Index(x, y, z int) int { return z*g.N*g.N + y*g.N + x }

// At returns the amplitude at frequency sample (x, y, z).
func (g *FourierGrid) At(x, y, z int) complex128 { return g.Data[g.Index(x, y, z)] }

// Validate checks the cubic-grid invariants.
func (g *FourierGrid) Validate() error {
	if err := validateCube(g.N, g.VoxelSize); err != nil {
		return err
	}
	if len(g.Data) != g.N*g.N*g.N {
		return fmt.Errorf("%w: grid holds %d values, want %d^3",
			ErrShapeMismatch, len(g.Data), g.N)
	}
	return nil
}

func validateCube(n int, voxelSize float64) error {
	if n <= 0 {
		return fmt.Errorf("%w: voxels per side must be positive, got %d",
			ErrUnsupportedConfiguration, n)
	}
	if !(voxelSize > 0) {
		return fmt.Errorf("%w: voxel size must be positive, got %g",
			ErrUnsupportedConfiguration, voxelSize)
	}
	return nil
}
