// Package potential wraps voxel grids as scattering potentials. The same
// density can be held in real space or as its centered Fourier transform,
// and the two forms convert into each other exactly up to rounding.
package potential

import (
	"fmt"
	"math"

	"cryosim/internal/models"
	"cryosim/pkg/coordinates"
	"cryosim/pkg/density"
	"cryosim/pkg/formfactor"
	"cryosim/pkg/spectral"

	"gonum.org/v1/gonum/spatial/r3"
)

// Potential is a scattering potential that can be sampled as a point cloud.
type Potential interface {
	// PointCloud returns the samples of the potential and where they sit.
	PointCloud() models.PointCloud
	// VoxelSize returns the lattice spacing in Angstroms.
	VoxelSize() float64
}

// RealVoxelGridPotential holds a real-space density grid.
type RealVoxelGridPotential struct {
	Grid *models.DensityGrid
}

// FourierVoxelGridPotential holds fftshift(FFT(ifftshift(grid))) of a
// real-space density grid.
type FourierVoxelGridPotential struct {
	Grid *models.FourierGrid
}

// checkLattice makes sure the caller's voxel size and lattice agree.
func checkLattice(voxelSize float64, grid coordinates.Grid3D) error {
	if math.Abs(voxelSize-grid.Spacing) > 1e-12*math.Abs(voxelSize) {
		return fmt.Errorf("%w: voxel size %g does not match lattice spacing %g",
			models.ErrUnsupportedConfiguration, voxelSize, grid.Spacing)
	}
	return nil
}

// RealFromAtoms builds a real-space potential from an atomic model.
func RealFromAtoms(atoms *models.AtomCloud, table *formfactor.Table, voxelSize float64, grid coordinates.Grid3D, opts ...density.Option) (*RealVoxelGridPotential, error) {
	if err := checkLattice(voxelSize, grid); err != nil {
		return nil, err
	}
	if len(atoms.Positions) != len(atoms.Elements) {
		return nil, fmt.Errorf("%w: %d positions but %d elements",
			models.ErrShapeMismatch, len(atoms.Positions), len(atoms.Elements))
	}
	a, b, err := density.FormFactors(table, atoms.Elements)
	if err != nil {
		return nil, err
	}
	g, err := density.BuildRealSpaceVoxels(atoms.Positions, a, b, grid, opts...)
	if err != nil {
		return nil, err
	}
	return &RealVoxelGridPotential{Grid: g}, nil
}

// FourierFromAtoms builds the real-space grid and transforms it.
func FourierFromAtoms(atoms *models.AtomCloud, table *formfactor.Table, voxelSize float64, grid coordinates.Grid3D, opts ...density.Option) (*FourierVoxelGridPotential, error) {
	rp, err := RealFromAtoms(atoms, table, voxelSize, grid, opts...)
	if err != nil {
		return nil, err
	}
	return rp.ToFourier()
}

// FourierFromRealVoxelGrid transforms an existing real-space grid.
func FourierFromRealVoxelGrid(grid *models.DensityGrid) (*FourierVoxelGridPotential, error) {
	return (&RealVoxelGridPotential{Grid: grid}).ToFourier()
}

// RealTrajectoryFromAtoms builds one real-space potential per frame. All
// frames share the element list.
func RealTrajectoryFromAtoms(frames [][]r3.Vec, elements []int, table *formfactor.Table, voxelSize float64, grid coordinates.Grid3D, opts ...density.Option) ([]*RealVoxelGridPotential, error) {
	if err := checkLattice(voxelSize, grid); err != nil {
		return nil, err
	}
	a, b, err := density.FormFactors(table, elements)
	if err != nil {
		return nil, err
	}
	grids, err := density.BuildTrajectory(frames, a, b, grid, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]*RealVoxelGridPotential, len(grids))
	for i, g := range grids {
		out[i] = &RealVoxelGridPotential{Grid: g}
	}
	return out, nil
}

// ToFourier returns the centered Fourier transform of the grid.
func (p *RealVoxelGridPotential) ToFourier() (*FourierVoxelGridPotential, error) {
	if err := p.Grid.Validate(); err != nil {
		return nil, err
	}
	n := p.Grid.N
	data := make([]complex128, len(p.Grid.Data))
	for i, v := range p.Grid.Data {
		data[i] = complex(v, 0)
	}
	return &FourierVoxelGridPotential{Grid: &models.FourierGrid{
		Data:      spectral.CenteredFFT3(data, n),
		N:         n,
		VoxelSize: p.Grid.VoxelSize,
	}}, nil
}

// ToReal inverts the centered transform and keeps the real part.
func (p *FourierVoxelGridPotential) ToReal() (*RealVoxelGridPotential, error) {
	if err := p.Grid.Validate(); err != nil {
		return nil, err
	}
	n := p.Grid.N
	inv := spectral.CenteredIFFT3(p.Grid.Data, n)
	out := &models.DensityGrid{Data: make([]float64, len(inv)), N: n, VoxelSize: p.Grid.VoxelSize}
	for i, v := range inv {
		out.Data[i] = real(v)
	}
	return &RealVoxelGridPotential{Grid: out}, nil
}

// VoxelSize returns the voxel edge length.
func (p *RealVoxelGridPotential) VoxelSize() float64 { return p.Grid.VoxelSize }

// VoxelSize returns the voxel edge length of the real-space grid.
func (p *FourierVoxelGridPotential) VoxelSize() float64 { return p.Grid.VoxelSize }

// PointCloud returns every voxel value at its voxel center.
func (p *RealVoxelGridPotential) PointCloud() models.PointCloud {
	weights := make([]complex128, len(p.Grid.Data))
	for i, v := range p.Grid.Data {
		weights[i] = complex(v, 0)
	}
	lattice := coordinates.Grid3D{N: p.Grid.N, Spacing: p.Grid.VoxelSize}
	return models.PointCloud{Weights: weights, Coords: lattice.Points()}
}

// PointCloud returns every Fourier amplitude at its spatial frequency.
func (p *FourierVoxelGridPotential) PointCloud() models.PointCloud {
	weights := make([]complex128, len(p.Grid.Data))
	copy(weights, p.Grid.Data)
	lattice := coordinates.Grid3D{N: p.Grid.N, Spacing: p.Grid.VoxelSize}
	return models.PointCloud{Weights: weights, Coords: lattice.CenteredFreqs()}
}
