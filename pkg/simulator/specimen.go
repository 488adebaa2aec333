// Package simulator assembles the imaging pipeline: a specimen is posed,
// scattered to the exit plane, brought back to real space and read out by a
// detector.
package simulator

import (
	"fmt"

	"cryosim/internal/models"
	"cryosim/pkg/coordinates"
	"cryosim/pkg/density"
	"cryosim/pkg/formfactor"
	"cryosim/pkg/logging"
	"cryosim/pkg/pose"
	"cryosim/pkg/potential"
	"cryosim/pkg/scattering"
)

// Scatterer produces the exit-plane wave of a posed specimen.
type Scatterer interface {
	// ScatterToExitPlane returns the padded projection in Fourier space
	// (raw FFT layout) with the pose translation applied.
	ScatterToExitPlane() (*models.Image, error)
	// Config returns the imaging configuration of the projection.
	Config() *scattering.ImageConfig
	// WithPose returns a copy oriented by p.
	WithPose(p pose.EulerAnglePose) Scatterer
}

// Specimen is a single potential in a single pose.
type Specimen struct {
	Potential potential.Potential
	Strategy  scattering.Strategy
	Pose      pose.EulerAnglePose
}

// Config returns the configuration of the scattering strategy.
func (s *Specimen) Config() *scattering.ImageConfig { return s.Strategy.Config() }

// WithPose returns a copy of s in pose p.
func (s *Specimen) WithPose(p pose.EulerAnglePose) Scatterer {
	out := *s
	out.Pose = p
	return &out
}

// ScatterToExitPlane rotates the potential, projects it and applies the
// in-plane translation as a phase shift.
func (s *Specimen) ScatterToExitPlane() (*models.Image, error) {
	if s.Potential == nil || s.Strategy == nil {
		return nil, fmt.Errorf("%w: specimen needs a potential and a scattering strategy",
			models.ErrUnsupportedConfiguration)
	}
	pot, err := realSpace(s.Potential)
	if err != nil {
		return nil, err
	}
	cloud := pot.PointCloud()
	if s.Pose.Phi != 0 || s.Pose.Theta != 0 || s.Pose.Psi != 0 {
		cloud = s.Pose.RotateCloud(cloud)
	}

	img, err := s.Strategy.Scatter(cloud)
	if err != nil {
		return nil, fmt.Errorf("scatter with %v: %w", s.Strategy.Method(), err)
	}
	if err := s.Pose.Shift(img, s.Strategy.Config().PaddedFreqs()); err != nil {
		return nil, err
	}
	logging.Logger().Debug("scattered specimen",
		"method", s.Strategy.Method().String(), "points", cloud.Len(), "pose", s.Pose)
	return img, nil
}

// realSpace returns a potential whose point cloud lives in real space.
// Fourier voxel grids are transformed back first.
func realSpace(p potential.Potential) (potential.Potential, error) {
	if fp, ok := p.(*potential.FourierVoxelGridPotential); ok {
		return fp.ToReal()
	}
	return p, nil
}

// DiscreteEnsemble holds several conformations of a specimen. Only the
// selected conformation is scattered.
type DiscreteEnsemble struct {
	Potentials   []potential.Potential
	Conformation int
	Strategy     scattering.Strategy
	Pose         pose.EulerAnglePose
}

// Config returns the configuration of the scattering strategy.
func (e *DiscreteEnsemble) Config() *scattering.ImageConfig { return e.Strategy.Config() }

// WithPose returns a copy of e in pose p.
func (e *DiscreteEnsemble) WithPose(p pose.EulerAnglePose) Scatterer {
	out := *e
	out.Pose = p
	return &out
}

// Specimen returns the selected conformation as a Specimen.
func (e *DiscreteEnsemble) Specimen() (*Specimen, error) {
	if e.Conformation < 0 || e.Conformation >= len(e.Potentials) {
		return nil, fmt.Errorf("%w: conformation %d of %d",
			models.ErrUnsupportedConfiguration, e.Conformation, len(e.Potentials))
	}
	return &Specimen{Potential: e.Potentials[e.Conformation], Strategy: e.Strategy, Pose: e.Pose}, nil
}

// ScatterToExitPlane scatters the selected conformation.
func (e *DiscreteEnsemble) ScatterToExitPlane() (*models.Image, error) {
	s, err := e.Specimen()
	if err != nil {
		return nil, err
	}
	return s.ScatterToExitPlane()
}

// PotentialFromAtoms centers atoms on the origin and samples their density
// on an n^3 lattice of the given voxel size.
func PotentialFromAtoms(atoms *models.AtomCloud, table *formfactor.Table, n int, voxelSize float64, opts ...density.Option) (*potential.RealVoxelGridPotential, error) {
	grid, err := coordinates.NewGrid3D(n, voxelSize)
	if err != nil {
		return nil, err
	}
	centered := atoms.Translated(atoms.Center())
	return potential.RealFromAtoms(centered, table, voxelSize, grid, opts...)
}
