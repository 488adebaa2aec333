// Package density turns atomic models into real-space voxel grids.
//
// Every atom contributes five isotropic Gaussians whose Fourier transforms
// are the terms of its scattering factor:
//
//	rho(r) = 4π sum_i sum_k a_ik (4π/b_ik)^(3/2) exp(-4π² |r - p_i|² / b_ik)
//
// With this normalization the integral of rho over all space is 4π sum a,
// independent of the widths b.
package density

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"cryosim/internal/models"
	"cryosim/pkg/coordinates"
	"cryosim/pkg/formfactor"
	"cryosim/pkg/logging"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

type options struct {
	workers int
}

// Option configures the builders.
type Option func(*options)

// WithWorkers bounds the number of goroutines used. Values below one select
// runtime.NumCPU.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func buildOptions(opts []Option) options {
	o := options{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.NumCPU()
	}
	return o
}

// gaussian is one term of an atom, with the constants folded in.
type gaussian struct {
	amplitude float64 // 4π a (4π/b)^(3/2)
	rate      float64 // 4π² / b
}

// FormFactors looks up the coefficients of each element in table.
func FormFactors(table *formfactor.Table, elements []int) (a, b [][5]float64, err error) {
	a = make([][5]float64, len(elements))
	b = make([][5]float64, len(elements))
	for i, z := range elements {
		c, err := table.Lookup(z)
		if err != nil {
			return nil, nil, fmt.Errorf("atom %d: %w", i, err)
		}
		a[i], b[i] = c.A, c.B
	}
	return a, b, nil
}

// validate checks the cooperating arrays before any numerical work.
func validate(positions []r3.Vec, a, b [][5]float64, grid coordinates.Grid3D) error {
	if len(positions) != len(a) || len(positions) != len(b) {
		return fmt.Errorf("%w: %d positions, %d amplitude rows, %d width rows",
			models.ErrShapeMismatch, len(positions), len(a), len(b))
	}
	for i := range b {
		for k, w := range b[i] {
			if !(w > 0) {
				return fmt.Errorf("%w: atom %d has non-positive width b[%d]=%g",
					models.ErrUnsupportedConfiguration, i, k, w)
			}
		}
	}
	if _, err := coordinates.NewGrid3D(grid.N, grid.Spacing); err != nil {
		return err
	}
	return nil
}

// BuildRealSpaceVoxels evaluates the Gaussian density of the atoms at every
// point of grid.
//
// Parameters:
//   - positions: atom centers in Angstroms
//   - a, b: five amplitudes and five widths per atom, b in square Angstroms
//   - grid: the cubic lattice to evaluate on
//
// Returns:
//   - A DensityGrid with grid.N voxels per side and grid.Spacing voxel size
//
// Each voxel sums its atoms in input order, so the result is independent of
// the number of workers.
func BuildRealSpaceVoxels(positions []r3.Vec, a, b [][5]float64, grid coordinates.Grid3D, opts ...Option) (*models.DensityGrid, error) {
	if err := validate(positions, a, b, grid); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	logging.Logger().Debug("density: building voxels",
		"atoms", len(positions), "n", grid.N, "voxelSize", grid.Spacing, "workers", o.workers)
	return build(positions, termsOf(a, b), grid, o.workers), nil
}

func termsOf(a, b [][5]float64) [][5]gaussian {
	terms := make([][5]gaussian, len(a))
	for i := range a {
		for k := 0; k < 5; k++ {
			terms[i][k] = gaussian{
				amplitude: 4 * math.Pi * a[i][k] * math.Pow(4*math.Pi/b[i][k], 1.5),
				rate:      4 * math.Pi * math.Pi / b[i][k],
			}
		}
	}
	return terms
}

// build splits the z-planes of the grid across workers. The Gaussians are
// separable, so a plane is accumulated from 1D factors along x and y.
func build(positions []r3.Vec, terms [][5]gaussian, grid coordinates.Grid3D, workers int) *models.DensityGrid {
	n := grid.N
	out := &models.DensityGrid{Data: make([]float64, n*n*n), N: n, VoxelSize: grid.Spacing}
	if len(positions) == 0 {
		return out
	}
	axis := grid.Axis()
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			ex := make([]float64, n)
			ey := make([]float64, n)
			for z := w; z < n; z += workers {
				plane := out.Data[z*n*n : (z+1)*n*n]
				for i, p := range positions {
					dz := axis[z] - p.Z
					for _, g := range terms[i] {
						fz := g.amplitude * math.Exp(-g.rate*dz*dz)
						if fz == 0 {
							continue
						}
						for j, c := range axis {
							dx, dy := c-p.X, c-p.Y
							ex[j] = math.Exp(-g.rate * dx * dx)
							ey[j] = math.Exp(-g.rate * dy * dy)
						}
						for y := 0; y < n; y++ {
							floats.AddScaled(plane[y*n:(y+1)*n], fz*ey[y], ex)
						}
					}
				}
			}
		}(w)
	}
	wg.Wait()
	return out
}

// BuildTrajectory builds one grid per frame. frames[i] is paired with the
// same a and b rows, and result i equals BuildRealSpaceVoxels(frames[i], ...).
func BuildTrajectory(frames [][]r3.Vec, a, b [][5]float64, grid coordinates.Grid3D, opts ...Option) ([]*models.DensityGrid, error) {
	for i, positions := range frames {
		if err := validate(positions, a, b, grid); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	o := buildOptions(opts)
	terms := termsOf(a, b)
	out := make([]*models.DensityGrid, len(frames))

	// Short trajectories parallelize inside each frame, long ones across frames
	if len(frames) < o.workers {
		for i, positions := range frames {
			out[i] = build(positions, terms, grid, o.workers)
		}
		return out, nil
	}

	type result struct {
		index int
		grid  *models.DensityGrid
	}
	jobs := make(chan int)
	results := make(chan result, len(frames))
	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- result{index: i, grid: build(frames[i], terms, grid, 1)}
			}
		}()
	}
	for i := range frames {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)

	for r := range results {
		out[r.index] = r.grid
	}
	logging.Logger().Debug("density: built trajectory", "frames", len(frames))
	return out, nil
}
