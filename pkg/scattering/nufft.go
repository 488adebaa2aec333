package scattering

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"cryosim/internal/models"
	"cryosim/pkg/logging"
	"cryosim/pkg/spectral"

	"gonum.org/v1/gonum/spatial/r2"
)

// oversampling is the ratio of the fine spreading grid to the output grid.
const oversampling = 2.0

// spreadPartitions is the number of private fine grids points are spread
// into before they are summed in order. It is fixed so the result does not
// depend on the number of workers.
const spreadPartitions = 8

// nufftAxis holds the plan of one output dimension.
type nufftAxis struct {
	modes  int       // output samples M
	fine   int       // fine grid size, oversampling*M
	tau    float64   // Gaussian kernel parameter
	deconv []float64 // per output index, folds in 1/fine
}

func newNufftAxis(modes, spread int) nufftAxis {
	fine := int(oversampling) * modes
	tau := math.Pi * float64(spread) / (float64(modes*modes) * oversampling * (oversampling - 0.5))
	deconv := make([]float64, modes)
	for i := range deconv {
		k := float64(modeNumber(i, modes))
		deconv[i] = math.Sqrt(math.Pi/tau) * math.Exp(k*k*tau) / float64(fine)
	}
	return nufftAxis{modes: modes, fine: fine, tau: tau, deconv: deconv}
}

// nufftPlan evaluates the type-1 transform
//
//	F(ky, kx) = sum_j c_j exp(-2πi (kx x_j / Lx + ky y_j / Ly))
//
// on the integer modes of an output image, by Gaussian gridding on an
// oversampled periodic grid (Greengard and Lee, SIAM Review 46, 2004).
type nufftPlan struct {
	rows, cols nufftAxis
	spread     int
	workers    int
}

func newNufftPlan(shape [2]int, eps float64, workers int) (*nufftPlan, error) {
	if !(eps > 0 && eps < 1) {
		return nil, fmt.Errorf("%w: NUFFT precision must lie in (0, 1), got %g",
			models.ErrUnsupportedConfiguration, eps)
	}
	spread := int(math.Ceil(-math.Log(eps) * (oversampling - 0.5) / (math.Pi * (oversampling - 1))))
	if spread < 2 {
		spread = 2
	}
	return &nufftPlan{
		rows:    newNufftAxis(shape[0], spread),
		cols:    newNufftAxis(shape[1], spread),
		spread:  spread,
		workers: workers,
	}, nil
}

// kernel fills w with the Gaussian weights of the 2*spread+1 fine grid
// points around angle theta and returns the index of the first one.
func (p *nufftPlan) kernel(ax nufftAxis, theta float64, w []float64) int {
	h := 2 * math.Pi / float64(ax.fine)
	m0 := int(math.Round(theta/h)) - p.spread
	for l := range w {
		d := theta - float64(m0+l)*h
		w[l] = math.Exp(-d * d / (4 * ax.tau))
	}
	return m0
}

// transform runs the plan. xs and ys are in units of the box, any real value.
func (p *nufftPlan) transform(weights []complex128, xs, ys []float64) *models.Image {
	fr, fc := p.rows.fine, p.cols.fine
	parts := spreadPartitions
	if parts > len(weights) {
		parts = len(weights)
	}
	grids := make([][]complex128, parts)

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for part := 0; part < parts; part++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(part int) {
			defer func() { <-sem; wg.Done() }()
			grid := make([]complex128, fr*fc)
			wx := make([]float64, 2*p.spread+1)
			wy := make([]float64, 2*p.spread+1)
			lo := part * len(weights) / parts
			hi := (part + 1) * len(weights) / parts
			for j := lo; j < hi; j++ {
				c := weights[j]
				if c == 0 {
					continue
				}
				x0 := p.kernel(p.cols, wrapAngle(xs[j]), wx)
				y0 := p.kernel(p.rows, wrapAngle(ys[j]), wy)
				for ly, vy := range wy {
					row := ((y0+ly)%fr + fr) % fr * fc
					cy := c * complex(vy, 0)
					for lx, vx := range wx {
						col := ((x0+lx)%fc + fc) % fc
						grid[row+col] += cy * complex(vx, 0)
					}
				}
			}
			grids[part] = grid
		}(part)
	}
	wg.Wait()

	fine := &models.Image{Rows: fr, Cols: fc, Data: make([]complex128, fr*fc)}
	for _, g := range grids {
		for i, v := range g {
			fine.Data[i] += v
		}
	}
	spectrum := spectral.FFT2(fine)

	// Keep the modes that fit the output and undo the Gaussian
	out := models.NewImage(p.rows.modes, p.cols.modes)
	for r := 0; r < p.rows.modes; r++ {
		fy := (modeNumber(r, p.rows.modes) + fr) % fr
		for c := 0; c < p.cols.modes; c++ {
			fx := (modeNumber(c, p.cols.modes) + fc) % fc
			scale := p.rows.deconv[r] * p.cols.deconv[c]
			out.Data[r*p.cols.modes+c] = spectrum.Data[fy*fc+fx] * complex(scale, 0)
		}
	}
	return out
}

// modeNumber returns the signed frequency stored at index i of an n-point
// FFT: 0, 1, ..., then -n/2, ..., -1.
func modeNumber(i, n int) int {
	if i >= (n+1)/2 {
		return i - n
	}
	return i
}

// wrapAngle maps a position in box units onto [0, 2π).
func wrapAngle(u float64) float64 {
	theta := 2 * math.Pi * (u - math.Floor(u))
	if theta >= 2*math.Pi {
		theta = 0
	}
	return theta
}

// NufftScattering projects with a non-uniform FFT onto the padded plane.
type NufftScattering struct {
	cfg  *ImageConfig
	Eps  float64
	plan *nufftPlan
}

// NewNufftScattering precomputes the NUFFT plan for cfg.
func NewNufftScattering(cfg *ImageConfig, eps float64, workers int) (*NufftScattering, error) {
	plan, err := newNufftPlan(cfg.PaddedShape(), eps, workers)
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("scattering: NUFFT plan",
		"shape", cfg.PaddedShape(), "eps", eps, "spread", plan.spread)
	return &NufftScattering{cfg: cfg, Eps: eps, plan: plan}, nil
}

func (s *NufftScattering) Method() Method       { return MethodNufft }
func (s *NufftScattering) Config() *ImageConfig { return s.cfg }

// Scatter masks the cloud to the padded box and transforms it.
func (s *NufftScattering) Scatter(cloud models.PointCloud) (*models.Image, error) {
	if err := cloud.Validate(); err != nil {
		return nil, err
	}
	return s.plan.project(cloud, s.cfg.BoxSize()), nil
}

// project bounds cloud to box and runs the plan at box-relative positions.
func (p *nufftPlan) project(cloud models.PointCloud, box r2.Vec) *models.Image {
	masked := Bound(cloud, box)
	xs := make([]float64, masked.Len())
	ys := make([]float64, masked.Len())
	for i, c := range masked.Coords {
		xs[i] = c.X / box.X
		ys[i] = c.Y / box.Y
	}
	return p.transform(masked.Weights, xs, ys)
}

// ProjectWithNufft masks cloud to box and evaluates its 2D Fourier
// transform on the integer modes of a shape-sized image to precision eps.
// The mode spacing is 1/box along each axis.
func ProjectWithNufft(cloud models.PointCloud, box r2.Vec, shape [2]int, eps float64) (*models.Image, error) {
	if !(box.X > 0 && box.Y > 0) || shape[0] <= 0 || shape[1] <= 0 {
		return nil, fmt.Errorf("%w: NUFFT onto %v with box %v",
			models.ErrUnsupportedConfiguration, shape, box)
	}
	if err := cloud.Validate(); err != nil {
		return nil, err
	}
	plan, err := newNufftPlan(shape, eps, runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	return plan.project(cloud, box), nil
}
