// Package scattering projects 3D point clouds onto the imaging plane.
//
// Every strategy integrates along z and returns the projection in Fourier
// space in raw FFT layout (zero frequency at index 0), with the real-space
// origin at pixel (rows/2, cols/2) of the padded plane.
package scattering

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"cryosim/internal/models"
	"cryosim/pkg/logging"
)

// Method identifies a projection algorithm.
type Method int

const (
	// MethodNufft evaluates the projection theorem with a type-1 NUFFT.
	MethodNufft Method = iota
	// MethodGaussian integrates a Gaussian around each point over every pixel.
	MethodGaussian
	// MethodFourierSlice extracts a central slice of the 3D transform.
	MethodFourierSlice
	// MethodBinning histograms points into their nearest pixel.
	MethodBinning
)

var methodNames = []string{
	MethodNufft:        "nufft",
	MethodGaussian:     "gaussian",
	MethodFourierSlice: "fourier-slice",
	MethodBinning:      "binning",
}

func (m Method) String() string {
	if m >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts a configuration string into a Method.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Method(m), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown scattering method %q", models.ErrUnsupportedConfiguration, s)
}

// Strategy renders a point cloud onto the padded imaging plane of its
// configuration.
type Strategy interface {
	Method() Method
	Config() *ImageConfig
	Scatter(cloud models.PointCloud) (*models.Image, error)
}

type settings struct {
	eps     float64
	scale   float64
	order   int
	workers int
}

// Option tunes a strategy. Options that do not apply to the chosen method
// are ignored.
type Option func(*settings)

// WithEps sets the NUFFT precision. The default is 1e-6.
func WithEps(eps float64) Option { return func(s *settings) { s.eps = eps } }

// WithScale sets the Gaussian variance in units of the pixel size. The
// default is 1/3.
func WithScale(scale float64) Option { return func(s *settings) { s.scale = scale } }

// WithOrder sets the interpolation order of the Fourier-slice method.
func WithOrder(order int) Option { return func(s *settings) { s.order = order } }

// WithWorkers bounds the goroutines used per call. Values below one select
// runtime.NumCPU.
func WithWorkers(n int) Option { return func(s *settings) { s.workers = n } }

// New builds the strategy for method. Plans that depend only on the
// configuration are computed here and reused by every Scatter call.
func New(method Method, cfg *ImageConfig, opts ...Option) (Strategy, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil image configuration", models.ErrUnsupportedConfiguration)
	}
	s := settings{eps: 1e-6, scale: 1.0 / 3, order: 1, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.workers < 1 {
		s.workers = runtime.NumCPU()
	}

	switch method {
	case MethodNufft:
		st, err := NewNufftScattering(cfg, s.eps, s.workers)
		if err != nil {
			return nil, err
		}
		return st, nil
	case MethodGaussian:
		st, err := NewGaussianScattering(cfg, s.scale)
		if err != nil {
			return nil, err
		}
		return st, nil
	case MethodFourierSlice:
		return &FourierSliceScattering{cfg: cfg, Order: s.order}, nil
	case MethodBinning:
		return &BinningScattering{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scattering method %v", models.ErrUnsupportedConfiguration, method)
	}
}

// FourierSliceScattering would interpolate a central slice of the 3D
// Fourier transform. Its interpolation scheme is not settled, so Scatter
// always fails with ErrNotImplemented.
type FourierSliceScattering struct {
	cfg   *ImageConfig
	Order int
}

func (s *FourierSliceScattering) Method() Method       { return MethodFourierSlice }
func (s *FourierSliceScattering) Config() *ImageConfig { return s.cfg }

func (s *FourierSliceScattering) Scatter(cloud models.PointCloud) (*models.Image, error) {
	return nil, fmt.Errorf("%w: fourier-slice scattering (order %d)", models.ErrNotImplemented, s.Order)
}

// ScatterBatch scatters every cloud with s. Result i is exactly
// s.Scatter(clouds[i]); the first error by index is returned.
func ScatterBatch(s Strategy, clouds []models.PointCloud) ([]*models.Image, error) {
	for i, c := range clouds {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("cloud %d: %w", i, err)
		}
	}

	type result struct {
		index int
		img   *models.Image
		err   error
	}
	workers := runtime.NumCPU()
	if workers > len(clouds) {
		workers = len(clouds)
	}
	jobs := make(chan int)
	results := make(chan result, len(clouds))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				img, err := s.Scatter(clouds[i])
				results <- result{index: i, img: img, err: err}
			}
		}()
	}
	for i := range clouds {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]*models.Image, len(clouds))
	errs := make([]error, len(clouds))
	for r := range results {
		out[r.index], errs[r.index] = r.img, r.err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("cloud %d: %w", i, err)
		}
	}
	logging.Logger().Debug("scattering: batch done", "method", s.Method(), "clouds", len(clouds))
	return out, nil
}
