// Package detector models the electron detector that reads out a noiseless
// projection. A detector re-measures the image at its own pixel size and
// samples a noise realization on the frequency grid of the image.
package detector

import (
	"fmt"
	"math"

	"cryosim/internal/models"
	"cryosim/pkg/spectral"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"
)

// Detector is implemented by every detector model.
type Detector interface {
	// Measure resamples a real-space image simulated at the given
	// resolution (its pixel size) onto the detector.
	Measure(img *models.Image, resolution float64) (*models.Image, error)

	// Sample draws a Fourier-space noise realization for an image of the
	// given shape whose frequency grid is freqs (raw FFT layout). It fails
	// with models.ErrShapeMismatch when freqs does not cover shape.
	Sample(src rand.Source, freqs []r2.Vec, shape [2]int) ([]complex128, error)
}

// Kernel is a noise power spectrum evaluated on a frequency grid.
type Kernel interface {
	Evaluate(freqs []r2.Vec) []float64
}

// Constant is a flat power spectrum.
type Constant struct {
	Value float64
}

// Evaluate returns Value at every frequency.
func (k Constant) Evaluate(freqs []r2.Vec) []float64 {
	out := make([]float64, len(freqs))
	for i := range out {
		out[i] = k.Value
	}
	return out
}

// NullDetector reads out the image unchanged and adds no noise.
type NullDetector struct{}

func (NullDetector) Measure(img *models.Image, resolution float64) (*models.Image, error) {
	return img, nil
}

func (NullDetector) Sample(src rand.Source, freqs []r2.Vec, shape [2]int) ([]complex128, error) {
	return silence(freqs, shape)
}

// CountingDetector is a noiseless detector with its own pixel size.
type CountingDetector struct {
	PixelSize float64
	Method    Interpolation
}

// Measure rescales img by resolution/PixelSize about its center.
func (d CountingDetector) Measure(img *models.Image, resolution float64) (*models.Image, error) {
	return MeasureImage(img, resolution, d.PixelSize, d.Method)
}

func (d CountingDetector) Sample(src rand.Source, freqs []r2.Vec, shape [2]int) ([]complex128, error) {
	return silence(freqs, shape)
}

func silence(freqs []r2.Vec, shape [2]int) ([]complex128, error) {
	if err := checkShape(freqs, shape); err != nil {
		return nil, err
	}
	return make([]complex128, len(freqs)), nil
}

func checkShape(freqs []r2.Vec, shape [2]int) error {
	if shape[0] <= 0 || shape[1] <= 0 || len(freqs) != shape[0]*shape[1] {
		return fmt.Errorf("%w: %d frequencies for a %dx%d image",
			models.ErrShapeMismatch, len(freqs), shape[0], shape[1])
	}
	return nil
}

// WhiteDetector is a counting detector with Gaussian noise whose power
// spectrum is given by Kernel.
type WhiteDetector struct {
	CountingDetector
	Kernel Kernel
}

// NewWhiteDetector returns a detector with a flat noise spectrum of
// variance lambdaD.
func NewWhiteDetector(pixelSize float64, method Interpolation, lambdaD float64) *WhiteDetector {
	return &WhiteDetector{
		CountingDetector: CountingDetector{PixelSize: pixelSize, Method: method},
		Kernel:           Constant{Value: lambdaD},
	}
}

// Sample colors unit white noise by the square root of the kernel, so the
// real-space noise has the kernel's variance per pixel.
func (d *WhiteDetector) Sample(src rand.Source, freqs []r2.Vec, shape [2]int) ([]complex128, error) {
	if err := checkShape(freqs, shape); err != nil {
		return nil, err
	}
	noise := models.NewImage(shape[0], shape[1])
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i := range noise.Data {
		noise.Data[i] = complex(normal.Rand(), 0)
	}
	spectrum := spectral.FFT2(noise)
	for i, v := range d.Kernel.Evaluate(freqs) {
		spectrum.Data[i] *= complex(math.Sqrt(v), 0)
	}
	return spectrum.Data, nil
}
