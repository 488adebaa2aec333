package scattering

import (
	"fmt"
	"math"

	"cryosim/internal/models"
	"cryosim/pkg/spectral"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// gaussianChunk bounds the number of points held in one matrix product.
const gaussianChunk = 2048

// GaussianScattering treats every point as an isotropic Gaussian and
// integrates it exactly over each pixel. Unlike binning it does not ring.
type GaussianScattering struct {
	cfg *ImageConfig
	// Scale is the Gaussian variance in units of the pixel size.
	Scale float64
}

// NewGaussianScattering checks scale and binds it to cfg.
func NewGaussianScattering(cfg *ImageConfig, scale float64) (*GaussianScattering, error) {
	if !(scale > 0) {
		return nil, fmt.Errorf("%w: gaussian scale must be positive, got %g",
			models.ErrUnsupportedConfiguration, scale)
	}
	return &GaussianScattering{cfg: cfg, Scale: scale}, nil
}

func (s *GaussianScattering) Method() Method       { return MethodGaussian }
func (s *GaussianScattering) Config() *ImageConfig { return s.cfg }

// Scatter integrates onto the padded plane and transforms the result.
func (s *GaussianScattering) Scatter(cloud models.PointCloud) (*models.Image, error) {
	return ProjectWithGaussians(cloud, s.cfg.BoxSize(), s.cfg.PaddedShape(),
		s.cfg.PixelSize(), s.cfg.PixelSize()*s.Scale)
}

// ProjectWithGaussians masks cloud to box, integrates Gaussians of the given
// variance over the pixels of a shape-sized plane and returns the Fourier
// transform of that image.
func ProjectWithGaussians(cloud models.PointCloud, box r2.Vec, shape [2]int, pixelSize, variance float64) (*models.Image, error) {
	if err := cloud.Validate(); err != nil {
		return nil, err
	}
	masked := Bound(cloud, box)
	xy := make([]r2.Vec, masked.Len())
	for i, p := range masked.Coords {
		xy[i] = r2.Vec{X: p.X, Y: p.Y}
	}
	img, err := IntegrateGaussians(masked.Weights, xy, variance, shape, pixelSize)
	if err != nil {
		return nil, err
	}
	return spectral.ForwardImage(img), nil
}

// IntegrateGaussians renders weighted isotropic Gaussians centered at xy
// into a real-space image whose origin is pixel (rows/2, cols/2). Pixel
// (r, c) receives the exact integral of every Gaussian over its area, so a
// Gaussian well inside the plane contributes its full weight.
//
// The Gaussian factorizes over x and y, so the image is the product
// Y^T W X of the per-axis pixel integrals, accumulated in chunks of points.
func IntegrateGaussians(weights []complex128, xy []r2.Vec, variance float64, shape [2]int, pixelSize float64) (*models.Image, error) {
	if len(weights) != len(xy) {
		return nil, fmt.Errorf("%w: %d weights but %d coordinates",
			models.ErrShapeMismatch, len(weights), len(xy))
	}
	if shape[0] <= 0 || shape[1] <= 0 || !(pixelSize > 0) || !(variance > 0) {
		return nil, fmt.Errorf("%w: gaussians on %v, pixel size %g, variance %g",
			models.ErrUnsupportedConfiguration, shape, pixelSize, variance)
	}
	rows, cols := shape[0], shape[1]
	re := mat.NewDense(rows, cols, nil)
	im := mat.NewDense(rows, cols, nil)
	hasImag := false
	for _, w := range weights {
		if imag(w) != 0 {
			hasImag = true
			break
		}
	}

	width := math.Sqrt(2 * variance)
	for lo := 0; lo < len(xy); lo += gaussianChunk {
		hi := lo + gaussianChunk
		if hi > len(xy) {
			hi = len(xy)
		}
		n := hi - lo
		ay := mat.NewDense(rows, n, nil) // weighted row integrals
		ayImag := mat.NewDense(rows, n, nil)
		bx := mat.NewDense(n, cols, nil) // column integrals
		for j := 0; j < n; j++ {
			p, w := xy[lo+j], weights[lo+j]
			for c := 0; c < cols; c++ {
				bx.Set(j, c, pixelIntegral(c, cols, pixelSize, p.X, width))
			}
			for r := 0; r < rows; r++ {
				v := pixelIntegral(r, rows, pixelSize, p.Y, width)
				ay.Set(r, j, real(w)*v)
				ayImag.Set(r, j, imag(w)*v)
			}
		}
		var part mat.Dense
		part.Mul(ay, bx)
		re.Add(re, &part)
		if hasImag {
			part.Reset()
			part.Mul(ayImag, bx)
			im.Add(im, &part)
		}
	}

	img := models.NewImage(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			img.Data[r*cols+c] = complex(re.At(r, c), im.At(r, c))
		}
	}
	return img, nil
}

// pixelIntegral integrates a unit Gaussian centered at mu over pixel i of an
// axis with n pixels. width is sqrt(2*variance).
func pixelIntegral(i, n int, pixelSize, mu, width float64) float64 {
	center := float64(i-n/2) * pixelSize
	lo := (center - pixelSize/2 - mu) / width
	hi := (center + pixelSize/2 - mu) / width
	return 0.5 * (math.Erf(hi) - math.Erf(lo))
}
