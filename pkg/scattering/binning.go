package scattering

import (
	"fmt"
	"math"

	"cryosim/internal/models"
	"cryosim/pkg/spectral"
)

// BinningScattering drops every point into its nearest pixel. It is a
// cheap baseline and aliases badly; the other methods should be preferred.
type BinningScattering struct {
	cfg *ImageConfig
}

func (s *BinningScattering) Method() Method       { return MethodBinning }
func (s *BinningScattering) Config() *ImageConfig { return s.cfg }

// Scatter bins onto the padded plane and transforms the result.
func (s *BinningScattering) Scatter(cloud models.PointCloud) (*models.Image, error) {
	img, err := ProjectWithBinning(cloud, s.cfg.PaddedShape(), s.cfg.PixelSize())
	if err != nil {
		return nil, err
	}
	return spectral.ForwardImage(img), nil
}

// ProjectWithBinning builds a real-space projection as a weighted histogram.
// Coordinates are rounded half to even in pixel units and shifted so the
// origin lands on pixel (rows/2, cols/2). Points past the edge are clipped
// onto the boundary pixels rather than dropped.
func ProjectWithBinning(cloud models.PointCloud, shape [2]int, pixelSize float64) (*models.Image, error) {
	if err := cloud.Validate(); err != nil {
		return nil, err
	}
	if shape[0] <= 0 || shape[1] <= 0 || !(pixelSize > 0) {
		return nil, fmt.Errorf("%w: binning onto %v with pixel size %g",
			models.ErrUnsupportedConfiguration, shape, pixelSize)
	}
	img := models.NewImage(shape[0], shape[1])
	for i, p := range cloud.Coords {
		c := clip(int(math.RoundToEven(p.X/pixelSize))+shape[1]/2, shape[1])
		r := clip(int(math.RoundToEven(p.Y/pixelSize))+shape[0]/2, shape[0])
		img.Data[r*shape[1]+c] += cloud.Weights[i]
	}
	return img, nil
}

func clip(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
