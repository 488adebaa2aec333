package scattering

import (
	"fmt"
	"math"

	"cryosim/internal/models"
	"cryosim/pkg/coordinates"
	"cryosim/pkg/spectral"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

// ImageConfig describes the imaging plane: its shape in pixels, the pixel
// size and the oversampling used while projecting. All grids are computed
// by NewImageConfig and never change afterwards.
type ImageConfig struct {
	shape       [2]int
	pixelSize   float64
	padScale    float64
	paddedShape [2]int

	freqs        []r2.Vec
	paddedFreqs  []r2.Vec
	coords       []r2.Vec
	paddedCoords []r2.Vec
}

// NewImageConfig validates the parameters and precomputes every coordinate
// and frequency grid.
//
// Parameters:
//   - shape: (rows, cols) of the imaging plane
//   - pixelSize: pixel edge length in Angstroms
//   - padScale: oversampling factor, at least 1
//
// The padded shape is shape*padScale rounded to the nearest integer.
func NewImageConfig(shape [2]int, pixelSize, padScale float64) (*ImageConfig, error) {
	if shape[0] <= 0 || shape[1] <= 0 {
		return nil, fmt.Errorf("%w: image shape must be positive, got %v",
			models.ErrUnsupportedConfiguration, shape)
	}
	if !(pixelSize > 0) {
		return nil, fmt.Errorf("%w: pixel size must be positive, got %g",
			models.ErrUnsupportedConfiguration, pixelSize)
	}
	if !(padScale >= 1) || math.IsInf(padScale, 0) {
		return nil, fmt.Errorf("%w: pad scale must be at least 1, got %g",
			models.ErrUnsupportedConfiguration, padScale)
	}

	padded := [2]int{
		int(math.Round(float64(shape[0]) * padScale)),
		int(math.Round(float64(shape[1]) * padScale)),
	}
	return &ImageConfig{
		shape:        shape,
		pixelSize:    pixelSize,
		padScale:     padScale,
		paddedShape:  padded,
		freqs:        coordinates.Freqs2D(shape, pixelSize),
		paddedFreqs:  coordinates.Freqs2D(padded, pixelSize),
		coords:       coordinates.Coords2D(shape, pixelSize),
		paddedCoords: coordinates.Coords2D(padded, pixelSize),
	}, nil
}

// Shape returns the nominal (rows, cols).
func (c *ImageConfig) Shape() [2]int { return c.shape }

// PaddedShape returns the oversampled (rows, cols).
func (c *ImageConfig) PaddedShape() [2]int { return c.paddedShape }

// PixelSize returns the pixel edge length in Angstroms.
func (c *ImageConfig) PixelSize() float64 { return c.pixelSize }

// PadScale returns the oversampling factor.
func (c *ImageConfig) PadScale() float64 { return c.padScale }

// Freqs returns the frequency grid of the nominal plane, zero frequency at
// index 0. The slice is shared and must not be modified.
func (c *ImageConfig) Freqs() []r2.Vec { return c.freqs }

// PaddedFreqs returns the frequency grid of the padded plane.
func (c *ImageConfig) PaddedFreqs() []r2.Vec { return c.paddedFreqs }

// Coords returns the centered pixel coordinates of the nominal plane.
func (c *ImageConfig) Coords() []r2.Vec { return c.coords }

// PaddedCoords returns the centered pixel coordinates of the padded plane.
func (c *ImageConfig) PaddedCoords() []r2.Vec { return c.paddedCoords }

// BoxSize returns the physical extent of the padded plane, X along columns.
func (c *ImageConfig) BoxSize() r2.Vec {
	return r2.Vec{
		X: float64(c.paddedShape[1]) * c.pixelSize,
		Y: float64(c.paddedShape[0]) * c.pixelSize,
	}
}

// Crop cuts a padded real-space image down to the nominal shape.
func (c *ImageConfig) Crop(img *models.Image) (*models.Image, error) {
	if err := img.CheckShape(c.paddedShape); err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}
	return spectral.Crop(img, c.shape)
}

// Pad extends a nominal real-space image to the padded shape.
func (c *ImageConfig) Pad(img *models.Image, mode spectral.PadMode) (*models.Image, error) {
	if err := img.CheckShape(c.shape); err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}
	return spectral.Pad(img, c.paddedShape, mode)
}

// Downsample resamples a padded real-space image to the nominal shape by
// truncating its spectrum.
func (c *ImageConfig) Downsample(img *models.Image) (*models.Image, error) {
	if err := img.CheckShape(c.paddedShape); err != nil {
		return nil, fmt.Errorf("downsample: %w", err)
	}
	return spectral.Resize(img, c.shape)
}

// Upsample resamples a nominal real-space image to the padded shape by
// zero-padding its spectrum.
func (c *ImageConfig) Upsample(img *models.Image) (*models.Image, error) {
	if err := img.CheckShape(c.shape); err != nil {
		return nil, fmt.Errorf("upsample: %w", err)
	}
	return spectral.Resize(img, c.paddedShape)
}

// imageConfigYAML holds the encoded fields. The grids are derived data.
type imageConfigYAML struct {
	Shape     [2]int  `yaml:"shape,flow"`
	PixelSize float64 `yaml:"pixel_size"`
	PadScale  float64 `yaml:"pad_scale"`
}

// MarshalYAML encodes the defining parameters only.
func (c *ImageConfig) MarshalYAML() (interface{}, error) {
	return imageConfigYAML{Shape: c.shape, PixelSize: c.pixelSize, PadScale: c.padScale}, nil
}

// UnmarshalYAML decodes the parameters and rebuilds the grids.
func (c *ImageConfig) UnmarshalYAML(node *yaml.Node) error {
	raw := imageConfigYAML{PadScale: 1}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	built, err := NewImageConfig(raw.Shape, raw.PixelSize, raw.PadScale)
	if err != nil {
		return err
	}
	*c = *built
	return nil
}
