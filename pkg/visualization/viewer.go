// Package visualization exports density grids and simulated projections
// as 16-bit grayscale TIFF images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"cryosim/internal/models"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/floats"
)

// Viewer renders slices of a density grid. Values are mapped linearly from
// the grid's [min, max] onto the full 16-bit range.
type Viewer struct {
	grid *models.DensityGrid

	// lo and hi are the value range of the whole grid
	lo, hi float64
}

// NewViewer creates a viewer for grid.
func NewViewer(grid *models.DensityGrid) (*Viewer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return &Viewer{grid: grid, lo: floats.Min(grid.Data), hi: floats.Max(grid.Data)}, nil
}

func (v *Viewer) gray(value float64) color.Gray16 {
	return toGray16(value, v.lo, v.hi)
}

func toGray16(value, lo, hi float64) color.Gray16 {
	if hi <= lo {
		return color.Gray16{}
	}
	scaled := (value - lo) / (hi - lo) * 65535
	return color.Gray16{Y: uint16(math.Round(math.Max(0, math.Min(65535, scaled))))}
}

// ExtractSlice extracts a 2D slice perpendicular to axis at the given
// voxel position. An x slice is laid out (z across, y down), a y slice
// (x across, z down) and a z slice (x across, y down).
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	n := v.grid.N
	if position < 0 || position >= n {
		return nil, fmt.Errorf("position %d outside [0, %d)", position, n)
	}

	img := image.NewGray16(image.Rect(0, 0, n, n))
	switch axis {
	case "x", "X":
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				img.SetGray16(z, y, v.gray(v.grid.At(position, y, z)))
			}
		}
	case "y", "Y":
		for z := 0; z < n; z++ {
			for x := 0; x < n; x++ {
				img.SetGray16(x, z, v.gray(v.grid.At(x, position, z)))
			}
		}
	case "z", "Z":
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				img.SetGray16(x, y, v.gray(v.grid.At(x, y, position)))
			}
		}
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	return img, nil
}

// SaveSliceSequence writes every slice along axis to outputDir as
// slice_<axis>_<nnn>.tif.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	for pos := 0; pos < v.grid.N; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.tif", axis, pos))
		if err := SaveTIFF(img, filename); err != nil {
			return err
		}
	}
	return nil
}

// ToGray16 maps the real part of a simulated image onto 16-bit gray,
// stretched to its own value range.
func ToGray16(img *models.Image) *image.Gray16 {
	pixels := img.Real()
	lo, hi := 0.0, 0.0
	if len(pixels) > 0 {
		lo, hi = floats.Min(pixels), floats.Max(pixels)
	}
	out := image.NewGray16(image.Rect(0, 0, img.Cols, img.Rows))
	for r := 0; r < img.Rows; r++ {
		for c := 0; c < img.Cols; c++ {
			out.SetGray16(c, r, toGray16(pixels[r*img.Cols+c], lo, hi))
		}
	}
	return out
}

// SaveImage writes a simulated image as a 16-bit TIFF.
func SaveImage(img *models.Image, filename string) error {
	return SaveTIFF(ToGray16(img), filename)
}

// SaveTIFF encodes img with deflate compression.
func SaveTIFF(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return file.Close()
}

// LoadImage reads a grayscale TIFF into a real image with values in [0, 1].
func LoadImage(filename string) (*models.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoded, err := tiff.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	b := decoded.Bounds()
	out := models.NewImage(b.Dy(), b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.Gray16Model.Convert(decoded.At(x, y)).(color.Gray16)
			out.Set(y-b.Min.Y, x-b.Min.X, complex(float64(g.Y)/65535, 0))
		}
	}
	return out, nil
}
