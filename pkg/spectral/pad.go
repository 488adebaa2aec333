package spectral

import (
	"fmt"
	"strings"

	"cryosim/internal/models"
)

// PadMode selects how Pad fills pixels outside the source image.
type PadMode int

const (
	// PadZeros fills with zeros.
	PadZeros PadMode = iota
	// PadEdge repeats the nearest edge pixel.
	PadEdge
	// PadReflect mirrors the image about its edge pixels without repeating them.
	PadReflect
	// PadWrap tiles the image periodically.
	PadWrap
)

var padModeNames = map[PadMode]string{
	PadZeros:   "zeros",
	PadEdge:    "edge",
	PadReflect: "reflect",
	PadWrap:    "wrap",
}

func (m PadMode) String() string {
	if s, ok := padModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("PadMode(%d)", int(m))
}

// ParsePadMode converts a configuration string into a PadMode.
func ParsePadMode(s string) (PadMode, error) {
	for m, name := range padModeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pad mode %q", models.ErrUnsupportedConfiguration, s)
}

// sourceIndex maps an out-of-range index i onto an axis of length n, or
// returns -1 when the pixel should be zero.
func (m PadMode) sourceIndex(i, n int) int {
	if i >= 0 && i < n {
		return i
	}
	switch m {
	case PadEdge:
		if i < 0 {
			return 0
		}
		return n - 1
	case PadReflect:
		if n == 1 {
			return 0
		}
		period := 2 * (n - 1)
		i = ((i % period) + period) % period
		if i >= n {
			i = period - i
		}
		return i
	case PadWrap:
		return ((i % n) + n) % n
	default:
		return -1
	}
}

// recenter resizes img to shape keeping the pixel at (rows/2, cols/2) at
// the center of the result. Each axis is cropped or padded independently.
func recenter(img *models.Image, shape [2]int, mode PadMode) *models.Image {
	out := models.NewImage(shape[0], shape[1])
	offR := img.Rows/2 - shape[0]/2
	offC := img.Cols/2 - shape[1]/2
	for r := 0; r < shape[0]; r++ {
		sr := mode.sourceIndex(r+offR, img.Rows)
		if sr < 0 {
			continue
		}
		for c := 0; c < shape[1]; c++ {
			sc := mode.sourceIndex(c+offC, img.Cols)
			if sc < 0 {
				continue
			}
			out.Data[r*shape[1]+c] = img.Data[sr*img.Cols+sc]
		}
	}
	return out
}

// Crop returns the centered shape-sized window of img.
func Crop(img *models.Image, shape [2]int) (*models.Image, error) {
	if shape[0] > img.Rows || shape[1] > img.Cols {
		return nil, fmt.Errorf("%w: cannot crop %dx%d image to %dx%d",
			models.ErrShapeMismatch, img.Rows, img.Cols, shape[0], shape[1])
	}
	return recenter(img, shape, PadZeros), nil
}

// Pad embeds img at the center of a shape-sized image, filling the border
// according to mode.
func Pad(img *models.Image, shape [2]int, mode PadMode) (*models.Image, error) {
	if shape[0] < img.Rows || shape[1] < img.Cols {
		return nil, fmt.Errorf("%w: cannot pad %dx%d image to %dx%d",
			models.ErrShapeMismatch, img.Rows, img.Cols, shape[0], shape[1])
	}
	if (img.Rows == 0 || img.Cols == 0) && mode != PadZeros {
		return nil, fmt.Errorf("%w: cannot extend an empty image with mode %v",
			models.ErrShapeMismatch, mode)
	}
	return recenter(img, shape, mode), nil
}

// Resize resamples a real-space image onto shape by truncating or
// zero-padding its centered spectrum. No antialiasing filter is applied.
// Pixel values keep their scale: a constant image stays the same constant.
func Resize(img *models.Image, shape [2]int) (*models.Image, error) {
	if shape[0] <= 0 || shape[1] <= 0 || img.Rows <= 0 || img.Cols <= 0 {
		return nil, fmt.Errorf("%w: cannot resize %dx%d image to %dx%d",
			models.ErrShapeMismatch, img.Rows, img.Cols, shape[0], shape[1])
	}
	spectrum := recenter(CenteredFFT2(img), shape, PadZeros)
	out := CenteredIFFT2(spectrum)
	scale := complex(float64(shape[0]*shape[1])/float64(img.Rows*img.Cols), 0)
	for i := range out.Data {
		out.Data[i] *= scale
	}
	return out, nil
}
