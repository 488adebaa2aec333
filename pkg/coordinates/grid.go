// Package coordinates builds the real-space and frequency grids shared by the
// density builder, the scattering strategies and the detectors.
//
// Real-space coordinates are centered: sample i of an axis with n samples
// sits at (i - n/2) * spacing. Frequency grids come in two layouts. The
// centered layout matches a fftshifted spectrum (zero frequency at n/2) and
// the unshifted layout matches a raw FFT (zero frequency at 0).
package coordinates

import (
	"fmt"

	"cryosim/internal/models"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis returns the centered real-space coordinates of n samples.
func Axis(n int, spacing float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i-n/2) * spacing
	}
	return out
}

// FreqAxis returns the spatial frequencies of an n-point FFT in the order
// produced by the transform: 0, 1, ..., then the negative frequencies.
func FreqAxis(n int, spacing float64) []float64 {
	out := make([]float64, n)
	scale := 1 / (float64(n) * spacing)
	for i := range out {
		k := i
		if i >= (n+1)/2 {
			k = i - n
		}
		out[i] = float64(k) * scale
	}
	return out
}

// CenteredFreqAxis returns FreqAxis after an fftshift.
func CenteredFreqAxis(n int, spacing float64) []float64 {
	out := make([]float64, n)
	scale := 1 / (float64(n) * spacing)
	for i := range out {
		out[i] = float64(i-n/2) * scale
	}
	return out
}

// Coords2D returns the centered pixel coordinates of a rows x cols plane in
// row-major order. X runs along columns and Y along rows.
func Coords2D(shape [2]int, pixelSize float64) []r2.Vec {
	return outer2(Axis(shape[0], pixelSize), Axis(shape[1], pixelSize))
}

// Freqs2D returns the frequency grid of a rows x cols plane in raw FFT
// layout, row-major.
func Freqs2D(shape [2]int, pixelSize float64) []r2.Vec {
	return outer2(FreqAxis(shape[0], pixelSize), FreqAxis(shape[1], pixelSize))
}

func outer2(ys, xs []float64) []r2.Vec {
	out := make([]r2.Vec, 0, len(ys)*len(xs))
	for _, y := range ys {
		for _, x := range xs {
			out = append(out, r2.Vec{X: x, Y: y})
		}
	}
	return out
}

// Grid3D describes a cubic lattice of N points per side with the given
// spacing, centered on the origin.
type Grid3D struct {
	N       int
	Spacing float64
}

// NewGrid3D validates and returns a cubic lattice.
func NewGrid3D(n int, spacing float64) (Grid3D, error) {
	if n <= 0 || !(spacing > 0) {
		return Grid3D{}, fmt.Errorf("%w: lattice needs n > 0 and spacing > 0, got n=%d spacing=%g",
			models.ErrUnsupportedConfiguration, n, spacing)
	}
	return Grid3D{N: n, Spacing: spacing}, nil
}

// Len returns the number of lattice points.
func (g Grid3D) Len() int { return g.N * g.N * g.N }

// Axis returns the centered coordinates along one side.
func (g Grid3D) Axis() []float64 { return Axis(g.N, g.Spacing) }

// Points returns every lattice point, x fastest.
func (g Grid3D) Points() []r3.Vec {
	ax := g.Axis()
	out := make([]r3.Vec, 0, g.Len())
	for _, z := range ax {
		for _, y := range ax {
			for _, x := range ax {
				out = append(out, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

// CenteredFreqs returns the frequency of every sample of the centered
// spectrum of a grid like g, x fastest.
func (g Grid3D) CenteredFreqs() []r3.Vec {
	ax := CenteredFreqAxis(g.N, g.Spacing)
	out := make([]r3.Vec, 0, g.Len())
	for _, z := range ax {
		for _, y := range ax {
			for _, x := range ax {
				out = append(out, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}
