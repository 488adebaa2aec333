// Package pose orients a specimen in the microscope: a rotation given by
// Euler angles followed by an in-plane translation.
package pose

import (
	"fmt"
	"math"
	"math/cmplx"

	"cryosim/internal/models"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	yAxis = r3.Vec{Y: 1}
	zAxis = r3.Vec{Z: 1}
)

// EulerAnglePose is a zyz Euler rotation plus an in-plane offset.
// The rotation matrix is Rz(Phi) Ry(Theta) Rz(Psi), angles in degrees.
type EulerAnglePose struct {
	Phi   float64 `yaml:"phi"`
	Theta float64 `yaml:"theta"`
	Psi   float64 `yaml:"psi"`

	// OffsetX and OffsetY translate the projection, in Angstroms
	OffsetX float64 `yaml:"offsetX"`
	OffsetY float64 `yaml:"offsetY"`
}

// Matrix returns the 3x3 rotation matrix of the pose.
func (p EulerAnglePose) Matrix() *r3.Mat {
	rad := math.Pi / 180
	var rot r3.Mat
	rot.Mul(r3.NewRotation(p.Phi*rad, zAxis).Mat(), r3.NewRotation(p.Theta*rad, yAxis).Mat())
	rot.Mul(&rot, r3.NewRotation(p.Psi*rad, zAxis).Mat())
	return &rot
}

// Rotate applies the rotation to a single vector.
func (p EulerAnglePose) Rotate(v r3.Vec) r3.Vec {
	return p.Matrix().MulVec(v)
}

// RotateCloud returns a copy of cloud with every coordinate rotated. The
// weights are shared.
func (p EulerAnglePose) RotateCloud(cloud models.PointCloud) models.PointCloud {
	n := len(cloud.Coords)
	if n == 0 {
		return models.PointCloud{Weights: cloud.Weights, Coords: []r3.Vec{}}
	}
	coords := mat.NewDense(n, 3, nil)
	for i, c := range cloud.Coords {
		coords.SetRow(i, []float64{c.X, c.Y, c.Z})
	}
	// Rows are points, so multiply by the transpose
	var rotated mat.Dense
	rotated.Mul(coords, p.Matrix().T())

	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{X: rotated.At(i, 0), Y: rotated.At(i, 1), Z: rotated.At(i, 2)}
	}
	return models.PointCloud{Weights: cloud.Weights, Coords: out}
}

// Shifts returns the phase factors exp(-2πi f·t) that translate an image by
// t = (OffsetX, OffsetY) when multiplied into its spectrum.
func (p EulerAnglePose) Shifts(freqs []r2.Vec) []complex128 {
	out := make([]complex128, len(freqs))
	for i, f := range freqs {
		out[i] = cmplx.Rect(1, -2*math.Pi*(f.X*p.OffsetX+f.Y*p.OffsetY))
	}
	return out
}

// Shift multiplies a Fourier image by Shifts(freqs) in place. freqs must
// be laid out like the image.
func (p EulerAnglePose) Shift(img *models.Image, freqs []r2.Vec) error {
	if len(freqs) != len(img.Data) {
		return fmt.Errorf("%w: %d frequencies for a %dx%d image",
			models.ErrShapeMismatch, len(freqs), img.Rows, img.Cols)
	}
	if p.OffsetX == 0 && p.OffsetY == 0 {
		return nil
	}
	for i, s := range p.Shifts(freqs) {
		img.Data[i] *= s
	}
	return nil
}

// IsIdentity reports whether the pose leaves the specimen untouched.
func (p EulerAnglePose) IsIdentity() bool {
	return p == EulerAnglePose{}
}
