package pose

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"cryosim/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestIdentityPoseIsNoOp(t *testing.T) {
	var p EulerAnglePose
	if !p.IsIdentity() {
		t.Fatal("zero pose should be the identity")
	}
	cloud := models.PointCloud{
		Weights: []complex128{1, 2},
		Coords:  []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: -4, Y: 0.5, Z: 0}},
	}
	got := p.RotateCloud(cloud)
	if d := cmp.Diff(cloud.Coords, got.Coords); d != "" {
		t.Errorf("identity rotation moved points:\n%s", d)
	}
	for i, s := range p.Shifts([]r2.Vec{{X: 0.3, Y: -0.1}, {X: 2}}) {
		if s != 1 {
			t.Errorf("shift %d = %v, want 1", i, s)
		}
	}
}

func TestRotations(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-12)
	tests := []struct {
		name string
		pose EulerAnglePose
		in   r3.Vec
		want r3.Vec
	}{
		{"phi about z", EulerAnglePose{Phi: 90}, r3.Vec{X: 1}, r3.Vec{Y: 1}},
		{"theta about y", EulerAnglePose{Theta: 90}, r3.Vec{X: 1}, r3.Vec{Z: -1}},
		{"psi about z", EulerAnglePose{Psi: -90}, r3.Vec{X: 1}, r3.Vec{Y: -1}},
		// Psi is applied first, then theta, then phi
		{"composed", EulerAnglePose{Phi: 90, Theta: 90, Psi: 90}, r3.Vec{X: 1}, r3.Vec{X: -1}},
		{"z axis tilted", EulerAnglePose{Phi: 90, Theta: 90}, r3.Vec{Z: 1}, r3.Vec{Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := cmp.Diff(tt.want, tt.pose.Rotate(tt.in), approx); d != "" {
				t.Errorf("Rotate (-want +got):\n%s", d)
			}
			cloud := tt.pose.RotateCloud(models.PointCloud{Weights: []complex128{1}, Coords: []r3.Vec{tt.in}})
			if d := cmp.Diff(tt.want, cloud.Coords[0], approx); d != "" {
				t.Errorf("RotateCloud (-want +got):\n%s", d)
			}
		})
	}
}

func TestRotationPreservesLength(t *testing.T) {
	p := EulerAnglePose{Phi: 33, Theta: 71, Psi: -120}
	v := r3.Vec{X: 1.5, Y: -2, Z: 0.25}
	if got, want := r3.Norm(p.Rotate(v)), r3.Norm(v); math.Abs(got-want) > 1e-12 {
		t.Errorf("|Rv| = %g, want %g", got, want)
	}
	if det := p.Matrix().Det(); math.Abs(det-1) > 1e-12 {
		t.Errorf("det = %g, want 1", det)
	}
}

func TestShift(t *testing.T) {
	p := EulerAnglePose{OffsetX: 1, OffsetY: -2}
	freqs := []r2.Vec{{}, {X: 0.25}, {Y: 0.125}}
	img := &models.Image{Rows: 1, Cols: 3, Data: []complex128{2, 2, 2}}
	if err := p.Shift(img, freqs); err != nil {
		t.Fatal(err)
	}
	want := []complex128{2, 2 * cmplx.Rect(1, -math.Pi/2), 2 * cmplx.Rect(1, math.Pi/2)}
	opt := cmp.Comparer(func(a, b complex128) bool { return cmplx.Abs(a-b) < 1e-12 })
	if d := cmp.Diff(want, img.Data, opt); d != "" {
		t.Errorf("shifted spectrum (-want +got):\n%s", d)
	}
	if err := p.Shift(img, freqs[:2]); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("error = %v, want ErrShapeMismatch", err)
	}
}
