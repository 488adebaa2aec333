package coordinates

import (
	"errors"
	"testing"

	"cryosim/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Errorf("unexpected result (-want +got):\n%s", d)
	}
}

func TestAxis(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-12)
	diff(t, []float64{-1, -0.5, 0, 0.5}, Axis(4, 0.5), approx)
	diff(t, []float64{-2, -1, 0, 1, 2}, Axis(5, 1), approx)
}

func TestFreqAxis(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-12)
	// Same values as numpy.fft.fftfreq
	diff(t, []float64{0, 0.25, -0.5, -0.25}, FreqAxis(4, 1), approx)
	diff(t, []float64{0, 0.2, 0.4, -0.4, -0.2}, FreqAxis(5, 1), approx)
	diff(t, []float64{-0.5, -0.25, 0, 0.25}, CenteredFreqAxis(4, 1), approx)
	diff(t, []float64{-0.4, -0.2, 0, 0.2, 0.4}, CenteredFreqAxis(5, 1), approx)
}

func TestCoords2DLayout(t *testing.T) {
	got := Coords2D([2]int{2, 3}, 1)
	want := []r2.Vec{
		{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
		{X: -1, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0},
	}
	diff(t, want, got)

	freqs := Freqs2D([2]int{4, 4}, 2)
	if freqs[0] != (r2.Vec{}) {
		t.Errorf("zero frequency should be at index 0, got %v", freqs[0])
	}
	if got := freqs[1]; got.X != 0.125 || got.Y != 0 {
		t.Errorf("freqs[1] = %v, want {0.125 0}", got)
	}
}

func TestGrid3D(t *testing.T) {
	if _, err := NewGrid3D(0, 1); !errors.Is(err, models.ErrUnsupportedConfiguration) {
		t.Errorf("NewGrid3D(0, 1) error = %v, want ErrUnsupportedConfiguration", err)
	}
	if _, err := NewGrid3D(4, -1); !errors.Is(err, models.ErrUnsupportedConfiguration) {
		t.Errorf("NewGrid3D(4, -1) error = %v, want ErrUnsupportedConfiguration", err)
	}

	g, err := NewGrid3D(4, 0.5)
	if err != nil {
		t.Fatalf("NewGrid3D: %v", err)
	}
	pts := g.Points()
	if len(pts) != 64 {
		t.Fatalf("len(Points()) = %d, want 64", len(pts))
	}
	// Index z*N*N + y*N + x
	diff(t, r3.Vec{X: 0.5, Y: -1, Z: 0}, pts[2*16+0*4+3])
	diff(t, r3.Vec{}, pts[2*16+2*4+2])

	freqs := g.CenteredFreqs()
	diff(t, r3.Vec{}, freqs[2*16+2*4+2])
	diff(t, r3.Vec{X: -1, Y: -1, Z: -1}, freqs[0], cmpopts.EquateApprox(0, 1e-12))
}
