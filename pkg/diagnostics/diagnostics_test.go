package diagnostics

import (
	"errors"
	"math"
	"testing"

	"cryosim/internal/models"
	"cryosim/pkg/coordinates"
	"cryosim/pkg/density"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r3"
)

func realImage(t *testing.T, rows, cols int, pixels []float64) *models.Image {
	t.Helper()
	img, err := models.NewRealImage(rows, cols, pixels)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestCompareIdentical(t *testing.T) {
	pixels := []float64{0, 1, 2, 3, 5, 8, 13, 21, 34}
	img := realImage(t, 3, 3, pixels)
	got, err := Compare(img, img.Clone())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	want := ImageMetrics{RMSE: 0, SSIM: 1, Correlation: 1, EntropyDiff: 0}
	opts := cmp.Options{cmpopts.EquateApprox(0, 1e-12), cmpopts.IgnoreFields(ImageMetrics{}, "MutualInformation")}
	if d := cmp.Diff(want, got, opts); d != "" {
		t.Errorf("metrics (-want +got):\n%s", d)
	}
	// Rounding can leave the correlation a hair below one
	if got.MutualInformation < 10 {
		t.Errorf("MutualInformation = %g, want a very large value", got.MutualInformation)
	}
}

func TestCompareShapeMismatch(t *testing.T) {
	a := realImage(t, 2, 2, []float64{1, 2, 3, 4})
	b := realImage(t, 1, 4, []float64{1, 2, 3, 4})
	if _, err := Compare(a, b); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestMetrics(t *testing.T) {
	zeros := []float64{0, 0, 0, 0}
	ones := []float64{1, 1, 1, 1}
	if got := RMSE(zeros, ones); got != 1 {
		t.Errorf("RMSE = %g, want 1", got)
	}
	if got := RMSE(zeros, ones[:3]); got != 0 {
		t.Errorf("RMSE of mismatched input = %g, want 0", got)
	}
	if got := Correlation(zeros, []float64{1, 2, 3, 4}); got != 0 {
		t.Errorf("Correlation with a constant = %g, want 0", got)
	}
	if got := Correlation([]float64{1, 2, 3}, []float64{6, 4, 2}); math.Abs(got+1) > 1e-12 {
		t.Errorf("Correlation = %g, want -1", got)
	}

	x := []float64{1, 3, 2, 5, 4, 6}
	noisy := []float64{1.5, 2.5, 2.5, 4.5, 4.5, 5.5}
	if s := SSIM(x, noisy, 5); !(s > 0.5 && s < 1) {
		t.Errorf("SSIM of a perturbed signal = %g, want in (0.5, 1)", s)
	}
	if mi := MutualInformation(x, noisy); !(mi > 0) || math.IsInf(mi, 0) {
		t.Errorf("MutualInformation = %g, want finite and positive", mi)
	}
}

func TestEntropy(t *testing.T) {
	ramp := make([]float64, 256)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"empty", nil, 0},
		{"constant", []float64{2, 2, 2}, 0},
		{"two levels", []float64{0, 1, 0, 1, 1, 0}, 1},
		{"ramp", ramp, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Entropy(tt.data); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Entropy = %g, want %g", got, tt.want)
			}
		})
	}
}

func twoAtomDensity(t *testing.T) (*models.DensityGrid, *models.AtomCloud) {
	t.Helper()
	positions := []r3.Vec{{X: -2.4}, {X: 2.4, Y: 0.3}}
	a := [][5]float64{{0.2, 0.2, 0.2, 0.2, 0.2}, {0.1, 0.2, 0.3, 0.2, 0.1}}
	b := [][5]float64{{20, 24, 27, 31, 39}, {15, 20, 25, 30, 40}}
	grid, err := density.BuildRealSpaceVoxels(positions, a, b, coordinates.Grid3D{N: 32, Spacing: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	atoms, err := models.NewAtomCloud(positions, []int{6, 7})
	if err != nil {
		t.Fatal(err)
	}
	return grid, atoms
}

func TestPeaksMatchAtoms(t *testing.T) {
	grid, atoms := twoAtomDensity(t)
	peaks, err := FindPeaks(grid, 0.01)
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(peaks) != 2 {
		t.Fatalf("found %d peaks, want 2: %+v", len(peaks), peaks)
	}
	if peaks[0].Value < peaks[1].Value {
		t.Errorf("peaks not sorted by value: %g < %g", peaks[0].Value, peaks[1].Value)
	}

	matches, err := MatchPeaks(peaks, atoms)
	if err != nil {
		t.Fatalf("MatchPeaks failed: %v", err)
	}
	for _, m := range matches {
		if m.Distance > 1e-9 {
			t.Errorf("peak at %v is %g from atom %d", m.Peak.Position, m.Distance, m.Atom)
		}
	}
	want := PeakReport{Peaks: 2, MeanDistance: 0, MaxDistance: 0, AtomsFound: 2}
	if d := cmp.Diff(want, Summarize(matches), cmpopts.EquateApprox(0, 1e-9)); d != "" {
		t.Errorf("report (-want +got):\n%s", d)
	}
}

func TestFindPeaksThreshold(t *testing.T) {
	grid, _ := twoAtomDensity(t)
	peaks, err := FindPeaks(grid, math.Inf(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(peaks) != 0 {
		t.Errorf("found %d peaks above +Inf", len(peaks))
	}
}

func TestMatchPeaksNoAtoms(t *testing.T) {
	if _, err := MatchPeaks(nil, &models.AtomCloud{}); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
	if got := Summarize(nil); got != (PeakReport{}) {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}
