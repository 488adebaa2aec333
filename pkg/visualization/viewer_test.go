package visualization

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"cryosim/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// rampGrid fills an n^3 grid with x + 2y + 4z so each axis is recognizable.
func rampGrid(t *testing.T, n int) *models.DensityGrid {
	t.Helper()
	grid, err := models.NewDensityGrid(n, 1)
	if err != nil {
		t.Fatal(err)
	}
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				grid.Data[grid.Index(x, y, z)] = float64(x + 2*y + 4*z)
			}
		}
	}
	return grid
}

// TestExtractSlice checks the pixel layout of slices along every axis
func TestExtractSlice(t *testing.T) {
	const n = 4
	viewer, err := NewViewer(rampGrid(t, n))
	if err != nil {
		t.Fatal(err)
	}
	maxValue := float64((n - 1) * 7)
	level := func(v int) uint16 { return uint16(math.Round(float64(v) / maxValue * 65535)) }

	tests := []struct {
		axis  string
		pos   int
		pixel func(col, row int) int
	}{
		{"x", 1, func(col, row int) int { return 1 + 2*row + 4*col }},
		{"Y", 2, func(col, row int) int { return col + 4 + 4*row }},
		{"z", 3, func(col, row int) int { return col + 2*row + 12 }},
	}
	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			img, err := viewer.ExtractSlice(tt.axis, tt.pos)
			if err != nil {
				t.Fatalf("Failed to extract %s slice: %v", tt.axis, err)
			}
			if b := img.Bounds(); b.Dx() != n || b.Dy() != n {
				t.Fatalf("Expected %dx%d slice, got %v", n, n, b)
			}
			for row := 0; row < n; row++ {
				for col := 0; col < n; col++ {
					if got, want := img.Gray16At(col, row).Y, level(tt.pixel(col, row)); got != want {
						t.Errorf("pixel (%d,%d) = %d, want %d", col, row, got, want)
					}
				}
			}
		})
	}
}

// TestExtractSliceErrors checks invalid positions and axes
func TestExtractSliceErrors(t *testing.T) {
	viewer, err := NewViewer(rampGrid(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		axis string
		pos  int
	}{{"z", -1}, {"z", 3}, {"w", 0}} {
		if _, err := viewer.ExtractSlice(tc.axis, tc.pos); err == nil {
			t.Errorf("ExtractSlice(%q, %d) succeeded", tc.axis, tc.pos)
		}
	}
}

// TestSaveSliceSequence writes one file per slice
func TestSaveSliceSequence(t *testing.T) {
	const n = 3
	viewer, err := NewViewer(rampGrid(t, n))
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}
	for pos := 0; pos < n; pos++ {
		name := filepath.Join(dir, fmt.Sprintf("slice_z_%03d.tif", pos))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("missing slice file: %v", err)
		}
	}
	if err := viewer.SaveSliceSequence("q", dir); err == nil {
		t.Error("expected an error for an invalid axis")
	}
}

// TestImageRoundTrip saves a projection and reads it back normalized
func TestImageRoundTrip(t *testing.T) {
	pixels := []float64{-1, 0, 1, 3, 2, 1}
	img, err := models.NewRealImage(2, 3, pixels)
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Join(t.TempDir(), "projection.tif")
	if err := SaveImage(img, name); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	got, err := LoadImage(name)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if got.Rows != 2 || got.Cols != 3 {
		t.Fatalf("Expected 2x3 image, got %dx%d", got.Rows, got.Cols)
	}
	want := []float64{0, 0.25, 0.5, 1, 0.75, 0.5}
	if d := cmp.Diff(want, got.Real(), cmpopts.EquateApprox(0, 1e-4)); d != "" {
		t.Errorf("pixels (-want +got):\n%s", d)
	}
}

// TestConstantImage maps a flat image to black
func TestConstantImage(t *testing.T) {
	img, err := models.NewRealImage(2, 2, []float64{5, 5, 5, 5})
	if err != nil {
		t.Fatal(err)
	}
	gray := ToGray16(img)
	for i, v := range gray.Pix {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0", i, v)
		}
	}
}
