package spectral

import (
	"errors"
	"math/rand"
	"testing"

	"cryosim/internal/models"
)

func row(values ...complex128) *models.Image {
	return &models.Image{Rows: 1, Cols: len(values), Data: values}
}

func TestPadModes(t *testing.T) {
	src := row(1, 2, 3)
	tests := []struct {
		mode PadMode
		want []complex128
	}{
		{PadZeros, []complex128{0, 0, 1, 2, 3, 0, 0}},
		{PadEdge, []complex128{1, 1, 1, 2, 3, 3, 3}},
		{PadReflect, []complex128{3, 2, 1, 2, 3, 2, 1}},
		{PadWrap, []complex128{2, 3, 1, 2, 3, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got, err := Pad(src, [2]int{1, 7}, tt.mode)
			if err != nil {
				t.Fatalf("Pad: %v", err)
			}
			diff(t, tt.want, got.Data)
		})
	}
}

func TestCropPadIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	shapes := []struct{ small, big [2]int }{
		{[2]int{4, 4}, [2]int{8, 8}},
		{[2]int{5, 4}, [2]int{8, 7}},
		{[2]int{3, 3}, [2]int{3, 6}},
	}
	for _, s := range shapes {
		img := randomImage(rng, s.small[0], s.small[1])
		for mode := range padModeNames {
			padded, err := Pad(img, s.big, mode)
			if err != nil {
				t.Fatalf("Pad(%v): %v", mode, err)
			}
			cropped, err := Crop(padded, s.small)
			if err != nil {
				t.Fatalf("Crop: %v", err)
			}
			diff(t, img.Data, cropped.Data)
		}
	}
}

func TestCropPadErrors(t *testing.T) {
	img := models.NewImage(4, 4)
	if _, err := Crop(img, [2]int{5, 4}); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("Crop to a larger shape: error = %v, want ErrShapeMismatch", err)
	}
	if _, err := Pad(img, [2]int{3, 4}, PadZeros); !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("Pad to a smaller shape: error = %v, want ErrShapeMismatch", err)
	}
}

func TestParsePadMode(t *testing.T) {
	for mode, name := range padModeNames {
		got, err := ParsePadMode(name)
		if err != nil || got != mode {
			t.Errorf("ParsePadMode(%q) = %v, %v; want %v", name, got, err, mode)
		}
	}
	if _, err := ParsePadMode("mirror"); !errors.Is(err, models.ErrUnsupportedConfiguration) {
		t.Errorf("ParsePadMode(mirror) error = %v, want ErrUnsupportedConfiguration", err)
	}
}

func TestResizeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for _, s := range []struct{ small, big [2]int }{
		{[2]int{8, 8}, [2]int{16, 16}},
		{[2]int{6, 5}, [2]int{9, 12}},
	} {
		img := randomImage(rng, s.small[0], s.small[1])
		up, err := Resize(img, s.big)
		if err != nil {
			t.Fatalf("Resize up: %v", err)
		}
		down, err := Resize(up, s.small)
		if err != nil {
			t.Fatalf("Resize down: %v", err)
		}
		diff(t, img.Data, down.Data, approxComplex(1e-12))
	}
}

func TestResizeKeepsConstant(t *testing.T) {
	img := models.NewImage(6, 6)
	for i := range img.Data {
		img.Data[i] = 2.5
	}
	for _, shape := range [][2]int{{12, 12}, {3, 3}, {6, 9}} {
		got, err := Resize(img, shape)
		if err != nil {
			t.Fatalf("Resize: %v", err)
		}
		want := make([]complex128, shape[0]*shape[1])
		for i := range want {
			want[i] = 2.5
		}
		diff(t, want, got.Data, approxComplex(1e-12))
	}
}
