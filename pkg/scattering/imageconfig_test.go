package scattering

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"cryosim/internal/models"
	"cryosim/pkg/spectral"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

func TestNewImageConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		shape     [2]int
		pixelSize float64
		padScale  float64
	}{
		{"pad scale below one", [2]int{8, 8}, 1, 0.5},
		{"zero rows", [2]int{0, 8}, 1, 1},
		{"zero pixel size", [2]int{8, 8}, 0, 1},
		{"negative pixel size", [2]int{8, 8}, -2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImageConfig(tt.shape, tt.pixelSize, tt.padScale)
			if !errors.Is(err, models.ErrUnsupportedConfiguration) {
				t.Errorf("error = %v, want ErrUnsupportedConfiguration", err)
			}
		})
	}
}

func TestImageConfigGrids(t *testing.T) {
	cfg, err := NewImageConfig([2]int{10, 15}, 1.5, 1.5)
	if err != nil {
		t.Fatalf("NewImageConfig: %v", err)
	}
	if got, want := cfg.PaddedShape(), [2]int{15, 23}; got != want {
		t.Errorf("PaddedShape() = %v, want %v", got, want)
	}
	if len(cfg.Freqs()) != 150 || len(cfg.Coords()) != 150 {
		t.Errorf("nominal grids have %d/%d entries, want 150", len(cfg.Freqs()), len(cfg.Coords()))
	}
	if len(cfg.PaddedFreqs()) != 15*23 || len(cfg.PaddedCoords()) != 15*23 {
		t.Errorf("padded grids have %d/%d entries", len(cfg.PaddedFreqs()), len(cfg.PaddedCoords()))
	}
	if cfg.Freqs()[0] != (r2.Vec{}) {
		t.Errorf("zero frequency should be first, got %v", cfg.Freqs()[0])
	}
	if c := cfg.Coords()[5*15+7]; c != (r2.Vec{}) {
		t.Errorf("origin pixel coordinate = %v, want zero", c)
	}
	if got, want := cfg.BoxSize(), (r2.Vec{X: 23 * 1.5, Y: 15 * 1.5}); got != want {
		t.Errorf("BoxSize() = %v, want %v", got, want)
	}
}

func randomRealImage(rng *rand.Rand, shape [2]int) *models.Image {
	img := models.NewImage(shape[0], shape[1])
	for i := range img.Data {
		img.Data[i] = complex(rng.NormFloat64(), 0)
	}
	return img
}

func TestCropPadIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, padScale := range []float64{1, 1.5, 2} {
		cfg, err := NewImageConfig([2]int{9, 12}, 1, padScale)
		if err != nil {
			t.Fatal(err)
		}
		img := randomRealImage(rng, cfg.Shape())
		for _, mode := range []spectral.PadMode{spectral.PadZeros, spectral.PadEdge, spectral.PadReflect, spectral.PadWrap} {
			padded, err := cfg.Pad(img, mode)
			if err != nil {
				t.Fatalf("Pad(%v): %v", mode, err)
			}
			if padded.Shape() != cfg.PaddedShape() {
				t.Fatalf("padded shape %v, want %v", padded.Shape(), cfg.PaddedShape())
			}
			cropped, err := cfg.Crop(padded)
			if err != nil {
				t.Fatalf("Crop: %v", err)
			}
			if d := cmp.Diff(img.Data, cropped.Data); d != "" {
				t.Errorf("pad scale %g, mode %v: crop(pad(x)) != x:\n%s", padScale, mode, d)
			}
		}
	}
}

func TestDownsampleUpsampleIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for _, padScale := range []float64{1, 1.5, 2} {
		cfg, err := NewImageConfig([2]int{8, 11}, 0.8, padScale)
		if err != nil {
			t.Fatal(err)
		}
		img := randomRealImage(rng, cfg.Shape())
		up, err := cfg.Upsample(img)
		if err != nil {
			t.Fatalf("Upsample: %v", err)
		}
		down, err := cfg.Downsample(up)
		if err != nil {
			t.Fatalf("Downsample: %v", err)
		}
		if d := cmp.Diff(img.Data, down.Data, approxComplex(1e-12)); d != "" {
			t.Errorf("pad scale %g: downsample(upsample(x)) != x:\n%s", padScale, d)
		}
	}
}

func TestImageConfigShapeErrors(t *testing.T) {
	cfg, err := NewImageConfig([2]int{8, 8}, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	nominal := models.NewImage(8, 8)
	padded := models.NewImage(16, 16)
	checks := map[string]error{}
	_, checks["crop nominal"] = cfg.Crop(nominal)
	_, checks["downsample nominal"] = cfg.Downsample(nominal)
	_, checks["pad padded"] = cfg.Pad(padded, spectral.PadZeros)
	_, checks["upsample padded"] = cfg.Upsample(padded)
	for name, err := range checks {
		if !errors.Is(err, models.ErrShapeMismatch) {
			t.Errorf("%s: error = %v, want ErrShapeMismatch", name, err)
		}
	}
}

func TestImageConfigYAML(t *testing.T) {
	cfg, err := NewImageConfig([2]int{6, 10}, 1.25, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text := string(out)
	for _, key := range []string{"shape:", "pixel_size:", "pad_scale:"} {
		if !strings.Contains(text, key) {
			t.Errorf("encoded config lacks %q:\n%s", key, text)
		}
	}
	if strings.Contains(text, "freqs") || strings.Contains(text, "coords") {
		t.Errorf("derived grids should not be encoded:\n%s", text)
	}

	var back ImageConfig
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Shape() != cfg.Shape() || back.PixelSize() != cfg.PixelSize() ||
		back.PadScale() != cfg.PadScale() || back.PaddedShape() != cfg.PaddedShape() {
		t.Errorf("decoded config %v/%g/%g differs", back.Shape(), back.PixelSize(), back.PadScale())
	}
	if d := cmp.Diff(cfg.PaddedFreqs(), back.PaddedFreqs()); d != "" {
		t.Errorf("padded freqs differ:\n%s", d)
	}
	if d := cmp.Diff(cfg.Coords(), back.Coords()); d != "" {
		t.Errorf("coords differ:\n%s", d)
	}

	if err := yaml.Unmarshal([]byte("shape: [4, 4]\npixel_size: 1\npad_scale: 0.5\n"), &back); !errors.Is(err, models.ErrUnsupportedConfiguration) {
		t.Errorf("invalid pad scale: error = %v, want ErrUnsupportedConfiguration", err)
	}
}
