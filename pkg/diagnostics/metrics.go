// Package diagnostics compares simulated images and checks simulated
// densities against the atoms they were built from.
package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"cryosim/internal/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// entropyBins is the histogram resolution used for Shannon entropy.
const entropyBins = 256

// ImageMetrics summarizes how closely a test image follows a reference.
type ImageMetrics struct {
	RMSE              float64 `yaml:"rmse"`
	SSIM              float64 `yaml:"ssim"`
	Correlation       float64 `yaml:"correlation"`
	MutualInformation float64 `yaml:"mutualInformation"`
	EntropyDiff       float64 `yaml:"entropyDiff"`
}

// Compare computes every metric between the real parts of two images of
// the same shape. SSIM uses the dynamic range of the reference.
func Compare(reference, test *models.Image) (ImageMetrics, error) {
	if err := test.CheckShape(reference.Shape()); err != nil {
		return ImageMetrics{}, err
	}
	if len(reference.Data) == 0 {
		return ImageMetrics{}, fmt.Errorf("%w: empty image", models.ErrShapeMismatch)
	}
	x, y := reference.Real(), test.Real()
	span := floats.Max(x) - floats.Min(x)
	if span == 0 {
		span = 1
	}
	return ImageMetrics{
		RMSE:              RMSE(x, y),
		SSIM:              SSIM(x, y, span),
		Correlation:       Correlation(x, y),
		MutualInformation: MutualInformation(x, y),
		EntropyDiff:       math.Abs(Entropy(x) - Entropy(y)),
	}, nil
}

// RMSE is the root mean square difference. It is zero for empty or
// mismatched input.
func RMSE(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	return floats.Distance(x, y, 2) / math.Sqrt(float64(len(x)))
}

// SSIM is the global structural similarity index for a signal with the
// given dynamic range.
func SSIM(x, y []float64, dynamicRange float64) float64 {
	const k1, k2 = 0.01, 0.03
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	c1 := (k1 * dynamicRange) * (k1 * dynamicRange)
	c2 := (k2 * dynamicRange) * (k2 * dynamicRange)

	muX, muY := stat.Mean(x, nil), stat.Mean(y, nil)
	varX, varY := stat.Variance(x, nil), stat.Variance(y, nil)
	cov := stat.Covariance(x, y, nil)

	num := (2*muX*muY + c1) * (2*cov + c2)
	den := (muX*muX + muY*muY + c1) * (varX + varY + c2)
	if den > 0 {
		return num / den
	}
	return 0
}

// Correlation is the Pearson correlation, or zero when either signal is
// constant.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// MutualInformation approximates the mutual information in nats assuming
// jointly Gaussian signals: -log(1 - r^2) / 2. Perfectly correlated
// signals give +Inf.
func MutualInformation(x, y []float64) float64 {
	r := Correlation(x, y)
	if r == 0 {
		return 0
	}
	if r*r >= 1 {
		return math.Inf(1)
	}
	return -0.5 * math.Log(1-r*r)
}

// Entropy is the Shannon entropy in bits of a 256-bin histogram of data.
// Constant data has zero entropy.
func Entropy(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	lo, hi := floats.Min(data), floats.Max(data)
	if hi <= lo {
		return 0
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	dividers := make([]float64, entropyBins+1)
	floats.Span(dividers, lo, hi)
	dividers[entropyBins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	var h float64
	for _, c := range counts {
		if c > 0 {
			p := c / float64(len(data))
			h -= p * math.Log2(p)
		}
	}
	return h
}
