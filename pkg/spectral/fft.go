// Package spectral provides the discrete Fourier machinery of the simulator:
// multi-dimensional complex FFTs on flat row-major arrays, fftshift
// bookkeeping, and centered crop, pad and Fourier resizing of images.
package spectral

import (
	"runtime"
	"sync"

	"cryosim/internal/models"

	"gonum.org/v1/gonum/dsp/fourier"
)

// transform performs an unnormalized N-D complex FFT in place. dims lists the
// axis lengths with the slowest-varying axis first. The 1D transforms along
// each axis are spread over the available cores; every line is handled by a
// single goroutine so the result does not depend on scheduling.
func transform(data []complex128, dims []int, inverse bool) {
	stride := 1
	for a := len(dims) - 1; a >= 0; a-- {
		n := dims[a]
		if n > 1 {
			transformAxis(data, n, stride, inverse)
		}
		stride *= n
	}
}

// transformAxis runs a 1D FFT over every line of length n whose consecutive
// elements are stride apart.
func transformAxis(data []complex128, n, stride int, inverse bool) {
	lines := len(data) / n
	workers := runtime.NumCPU()
	if workers > lines {
		workers = lines
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			// CmplxFFT keeps internal scratch space, so each worker owns one
			plan := fourier.NewCmplxFFT(n)
			line := make([]complex128, n)
			for l := w; l < lines; l += workers {
				// Line l starts at outer*n*stride + inner
				start := (l/stride)*n*stride + l%stride
				for k := 0; k < n; k++ {
					line[k] = data[start+k*stride]
				}
				if inverse {
					plan.Sequence(line, line)
				} else {
					plan.Coefficients(line, line)
				}
				for k := 0; k < n; k++ {
					data[start+k*stride] = line[k]
				}
			}
		}(w)
	}
	wg.Wait()
}

func fftN(data []complex128, dims []int, inverse bool) []complex128 {
	out := make([]complex128, len(data))
	copy(out, data)
	transform(out, dims, inverse)
	if inverse {
		norm := complex(1/float64(len(out)), 0)
		for i := range out {
			out[i] *= norm
		}
	}
	return out
}

// FFT2 returns the unnormalized forward transform of img.
func FFT2(img *models.Image) *models.Image {
	return &models.Image{Rows: img.Rows, Cols: img.Cols,
		Data: fftN(img.Data, []int{img.Rows, img.Cols}, false)}
}

// IFFT2 returns the inverse transform of img, normalized by 1/(rows*cols).
func IFFT2(img *models.Image) *models.Image {
	return &models.Image{Rows: img.Rows, Cols: img.Cols,
		Data: fftN(img.Data, []int{img.Rows, img.Cols}, true)}
}

// CenteredFFT2 computes fftshift(FFT(ifftshift(img))): the input has its
// origin at (rows/2, cols/2) and so does the resulting spectrum.
func CenteredFFT2(img *models.Image) *models.Image {
	return FFTShift2(FFT2(IFFTShift2(img)))
}

// CenteredIFFT2 inverts CenteredFFT2.
func CenteredIFFT2(img *models.Image) *models.Image {
	return FFTShift2(IFFT2(IFFTShift2(img)))
}

// FFT3 returns the unnormalized forward transform of an n^3 grid.
func FFT3(data []complex128, n int) []complex128 {
	return fftN(data, []int{n, n, n}, false)
}

// IFFT3 returns the inverse transform of an n^3 grid, normalized by 1/n^3.
func IFFT3(data []complex128, n int) []complex128 {
	return fftN(data, []int{n, n, n}, true)
}

// CenteredFFT3 computes fftshift(FFT(ifftshift(data))) on an n^3 grid.
func CenteredFFT3(data []complex128, n int) []complex128 {
	dims := []int{n, n, n}
	out := roll(data, dims, ifftShifts(dims))
	transform(out, dims, false)
	return roll(out, dims, fftShifts(dims))
}

// CenteredIFFT3 inverts CenteredFFT3.
func CenteredIFFT3(data []complex128, n int) []complex128 {
	dims := []int{n, n, n}
	out := roll(data, dims, ifftShifts(dims))
	transform(out, dims, true)
	norm := complex(1/float64(len(out)), 0)
	for i := range out {
		out[i] *= norm
	}
	return roll(out, dims, fftShifts(dims))
}

// ForwardImage transforms a real-space image whose origin is the pixel
// (rows/2, cols/2) into the raw FFT layout, zero frequency at index 0:
// FFT(ifftshift(img)).
func ForwardImage(img *models.Image) *models.Image {
	return FFT2(IFFTShift2(img))
}

// InverseImage inverts ForwardImage.
func InverseImage(img *models.Image) *models.Image {
	return FFTShift2(IFFT2(img))
}
