package spectral

import "cryosim/internal/models"

// roll returns a copy of data with every axis cyclically shifted forward by
// shifts[a]: element i of axis a moves to (i + shifts[a]) mod dims[a].
func roll(data []complex128, dims, shifts []int) []complex128 {
	out := make([]complex128, len(data))
	strides := make([]int, len(dims))
	s := 1
	for a := len(dims) - 1; a >= 0; a-- {
		strides[a] = s
		s *= dims[a]
	}
	for src := range data {
		dst := 0
		for a := range dims {
			i := (src / strides[a]) % dims[a]
			dst += ((i + shifts[a]) % dims[a]) * strides[a]
		}
		out[dst] = data[src]
	}
	return out
}

// fftShifts moves the zero frequency from index 0 to index n/2.
func fftShifts(dims []int) []int {
	out := make([]int, len(dims))
	for a, n := range dims {
		out[a] = n / 2
	}
	return out
}

// ifftShifts undoes fftShifts, including for odd lengths.
func ifftShifts(dims []int) []int {
	out := make([]int, len(dims))
	for a, n := range dims {
		out[a] = n - n/2
	}
	return out
}

// FFTShift2 moves the zero-frequency pixel of img to (rows/2, cols/2).
func FFTShift2(img *models.Image) *models.Image {
	dims := []int{img.Rows, img.Cols}
	return &models.Image{Rows: img.Rows, Cols: img.Cols, Data: roll(img.Data, dims, fftShifts(dims))}
}

// IFFTShift2 inverts FFTShift2.
func IFFTShift2(img *models.Image) *models.Image {
	dims := []int{img.Rows, img.Cols}
	return &models.Image{Rows: img.Rows, Cols: img.Cols, Data: roll(img.Data, dims, ifftShifts(dims))}
}

// FFTShift3 moves the zero frequency of an n^3 grid to (n/2, n/2, n/2).
func FFTShift3(data []complex128, n int) []complex128 {
	dims := []int{n, n, n}
	return roll(data, dims, fftShifts(dims))
}

// IFFTShift3 inverts FFTShift3.
func IFFTShift3(data []complex128, n int) []complex128 {
	dims := []int{n, n, n}
	return roll(data, dims, ifftShifts(dims))
}
