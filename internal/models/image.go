package models

import "fmt"

// Image is a 2D complex array in row-major order. It holds either a
// real-space image (imaginary part ~0) or a Fourier-space image with the zero
// frequency at index 0.
type Image struct {
	Rows int
	Cols int
	Data []complex128
}

// NewImage allocates an all-zero image.
func NewImage(rows, cols int) *Image {
	return &Image{Rows: rows, Cols: cols, Data: make([]complex128, rows*cols)}
}

// NewRealImage wraps real pixel values.
func NewRealImage(rows, cols int, pixels []float64) (*Image, error) {
	if len(pixels) != rows*cols {
		return nil, fmt.Errorf("%w: %d pixels for a %dx%d image",
			ErrShapeMismatch, len(pixels), rows, cols)
	}
	img := NewImage(rows, cols)
	for i, v := range pixels {
		img.Data[i] = complex(v, 0)
	}
	return img, nil
}

// Shape returns (rows, cols).
func (im *Image) Shape() [2]int { return [2]int{im.Rows, im.Cols} }

// At returns the pixel at row r, column c.
func (im *Image) At(r, c int) complex128 { return im.Data[r*im.Cols+c] }

// Set stores v at row r, column c.
func (im *Image) Set(r, c int, v complex128) { im.Data[r*im.Cols+c] = v }

// Real returns the real parts of the pixels.
func (im *Image) Real() []float64 {
	out := make([]float64, len(im.Data))
	for i, v := range im.Data {
		out[i] = real(v)
	}
	return out
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	out := NewImage(im.Rows, im.Cols)
	copy(out.Data, im.Data)
	return out
}

// CheckShape returns ErrShapeMismatch unless the image has the given shape.
func (im *Image) CheckShape(shape [2]int) error {
	if im.Rows != shape[0] || im.Cols != shape[1] || len(im.Data) != shape[0]*shape[1] {
		return fmt.Errorf("%w: image is %dx%d (%d values), want %dx%d",
			ErrShapeMismatch, im.Rows, im.Cols, len(im.Data), shape[0], shape[1])
	}
	return nil
}
