// Package field flattens spatio-temporal snapshot collections into the
// elements × snapshots matrices consumed by the decomposition engine,
// and reshapes flat vectors back into their spatial layout.
package field

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when snapshots or components disagree in shape.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrEmpty is returned when no snapshots are supplied.
	ErrEmpty = errors.New("empty snapshot collection")
)

// Field is a dense multi-dimensional array stored row-major.
// Scalar surfaces have shape (X, Y), vector surfaces (C, X, Y).
type Field struct {
	Shape []int
	Data  []float64
}

// ComplexField is the complex analogue of Field, used for DMD modes.
type ComplexField struct {
	Shape []int
	Data  []complex128
}

// VectorSurface bundles the three velocity components of one PIV surface.
type VectorSurface struct {
	Ux, Uy, Uz mat.Matrix
}

// Size returns the product of the dimensions in shape.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NewScalarField copies a 2D matrix into a Field of shape (X, Y).
func NewScalarField(m mat.Matrix) Field {
	nr, nc := m.Dims()
	f := Field{
		Shape: []int{nr, nc},
		Data:  make([]float64, nr*nc),
	}
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			f.Data[i*nc+j] = m.At(i, j)
		}
	}
	return f
}

// NewVectorField stacks Ux, Uy, Uz into a Field of shape (3, X, Y).
func NewVectorField(s VectorSurface) (Field, error) {
	comps := []mat.Matrix{s.Ux, s.Uy, s.Uz}
	for c, m := range comps {
		if m == nil {
			return Field{}, fmt.Errorf("component %d is nil: %w", c, ErrShapeMismatch)
		}
	}
	nr, nc := s.Ux.Dims()
	f := Field{
		Shape: []int{len(comps), nr, nc},
		Data:  make([]float64, len(comps)*nr*nc),
	}
	for c, m := range comps {
		r, cc := m.Dims()
		if r != nr || cc != nc {
			return Field{}, fmt.Errorf("component %d is %dx%d, expected %dx%d: %w",
				c, r, cc, nr, nc, ErrShapeMismatch)
		}
		offset := c * nr * nc
		for i := 0; i < nr; i++ {
			for j := 0; j < nc; j++ {
				f.Data[offset+i*nc+j] = m.At(i, j)
			}
		}
	}
	return f, nil
}

// ScalarSeries converts a time series of 2D surfaces into Fields.
func ScalarSeries(ms []mat.Matrix) []Field {
	fs := make([]Field, len(ms))
	for i, m := range ms {
		fs[i] = NewScalarField(m)
	}
	return fs
}

// VectorSeries converts a time series of vector surfaces into Fields.
func VectorSeries(ss []VectorSurface) ([]Field, error) {
	fs := make([]Field, len(ss))
	for i, s := range ss {
		f, err := NewVectorField(s)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", i, err)
		}
		fs[i] = f
	}
	return fs, nil
}

// Component returns slab c of a (C, X, Y) field as an X×Y matrix.
func (f Field) Component(c int) (*mat.Dense, error) {
	if len(f.Shape) != 3 {
		return nil, fmt.Errorf("field has rank %d, expected 3: %w", len(f.Shape), ErrShapeMismatch)
	}
	if c < 0 || c >= f.Shape[0] {
		return nil, fmt.Errorf("component %d out of range [0,%d)", c, f.Shape[0])
	}
	nr, nc := f.Shape[1], f.Shape[2]
	data := make([]float64, nr*nc)
	copy(data, f.Data[c*nr*nc:(c+1)*nr*nc])
	return mat.NewDense(nr, nc, data), nil
}

// Matrix returns a rank-2 field as a matrix.
func (f Field) Matrix() (*mat.Dense, error) {
	if len(f.Shape) != 2 {
		return nil, fmt.Errorf("field has rank %d, expected 2: %w", len(f.Shape), ErrShapeMismatch)
	}
	data := make([]float64, len(f.Data))
	copy(data, f.Data)
	return mat.NewDense(f.Shape[0], f.Shape[1], data), nil
}

// Real returns the real part of a complex field.
func (cf ComplexField) Real() Field {
	f := Field{
		Shape: append([]int(nil), cf.Shape...),
		Data:  make([]float64, len(cf.Data)),
	}
	for i, v := range cf.Data {
		f.Data[i] = real(v)
	}
	return f
}

// Imag returns the imaginary part of a complex field.
func (cf ComplexField) Imag() Field {
	f := Field{
		Shape: append([]int(nil), cf.Shape...),
		Data:  make([]float64, len(cf.Data)),
	}
	for i, v := range cf.Data {
		f.Data[i] = imag(v)
	}
	return f
}
