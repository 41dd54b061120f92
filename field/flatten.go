package field

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Shape records the layout of a flattened snapshot collection:
// Shape[0] is the snapshot count, the rest are the spatial dimensions.
type Shape []int

// Snapshots returns the number of snapshots.
func (s Shape) Snapshots() int {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// Spatial returns a copy of the per-snapshot dimensions.
func (s Shape) Spatial() []int {
	if len(s) < 2 {
		return nil
	}
	return append([]int(nil), s[1:]...)
}

// Elements returns the number of matrix rows, the product of the spatial dimensions.
func (s Shape) Elements() int {
	if len(s) < 2 {
		return 0
	}
	return Size(s[1:])
}

// Flatten stacks N same-shaped snapshots as the columns of an
// elements × N matrix. Each snapshot is flattened row-major.
func Flatten(snaps []Field) (*mat.Dense, Shape, error) {
	if len(snaps) == 0 {
		return nil, nil, ErrEmpty
	}
	ref := snaps[0].Shape
	if len(ref) == 0 {
		return nil, nil, fmt.Errorf("snapshot 0 has no dimensions: %w", ErrShapeMismatch)
	}
	nElem := Size(ref)
	for n, s := range snaps {
		if !sameShape(s.Shape, ref) {
			return nil, nil, fmt.Errorf("snapshot %d has shape %v, expected %v: %w",
				n, s.Shape, ref, ErrShapeMismatch)
		}
		if len(s.Data) != nElem {
			return nil, nil, fmt.Errorf("snapshot %d holds %d values for shape %v: %w",
				n, len(s.Data), s.Shape, ErrShapeMismatch)
		}
	}

	N := len(snaps)
	X := mat.NewDense(nElem, N, nil)
	for n, s := range snaps {
		X.SetCol(n, s.Data)
	}

	shape := make(Shape, 0, len(ref)+1)
	shape = append(shape, N)
	shape = append(shape, ref...)
	return X, shape, nil
}

// Unflatten is the inverse of Flatten.
func Unflatten(m mat.Matrix, shape Shape) ([]Field, error) {
	nr, nc := m.Dims()
	if nc != shape.Snapshots() || nr != shape.Elements() {
		return nil, fmt.Errorf("matrix is %dx%d, shape %v needs %dx%d: %w",
			nr, nc, shape, shape.Elements(), shape.Snapshots(), ErrShapeMismatch)
	}
	fs := make([]Field, nc)
	for n := 0; n < nc; n++ {
		fs[n] = Field{
			Shape: shape.Spatial(),
			Data:  mat.Col(nil, n, m),
		}
	}
	return fs, nil
}

// Reshape wraps a flat vector in the given spatial layout.
func Reshape(flat []float64, spatial []int) (Field, error) {
	if len(flat) != Size(spatial) {
		return Field{}, fmt.Errorf("%d values cannot fill shape %v: %w",
			len(flat), spatial, ErrShapeMismatch)
	}
	data := make([]float64, len(flat))
	copy(data, flat)
	return Field{Shape: append([]int(nil), spatial...), Data: data}, nil
}

// ReshapeComplex wraps a flat complex vector in the given spatial layout.
func ReshapeComplex(flat []complex128, spatial []int) (ComplexField, error) {
	if len(flat) != Size(spatial) {
		return ComplexField{}, fmt.Errorf("%d values cannot fill shape %v: %w",
			len(flat), spatial, ErrShapeMismatch)
	}
	data := make([]complex128, len(flat))
	copy(data, flat)
	return ComplexField{Shape: append([]int(nil), spatial...), Data: data}, nil
}
