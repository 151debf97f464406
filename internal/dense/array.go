// Package dense provides the dense complex arrays that diagrams are built from
// and materialized into.
package dense

import (
	"fmt"
	"math"
)

// Array is a dense row-major complex array.
type Array struct {
	shape  Shape
	stride []int
	data   []complex128
}

// New wraps data as an array of the given shape. The slice is not copied.
func New(shape Shape, data []complex128) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Array{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   data,
	}, nil
}

// Zeros returns a zero-filled array.
func Zeros(shape Shape) *Array {
	a, err := New(shape, make([]complex128, shape.NumElements()))
	if err != nil {
		panic(fmt.Sprintf("dense: zeros: %v", err))
	}
	return a
}

// FromReal builds an array from real values.
func FromReal(shape Shape, values []float64) (*Array, error) {
	data := make([]complex128, len(values))
	for i, v := range values {
		data[i] = complex(v, 0)
	}
	return New(shape, data)
}

// Shape returns the array's shape.
func (a *Array) Shape() Shape {
	return a.shape
}

// Strides returns the array's row-major strides.
func (a *Array) Strides() []int {
	return a.stride
}

// Data returns the underlying storage.
func (a *Array) Data() []complex128 {
	return a.data
}

// Rank returns the number of axes.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Offset returns the flat offset of the element at idx.
func (a *Array) Offset(idx ...int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("dense: index rank %d does not match array rank %d", len(idx), len(a.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("dense: index %d out of range for axis %d of size %d", v, i, a.shape[i]))
		}
		off += v * a.stride[i]
	}
	return off
}

// At returns the element at idx.
func (a *Array) At(idx ...int) complex128 {
	return a.data[a.Offset(idx...)]
}

// Set stores v at idx.
func (a *Array) Set(v complex128, idx ...int) {
	a.data[a.Offset(idx...)] = v
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	data := make([]complex128, len(a.data))
	copy(data, a.data)
	return &Array{shape: a.shape.Clone(), stride: a.shape.ComputeStrides(), data: data}
}

// Transpose returns a new array with axes reordered: result axis i is input axis perm[i].
func (a *Array) Transpose(perm ...int) *Array {
	if !IsPermutation(perm, len(a.shape)) {
		panic(fmt.Sprintf("dense: transpose: %v is not a permutation of %d axes", perm, len(a.shape)))
	}
	outShape := a.shape.Permute(perm)
	out := Zeros(outShape)

	ndim := len(outShape)
	if ndim == 0 {
		out.data[0] = a.data[0]
		return out
	}
	srcStride := make([]int, ndim)
	for i, p := range perm {
		srcStride[i] = a.stride[p]
	}

	coords := make([]int, ndim)
	for outIdx := range out.data {
		remaining := outIdx
		src := 0
		for i := 0; i < ndim; i++ {
			coords[i] = remaining / out.stride[i]
			remaining %= out.stride[i]
			src += coords[i] * srcStride[i]
		}
		out.data[outIdx] = a.data[src]
	}
	return out
}

// ApproxEqual reports whether both arrays have the same shape and all elements
// agree within tol on the real and imaginary parts.
func (a *Array) ApproxEqual(b *Array, tol float64) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	for i := range a.data {
		if math.Abs(real(a.data[i])-real(b.data[i])) > tol ||
			math.Abs(imag(a.data[i])-imag(b.data[i])) > tol {
			return false
		}
	}
	return true
}

// String formats the array shape and data.
func (a *Array) String() string {
	return fmt.Sprintf("Array%v%v", []int(a.shape), a.data)
}
