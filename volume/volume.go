// Package volume provides the dense n-dimensional array primitives shared
// by the watershed and rag packages: padding, stride-based neighbor
// lookup, level grouping, and the structuring elements used to find
// connected components within a single intensity level.
package volume

import "fmt"

// Number is the set of scalar element types a Volume may hold.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Volume is a dense, row-major n-dimensional array addressable both by
// multi-index and by flat index. It is the Go analog of a NumPy ndarray
// restricted to the operations the segmentation core needs.
type Volume[T Number] struct {
	shape   []int
	strides []int
	data    []T
}

// New allocates a zero-valued volume of the given shape.
func New[T Number](shape []int) *Volume[T] {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Volume[T]{
		shape:   append([]int(nil), shape...),
		strides: strides(shape),
		data:    make([]T, n),
	}
}

// Wrap adapts an existing flat, row-major slice as a Volume without
// copying. len(data) must equal the product of shape.
func Wrap[T Number](shape []int, data []T) *Volume[T] {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n {
		panic(fmt.Sprintf("volume: data has %d elements, shape %v wants %d", len(data), shape, n))
	}
	return &Volume[T]{
		shape:   append([]int(nil), shape...),
		strides: strides(shape),
		data:    data,
	}
}

// strides returns the row-major (C order) stride for each axis of shape,
// measured in elements, not bytes.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// Shape returns the volume's extent along each axis.
func (v *Volume[T]) Shape() []int { return append([]int(nil), v.shape...) }

// Strides returns the row-major element stride of each axis.
func (v *Volume[T]) Strides() []int { return append([]int(nil), v.strides...) }

// Dim returns the number of axes.
func (v *Volume[T]) Dim() int { return len(v.shape) }

// Size returns the total number of cells.
func (v *Volume[T]) Size() int { return len(v.data) }

// Data returns the backing flat, row-major slice. Callers may mutate it in
// place; that is how the watershed and rag packages write labels.
func (v *Volume[T]) Data() []T { return v.data }

// At returns the value at a flat index.
func (v *Volume[T]) At(i int) T { return v.data[i] }

// Set writes the value at a flat index.
func (v *Volume[T]) Set(i int, val T) { v.data[i] = val }

// Index converts a multi-index into a flat index.
func (v *Volume[T]) Index(idx []int) int {
	flat := 0
	for k, s := range v.strides {
		flat += idx[k] * s
	}
	return flat
}

// Unindex converts a flat index back into a multi-index.
func (v *Volume[T]) Unindex(flat int) []int {
	idx := make([]int, len(v.shape))
	for k, s := range v.strides {
		idx[k] = flat / s
		flat -= idx[k] * s
	}
	return idx
}

// Max returns the largest element, panicking on an empty volume.
func (v *Volume[T]) Max() T {
	if len(v.data) == 0 {
		panic("volume: Max of empty volume")
	}
	m := v.data[0]
	for _, x := range v.data[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Clone returns a deep copy.
func (v *Volume[T]) Clone() *Volume[T] {
	return &Volume[T]{
		shape:   append([]int(nil), v.shape...),
		strides: append([]int(nil), v.strides...),
		data:    append([]T(nil), v.data...),
	}
}
