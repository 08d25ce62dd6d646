package volume

// NeighborTable is a precomputed table of face-neighbor flat indices, one
// row of 2*dim entries per cell: O(|V|*2*dim) memory in exchange for O(1)
// neighbor lookup.
//
// Entries for cells on the outermost face of the volume may point outside
// the backing slice (negative or >= len(data)); callers must only
// dereference a NeighborTable row for a cell that is guaranteed, by a
// thickness-1 pad, to have every neighbor in bounds.
type NeighborTable struct {
	dim  int
	rows [][]int
}

// BuildNeighborsArray computes the face-neighbor table for every cell of
// v. Neighbor order is [-axis0, -axis1, ..., +axis0, +axis1, ...].
func BuildNeighborsArray[T Number](v *Volume[T]) *NeighborTable {
	dim := v.Dim()
	strides := v.Strides()
	n := v.Size()
	rows := make([][]int, n)
	idx := make([]int, dim)
	for flat := 0; flat < n; flat++ {
		row := make([]int, 2*dim)
		for axis := 0; axis < dim; axis++ {
			row[axis] = flat - strides[axis]
			row[dim+axis] = flat + strides[axis]
		}
		rows[flat] = row
		incrementIndex(idx, v.shape)
	}
	return &NeighborTable{dim: dim, rows: rows}
}

// Row returns the face-neighbor flat indices of cell i.
func (t *NeighborTable) Row(i int) []int { return t.rows[i] }

// NeighborsAt computes the face-neighbor flat indices of cell i directly
// from stride arithmetic, without a precomputed table: more CPU per
// lookup, no O(|V|) table allocation.
func NeighborsAt[T Number](v *Volume[T], i int) []int {
	dim := v.Dim()
	strides := v.Strides()
	row := make([]int, 2*dim)
	for axis := 0; axis < dim; axis++ {
		row[axis] = i - strides[axis]
		row[dim+axis] = i + strides[axis]
	}
	return row
}
