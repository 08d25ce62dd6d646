package volume

import "github.com/biogo/store/llrb"

// cellIdx adapts a flat cell index for use as an llrb.Comparable.
type cellIdx int

func (a cellIdx) Compare(b llrb.Comparable) int {
	return int(a) - int(b.(cellIdx))
}

// CellSet is an ordered set of flat cell indices. It backs node extents
// and edge boundaries in the rag package: an llrb tree gives set
// membership cost close to a hash set while keeping the deterministic
// in-order iteration that volume scattering and round-trip comparisons
// rely on.
type CellSet struct {
	tree llrb.Tree
	size int
}

// NewCellSet returns an empty set, optionally pre-populated with idxs.
func NewCellSet(idxs ...int) *CellSet {
	s := &CellSet{}
	for _, i := range idxs {
		s.Add(i)
	}
	return s
}

// Add inserts i into the set; a no-op if i is already present.
func (s *CellSet) Add(i int) {
	if s.tree.Get(cellIdx(i)) != nil {
		return
	}
	s.tree.Insert(cellIdx(i))
	s.size++
}

// Contains reports whether i is a member of the set.
func (s *CellSet) Contains(i int) bool {
	return s.tree.Get(cellIdx(i)) != nil
}

// Len returns the number of members.
func (s *CellSet) Len() int { return s.size }

// Union adds every member of other into s.
func (s *CellSet) Union(other *CellSet) {
	other.Do(func(i int) {
		s.Add(i)
	})
}

// Do calls f once for every member, in ascending order.
func (s *CellSet) Do(f func(int)) {
	s.tree.Do(func(c llrb.Comparable) bool {
		f(int(c.(cellIdx)))
		return false
	})
}

// Slice returns the members in ascending order.
func (s *CellSet) Slice() []int {
	out := make([]int, 0, s.size)
	s.Do(func(i int) { out = append(out, i) })
	return out
}
