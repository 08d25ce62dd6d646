package volume

import "sort"

// BuildLevelsDict groups the flat indices of v by scalar value, returning
// each distinct level's indices in ascending flat-index order.
func BuildLevelsDict[T Number](v *Volume[T]) map[T][]int {
	levels := make(map[T][]int)
	for i, x := range v.Data() {
		levels[x] = append(levels[x], i)
	}
	return levels
}

// SortedLevels returns the distinct scalar values present in levels in
// ascending order.
func SortedLevels[T Number](levels map[T][]int) []T {
	out := make([]T, 0, len(levels))
	for l := range levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
