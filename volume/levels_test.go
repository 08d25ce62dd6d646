package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildLevelsDict(t *testing.T) {
	v := Wrap([]int{2, 2}, []int32{2, 0, 0, 2})
	levels := BuildLevelsDict(v)
	assert.Equal(t, []int{0, 3}, levels[2])
	assert.Equal(t, []int{1, 2}, levels[0])
	assert.Equal(t, []int32{0, 2}, SortedLevels(levels))
}
