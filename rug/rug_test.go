package rug

import (
	"testing"

	"github.com/grailbio/volseg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeMismatchIsRejected(t *testing.T) {
	s1 := volume.Wrap([]int{2, 2}, []uint32{1, 1, 1, 1})
	s2 := volume.Wrap([]int{3, 3}, make([]uint32, 9))
	_, err := New(s1, s2)
	require.Error(t, err)
}

func TestOverlapMatrixZeroesUndecidedLabel(t *testing.T) {
	s1 := volume.Wrap([]int{2, 2}, []uint32{0, 1, 1, 1})
	s2 := volume.Wrap([]int{2, 2}, []uint32{0, 2, 2, 2})
	g, err := New(s1, s2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.At(0, 0, false))
	assert.Equal(t, 1.0, g.At(1, 2, false))
}

func TestRowNormalization(t *testing.T) {
	s1 := volume.Wrap([]int{4}, []uint32{1, 1, 1, 1})
	s2 := volume.Wrap([]int{4}, []uint32{1, 1, 2, 2})
	g, err := New(s1, s2)
	require.NoError(t, err)
	row := g.Row(1)
	assert.InDelta(t, 0.5, row[1], 1e-9)
	assert.InDelta(t, 0.5, row[2], 1e-9)
}

func TestBestPossibleSegmentationIdentity(t *testing.T) {
	ws := volume.Wrap([]int{3, 3}, []uint32{
		1, 0, 2,
		1, 0, 2,
		1, 0, 2,
	})
	got, err := BestPossibleSegmentation(ws, ws)
	require.NoError(t, err)

	// Self-comparison must reproduce the same partition (labels may be
	// renamed, but cells sharing a label in ws must still share one in
	// got, and vice versa).
	classOf := make(map[int]uint32)
	wsLabelOf := make(map[uint32]int)
	for i, v := range got.Data() {
		if l, ok := classOf[int(ws.Data()[i])]; ok {
			assert.Equal(t, l, v)
		} else {
			classOf[int(ws.Data()[i])] = v
		}
		if w, ok := wsLabelOf[v]; ok {
			assert.Equal(t, w, int(ws.Data()[i]))
		} else {
			wsLabelOf[v] = int(ws.Data()[i])
		}
	}
}

func TestBestPossibleSegmentationMergesAgreeingSuperpixels(t *testing.T) {
	// Two superpixels (1 and 2) that both fall entirely within ground
	// truth label 1 should end up merged.
	ws := volume.Wrap([]int{1, 4}, []uint32{1, 1, 2, 2})
	gt := volume.Wrap([]int{1, 4}, []uint32{1, 1, 1, 1})
	got, err := BestPossibleSegmentation(ws, gt)
	require.NoError(t, err)
	data := got.Data()
	for _, v := range data[1:] {
		assert.Equal(t, data[0], v)
	}
}
