package rag

import (
	"testing"

	"github.com/grailbio/volseg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBasinWatershed builds a watershed output with two basins separated
// by a dam down the middle column.
func twoBasinWatershed() *volume.Volume[uint32] {
	return volume.Wrap([]int{3, 3}, []uint32{
		1, 0, 2,
		1, 0, 2,
		1, 0, 2,
	})
}

func TestConstructionBuildsNodesAndEdges(t *testing.T) {
	ws := twoBasinWatershed()
	probs := volume.Wrap([]int{3, 3}, []float64{
		1, 2, 1,
		1, 2, 1,
		1, 2, 1,
	})
	g := New(Options{Watershed: ws, Probabilities: probs})

	require.True(t, g.HasEdge(1, 2))
	assert.Equal(t, 3, g.ExtentSize(1))
	assert.Equal(t, 3, g.ExtentSize(2))
	assert.Equal(t, 3, g.BoundarySize(1, 2))
	assert.True(t, g.AtVolumeBoundary(1))
	assert.True(t, g.AtVolumeBoundary(2))
}

func TestTrivialAgglomeration(t *testing.T) {
	ws := twoBasinWatershed()
	probs := volume.Wrap([]int{3, 3}, []float64{
		2, 2, 2,
		2, 2, 2,
		2, 2, 2,
	})
	g := New(Options{Watershed: ws, Probabilities: probs})
	events := g.Agglomerate(3)
	require.Len(t, events, 1)
	assert.Equal(t, 1, g.NumNodes())

	seg := g.GetSegmentation()
	for _, v := range seg.Data() {
		assert.Equal(t, events[0].Survivor, v)
	}
}

// threeBasinChainWatershed builds a 3x5 watershed output with three basins
// in a row, each separated from its neighbor by a dam column: 1|0|2|0|3.
func threeBasinChainWatershed() *volume.Volume[uint32] {
	return volume.Wrap([]int{3, 5}, []uint32{
		1, 0, 2, 0, 3,
		1, 0, 2, 0, 3,
		1, 0, 2, 0, 3,
	})
}

func TestAgglomerateChainOfThreeBasins(t *testing.T) {
	ws := threeBasinChainWatershed()
	probs := volume.New[float64](ws.Shape())
	g := New(Options{Watershed: ws, Probabilities: probs})
	require.True(t, g.HasEdge(1, 2))
	require.True(t, g.HasEdge(2, 3))

	events := g.Agglomerate(1)
	require.Len(t, events, 2)
	assert.Equal(t, 1, g.NumNodes())
}

func TestLadderRejectsLargeBasinMerge(t *testing.T) {
	ws := twoLargeBasins()
	probs := volume.New[float64](ws.Shape())
	g := New(Options{Watershed: ws, Probabilities: probs})
	before := g.NumNodes()

	g.AgglomerateLadder(50, 1)
	assert.Equal(t, before, g.NumNodes())
}

func TestLadderAcceptsSmallBasinMerge(t *testing.T) {
	ws := smallInteriorBasin()
	probs := volume.New[float64](ws.Shape())
	g := New(Options{Watershed: ws, Probabilities: probs})
	require.True(t, g.HasEdge(1, 2))
	require.False(t, g.AtVolumeBoundary(1))

	g.AgglomerateLadder(10, 1)
	assert.Equal(t, 1, g.NumNodes())
}

func TestBuildVolumeMatchesGetSegmentation(t *testing.T) {
	ws := twoBasinWatershed()
	probs := volume.Wrap([]int{3, 3}, []float64{
		1, 2, 1,
		1, 2, 1,
		1, 2, 1,
	})
	g := New(Options{Watershed: ws, Probabilities: probs})
	assert.Equal(t, g.BuildVolume().Data(), g.GetSegmentation().Data())

	g.Agglomerate(3)
	assert.Equal(t, g.BuildVolume().Data(), g.GetSegmentation().Data())
}

func TestNodeMomentsInvariant(t *testing.T) {
	ws := twoBasinWatershed()
	probs := volume.Wrap([]int{3, 3}, []float64{
		1, 2, 1,
		1, 2, 1,
		1, 2, 1,
	})
	g := New(Options{Watershed: ws, Probabilities: probs})
	for _, n := range g.Nodes() {
		nd := g.nodes[n]
		var sump, sump2 float64
		nd.extent.Do(func(cell int) {
			p := g.probabilities.At(cell)
			sump += p
			sump2 += p * p
		})
		assert.InDelta(t, sump, nd.sump, 1e-9)
		assert.InDelta(t, sump2, nd.sump2, 1e-9)
	}
}

// twoLargeBasins returns a 21x10 grid split by a one-row dam into two
// basins of 100 cells each: both endpoints are at or above the ladder's
// size threshold, so the ladder condition never holds regardless of
// volume-boundary status.
func twoLargeBasins() *volume.Volume[uint32] {
	data := make([]uint32, 210)
	for i := 0; i < 100; i++ {
		data[i] = 1
	}
	// row 10 (cells 100-109) stays 0: a dam separating the two basins.
	for i := 110; i < 210; i++ {
		data[i] = 2
	}
	return volume.Wrap([]int{21, 10}, data)
}

// smallInteriorBasin returns a 10x10 grid: a single-cell basin (label 1)
// at the center, ringed by a one-cell-thick dam, with everything else
// (including every physical edge) label 2 — a small basin that does not
// touch the volume boundary.
func smallInteriorBasin() *volume.Volume[uint32] {
	const n = 10
	data := make([]uint32, n*n)
	for i := range data {
		data[i] = 2
	}
	center := 5*n + 5
	data[center] = 1
	for _, d := range []int{-n, n, -1, 1} {
		data[center+d] = 0
	}
	return volume.Wrap([]int{n, n}, data)
}
