package watershed

import (
	"testing"

	"github.com/grailbio/volseg/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatVolumeSingleBasin(t *testing.T) {
	v := volume.Wrap([]int{3, 3}, make([]float64, 9))
	ws := Run(v, Options{})
	require.Equal(t, []int{3, 3}, ws.Shape())
	for i := 0; i < ws.Size(); i++ {
		assert.Equal(t, uint32(1), ws.At(i))
	}
}

func TestTwoBasinsSeparatedByRidge(t *testing.T) {
	v := volume.Wrap([]int{3, 3}, []float64{
		0, 2, 0,
		0, 2, 0,
		0, 2, 0,
	})
	ws := Run(v, Options{})
	want := []uint32{
		1, 0, 2,
		1, 0, 2,
		1, 0, 2,
	}
	assert.Equal(t, want, ws.Data())
}

func TestWatershedIdempotentOnNonzeroRegions(t *testing.T) {
	v := volume.Wrap([]int{3, 3}, []float64{
		0, 2, 0,
		0, 2, 0,
		0, 2, 0,
	})
	first := Run(v, Options{})

	firstFloat := make([]float64, first.Size())
	for i, x := range first.Data() {
		firstFloat[i] = float64(x)
	}
	second := Run(volume.Wrap(first.Shape(), firstFloat), Options{})

	// Non-zero regions of both outputs must induce the same partition,
	// i.e. two cells share a label in one output iff they do in the other.
	for i := range first.Data() {
		for j := range first.Data() {
			if first.At(i) == 0 || first.At(j) == 0 {
				continue
			}
			sameFirst := first.At(i) == first.At(j)
			sameSecond := second.At(i) == second.At(j)
			assert.Equal(t, sameFirst, sameSecond, "cells %d,%d", i, j)
		}
	}
}

func TestProgressCallbackInvokedPerLevel(t *testing.T) {
	v := volume.Wrap([]int{2, 2}, []float64{0, 1, 2, 3})
	var calls int
	Run(v, Options{Progress: func(done, total int) {
		calls++
		assert.LessOrEqual(t, done, total)
	}})
	assert.Greater(t, calls, 0)
}
