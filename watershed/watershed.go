// Package watershed floods the level sets of a padded scalar volume in
// ascending order, assigning each cell a basin label, a dam marker, or
// leaving it undecided until its level is reached.
package watershed

import (
	"math"

	"github.com/grailbio/base/log"
	"github.com/grailbio/volseg/volume"
)

// damMarker is the sentinel label written while a cell's basin membership
// is still ambiguous; it is distinct from 0 (undecided-but-unvisited) and
// from every real basin label, and is rewritten to 0 before Run returns.
// Labels are fixed at uint32, so the marker is math.MaxUint32.
const damMarker = math.MaxUint32

// ProgressFunc, if non-nil, is called once per level processed with the
// level's ordinal index and the total level count. The watershed engine
// never renders progress itself; this only invokes a caller-supplied
// callback.
type ProgressFunc func(done, total int)

// Options configures a single Run.
type Options struct {
	// Progress, if set, is invoked once per intensity level as it is
	// processed.
	Progress ProgressFunc
}

// Run computes the watershed transform of v, returning a labeled volume
// of the same shape: every non-dam cell carries a basin label in [1, K],
// and dam cells carry label 0.
func Run(v *volume.Volume[float64], opts Options) *volume.Volume[uint32] {
	padded := volume.Pad(v, v.Max()+1)
	labels := volume.New[uint32](padded.Shape())

	neighbors := volume.BuildNeighborsArray(padded)
	levelIdx := volume.BuildLevelsDict(padded)
	levels := volume.SortedLevels(levelIdx)
	// The last level is the sentinel border value (v.Max()+1); it never
	// participates in flooding.
	levels = levels[:len(levels)-1]

	currentLabel := uint32(0)
	for i, level := range levels {
		floodLevel(labels, padded, neighbors, levelIdx[level], &currentLabel)
		if opts.Progress != nil {
			opts.Progress(i+1, len(levels))
		}
	}

	stripDams(labels)
	return volume.JuicyCenter(labels, 1)
}

// floodLevel performs one ascending pass: extend existing basins via a
// FIFO flood from already-labeled neighbors, then seed fresh basins among
// whatever remains unlabeled at this level.
func floodLevel(labels *volume.Volume[uint32], padded *volume.Volume[float64], neighbors *volume.NeighborTable, cellsAtLevel []int, currentLabel *uint32) {
	queue := make([]int, 0, len(cellsAtLevel))
	for _, idx := range cellsAtLevel {
		for _, n := range neighbors.Row(idx) {
			if labels.At(n) != 0 {
				queue = append(queue, idx)
				break
			}
		}
	}

	level := padded.At(cellsAtLevel[0])

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		seen := make(map[uint32]bool)
		var uniqueLabel uint32
		numUnique := 0
		for _, n := range neighbors.Row(idx) {
			l := labels.At(n)
			if l == 0 || l == damMarker {
				continue
			}
			if !seen[l] {
				seen[l] = true
				numUnique++
				uniqueLabel = l
			}
		}

		switch {
		case numUnique >= 2:
			labels.Set(idx, damMarker)
		case numUnique == 1 && labels.At(idx) == 0:
			labels.Set(idx, uniqueLabel)
			for _, n := range neighbors.Row(idx) {
				if labels.At(n) == 0 && padded.At(n) == level {
					queue = append(queue, n)
				}
			}
		}
	}

	mask := make([]bool, labels.Size())
	for _, idx := range cellsAtLevel {
		if labels.At(idx) == 0 {
			mask[idx] = true
		}
	}
	components, numNew := volume.ConnectedComponents(mask, labels.Shape())
	if numNew == 0 {
		return
	}
	for i, c := range components {
		if c != 0 {
			labels.Set(i, *currentLabel+uint32(c))
		}
	}
	*currentLabel += uint32(numNew)
	if log.At(log.Debug) {
		log.Debug.Printf("watershed: level %v seeded %d new basins (total %d)", level, numNew, *currentLabel)
	}
}

// stripDams rewrites every damMarker cell back to 0.
func stripDams(labels *volume.Volume[uint32]) {
	data := labels.Data()
	for i, l := range data {
		if l == damMarker {
			data[i] = 0
		}
	}
}
