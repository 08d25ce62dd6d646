package rag

import (
	"github.com/grailbio/volseg/mergequeue"
	"github.com/grailbio/volseg/volume"
)

// MergeEvent records one completed merge, surfaced incrementally by
// AgglomerateStream.
type MergeEvent struct {
	Survivor NodeID
	Absorbed NodeID
}

// RebuildMergeQueue discards the current merge queue and builds a fresh
// one by scoring every edge currently in the graph with
// MergePriorityFunction.
func (g *Graph) RebuildMergeQueue() {
	q := mergequeue.New()
	for k, e := range g.edges {
		entry := &mergequeue.Entry{
			Priority: g.MergePriorityFunction(g, k.a, k.b),
			Valid:    true,
			A:        int(k.a),
			B:        int(k.b),
		}
		e.qlink = entry
		q.Push(entry)
	}
	g.mergeQueue = q
}

// Agglomerate merges nodes, smallest edge priority first, until the
// smallest remaining priority is no longer strictly less than threshold.
// A popped-but-invalid entry (one whose edge has since been superseded)
// is discarded rather than merged.
func (g *Graph) Agglomerate(threshold float64) []MergeEvent {
	if g.mergeQueue.IsNullQueue() || g.mergeQueue.IsEmpty() {
		g.RebuildMergeQueue()
	}
	var events []MergeEvent
	for !g.mergeQueue.IsEmpty() && g.mergeQueue.Peek().Priority < threshold {
		e := g.mergeQueue.Pop()
		if !e.Valid {
			continue
		}
		n1, n2 := NodeID(e.A), NodeID(e.B)
		g.MergeNodes(n1, n2)
		events = append(events, MergeEvent{Survivor: n1, Absorbed: n2})
	}
	return events
}

// AgglomerateStream is the streaming form of Agglomerate: it performs the
// same merges but yields each MergeEvent on ch as it happens rather than
// collecting them into a slice. The caller must drain ch (or range over
// it) until it closes.
func (g *Graph) AgglomerateStream(threshold float64) <-chan MergeEvent {
	ch := make(chan MergeEvent)
	go func() {
		defer close(ch)
		if g.mergeQueue.IsNullQueue() || g.mergeQueue.IsEmpty() {
			g.RebuildMergeQueue()
		}
		for !g.mergeQueue.IsEmpty() && g.mergeQueue.Peek().Priority < threshold {
			e := g.mergeQueue.Pop()
			if !e.Valid {
				continue
			}
			n1, n2 := NodeID(e.A), NodeID(e.B)
			g.MergeNodes(n1, n2)
			ch <- MergeEvent{Survivor: n1, Absorbed: n2}
		}
	}()
	return ch
}

// AgglomerateLadder merges every edge with at least one small,
// non-boundary endpoint until no such edge remains. It temporarily swaps
// in a ladder-wrapped priority function, rebuilds the queue under it, and
// restores the original function afterward.
func (g *Graph) AgglomerateLadder(threshold int, strictness int) []MergeEvent {
	original := g.MergePriorityFunction
	g.MergePriorityFunction = MakeLadder(original, threshold, strictness)
	g.RebuildMergeQueue()
	// boundaryProbability/10 is large enough to exhaust every merge the
	// ladder condition allows.
	events := g.Agglomerate(g.BoundaryProbability / 10)
	g.MergePriorityFunction = original
	return events
}

// GetSegmentation returns the current working segmentation with the
// padding stripped. Two layers come off: the dam ring and the
// BoundaryLabel ring added at construction.
func (g *Graph) GetSegmentation() *volume.Volume[uint32] {
	return volume.JuicyCenter(g.segmentation, 2)
}

// BuildVolume recomputes a segmentation array from scratch by scattering
// each node's extent cells to that node's label. It is used as a
// reference implementation to cross-check GetSegmentation's incremental
// bookkeeping in tests.
func (g *Graph) BuildVolume() *volume.Volume[uint32] {
	out := volume.New[uint32](g.segmentation.Shape())
	for id, n := range g.nodes {
		n.extent.Do(func(cell int) {
			out.Set(cell, id)
		})
	}
	return volume.JuicyCenter(out, 2)
}
