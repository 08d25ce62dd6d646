package rag

import (
	"sort"

	"github.com/grailbio/volseg/mergequeue"
)

// MergeNodes merges n2 into n1: n1 survives and absorbs n2's extent,
// probability moments, and edges; n2 is removed from the graph.
func (g *Graph) MergeNodes(n1, n2 NodeID) {
	newNeighbors := g.neighborsExcluding(n2, n1)

	// Step 1: transfer edges from n2 to n1, invalidating n2's queue
	// entries and pushing fresh ones for the (possibly new) n1 edges.
	for _, m := range newNeighbors {
		srcKey := makeEdgeKey(n2, m)
		src := g.edges[srcKey]
		dst := g.edgeFor(n1, m)
		dst.boundary.Union(src.boundary)
		g.mergeQueue.Invalidate(src.qlink)
		g.removeEdge(n2, m)
		g.refreshQueue(n1, m)
	}

	// Step 2: transfer extent and moments; reassign n2's cells to n1 in
	// the working segmentation.
	n1Node := g.nodeFor(n1)
	n2Node := g.nodes[n2]
	n1Node.extent.Union(n2Node.extent)
	n1Node.sump += n2Node.sump
	n1Node.sump2 += n2Node.sump2
	n2Node.extent.Do(func(cell int) {
		g.segmentation.Set(cell, n1)
	})

	// Step 3-5: resolve the shared n1/n2 boundary, if any, and refresh
	// affected queue entries.
	if sharedKey := makeEdgeKey(n1, n2); g.edges[sharedKey] != nil {
		shared := g.edges[sharedKey]
		edits := make(map[NodeID][]int)

		shared.boundary.Do(func(b int) {
			labels := g.uniqueNeighborLabels(b)
			if allIn(labels, 0, n1) {
				n1Node.extent.Add(b)
				p := g.probabilities.At(b)
				n1Node.sump += p
				n1Node.sump2 += p * p
				g.segmentation.Set(b, n1)
				return
			}
			for _, l := range labels {
				if l == 0 || l == n1 {
					continue
				}
				edits[l] = append(edits[l], b)
			}
		})

		g.unlink(n1, n2)
		delete(g.edges, sharedKey)

		edited := make(map[NodeID]bool)
		for l, cells := range edits {
			e := g.edgeFor(n1, l)
			for _, c := range cells {
				e.boundary.Add(c)
			}
			g.refreshQueue(n1, l)
			edited[l] = true
		}

		// Only neighbors NOT touched by the edits above need a second
		// refresh, since a priority function that depends on extent size
		// (e.g. the ladder wrapper) sees a stale value from the step-1
		// refresh, computed before n1's extent grew above.
		for _, m := range newNeighbors {
			if !edited[m] {
				g.refreshQueue(n1, m)
			}
		}
	}

	delete(g.nodes, n2)
}

// neighborsExcluding returns n's neighbors other than exclude, in
// ascending order (only to keep merge behavior reproducible across
// runs).
func (g *Graph) neighborsExcluding(n, exclude NodeID) []NodeID {
	var out []NodeID
	for m := range g.adj[n] {
		if m != exclude {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// removeEdge deletes the edge between u and v entirely, including
// adjacency bookkeeping. It does not touch the merge queue; the caller is
// responsible for invalidating any qlink first.
func (g *Graph) removeEdge(u, v NodeID) {
	g.unlink(u, v)
	delete(g.edges, makeEdgeKey(u, v))
}

// refreshQueue invalidates edge (u,v)'s current queue entry, if any, and
// pushes a freshly scored one: every priority or endpoint mutation is
// preceded by an invalidation and followed by a push.
func (g *Graph) refreshQueue(u, v NodeID) {
	e, ok := g.edges[makeEdgeKey(u, v)]
	if !ok {
		// No such edge; recovered locally as a no-op.
		return
	}
	g.mergeQueue.Invalidate(e.qlink)
	if g.mergeQueue.IsNullQueue() {
		return
	}
	e.qlink = &mergequeue.Entry{
		Priority: g.MergePriorityFunction(g, u, v),
		Valid:    true,
		A:        int(u),
		B:        int(v),
	}
	g.mergeQueue.Push(e.qlink)
}

// uniqueNeighborLabels returns the distinct labels among cell i's
// face-neighbors in the current (post steps 1-2) segmentation, in
// ascending order.
func (g *Graph) uniqueNeighborLabels(i int) []NodeID {
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, n := range g.neighborsOf(i) {
		l := g.segmentation.At(n)
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// allIn reports whether every label in labels is one of the allowed
// values.
func allIn(labels []NodeID, allowed ...NodeID) bool {
	allowedSet := make(map[NodeID]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	for _, l := range labels {
		if !allowedSet[l] {
			return false
		}
	}
	return true
}
