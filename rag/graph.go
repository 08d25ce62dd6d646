// Package rag implements the region adjacency graph built from a labeled
// volume, its priority-driven agglomerative merging, and a library of
// merge-priority functions.
package rag

import (
	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/log"
	"github.com/grailbio/volseg/mergequeue"
	"github.com/grailbio/volseg/volume"
)

// NodeID is a basin label. 0 is reserved ("undecided/dam") and is never a
// node in the graph.
type NodeID = uint32

// PriorityFunc scores the edge between u and v; lower scores merge first.
// This is the pluggable interface every merge-priority function
// implements.
type PriorityFunc func(g *Graph, u, v NodeID) float64

// Classifier is the two-method interface a learned edge classifier
// collaborator must satisfy: a probability method that may not be
// implemented, and a fallback score.
type Classifier interface {
	// PredictProba returns the probability of the positive class for
	// features, and false if this classifier does not support
	// probability estimates.
	PredictProba(features []float64) (prob float64, ok bool)
	// Predict returns a raw score for features, used when PredictProba
	// reports ok=false.
	Predict(features []float64) float64
}

// FeatureExtractor builds the feature vector ClassifierProbability feeds
// to a Classifier for the edge (u,v).
type FeatureExtractor func(g *Graph, u, v NodeID) []float64

// node tracks a basin's constituent cells and running probability
// moments.
type node struct {
	extent *volume.CellSet
	sump   float64
	sump2  float64
}

// edge tracks the boundary cells between two basins and a handle to this
// edge's current merge-queue entry.
type edge struct {
	boundary *volume.CellSet
	qlink    *mergequeue.Entry
}

type edgeKey struct{ a, b NodeID }

func makeEdgeKey(u, v NodeID) edgeKey {
	if u > v {
		u, v = v, u
	}
	return edgeKey{u, v}
}

// Options configures Graph construction.
type Options struct {
	// Watershed is the labeled volume (unpadded, [1,K] basin labels with
	// 0 marking dams). Required unless callers want an empty graph to
	// populate by hand.
	Watershed *volume.Volume[uint32]

	// Probabilities is the scalar boundary-likelihood map, same shape as
	// Watershed. Defaults to an all-zero volume when nil.
	Probabilities *volume.Volume[float64]

	// MergePriorityFunction scores candidate merges; defaults to
	// BoundaryMean.
	MergePriorityFunction PriorityFunc

	// ShowProgress is copied to Graph.ShowProgress. Construction and
	// agglomeration do not read it and emit no progress events.
	ShowProgress bool

	// Lowmem avoids building the O(|V|) neighbor table, recomputing
	// neighbor offsets on the fly instead.
	Lowmem bool
}

// Graph is the region adjacency graph: one node per basin label, one edge
// per pair of basins separated by at least one dam cell.
type Graph struct {
	nodes map[NodeID]*node
	edges map[edgeKey]*edge
	adj   map[NodeID]map[NodeID]struct{}

	// segmentation is the padded working label volume that merges
	// mutate in place.
	segmentation  *volume.Volume[uint32]
	probabilities *volume.Volume[float64]

	neighbors *volume.NeighborTable // nil when lowmem.
	lowmem    bool

	// BoundaryLabel is the reserved node representing the volume's
	// padded border: one more than the largest real basin label.
	BoundaryLabel NodeID
	// BoundaryProbability is the sentinel probability assigned to the
	// padded border, high enough that no real edge ever exceeds it.
	BoundaryProbability float64

	MergePriorityFunction PriorityFunc
	ShowProgress          bool

	mergeQueue *mergequeue.Queue
}

// boundaryProbability is inconceivably high but does not overflow
// float64, so the padded border never looks like an attractive merge
// target under any priority function.
const boundaryProbability = 1e100

// New builds a Graph from a labeled volume and probability map. Passing a
// nil opts.Watershed returns an empty graph the caller can populate
// manually.
func New(opts Options) *Graph {
	g := &Graph{
		nodes:                 make(map[NodeID]*node),
		edges:                 make(map[edgeKey]*edge),
		adj:                   make(map[NodeID]map[NodeID]struct{}),
		BoundaryProbability:   boundaryProbability,
		MergePriorityFunction: opts.MergePriorityFunction,
		ShowProgress:          opts.ShowProgress,
		lowmem:                opts.Lowmem,
		mergeQueue:            mergequeue.NewNullQueue(),
	}
	if g.MergePriorityFunction == nil {
		g.MergePriorityFunction = BoundaryMean
	}
	if opts.Watershed == nil {
		return g
	}

	// Two layers: a fresh dam ring (label 0) immediately around the real
	// volume, then an outer ring carrying BoundaryLabel. Without the dam
	// ring, basins touching the volume's physical edge would sit directly
	// against the (non-zero) BoundaryLabel ring with no dam cell between
	// them, and the edge-construction loop below (which only looks at
	// label-0 cells) would never link them to BoundaryLabel.
	g.BoundaryLabel = opts.Watershed.Max() + 1
	g.segmentation = volume.Pad(opts.Watershed, 0, g.BoundaryLabel)

	probs := opts.Probabilities
	if probs == nil {
		probs = volume.New[float64](opts.Watershed.Shape())
	}
	// The dam ring's probability is the sentinel too, so that ring is
	// never mistaken for an attractive merge target; the outer
	// BoundaryLabel ring's probability value is irrelevant (it is never
	// read as a dam cell) and left at zero.
	g.probabilities = volume.Pad(probs, g.BoundaryProbability, 0)

	if !g.lowmem {
		g.neighbors = volume.BuildNeighborsArray(g.segmentation)
	}

	g.buildFromWatershed()
	return g
}

func incrementIndex(idx, shape []int) {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < shape[k] {
			return
		}
		idx[k] = 0
	}
}

// neighborsOf returns the face-neighbor flat indices of cell i, using the
// precomputed table when available.
func (g *Graph) neighborsOf(i int) []int {
	if g.neighbors != nil {
		return g.neighbors.Row(i)
	}
	return volume.NeighborsAt(g.segmentation, i)
}

// buildFromWatershed walks every cell once: dam cells (label 0) link the
// basins they separate into edges, and non-dam cells accumulate into
// their basin's node moments.
func (g *Graph) buildFromWatershed() {
	data := g.segmentation.Data()
	for i, label := range data {
		if label != 0 {
			continue
		}
		adjLabels := g.uniqueNonzeroNeighborLabels(i)
		if len(adjLabels) == 0 {
			// An interior dam cell not separating any basin. Silently
			// ignored.
			if log.At(log.Debug) {
				log.Debug.Printf("rag: cell %d labeled 0 has no labeled neighbors", i)
			}
			continue
		}
		for a := 0; a < len(adjLabels); a++ {
			for b := a + 1; b < len(adjLabels); b++ {
				g.edgeFor(adjLabels[a], adjLabels[b]).boundary.Add(i)
			}
		}
	}
	for i, label := range data {
		if label == 0 || label == g.BoundaryLabel {
			continue
		}
		n := g.nodeFor(label)
		p := g.probabilities.At(i)
		n.extent.Add(i)
		n.sump += p
		n.sump2 += p * p
	}
}

// uniqueNonzeroNeighborLabels returns the distinct nonzero labels among
// i's face-neighbors, in ascending order.
func (g *Graph) uniqueNonzeroNeighborLabels(i int) []NodeID {
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, n := range g.neighborsOf(i) {
		l := g.segmentation.At(n)
		if l == 0 || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	// Deterministic order keeps edge/queue iteration reproducible across
	// runs.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (g *Graph) nodeFor(id NodeID) *node {
	n, ok := g.nodes[id]
	if !ok {
		n = &node{extent: volume.NewCellSet()}
		g.nodes[id] = n
	}
	return n
}

func (g *Graph) edgeFor(u, v NodeID) *edge {
	k := makeEdgeKey(u, v)
	e, ok := g.edges[k]
	if !ok {
		e = &edge{boundary: volume.NewCellSet()}
		g.edges[k] = e
		g.link(u, v)
	}
	return e
}

func (g *Graph) link(u, v NodeID) {
	if g.adj[u] == nil {
		g.adj[u] = make(map[NodeID]struct{})
	}
	if g.adj[v] == nil {
		g.adj[v] = make(map[NodeID]struct{})
	}
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
}

func (g *Graph) unlink(u, v NodeID) {
	delete(g.adj[u], v)
	delete(g.adj[v], u)
}

// HasEdge reports whether an edge exists between u and v.
func (g *Graph) HasEdge(u, v NodeID) bool {
	_, ok := g.edges[makeEdgeKey(u, v)]
	return ok
}

// Neighbors returns the node IDs adjacent to n, in no particular order.
func (g *Graph) Neighbors(n NodeID) []NodeID {
	out := make([]NodeID, 0, len(g.adj[n]))
	for m := range g.adj[n] {
		out = append(out, m)
	}
	return out
}

// Nodes returns every node ID currently in the graph, in no particular
// order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// NumNodes returns the number of nodes currently in the graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// ExtentSize returns the number of cells in node n's extent, or 0 if n is
// not a node.
func (g *Graph) ExtentSize(n NodeID) int {
	if nd, ok := g.nodes[n]; ok {
		return nd.extent.Len()
	}
	return 0
}

// BoundarySize returns the number of cells in the edge (u,v)'s boundary,
// or 0 if the edge does not exist.
func (g *Graph) BoundarySize(u, v NodeID) int {
	if e, ok := g.edges[makeEdgeKey(u, v)]; ok {
		return e.boundary.Len()
	}
	return 0
}

// BoundaryCells returns the boundary cell indices of edge (u,v) in
// ascending order, or nil if the edge does not exist.
func (g *Graph) BoundaryCells(u, v NodeID) []int {
	if e, ok := g.edges[makeEdgeKey(u, v)]; ok {
		return e.boundary.Slice()
	}
	return nil
}

// AtVolumeBoundary reports whether node n touches the padded volume
// border.
func (g *Graph) AtVolumeBoundary(n NodeID) bool {
	return g.HasEdge(n, g.BoundaryLabel)
}

// Checksum hashes node n's sorted extent with SeaHash, giving tests and
// debug logs a cheap, stable fingerprint of a basin's membership without
// printing the full extent.
func (g *Graph) Checksum(n NodeID) uint64 {
	nd, ok := g.nodes[n]
	if !ok {
		return 0
	}
	buf := make([]byte, 8*nd.extent.Len())
	i := 0
	nd.extent.Do(func(cell int) {
		putUint64(buf[i:], uint64(cell))
		i += 8
	})
	return seahash.Sum64(buf)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}
