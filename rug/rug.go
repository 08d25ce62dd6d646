// Package rug implements the region union graph: an overlap matrix
// between two label volumes, used to compare segmentations and to derive
// a best-possible segmentation given ground truth.
package rug

import (
	"encoding/binary"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/volseg/rag"
	"github.com/grailbio/volseg/volume"
	"github.com/minio/highwayhash"
)

// Graph is the region union graph between two label volumes s1 and s2: a
// matrix of per-label-pair overlap counts, plus each side's per-label cell
// counts.
type Graph struct {
	overlaps   []float64 // row-major, dim1 x dim2
	sizes1     []float64
	sizes2     []float64
	dim1, dim2 int
}

// New builds the region union graph between s1 and s2: increment
// O[a,b], S1[a], S2[b] for every paired cell, then zero row 0 and column
// 0 and set O[0,0]=1 (label 0 is "undecided/dam" in both volumes and is
// excluded from overlap accounting).
//
// Label values are assumed dense in [0, max].
func New(s1, s2 *volume.Volume[uint32]) (*Graph, error) {
	if !shapesEqual(s1.Shape(), s2.Shape()) {
		return nil, errors.E(errors.Invalid, "rug: building region union graph: volume shapes don't match", s1.Shape(), s2.Shape())
	}
	dim1 := int(s1.Max()) + 1
	dim2 := int(s2.Max()) + 1
	g := &Graph{
		overlaps: make([]float64, dim1*dim2),
		sizes1:   make([]float64, dim1),
		sizes2:   make([]float64, dim2),
		dim1:     dim1,
		dim2:     dim2,
	}
	d1, d2 := s1.Data(), s2.Data()
	for i := range d1 {
		v1, v2 := d1[i], d2[i]
		g.overlaps[int(v1)*dim2+int(v2)]++
		g.sizes1[v1]++
		g.sizes2[v2]++
	}
	for b := 0; b < dim2; b++ {
		g.overlaps[0*dim2+b] = 0
	}
	for a := 0; a < dim1; a++ {
		g.overlaps[a*dim2+0] = 0
	}
	g.overlaps[0] = 1
	return g, nil
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Row returns O[i,j]/S1[i] for every j.
func (g *Graph) Row(i int) []float64 {
	out := make([]float64, g.dim2)
	s := g.sizes1[i]
	for j := 0; j < g.dim2; j++ {
		out[j] = g.overlaps[i*g.dim2+j] / s
	}
	return out
}

// At returns O[i,j]/S1[i], or, when transpose is true, O[i,j]/S2[j].
func (g *Graph) At(i, j int, transpose bool) float64 {
	o := g.overlaps[i*g.dim2+j]
	if transpose {
		return o / g.sizes2[j]
	}
	return o / g.sizes1[i]
}

// Dims returns the overlap matrix's (dim1, dim2) shape.
func (g *Graph) Dims() (int, int) { return g.dim1, g.dim2 }

var checksumSeed [highwayhash.Size]uint8

// Checksum fingerprints the flattened overlap matrix with a keyed
// HighwayHash, giving tests a cheap way to assert two segmentations
// overlap identically without diffing the matrix cell by cell.
func (g *Graph) Checksum() [highwayhash.Size]byte {
	buf := make([]byte, 0, 8*len(g.overlaps))
	var tmp [8]byte
	for _, v := range g.overlaps {
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
		buf = append(buf, tmp[:]...)
	}
	return highwayhash.Sum(buf, checksumSeed[:])
}

// BestPossibleSegmentation computes the best achievable segmentation of a
// superpixel labeling ws against ground truth gt: build a RAG from each,
// build the RUG between their (padding-stripped) segmentations, assign
// each superpixel to its best-overlapping ground-truth label (excluding
// ties), then merge every superpixel assigned to the same ground-truth
// label by a DFS-preorder walk of the induced subgraph, keeping the
// first-visited node as survivor.
func BestPossibleSegmentation(ws, gt *volume.Volume[uint32]) (*volume.Volume[uint32], error) {
	wsGraph := rag.New(rag.Options{Watershed: ws})
	gtGraph := rag.New(rag.Options{Watershed: gt})

	u, err := New(wsGraph.GetSegmentation(), gtGraph.GetSegmentation())
	if err != nil {
		return nil, err
	}

	assignment := make([][]bool, u.dim1) // assignment[sp] = set of tied-max gt labels
	for sp := 0; sp < u.dim1; sp++ {
		row := u.Row(sp)
		max := row[0]
		for _, v := range row[1:] {
			if v > max {
				max = v
			}
		}
		tied := make([]bool, u.dim2)
		count := 0
		for gtLabel, v := range row {
			if v == max {
				tied[gtLabel] = true
				count++
			}
		}
		if count > 1 {
			// Hard assignment: a superpixel tied between multiple
			// ground-truth labels is excluded from every merge.
			tied = make([]bool, u.dim2)
		}
		assignment[sp] = tied
	}

	for gtLabel := 1; gtLabel < u.dim2; gtLabel++ {
		var members []rag.NodeID
		for sp := 1; sp < u.dim1; sp++ {
			if assignment[sp][gtLabel] {
				members = append(members, rag.NodeID(sp))
			}
		}
		if len(members) == 0 {
			continue
		}
		order := dfsPreorder(wsGraph, members)
		if len(order) == 0 {
			continue
		}
		survivor := order[0]
		for _, absorbed := range order[1:] {
			wsGraph.MergeNodes(survivor, absorbed)
		}
	}

	return wsGraph.GetSegmentation(), nil
}

// dfsPreorder walks the subgraph of g induced by members in depth-first
// preorder, starting from members in ascending order whenever the
// traversal from the current root runs out of reachable nodes (networkx's
// dfs_preorder_nodes over a possibly-disconnected induced subgraph visits
// every component, in node-iteration order).
func dfsPreorder(g *rag.Graph, members []rag.NodeID) []rag.NodeID {
	allowed := make(map[rag.NodeID]bool, len(members))
	for _, m := range members {
		allowed[m] = true
	}
	visited := make(map[rag.NodeID]bool, len(members))
	var order []rag.NodeID
	for _, start := range members {
		if visited[start] {
			continue
		}
		stack := []rag.NodeID{start}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[n] {
				continue
			}
			visited[n] = true
			order = append(order, n)
			neighbors := g.Neighbors(n)
			for i := len(neighbors) - 1; i >= 0; i-- {
				m := neighbors[i]
				if allowed[m] && !visited[m] {
					stack = append(stack, m)
				}
			}
		}
	}
	return order
}
