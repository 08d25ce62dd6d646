package rag

import "math"

// BoundaryMean is the default merge-priority function: the arithmetic
// mean of the probability map over an edge's boundary cells.
func BoundaryMean(g *Graph, u, v NodeID) float64 {
	cells := g.BoundaryCells(u, v)
	if len(cells) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range cells {
		sum += g.probabilities.At(c)
	}
	return sum / float64(len(cells))
}

// BoundaryMeanPlusSEM returns a priority function scoring an edge as the
// boundary mean plus alpha times the standard error of that mean.
func BoundaryMeanPlusSEM(alpha float64) PriorityFunc {
	return func(g *Graph, u, v NodeID) float64 {
		cells := g.BoundaryCells(u, v)
		n := len(cells)
		if n == 0 {
			return 0
		}
		mean := 0.0
		for _, c := range cells {
			mean += g.probabilities.At(c)
		}
		mean /= float64(n)
		if n < 2 {
			return mean
		}
		var variance float64
		for _, c := range cells {
			d := g.probabilities.At(c) - mean
			variance += d * d
		}
		variance /= float64(n - 1)
		sem := math.Sqrt(variance / float64(n))
		return mean + alpha*sem
	}
}

// ClassifierProbability builds a priority function that extracts features
// for the edge (u,v) and scores them with model, preferring a calibrated
// probability and falling back to a raw predicted score.
func ClassifierProbability(extract FeatureExtractor, model Classifier) PriorityFunc {
	return func(g *Graph, u, v NodeID) float64 {
		features := extract(g, u, v)
		if p, ok := model.PredictProba(features); ok {
			return p
		}
		return model.Predict(features)
	}
}

// MakeLadder wraps base in a size/boundary ladder condition: base is only
// consulted when at least one endpoint is small and off the volume
// boundary; otherwise the wrapper returns a priority so large it never
// wins a merge before threshold-bounded agglomeration exhausts every
// other edge, while still being a finite, comparable float so the heap
// stays well ordered.
func MakeLadder(base PriorityFunc, threshold int, strictness int) PriorityFunc {
	return func(g *Graph, u, v NodeID) float64 {
		s1 := g.ExtentSize(u)
		s2 := g.ExtentSize(v)
		cond := (s1 < threshold && !g.AtVolumeBoundary(u)) ||
			(s2 < threshold && !g.AtVolumeBoundary(v))
		if strictness >= 2 {
			cond = cond && ((s1 < threshold) != (s2 < threshold))
		}
		if strictness >= 3 {
			cond = cond && g.BoundarySize(u, v) > 2
		}
		if cond {
			return base(g, u, v)
		}
		return math.MaxFloat64 / float64(g.segmentation.Size())
	}
}
