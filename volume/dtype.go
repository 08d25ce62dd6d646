package volume

import "math"

// SmallestUintWidth returns the narrowest of 8/16/32/64 bits wide enough
// to represent maxVal. Go volumes are generic over a fixed element type,
// so this helper doesn't narrow storage at runtime; it lets a caller
// assert or report what label width a given basin count would fit in
// (the watershed and rag packages both standardize on uint32 labels
// regardless of the reported width).
func SmallestUintWidth(maxVal uint64) int {
	switch {
	case maxVal <= math.MaxUint8:
		return 8
	case maxVal <= math.MaxUint16:
		return 16
	case maxVal <= math.MaxUint32:
		return 32
	default:
		return 64
	}
}
