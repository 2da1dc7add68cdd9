// Package metric provides the distance kernels used to rank vectors.
//
// Both functions use SIMD-friendly implementations from internal/simd when
// the host architecture supports them, falling back to a portable scalar
// loop otherwise. The unrolled kernel sums in eight separate accumulators,
// so its result can differ from the naive left-to-right scalar summation
// by rounding; inputs with heavy cancellation can show larger differences.
package metric

import "github.com/Tyooughtul/Vengine/internal/simd"

// L2Squared returns the squared Euclidean distance between a and b.
// Ranking throughout this module uses the squared distance directly;
// taking a square root would be monotonic and is therefore unnecessary.
func L2Squared(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	return simd.SquaredL2(a, b), nil
}

// InnerProduct returns the dot product (inner product) of a and b.
func InnerProduct(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	return simd.Dot(a, b), nil
}

// L2SquaredUnchecked is L2Squared without the length check, for call sites
// that have already validated lengths against a fixed dimension (the
// dataset, k-means, and IVF inner loops).
func L2SquaredUnchecked(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// InnerProductUnchecked is InnerProduct without the length check.
func InnerProductUnchecked(a, b []float32) float32 {
	return simd.Dot(a, b)
}
