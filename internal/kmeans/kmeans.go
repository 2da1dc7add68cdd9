// Package kmeans implements Lloyd's algorithm over flat float32 storage,
// producing the centroids an IVF index partitions its buckets around.
//
// Grounded on the teacher's internal/kmeans.TrainKMeans (same assignment
// step, convergence check, sum/count update loop), with two deliberate
// deviations the surrounding specification requires: centroid
// initialization samples *distinct* indices, and an empty cluster retains
// its previous centroid instead of being reseeded to a random point.
package kmeans

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Tyooughtul/Vengine/metric"
)

// ErrInsufficientData is returned when there are fewer vectors than the
// requested number of clusters.
type ErrInsufficientData struct {
	Count int
	K     int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("kmeans: insufficient data: count=%d < k=%d", e.Count, e.K)
}

// Result holds the trained centroids and the number of Lloyd iterations
// actually run before convergence or the iteration cap.
type Result struct {
	Centroids  []float32 // k * dim, row-major
	Iterations int
}

// Train runs Lloyd's algorithm over storage (count = len(storage)/dim row
// vectors) with k clusters, a deterministic seed for centroid
// initialization, and an iteration cap.
//
// Tie-breaks in the nearest-centroid argmin favor the lowest centroid
// index, making the whole run deterministic given (storage, k, seed).
func Train(storage []float32, dim, k, maxIter int, seed int64) (*Result, error) {
	count := len(storage) / dim
	if count < k {
		return nil, &ErrInsufficientData{Count: count, K: k}
	}
	if k <= 0 {
		return &Result{Centroids: nil, Iterations: 0}, nil
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := make([]float32, k*dim)
	for i, idx := range rng.Perm(count)[:k] {
		copy(centroids[i*dim:(i+1)*dim], storage[idx*dim:(idx+1)*dim])
	}

	assignments := make([]int, count)
	for i := range assignments {
		assignments[i] = -1 // sentinel: no vector has a real assignment yet
	}
	sums := make([]float32, k*dim)
	counts := make([]int, k)

	iterations := 0
	for iter := 0; iter < maxIter; iter++ {
		iterations = iter + 1
		changed := 0

		for i := 0; i < count; i++ {
			vec := storage[i*dim : (i+1)*dim]
			best, bestDist := nearestCentroid(vec, centroids, dim)
			if assignments[i] != best {
				assignments[i] = best
				changed++
			}
			_ = bestDist
		}

		if iter > 0 && changed == 0 {
			iterations = iter
			break
		}

		for i := range sums {
			sums[i] = 0
		}
		for i := range counts {
			counts[i] = 0
		}

		for i := 0; i < count; i++ {
			c := assignments[i]
			vec := storage[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += vec[d]
			}
			counts[c]++
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty-cluster policy: retain the previous centroid rather
				// than zeroing it or reseeding to a random point. The IVF
				// build still places every vector into some bucket, so an
				// unchanged, merely-unused centroid is harmless.
				continue
			}
			inv := 1.0 / float32(counts[c])
			for d := 0; d < dim; d++ {
				centroids[c*dim+d] = sums[c*dim+d] * inv
			}
		}
	}

	return &Result{Centroids: centroids, Iterations: iterations}, nil
}

// nearestCentroid returns the index of, and squared L2 distance to, the
// centroid closest to vec. Ties favor the lowest index.
func nearestCentroid(vec, centroids []float32, dim int) (int, float32) {
	k := len(centroids) / dim
	best := 0
	bestDist := float32(math.MaxFloat32)
	for c := 0; c < k; c++ {
		d := metric.L2SquaredUnchecked(vec, centroids[c*dim:(c+1)*dim])
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best, bestDist
}

// NearestCentroid exposes the same tie-break rule used during training, for
// the IVF build's bucket-assignment phase.
func NearestCentroid(vec, centroids []float32, dim int) (int, float32) {
	return nearestCentroid(vec, centroids, dim)
}
