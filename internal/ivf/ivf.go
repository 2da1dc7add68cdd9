// Package ivf implements the inverted-file index: k-means-trained
// centroids partition the corpus into buckets, and search probes a
// query-adaptive subset of those buckets before refining to an exact
// ordering.
//
// The coarse candidate collection is grounded on the teacher's
// internal/queue.PriorityQueue max-heap (see internal/queue); the
// bucket-population phase is grounded on the teacher's parallel
// batch-assignment loops, dispatched through internal/workerpool's
// ParallelFor instead of raw goroutines.
package ivf

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Tyooughtul/Vengine/internal/kmeans"
	"github.com/Tyooughtul/Vengine/internal/queue"
	"github.com/Tyooughtul/Vengine/internal/workerpool"
	"github.com/Tyooughtul/Vengine/metric"
)

// state is the index's build lifecycle, guarded by an atomic so Search
// can check readiness without taking any lock.
type state int32

const (
	stateEmpty state = iota
	stateBuilt
)

// ErrNotBuilt is returned by Search when called before a successful
// Build.
var ErrNotBuilt = fmt.Errorf("ivf: index not built")

// ErrInsufficientData is returned by Build when there are fewer vectors
// than the requested number of lists; it wraps the underlying kmeans
// error.
type ErrInsufficientData struct {
	Err error
}

func (e *ErrInsufficientData) Error() string { return fmt.Sprintf("ivf: build: %v", e.Err) }
func (e *ErrInsufficientData) Unwrap() error { return e.Err }

// Candidate is one scored search result.
type Candidate struct {
	ID       uint64
	Distance float32
}

// Stats is a read-only snapshot of index shape, for observability.
type Stats struct {
	NLists      int
	Built       bool
	BucketSizes []int
}

// Index holds trained centroids and their inverted lists. The zero value
// is not usable; construct with New.
type Index struct {
	dim   int
	state atomic.Int32

	centroids []float32 // nLists * dim, row-major
	nLists    int
	buckets   []*roaring.Bitmap // one per centroid
}

// New returns an empty, unbuilt index over vectors of the given
// dimension.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Build trains nLists centroids over storage (count = len(storage)/dim
// row vectors) and assigns every vector to its nearest centroid's
// bucket, dispatching the assignment phase across pool. maxIter and seed
// are forwarded to the k-means trainer. Each call returns a new, sealed
// Index; an existing Index is never modified. The caller (the engine
// façade) is responsible for serializing access with an exclusive lock.
func Build(ctx context.Context, pool *workerpool.Pool, storage []float32, dim, nLists, maxIter int, seed int64) (*Index, error) {
	result, err := kmeans.Train(storage, dim, nLists, maxIter, seed)
	if err != nil {
		return nil, &ErrInsufficientData{Err: err}
	}

	count := len(storage) / dim
	buckets := make([]*roaring.Bitmap, nLists)
	for i := range buckets {
		buckets[i] = roaring.New()
	}

	assignments := make([]int32, count)
	chunkSize := 256
	if chunkSize > count {
		chunkSize = count
	}
	if chunkSize == 0 {
		chunkSize = 1
	}

	err = workerpool.ParallelFor(ctx, pool, count, chunkSize, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			vec := storage[i*dim : (i+1)*dim]
			best, _ := kmeans.NearestCentroid(vec, result.Centroids, dim)
			assignments[i] = int32(best)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, c := range assignments {
		buckets[c].Add(uint32(i))
	}

	idx := &Index{dim: dim, centroids: result.Centroids, nLists: nLists, buckets: buckets}
	idx.state.Store(int32(stateBuilt))
	return idx, nil
}

// IsBuilt reports whether Build has completed successfully.
func (idx *Index) IsBuilt() bool {
	return state(idx.state.Load()) == stateBuilt
}

// Stats returns a snapshot of the index's current shape.
func (idx *Index) Stats() Stats {
	s := Stats{NLists: idx.nLists, Built: idx.IsBuilt()}
	if !s.Built {
		return s
	}
	s.BucketSizes = make([]int, len(idx.buckets))
	for i, b := range idx.buckets {
		s.BucketSizes[i] = int(b.GetCardinality())
	}
	return s
}

// SearchParams configures the probe-and-refine search.
type SearchParams struct {
	ProbeRatio   float32
	MaxNProbe    int
	RefineFactor int
}

const probeThresholdEpsilon = 1e-6

// Search returns the topK nearest ids to q by L2² distance, ascending by
// distance with ties broken by ascending id. storage is the dataset's
// flat backing array; the caller holds at least a shared lock across the
// call.
func (idx *Index) Search(q []float32, storage []float32, topK int, params SearchParams) ([]Candidate, error) {
	if !idx.IsBuilt() {
		return nil, ErrNotBuilt
	}
	if topK <= 0 {
		return nil, nil
	}

	type centroidDist struct {
		list int
		dist float32
	}
	dists := make([]centroidDist, idx.nLists)
	for j := 0; j < idx.nLists; j++ {
		dists[j] = centroidDist{list: j, dist: metric.L2SquaredUnchecked(q, idx.centroids[j*idx.dim:(j+1)*idx.dim])}
	}
	sort.Slice(dists, func(i, j int) bool {
		if dists[i].dist != dists[j].dist {
			return dists[i].dist < dists[j].dist
		}
		return dists[i].list < dists[j].list
	})

	maxNProbe := params.MaxNProbe
	if maxNProbe <= 0 || maxNProbe > idx.nLists {
		maxNProbe = idx.nLists
	}
	threshold := dists[0].dist*(1+params.ProbeRatio) + probeThresholdEpsilon

	coarseCap := topK * params.RefineFactor
	if coarseCap < topK {
		coarseCap = topK
	}
	coarse := queue.NewBoundedMaxHeap(coarseCap)

	for nProbed := 0; nProbed < len(dists); nProbed++ {
		if nProbed >= maxNProbe {
			break
		}
		if nProbed > 0 && dists[nProbed].dist > threshold {
			break
		}

		bucket := idx.buckets[dists[nProbed].list]
		it := bucket.Iterator()
		for it.HasNext() {
			id := uint64(it.Next())
			vec := storage[id*uint64(idx.dim) : (id+1)*uint64(idx.dim)]
			d := metric.L2SquaredUnchecked(q, vec)
			coarse.Offer(queue.Item{ID: id, Distance: d})
		}
	}

	drained := coarse.Drain()
	if len(drained) > topK {
		drained = drained[:topK]
	}

	out := make([]Candidate, len(drained))
	for i, item := range drained {
		out[i] = Candidate{ID: item.ID, Distance: item.Distance}
	}
	return out, nil
}

// NLists returns the number of inverted lists the index was built with,
// or 0 if unbuilt.
func (idx *Index) NLists() int { return idx.nLists }

// Dim returns the vector dimensionality the index was constructed for.
func (idx *Index) Dim() int { return idx.dim }
