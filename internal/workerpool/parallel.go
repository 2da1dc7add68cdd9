package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ParallelFor is the Go-native reduction of a parallel-for annotation:
// partition [0, n) into chunks of chunkSize, submit one task per chunk to
// the pool, and wait for all of them, short-circuiting on the first error.
//
// Outstanding chunks from a single ParallelFor call are capped at
// 2*p.NumWorkers() in flight via a weighted semaphore, mirroring the
// bounded-concurrency pattern used for I/O fan-out elsewhere in this
// codebase's lineage (blobstore.SetLimit-style backpressure).
func ParallelFor(ctx context.Context, p *Pool, n, chunkSize int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = n
	}

	sem := semaphore.NewWeighted(int64(2 * p.NumWorkers()))
	g, gctx := errgroup.WithContext(ctx)

	for lo := 0; lo < n; lo += chunkSize {
		lo := lo
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		fut, err := Submit(gctx, p, func() (struct{}, error) {
			defer sem.Release(1)
			return struct{}{}, fn(lo, hi)
		})
		if err != nil {
			sem.Release(1)
			return err
		}

		g.Go(func() error {
			_, err := fut.Await(gctx)
			return err
		})
	}

	return g.Wait()
}
