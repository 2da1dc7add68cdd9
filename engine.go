package ivfengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Tyooughtul/Vengine/internal/dataset"
	"github.com/Tyooughtul/Vengine/internal/ivf"
	"github.com/Tyooughtul/Vengine/internal/rwlock"
	"github.com/Tyooughtul/Vengine/internal/walog"
	"github.com/Tyooughtul/Vengine/internal/workerpool"
)

// SearchResult is one ranked hit: a dataset id paired with its distance
// to the query.
type SearchResult struct {
	ID       uint64
	Distance float32
}

// EngineStats is a read-only snapshot of the engine's current shape, for
// observability.
type EngineStats struct {
	Count  uint64
	Dim    int
	Built  bool
	NLists int
}

// Engine is the façade: the only entity in this module that mutates
// state. AddVector, BuildIndex, and Search are its core operations, with
// Stats and Close completing the public surface; each of the three core
// operations acquires the engine's reader/writer lock
// before touching the dataset or the index, then (if applicable) calls
// into the WAL — never the reverse, so the lock-nesting order can never
// invert.
type Engine struct {
	cfg    Config
	log    *Logger
	lock   *rwlock.RWLock
	data   *dataset.Dataset
	index  *ivf.Index
	wal    *walog.WAL
	pool   *workerpool.Pool
	closed bool
}

// New constructs an Engine over vectors of the given dimension. If
// WithWALPath was supplied and the log file already exists, its
// ADD_VECTOR records are replayed into the dataset before New returns.
func New(dim int, opts ...Option) (*Engine, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("ivfengine: dim must be positive, got %d", dim)
	}

	cfg := defaultConfig(dim)
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		cfg:   cfg,
		log:   NewLogger(cfg.logger),
		lock:  rwlock.New(),
		data:  dataset.New(dim),
		index: ivf.New(dim),
		pool:  workerpool.New(cfg.workers),
	}

	if cfg.walPath != "" {
		replayed := 0
		replay := func(op, payload string) error {
			if op != walog.OpAddVector {
				return walog.ErrUnrecognizedOp
			}
			v, err := walog.DecodeVector(payload)
			if err != nil {
				// A corrupt record is logged and skipped; recovery continues.
				e.log.Warn("WAL recovery: skipping corrupt record", "error", err)
				return nil
			}
			if _, err := e.data.Add(v); err != nil {
				return err
			}
			replayed++
			return nil
		}

		w, err := walog.Open(cfg.walPath, replay, cfg.logger)
		if err != nil {
			e.pool.Close()
			return nil, translateError(err)
		}
		e.wal = w
		e.log.logRecovery(replayed, nil)
	}

	return e, nil
}

// AddVector appends v to the dataset, durably logging it first if a WAL
// is configured. The returned id is dense and 0-based.
func (e *Engine) AddVector(v []float32) (uint64, error) {
	if len(v) != e.data.Dim() {
		err := translateError(&dataset.ErrDimensionMismatch{Expected: e.data.Dim(), Actual: len(v)})
		e.log.logAdd(0, err)
		return 0, err
	}

	guard := e.lock.LockExclusive()
	defer guard.Release()

	if e.closed {
		e.log.logAdd(0, ErrClosed)
		return 0, ErrClosed
	}

	if e.wal != nil {
		if err := e.wal.Append(walog.OpAddVector, walog.EncodeVector(v)); err != nil {
			err = translateError(err)
			e.log.logAdd(0, err)
			return 0, err
		}
	}

	id, err := e.data.Add(v)
	if err != nil {
		err = translateError(err)
		e.log.logAdd(0, err)
		return 0, err
	}

	e.log.logAdd(id, nil)
	return id, nil
}

// BuildIndex trains nLists centroids over the current dataset and
// populates the inverted lists, replacing any previously built index. On
// success, the write-ahead log (if any) is checkpointed: every record is
// truncated away. The dataset and the index are held only in memory, so
// vectors added before a successful BuildIndex are not replayed when the
// engine is reopened on the same log.
func (e *Engine) BuildIndex(nLists int) error {
	start := time.Now()

	guard := e.lock.LockExclusive()
	defer guard.Release()

	if e.closed {
		e.log.logBuild(nLists, time.Since(start).Seconds(), ErrClosed)
		return ErrClosed
	}

	storage, count := e.data.Snapshot()
	if nLists <= 0 {
		err := fmt.Errorf("%w: %w", ErrInsufficientData, &invalidNLists{nLists: nLists})
		e.log.logBuild(nLists, time.Since(start).Seconds(), err)
		return err
	}
	if uint64(nLists) > count {
		err := fmt.Errorf("%w: %w", ErrInsufficientData, &insufficientBuildData{count: count, nLists: nLists})
		e.log.logBuild(nLists, time.Since(start).Seconds(), err)
		return err
	}

	built, err := ivf.Build(context.Background(), e.pool, storage, e.data.Dim(), nLists, e.cfg.kmeansMaxIter, e.cfg.kmeansSeed)
	if err != nil {
		err = translateError(err)
		e.log.logBuild(nLists, time.Since(start).Seconds(), err)
		return err
	}
	e.index = built

	if e.wal != nil {
		if err := e.wal.Checkpoint(); err != nil {
			err = translateError(err)
			e.log.logBuild(nLists, time.Since(start).Seconds(), err)
			return err
		}
	}

	e.log.logBuild(nLists, time.Since(start).Seconds(), nil)
	return nil
}

// insufficientBuildData is a thin local marker so translateError's shape
// stays uniform; the ivf/kmeans packages raise the same condition once
// Build actually runs, this just short-circuits it before storage is
// touched when nLists alone is already impossible.
type insufficientBuildData struct {
	count  uint64
	nLists int
}

func (e *insufficientBuildData) Error() string {
	return fmt.Sprintf("ivfengine: n_lists=%d exceeds vector count=%d", e.nLists, e.count)
}

// invalidNLists marks the n_lists<=0 case: kmeans.Train treats k<=0 as
// "no centroids" and returns a nil centroid set, which would otherwise
// reach ivf.Build's bucket-population loop and index into a zero-length
// bucket slice.
type invalidNLists struct {
	nLists int
}

func (e *invalidNLists) Error() string {
	return fmt.Sprintf("ivfengine: n_lists must be positive, got %d", e.nLists)
}

// searchParams configures one Search call. Construct via SearchOption
// functions.
type searchParams struct {
	probeRatio   float32
	maxNProbe    int
	refineFactor int
}

// SearchOption configures a single Search call.
type SearchOption func(*searchParams)

// WithProbeRatio sets the fractional slack around the best centroid
// distance used to decide which buckets to probe. Default 0.2.
func WithProbeRatio(ratio float32) SearchOption {
	return func(p *searchParams) { p.probeRatio = ratio }
}

// WithMaxNProbe caps the number of buckets probed regardless of
// probe_ratio. Default 20.
func WithMaxNProbe(n int) SearchOption {
	return func(p *searchParams) { p.maxNProbe = n }
}

// WithRefineFactor sets the oversampling factor for the coarse candidate
// pool ahead of the exact refine sort. Default 5.
func WithRefineFactor(n int) SearchOption {
	return func(p *searchParams) { p.refineFactor = n }
}

// Search returns the topK nearest vectors to q by squared L2 distance,
// ascending by distance with ties broken by ascending id. k=0 returns no
// results; k greater than the dataset size returns every vector, and such
// a call probes every bucket whatever the probe options say.
func (e *Engine) Search(q []float32, topK int, opts ...SearchOption) ([]SearchResult, error) {
	if len(q) != e.data.Dim() {
		err := translateError(&dataset.ErrDimensionMismatch{Expected: e.data.Dim(), Actual: len(q)})
		e.log.logSearch(topK, 0, err)
		return nil, err
	}

	params := searchParams{probeRatio: 0.2, maxNProbe: 20, refineFactor: 5}
	for _, opt := range opts {
		opt(&params)
	}

	guard := e.lock.LockShared()
	defer guard.Release()

	if e.closed {
		e.log.logSearch(topK, 0, ErrClosed)
		return nil, ErrClosed
	}

	storage, count := e.data.Snapshot()
	if topK > int(count) {
		topK = int(count)
		// Every vector is requested, so no bucket may be pruned.
		params.probeRatio = float32(math.Inf(1))
		params.maxNProbe = 0 // ivf treats <= 0 as "all lists"
	}

	candidates, err := e.index.Search(q, storage, topK, ivf.SearchParams{
		ProbeRatio:   params.probeRatio,
		MaxNProbe:    params.maxNProbe,
		RefineFactor: params.refineFactor,
	})
	if err != nil {
		err = translateError(err)
		e.log.logSearch(topK, 0, err)
		return nil, err
	}

	out := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		out[i] = SearchResult{ID: c.ID, Distance: c.Distance}
	}
	e.log.logSearch(topK, len(out), nil)
	return out, nil
}

// Stats returns a snapshot of the engine's current shape.
func (e *Engine) Stats() EngineStats {
	guard := e.lock.LockShared()
	defer guard.Release()

	_, count := e.data.Snapshot()
	idxStats := e.index.Stats()
	return EngineStats{
		Count:  count,
		Dim:    e.data.Dim(),
		Built:  idxStats.Built,
		NLists: idxStats.NLists,
	}
}

// Close shuts down the worker pool and closes the write-ahead log, if
// any. After Close returns, AddVector, BuildIndex, and Search all return
// ErrClosed. Close itself is idempotent.
func (e *Engine) Close() error {
	guard := e.lock.LockExclusive()
	alreadyClosed := e.closed
	e.closed = true
	guard.Release()

	if alreadyClosed {
		return nil
	}

	e.pool.Close()
	if e.wal != nil {
		return translateError(e.wal.Close())
	}
	return nil
}
