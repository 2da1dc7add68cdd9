package ivfengine

import "log/slog"

// Config holds the engine's construction-time parameters. Build one via
// New's functional options rather than directly.
type Config struct {
	dim           int
	walPath       string
	workers       int
	kmeansMaxIter int
	kmeansSeed    int64
	logger        *slog.Logger
}

func defaultConfig(dim int) Config {
	return Config{
		dim:           dim,
		walPath:       "",
		workers:       0, // 0 => workerpool.New defaults to GOMAXPROCS
		kmeansMaxIter: 20,
		kmeansSeed:    42,
		logger:        nil,
	}
}

// Option configures an Engine at construction time.
type Option func(*Config)

// WithWALPath sets the write-ahead log's file path. An empty path (the
// default) keeps the engine entirely in memory with no durability.
func WithWALPath(path string) Option {
	return func(c *Config) { c.walPath = path }
}

// WithWorkers sets the worker pool's goroutine count. n <= 0 defaults to
// runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *Config) { c.workers = n }
}

// WithKMeansMaxIter sets the iteration cap for centroid training.
func WithKMeansMaxIter(n int) Option {
	return func(c *Config) { c.kmeansMaxIter = n }
}

// WithKMeansSeed sets the deterministic PRNG seed used for centroid
// initialization.
func WithKMeansSeed(seed int64) Option {
	return func(c *Config) { c.kmeansSeed = seed }
}

// WithLogger injects a structured logger. The default is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.logger = logger }
}
