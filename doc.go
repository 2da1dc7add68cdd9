// Package ivfengine is an embedded approximate-nearest-neighbor search
// engine over fixed-dimension float32 vectors. It partitions the corpus
// into centroid-addressed buckets (an inverted-file, or IVF, index) and
// answers queries by probing a small, query-adaptive subset of those
// buckets before refining to an exact ordering.
//
// # Quick Start
//
//	eng, _ := ivfengine.New(128, ivfengine.WithWALPath("./data.wal"))
//	id, _ := eng.AddVector(vec)
//	eng.BuildIndex(64)
//	results, _ := eng.Search(query, 10)
//
// The engine owns its dataset, its index, its write-ahead log, and its
// worker pool exclusively; callers never receive references into engine
// state, only copied result values.
package ivfengine
