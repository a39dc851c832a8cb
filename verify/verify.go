// Package verify provides the deterministic, CPU-only recomputation of
// the mix-search pipeline that every found nonce must pass before it is
// accepted. It never
// trusts a GPU result: it recomputes the hash from scratch, either
// against a materialized DAG or on demand against a cache.
package verify

import (
	"github.com/adaptivepow/core/dataset"
	"github.com/adaptivepow/core/mix"
)

// WithDag recomputes the mix-search kernel for (header, nonce) against a
// materialized DAG and reports whether the candidate passes target.
func WithDag(header [mix.HeaderWords]uint32, nonce uint64, target uint64, dag *dataset.Dag) bool {
	_, ok := mix.Search(header, nonce, dag, target)
	return ok
}

// WithCache recomputes the mix-search kernel for (header, nonce)
// against DAG items reconstructed on demand from cache, for callers that
// have not (or cannot) materialize the full DAG. nDagItems is the DAG
// item count for the epoch the cache belongs to (epoch.DagItems).
func WithCache(header [mix.HeaderWords]uint32, nonce uint64, target uint64, cache *dataset.Cache, nDagItems uint64) bool {
	lazy := dataset.NewLazyDag(cache, nDagItems)
	_, ok := mix.Search(header, nonce, lazy, target)
	return ok
}

// HashHigh recomputes the mix-search kernel and returns the resulting
// top-64-bit hash without comparing it to any target, for callers that
// want the raw value (e.g. to cross-check a reported hash bit-for-bit).
func HashHigh(header [mix.HeaderWords]uint32, nonce uint64, dag *dataset.Dag) uint64 {
	h, _ := mix.Search(header, nonce, dag, ^uint64(0))
	return h
}
