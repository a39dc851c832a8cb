package dataset

import (
	"runtime"
	"sync"

	"github.com/adaptivepow/core/primitives"
)

// BuildDAG derives the full DAG from a completed cache on the calling
// goroutine. Each DAG index is independent of every other, so the result
// is bit-identical regardless of how the index range is partitioned
// (see BuildDAGParallel), which is what lets the GPU dispatch layer (the
// real generate_dag kernel, one work-item per index) and this
// CPU-equivalent builder agree byte for byte.
func BuildDAG(cache *Cache, nDag uint64) *Dag {
	dag := NewDag(nDag)
	BuildDAGRange(cache, dag, 0, nDag)
	return dag
}

// BuildDAGRange fills dag items [start, end) from cache, single
// threaded. Used by BuildDAG, by BuildDAGParallel for each worker's
// range, by tests, and by the device package's chunked dispatch to bound
// how much work happens between chunk boundaries (chunking exists to
// avoid watchdog kills on real GPUs).
func BuildDAGRange(cache *Cache, dag *Dag, start, end uint64) {
	nCache := cache.Items()
	for i := start; i < end; i++ {
		dagItem(cache, nCache, i, dag.Item(i))
	}
}

// BuildDAGParallel is the multi-worker CPU-reference equivalent of
// dispatching generate_dag across a GPU's compute units: the index range
// is split into contiguous chunks, one per worker, and each chunk is
// generated with BuildDAGRange. Workers never touch each other's output
// range, so no synchronization beyond the final join is needed.
func BuildDAGParallel(cache *Cache, nDag uint64, workers int) *Dag {
	dag := NewDag(nDag)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if uint64(workers) > nDag && nDag > 0 {
		workers = int(nDag)
	}
	if workers <= 1 || nDag == 0 {
		BuildDAGRange(cache, dag, 0, nDag)
		return dag
	}

	chunk := (nDag + uint64(workers) - 1) / uint64(workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := uint64(w) * chunk
		if start >= nDag {
			break
		}
		end := start + chunk
		if end > nDag {
			end = nDag
		}
		wg.Add(1)
		go func(start, end uint64) {
			defer wg.Done()
			BuildDAGRange(cache, dag, start, end)
		}(start, end)
	}
	wg.Wait()
	return dag
}

// LazyDag computes DAG items on demand from a cache instead of
// materializing the full dataset. The verifier uses it to re-check a
// found nonce without paying for a full DAG generation: each lookup
// costs the item's 256 cache-indexed FNV passes, which is cheap next to
// searching a whole batch.
type LazyDag struct {
	cache *Cache
	items uint64
}

// NewLazyDag wraps cache as a DagSource with n items, each recomputed
// from the cache on every Item call.
func NewLazyDag(cache *Cache, n uint64) *LazyDag {
	return &LazyDag{cache: cache, items: n}
}

// Items returns the number of DAG items this view exposes.
func (l *LazyDag) Items() uint64 { return l.items }

// Item recomputes and returns DAG item i. The returned slice is owned by
// the caller and safe to retain.
func (l *LazyDag) Item(i uint64) []uint32 {
	out := make([]uint32, WordsPerItem)
	dagItem(l.cache, l.cache.Items(), i, out)
	return out
}

// dagRounds is the number of FNV1a-mixing rounds each DAG item absorbs
// from the cache.
const dagRounds = 256

func dagItem(cache *Cache, nCache uint64, i uint64, out []uint32) {
	var mix [WordsPerItem]uint32
	copy(mix[:], cache.Item(i%nCache))
	mix[0] ^= uint32(i)

	for round := uint32(0); round < dagRounds; round++ {
		parent := uint64(primitives.FNV1a(uint32(i)^round, mix[0])) % nCache
		parentItem := cache.Item(parent)
		for k := 0; k < WordsPerItem; k++ {
			mix[k] = primitives.FNV1a(mix[k], parentItem[k])
		}
	}
	copy(out, mix[:])
}
