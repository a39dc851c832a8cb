package device

import (
	"context"
	"runtime"
	"sync"

	"github.com/adaptivepow/core/apowerr"
	"github.com/adaptivepow/core/applog"
	"github.com/adaptivepow/core/batch"
	"github.com/adaptivepow/core/dataset"
	"github.com/adaptivepow/core/mix"
)

// CPUReference runs the full AdaptivePow pipeline in-process, with no
// GPU involved. It is built on the same dataset/mix packages the
// verifier uses and serves as a mining backend for machines with no
// usable OpenCL device.
type CPUReference struct {
	log     *applog.Logger
	workers int

	dag   *dataset.Dag
	cache *dataset.Cache
}

// NewCPUReference creates a CPUReference backend. workers <= 0 uses
// runtime.NumCPU.
func NewCPUReference(log *applog.Logger, workers int) *CPUReference {
	return &CPUReference{log: log, workers: workers}
}

func (b *CPUReference) Init() error { return nil }

// GenerateDataset builds the cache sequentially (the item chain is
// inherently serial) and the DAG in parallel across workers, chunked at
// DagChunkItems so its shape mirrors the GPU backend's dispatch
// granularity even though a goroutine loop has no watchdog to dodge.
func (b *CPUReference) GenerateDataset(ctx context.Context, epoch uint32, seed [32]byte, cacheItems, dagItems uint64) (*dataset.Dag, *dataset.Cache, error) {
	cache := dataset.BuildCache(seed, cacheItems)
	dag := dataset.NewDag(dagItems)

	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	for start := uint64(0); start < dagItems; start += DagChunkItems {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		end := start + DagChunkItems
		if end > dagItems {
			end = dagItems
		}
		buildRangeParallel(cache, dag, start, end, workers)
		if b.log != nil {
			b.log.Debug("generated dag chunk", "epoch", epoch, "start", start, "end", end)
		}
	}

	b.cache = cache
	b.dag = dag
	return dag, cache, nil
}

// Search runs the mix pipeline for every nonce in [startNonce, startNonce+count)
// across worker goroutines, reporting candidates into results exactly as
// a GPU kernel's work-items would.
func (b *CPUReference) Search(ctx context.Context, header [mix.HeaderWords]uint32, startNonce, count, target uint64, results *batch.ResultBuffer) error {
	if b.dag == nil {
		return apowerr.DatasetNotReadyErr()
	}

	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if uint64(workers) > count {
		workers = int(count)
	}
	if workers <= 0 {
		workers = 1
	}

	chunk := (count + uint64(workers) - 1) / uint64(workers)
	done := make(chan error, workers)
	for w := 0; w < workers; w++ {
		lo := startNonce + uint64(w)*chunk
		hi := lo + chunk
		if lo-startNonce >= count {
			done <- nil
			continue
		}
		if hi-startNonce > count {
			hi = startNonce + count
		}
		go func(lo, hi uint64) {
			for nonce := lo; nonce < hi; nonce++ {
				select {
				case <-ctx.Done():
					done <- ctx.Err()
					return
				default:
				}
				if _, ok := mix.Search(header, nonce, b.dag, target); ok {
					results.Report(nonce)
				}
			}
			done <- nil
		}(lo, hi)
	}
	for i := 0; i < workers; i++ {
		if err := <-done; err != nil {
			return err
		}
	}
	return nil
}

func (b *CPUReference) Cleanup() error {
	b.dag = nil
	b.cache = nil
	return nil
}

func (b *CPUReference) Info() Info {
	return Info{ID: -1, Name: "cpu-reference", ComputeUnits: uint32(runtime.NumCPU()), Available: true}
}

// buildRangeParallel fills dag items [start, end) from cache, splitting
// the range across workers. Unlike dataset.BuildDAGParallel, which
// always starts its own index space at zero, this keeps each item's
// absolute DAG index intact: an item's contents depend on its own
// index, not its position within a dispatch chunk.
func buildRangeParallel(cache *dataset.Cache, dag *dataset.Dag, start, end uint64, workers int) {
	n := end - start
	if workers <= 1 || n <= 1 {
		dataset.BuildDAGRange(cache, dag, start, end)
		return
	}
	if uint64(workers) > n {
		workers = int(n)
	}
	step := (n + uint64(workers) - 1) / uint64(workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := start + uint64(w)*step
		if lo >= end {
			break
		}
		hi := lo + step
		if hi > end {
			hi = end
		}
		wg.Add(1)
		go func(lo, hi uint64) {
			defer wg.Done()
			dataset.BuildDAGRange(cache, dag, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
