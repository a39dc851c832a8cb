// Package device implements the polymorphic backend the rest of
// AdaptivePow depends on: a capability set of {init, generate dataset,
// search, cleanup} that the batch driver and CPU verifier never need to
// know is backed by a GPU or by plain Go. Two concrete backends are
// provided: OpenCL, which dispatches the three kernel entry points
// through github.com/robvanmieghem/go-opencl/cl, and CPUReference,
// which runs the identical pipeline in-process using the dataset/mix
// packages the verifier is also built on, and serves as a fallback.
package device

import (
	"context"

	"github.com/adaptivepow/core/batch"
	"github.com/adaptivepow/core/dataset"
)

// Info describes one enumerated compute device, the shape the control
// layer needs to pick devices and report capacity.
type Info struct {
	ID           int
	Name         string
	MemoryBytes  uint64
	FreeBytes    uint64
	ComputeUnits uint32
	Available    bool
}

// DagChunkItems bounds how many DAG items are generated per dispatch.
// Chunking generate_dag this way keeps a single kernel launch short
// enough that a GPU driver's watchdog timer does not kill it; it is a
// dispatch-granularity choice, not part of the dataset's contents.
const DagChunkItems = 1 << 20

// Backend is the capability set a device context drives. It
// deliberately satisfies batch.Searcher so a Backend can be handed
// straight to batch.Driver.RunBatch.
type Backend interface {
	// Init prepares the backend for use (compiling kernels, allocating
	// persistent buffers). It is called once before any other method.
	Init() error

	// GenerateDataset builds the cache and DAG for epoch from seed and
	// returns the materialized DAG (for the GPU backend, read back from
	// device memory) alongside the cache the verifier can fall back to.
	GenerateDataset(ctx context.Context, epoch uint32, seed [32]byte, cacheItems, dagItems uint64) (*dataset.Dag, *dataset.Cache, error)

	batch.Searcher

	// Cleanup releases any resources Init or GenerateDataset acquired.
	Cleanup() error

	// Info reports the device this backend runs on.
	Info() Info
}
