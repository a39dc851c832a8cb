package device

import (
	"context"
	"encoding/binary"
	"fmt"

	clpkg "github.com/robvanmieghem/go-opencl/cl"

	"github.com/adaptivepow/core/apowerr"
	"github.com/adaptivepow/core/applog"
	"github.com/adaptivepow/core/batch"
	"github.com/adaptivepow/core/dataset"
	"github.com/adaptivepow/core/mix"
)

// OpenCL is a GPU-backed Backend: one context/queue/program per device,
// three compiled kernels, and a DAG buffer sized to the current epoch's
// dataset that stays resident across searches.
type OpenCL struct {
	log    *applog.Logger
	device *clpkg.Device

	clContext *clpkg.Context
	queue     *clpkg.CommandQueue
	program   *clpkg.Program

	generateCacheKernel *clpkg.Kernel
	generateDagKernel   *clpkg.Kernel
	searchKernel        *clpkg.Kernel

	dagBuf     *clpkg.MemObject
	headerBuf  *clpkg.MemObject
	resultsBuf *clpkg.MemObject
	countBuf   *clpkg.MemObject

	nCache uint64
	nDag   uint64
}

// NewOpenCL wraps a single enumerated OpenCL device as a Backend.
func NewOpenCL(log *applog.Logger, dev *clpkg.Device) *OpenCL {
	return &OpenCL{log: log, device: dev}
}

// Init compiles all three AdaptivePow kernels against this device and
// allocates the small per-batch buffers. The epoch-sized DAG buffer is
// allocated later, in GenerateDataset, once its size is known.
func (b *OpenCL) Init() error {
	clContext, err := clpkg.CreateContext([]*clpkg.Device{b.device})
	if err != nil {
		return apowerr.Wrap(apowerr.DeviceInitFailed, "create context", err)
	}
	b.clContext = clContext

	queue, err := clContext.CreateCommandQueue(b.device, 0)
	if err != nil {
		return apowerr.Wrap(apowerr.DeviceInitFailed, "create command queue", err)
	}
	b.queue = queue

	program, err := clContext.CreateProgramWithSource([]string{programSource})
	if err != nil {
		return apowerr.Wrap(apowerr.KernelBuildFailed, "create program", err)
	}
	if err := program.BuildProgram([]*clpkg.Device{b.device}, ""); err != nil {
		return apowerr.Wrap(apowerr.KernelBuildFailed, "build program", err)
	}
	b.program = program

	b.generateCacheKernel, err = program.CreateKernel("generate_cache")
	if err != nil {
		return apowerr.Wrap(apowerr.KernelBuildFailed, "create generate_cache kernel", err)
	}
	b.generateDagKernel, err = program.CreateKernel("generate_dag")
	if err != nil {
		return apowerr.Wrap(apowerr.KernelBuildFailed, "create generate_dag kernel", err)
	}
	b.searchKernel, err = program.CreateKernel("search")
	if err != nil {
		return apowerr.Wrap(apowerr.KernelBuildFailed, "create search kernel", err)
	}

	b.headerBuf, err = clContext.CreateEmptyBuffer(clpkg.MemReadOnly, mix.HeaderWords*4)
	if err != nil {
		return apowerr.Wrap(apowerr.DeviceInitFailed, "create header buffer", err)
	}
	b.resultsBuf, err = clContext.CreateEmptyBuffer(clpkg.MemReadWrite, batch.ResultCap*8)
	if err != nil {
		return apowerr.Wrap(apowerr.DeviceInitFailed, "create results buffer", err)
	}
	b.countBuf, err = clContext.CreateEmptyBuffer(clpkg.MemReadWrite, 4)
	if err != nil {
		return apowerr.Wrap(apowerr.DeviceInitFailed, "create result count buffer", err)
	}
	return nil
}

// GenerateDataset builds the cache on-device with a single work-item
// (the item chain is inherently sequential), then dispatches
// generate_dag across the full index range in DagChunkItems-sized
// slices using the global work offset. The DAG stays resident on the
// device for search and is also read back into host memory so the CPU
// verifier never depends on GPU state.
func (b *OpenCL) GenerateDataset(ctx context.Context, epoch uint32, seed [32]byte, cacheItems, dagItems uint64) (*dataset.Dag, *dataset.Cache, error) {
	const itemBytes = dataset.WordsPerItem * 4

	cacheBuf, err := b.clContext.CreateEmptyBuffer(clpkg.MemReadWrite, int(cacheItems*itemBytes))
	if err != nil {
		return nil, nil, apowerr.OutOfMemoryErr(cacheItems * itemBytes)
	}
	defer cacheBuf.Release()

	seedCache := dataset.BuildCache(seed, 1) // host seeds item 0 only
	if _, err := b.queue.EnqueueWriteBufferByte(cacheBuf, true, 0, seedCache.Bytes(), nil); err != nil {
		return nil, nil, apowerr.DispatchFailedErr("seed cache", err)
	}

	b.generateCacheKernel.SetArgBuffer(0, cacheBuf)
	b.generateCacheKernel.SetArgUint32(1, uint32(cacheItems))
	// generate_cache runs as a single work-item: item i depends on item
	// i-1, so the chain cannot be parallelized across the index range.
	if _, err := b.queue.EnqueueNDRangeKernel(b.generateCacheKernel, []int{0}, []int{1}, []int{1}, nil); err != nil {
		return nil, nil, apowerr.DispatchFailedErr("generate_cache", err)
	}

	if b.dagBuf != nil {
		b.dagBuf.Release()
		b.dagBuf = nil
	}
	dagBuf, err := b.clContext.CreateEmptyBuffer(clpkg.MemReadWrite, int(dagItems*itemBytes))
	if err != nil {
		return nil, nil, apowerr.OutOfMemoryErr(dagItems * itemBytes)
	}
	b.dagBuf = dagBuf

	b.generateDagKernel.SetArgBuffer(0, cacheBuf)
	b.generateDagKernel.SetArgUint32(1, uint32(cacheItems))
	b.generateDagKernel.SetArgBuffer(2, dagBuf)

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
		if _, err := b.queue.EnqueueNDRangeKernel(b.generateDagKernel, []int{int(start)}, []int{int(end - start)}, nil, nil); err != nil {
			return nil, nil, apowerr.DispatchFailedErr("generate_dag", err)
		}
		if b.log != nil {
			b.log.Debug("generated dag chunk", "epoch", epoch, "start", start, "end", end)
		}
	}

	dagBytes := make([]byte, dagItems*itemBytes)
	if _, err := b.queue.EnqueueReadBufferByte(dagBuf, true, 0, dagBytes, nil); err != nil {
		return nil, nil, apowerr.DispatchFailedErr("read dag", err)
	}
	dag := dataset.NewDagFromBytes(dagBytes)

	cacheBytes := make([]byte, cacheItems*itemBytes)
	if _, err := b.queue.EnqueueReadBufferByte(cacheBuf, true, 0, cacheBytes, nil); err != nil {
		return nil, nil, apowerr.DispatchFailedErr("read cache", err)
	}
	cache := dataset.NewCacheFromBytes(cacheBytes)

	b.nCache = cacheItems
	b.nDag = dagItems
	return dag, cache, nil
}

// Search dispatches the search kernel across count work-items starting
// at startNonce and reads the device's bounded result buffer back into
// results.
func (b *OpenCL) Search(ctx context.Context, header [mix.HeaderWords]uint32, startNonce, count, target uint64, results *batch.ResultBuffer) error {
	if b.dagBuf == nil {
		return apowerr.DatasetNotReadyErr()
	}

	headerBytes := make([]byte, mix.HeaderWords*4)
	for i, w := range header {
		binary.LittleEndian.PutUint32(headerBytes[i*4:], w)
	}
	if _, err := b.queue.EnqueueWriteBufferByte(b.headerBuf, true, 0, headerBytes, nil); err != nil {
		return apowerr.DispatchFailedErr("write header", err)
	}
	zero := make([]byte, 4)
	if _, err := b.queue.EnqueueWriteBufferByte(b.countBuf, true, 0, zero, nil); err != nil {
		return apowerr.DispatchFailedErr("reset result count", err)
	}

	b.searchKernel.SetArgBuffer(0, b.headerBuf)
	b.searchKernel.SetArgUint32(1, uint32(startNonce))
	b.searchKernel.SetArgUint32(2, uint32(startNonce>>32))
	b.searchKernel.SetArgBuffer(3, b.dagBuf)
	b.searchKernel.SetArgUint32(4, uint32(b.nDag))
	b.searchKernel.SetArgUint32(5, uint32(target))
	b.searchKernel.SetArgUint32(6, uint32(target>>32))
	b.searchKernel.SetArgBuffer(7, b.resultsBuf)
	b.searchKernel.SetArgBuffer(8, b.countBuf)
	b.searchKernel.SetArgUint32(9, uint32(batch.ResultCap))

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := b.queue.EnqueueNDRangeKernel(b.searchKernel, []int{0}, []int{int(count)}, nil, nil); err != nil {
		return apowerr.DispatchFailedErr("search", err)
	}

	countBytes := make([]byte, 4)
	if _, err := b.queue.EnqueueReadBufferByte(b.countBuf, true, 0, countBytes, nil); err != nil {
		return apowerr.DispatchFailedErr("read result count", err)
	}
	reported := binary.LittleEndian.Uint32(countBytes)
	toRead := reported
	if toRead > batch.ResultCap {
		toRead = batch.ResultCap
	}
	if toRead > 0 {
		nonceBytes := make([]byte, toRead*8)
		if _, err := b.queue.EnqueueReadBufferByte(b.resultsBuf, true, 0, nonceBytes, nil); err != nil {
			return apowerr.DispatchFailedErr("read results", err)
		}
		for i := uint32(0); i < toRead; i++ {
			results.Report(binary.LittleEndian.Uint64(nonceBytes[i*8:]))
		}
	}
	// The device found more candidates than fit the buffer. Those slots
	// were never written, so just replay enough Report calls to keep
	// TotalReported accurate; ResultBuffer drops anything past capacity.
	for i := uint32(0); i < reported-toRead; i++ {
		results.Report(0)
	}
	return nil
}

func (b *OpenCL) Cleanup() error {
	for _, obj := range []*clpkg.MemObject{b.dagBuf, b.headerBuf, b.resultsBuf, b.countBuf} {
		if obj != nil {
			obj.Release()
		}
	}
	if b.generateCacheKernel != nil {
		b.generateCacheKernel.Release()
	}
	if b.generateDagKernel != nil {
		b.generateDagKernel.Release()
	}
	if b.searchKernel != nil {
		b.searchKernel.Release()
	}
	if b.program != nil {
		b.program.Release()
	}
	if b.queue != nil {
		b.queue.Release()
	}
	if b.clContext != nil {
		b.clContext.Release()
	}
	return nil
}

func (b *OpenCL) Info() Info {
	mem := uint64(b.device.GlobalMemSize())
	return Info{
		Name:         fmt.Sprintf("%s - %s", b.device.Type(), b.device.Name()),
		MemoryBytes:  mem,
		FreeBytes:    mem,
		ComputeUnits: uint32(b.device.MaxComputeUnits()),
		Available:    true,
	}
}
