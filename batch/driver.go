package batch

import (
	"context"
	"sync"
	"time"

	"github.com/adaptivepow/core/apowerr"
	"github.com/adaptivepow/core/dataset"
	"github.com/adaptivepow/core/job"
	"github.com/adaptivepow/core/mix"
	"github.com/adaptivepow/core/verify"
)

// Searcher runs one batch of nonces starting at startNonce against
// header and reports every candidate whose hash passes target into
// results. It is satisfied by the OpenCL backend's search kernel and by
// the CPU-reference backend; Driver is agnostic to which.
type Searcher interface {
	Search(ctx context.Context, header [mix.HeaderWords]uint32, startNonce, count, target uint64, results *ResultBuffer) error
}

// Report summarizes the outcome of one RunBatch call.
type Report struct {
	JobID         string
	TotalHashes   uint64
	Accepted      []job.MiningResult
	RejectedCount int
}

// Driver is the per-device-context batch driver: it owns the dataset
// state machine, the current job and its monotonic nonce cursor, and
// the running hash/accept/reject counters that feed MinerStats. It does
// not know how a batch is actually searched (that is a Searcher) or how
// a DAG is actually built (that is the device package's concern); it
// only sequences the two against the dataset state machine.
type Driver struct {
	mu sync.Mutex

	state DatasetState
	epoch uint32
	dag   *dataset.Dag

	currentJob   *job.MiningJob
	currentNonce uint64

	totalHashes uint64
	accepted    uint64
	rejected    uint64
	startedAt   time.Time
}

// NewDriver creates a Driver in the Uninit state.
func NewDriver() *Driver {
	return &Driver{state: StateUninit, startedAt: time.Now()}
}

// State returns the current dataset state.
func (d *Driver) State() DatasetState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// BeginDatasetGeneration transitions Uninit or Ready into DagGenerating.
// Called before the device package starts building a cache/DAG pair,
// whether for the first epoch or in response to UpdateEpoch.
func (d *Driver) BeginDatasetGeneration(epoch uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateUninit && d.state != StateReady {
		return apowerr.New(apowerr.DeviceInitFailed, "dataset generation requested from state "+d.state.String())
	}
	d.state = StateDagGenerating
	d.epoch = epoch
	return nil
}

// CompleteDatasetGeneration installs dag as the context's resident
// dataset and transitions DagGenerating into Ready.
func (d *Driver) CompleteDatasetGeneration(epoch uint32, dag *dataset.Dag) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch = epoch
	d.dag = dag
	d.state = StateReady
}

// FailDatasetGeneration regresses the context to Uninit after a failed
// cache/DAG build (e.g. an OutOfMemory error), so the caller can retry
// from scratch rather than leaving the context stuck mid-generation.
func (d *Driver) FailDatasetGeneration() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateUninit
}

// UpdateEpoch signals that the epoch has advanced and the current DAG
// is stale. It transitions Ready into DagGenerating; callers must then
// drive BeginDatasetGeneration's caller (the device package) to build
// the new dataset and call CompleteDatasetGeneration. Submitting jobs
// while the transition is pending fails with DatasetNotReady.
func (d *Driver) UpdateEpoch(newEpoch uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateReady {
		return apowerr.New(apowerr.DeviceInitFailed, "epoch update requested from state "+d.state.String())
	}
	d.state = StateDagGenerating
	d.epoch = newEpoch
	return nil
}

// SubmitJob validates j and, if the dataset is Ready or already
// Searching, installs it as the current job with a fresh nonce cursor
// and transitions (or stays) in Searching. Submitting while the
// dataset is DagGenerating or Uninit returns DatasetNotReady, the one
// recoverable error kind: the caller retries once generation finishes.
func (d *Driver) SubmitJob(j job.MiningJob) error {
	if err := j.Validate(); err != nil {
		return apowerr.Wrap(apowerr.InvalidJob, "job rejected", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateReady && d.state != StateSearching {
		return apowerr.DatasetNotReadyErr()
	}
	jobCopy := j
	d.currentJob = &jobCopy
	d.currentNonce = 0
	d.state = StateSearching
	return nil
}

// Shutdown transitions the context into Shutdown. No further batches or
// job submissions are valid afterward.
func (d *Driver) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateShutdown
}

// RunBatch allocates the next BatchSize-wide nonce range for the
// current job, dispatches it through searcher, verifies every reported
// candidate against the resident DAG before counting it accepted, and
// advances the hash/accept/reject counters. total_hashes always
// advances by exactly BatchSize on a successful dispatch, independent
// of how many candidates were found; a failed dispatch advances nothing
// and is not counted.
func (d *Driver) RunBatch(ctx context.Context, searcher Searcher) (Report, error) {
	d.mu.Lock()
	if d.state != StateSearching {
		d.mu.Unlock()
		return Report{}, apowerr.DatasetNotReadyErr()
	}
	j := *d.currentJob
	dag := d.dag
	start := d.currentNonce
	d.mu.Unlock()

	results := NewResultBuffer(ResultCap)
	if err := searcher.Search(ctx, j.Header(), start, BatchSize, j.Target, results); err != nil {
		return Report{}, apowerr.DispatchFailedErr("search", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// The job may have been superseded by a SubmitJob call racing with
	// this dispatch; candidates found against the stale header are
	// discarded by job_id comparison rather than reported upstream.
	superseded := d.currentJob == nil || d.currentJob.JobID != j.JobID
	if !superseded {
		d.currentNonce = start + BatchSize
	}
	d.totalHashes += BatchSize

	report := Report{JobID: j.JobID, TotalHashes: BatchSize}
	if superseded {
		return report, nil
	}

	for _, nonce := range results.Nonces() {
		if verify.WithDag(j.Header(), nonce, j.Target, dag) {
			d.accepted++
			report.Accepted = append(report.Accepted, job.MiningResult{JobID: j.JobID, Nonce: nonce, Found: true})
		} else {
			d.rejected++
			report.RejectedCount++
		}
	}
	return report, nil
}

// Stats snapshots the context's running counters as a MinerStats value.
func (d *Driver) Stats() job.MinerStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	uptime := time.Since(d.startedAt)
	stats := job.MinerStats{
		TotalHashes:   d.totalHashes,
		Accepted:      d.accepted,
		Rejected:      d.rejected,
		CurrentEpoch:  d.epoch,
		UptimeSeconds: uint64(uptime.Seconds()),
	}
	if d.dag != nil {
		stats.DagSize = d.dag.Items() * dataset.WordsPerItem * 4
	}
	if uptime > 0 {
		stats.Hashrate = float64(d.totalHashes) / uptime.Seconds()
	}
	return stats
}
