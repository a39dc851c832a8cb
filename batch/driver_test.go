package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/adaptivepow/core/apowerr"
	"github.com/adaptivepow/core/dataset"
	"github.com/adaptivepow/core/job"
)

func testDag() *dataset.Dag {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	cache := dataset.BuildCache(seed, 8)
	return dataset.BuildDAG(cache, 16)
}

func testJob(id string) job.MiningJob {
	return job.MiningJob{JobID: id, NTime: 1, NBits: 2, Target: ^uint64(0)}
}

// fakeSearcher reports a fixed set of nonces and, optionally, submits a
// new job on the driver mid-dispatch to exercise the superseded-job
// discard path.
type fakeSearcher struct {
	nonces   []uint64
	err      error
	resubmit *Driver
	resubJob job.MiningJob
}

func (f *fakeSearcher) Search(ctx context.Context, header [20]uint32, start, count, target uint64, results *ResultBuffer) error {
	if f.err != nil {
		return f.err
	}
	if f.resubmit != nil {
		f.resubmit.SubmitJob(f.resubJob)
	}
	for _, n := range f.nonces {
		results.Report(n)
	}
	return nil
}

func readyDriver(t *testing.T) *Driver {
	t.Helper()
	d := NewDriver()
	if err := d.BeginDatasetGeneration(1); err != nil {
		t.Fatalf("BeginDatasetGeneration: %v", err)
	}
	d.CompleteDatasetGeneration(1, testDag())
	return d
}

func TestStateMachineTransitions(t *testing.T) {
	d := NewDriver()
	if d.State() != StateUninit {
		t.Fatalf("new driver state = %v, want Uninit", d.State())
	}
	if err := d.BeginDatasetGeneration(1); err != nil {
		t.Fatalf("BeginDatasetGeneration: %v", err)
	}
	if d.State() != StateDagGenerating {
		t.Fatalf("state = %v, want DagGenerating", d.State())
	}
	if err := d.SubmitJob(testJob("a")); err == nil {
		t.Error("SubmitJob during DagGenerating must fail with DatasetNotReady")
	}
	d.CompleteDatasetGeneration(1, testDag())
	if d.State() != StateReady {
		t.Fatalf("state = %v, want Ready", d.State())
	}
	if err := d.SubmitJob(testJob("a")); err != nil {
		t.Fatalf("SubmitJob while Ready: %v", err)
	}
	if d.State() != StateSearching {
		t.Fatalf("state = %v, want Searching", d.State())
	}
}

func TestUpdateEpochRequiresReady(t *testing.T) {
	d := NewDriver()
	if err := d.UpdateEpoch(2); err == nil {
		t.Error("UpdateEpoch from Uninit must fail")
	}
	d = readyDriver(t)
	if err := d.UpdateEpoch(2); err != nil {
		t.Fatalf("UpdateEpoch from Ready: %v", err)
	}
	if d.State() != StateDagGenerating {
		t.Fatalf("state = %v, want DagGenerating", d.State())
	}
}

func TestSubmitJobRejectsInvalidJob(t *testing.T) {
	d := readyDriver(t)
	if err := d.SubmitJob(job.MiningJob{}); err == nil {
		t.Error("empty job_id must be rejected even when Ready")
	}
}

func TestSubmitJobAfterEpochUpdateUntilRegeneration(t *testing.T) {
	d := readyDriver(t)
	if err := d.UpdateEpoch(2); err != nil {
		t.Fatalf("UpdateEpoch: %v", err)
	}
	err := d.SubmitJob(testJob("a"))
	if err == nil {
		t.Fatal("SubmitJob after UpdateEpoch must fail until the new DAG exists")
	}
	if !errors.Is(err, apowerr.DatasetNotReadyErr()) {
		t.Fatalf("SubmitJob error = %v, want DatasetNotReady", err)
	}
	d.CompleteDatasetGeneration(2, testDag())
	if err := d.SubmitJob(testJob("a")); err != nil {
		t.Fatalf("SubmitJob after regeneration: %v", err)
	}
	if got := d.Stats().CurrentEpoch; got != 2 {
		t.Errorf("CurrentEpoch = %d, want 2", got)
	}
}

func TestRunBatchAdvancesNonceAndCounts(t *testing.T) {
	d := readyDriver(t)
	j := testJob("job-a")
	if err := d.SubmitJob(j); err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	searcher := &fakeSearcher{nonces: []uint64{10, 20, 30}}
	report, err := d.RunBatch(context.Background(), searcher)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if report.TotalHashes != BatchSize {
		t.Errorf("TotalHashes = %d, want %d", report.TotalHashes, BatchSize)
	}
	if len(report.Accepted) != 3 {
		t.Fatalf("Accepted = %d, want 3 (target is max uint64)", len(report.Accepted))
	}

	stats := d.Stats()
	if stats.TotalHashes != BatchSize {
		t.Errorf("stats.TotalHashes = %d, want %d", stats.TotalHashes, BatchSize)
	}
	if stats.Accepted != 3 {
		t.Errorf("stats.Accepted = %d, want 3", stats.Accepted)
	}

	// A second batch must start where the first left off.
	second := &fakeSearcher{}
	if _, err := d.RunBatch(context.Background(), second); err != nil {
		t.Fatalf("second RunBatch: %v", err)
	}
	if d.currentNonce != 2*BatchSize {
		t.Errorf("currentNonce = %d, want %d", d.currentNonce, 2*BatchSize)
	}
}

func TestRunBatchFailedDispatchNotCounted(t *testing.T) {
	d := readyDriver(t)
	if err := d.SubmitJob(testJob("job-a")); err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	searcher := &fakeSearcher{err: errors.New("launch failed")}
	if _, err := d.RunBatch(context.Background(), searcher); err == nil {
		t.Error("failed dispatch must return an error")
	}
	if d.totalHashes != 0 {
		t.Errorf("totalHashes = %d, want 0 after a failed dispatch", d.totalHashes)
	}
	if d.currentNonce != 0 {
		t.Errorf("currentNonce = %d, want 0 after a failed dispatch", d.currentNonce)
	}
}

func TestRunBatchDiscardsResultsForSupersededJob(t *testing.T) {
	d := readyDriver(t)
	if err := d.SubmitJob(testJob("job-a")); err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	searcher := &fakeSearcher{
		nonces:   []uint64{1, 2, 3},
		resubmit: d,
		resubJob: testJob("job-b"),
	}
	report, err := d.RunBatch(context.Background(), searcher)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(report.Accepted) != 0 {
		t.Error("candidates found against a superseded job must be discarded")
	}
	if d.currentJob.JobID != "job-b" {
		t.Errorf("currentJob.JobID = %q, want job-b", d.currentJob.JobID)
	}
}

func TestResultBufferDropsPastCapacity(t *testing.T) {
	rb := NewResultBuffer(2)
	for i := uint64(0); i < 5; i++ {
		rb.Report(i)
	}
	if rb.TotalReported() != 5 {
		t.Errorf("TotalReported = %d, want 5", rb.TotalReported())
	}
	if len(rb.Nonces()) != 2 {
		t.Errorf("Nonces() length = %d, want 2 (capacity)", len(rb.Nonces()))
	}
}
