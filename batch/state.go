// Package batch implements the nonce-range batch driver: the state
// machine each device context runs through, the monotonic per-job nonce
// cursor, the bounded results sampler, and hash-rate accounting.
package batch

// DatasetState is the lifecycle of a device context's dataset:
// Uninit -> DagGenerating -> Ready -> (Searching <-> Ready) -> Shutdown.
type DatasetState int32

const (
	// StateUninit is the initial state: no dataset has been built yet.
	StateUninit DatasetState = iota
	// StateDagGenerating means cache/DAG generation is in progress.
	StateDagGenerating
	// StateReady means a DAG is resident and jobs may be submitted.
	StateReady
	// StateSearching means a job is active and batches may be run.
	StateSearching
	// StateShutdown means the context has been torn down.
	StateShutdown
)

func (s DatasetState) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateDagGenerating:
		return "dag_generating"
	case StateReady:
		return "ready"
	case StateSearching:
		return "searching"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
