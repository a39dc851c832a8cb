// Package apowerr defines the error kinds a device context can fail
// with. DatasetNotReady is the one recoverable kind — callers retry
// after dataset generation completes; every other kind tears the device
// context down.
package apowerr

import "fmt"

// Kind classifies a device-context failure.
type Kind string

const (
	// NoSuchDevice means the requested device id does not exist.
	NoSuchDevice Kind = "no_such_device"
	// DeviceInitFailed means context/queue/program setup failed.
	DeviceInitFailed Kind = "device_init_failed"
	// KernelBuildFailed means the backend failed to compile a kernel.
	KernelBuildFailed Kind = "kernel_build_failed"
	// OutOfMemory means dataset or buffer allocation failed.
	OutOfMemory Kind = "out_of_memory"
	// DatasetNotReady means a job was submitted while the dataset state
	// machine was not in the Ready state. Recoverable: call dataset
	// generation and retry.
	DatasetNotReady Kind = "dataset_not_ready"
	// DispatchFailed means a kernel launch failed.
	DispatchFailed Kind = "dispatch_failed"
	// InvalidJob means a MiningJob failed validation.
	InvalidJob Kind = "invalid_job"
)

// Error is a structured device-context error carrying its Kind and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// BytesRequested is set for OutOfMemory.
	BytesRequested uint64
	// Stage is set for DispatchFailed (e.g. "generate_dag", "search").
	Stage string
}

func (e *Error) Error() string {
	switch {
	case e.Kind == OutOfMemory && e.BytesRequested > 0:
		return fmt.Sprintf("%s: %s (%d bytes requested)", e.Kind, e.Message, e.BytesRequested)
	case e.Kind == DispatchFailed && e.Stage != "":
		return fmt.Sprintf("%s: %s (stage %s)", e.Kind, e.Message, e.Stage)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, apowerr.New(apowerr.DatasetNotReady, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// OutOfMemoryErr creates an OutOfMemory error for the given byte request.
func OutOfMemoryErr(bytesRequested uint64) *Error {
	return &Error{Kind: OutOfMemory, Message: "allocation failed", BytesRequested: bytesRequested}
}

// DispatchFailedErr creates a DispatchFailed error for the given stage.
func DispatchFailedErr(stage string, cause error) *Error {
	return &Error{Kind: DispatchFailed, Message: "kernel launch failed", Stage: stage, Cause: cause}
}

// DatasetNotReadyErr is the sentinel error submit paths return while the
// dataset state machine is not Ready.
func DatasetNotReadyErr() *Error {
	return &Error{Kind: DatasetNotReady, Message: "dataset is not ready"}
}
