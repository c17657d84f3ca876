package specs

import "time"

// Reserved exit-code taxonomy (spec.md §7). These are produced whenever the
// child never yielded a native exit code; they are disjoint from the
// 0-255 domain a child process is expected to use.
const (
	// ExitArgIncompatible marks an invocation-time argument incompatibility,
	// e.g. a queue sink combined with method=monitor.
	ExitArgIncompatible = -250

	// ExitStopPredicate marks that the StopOn predicate returned true.
	ExitStopPredicate = -251

	// ExitInterrupted marks a keyboard interrupt observed during execution.
	ExitInterrupted = -252

	// ExitSpawnOrIOFailure marks a spawn-time or I/O failure (binary not
	// found, permission denied, OS error).
	ExitSpawnOrIOFailure = -253

	// ExitTimeout marks that the wall-clock timeout elapsed.
	ExitTimeout = -254

	// ExitOther marks any other uncaught failure.
	ExitOther = -255
)

// IsReservedExitCode reports whether code is one the engine itself
// synthesized, as opposed to one a child process actually returned.
func IsReservedExitCode(code int) bool {
	return code <= ExitArgIncompatible && code >= ExitOther
}

// Result is the outcome of a single Run call. A Result is always produced,
// under every failure mode; Run never panics across its public boundary.
type Result struct {
	// ExitCode is the child's native exit code, or a reserved code from the
	// taxonomy above when no native code is available.
	ExitCode int

	// Output is the captured, decoded text when SplitStreams is false.
	// Empty when SplitStreams is true (use Stdout/Stderr instead) and when
	// decoding is disabled (use RawOutput instead).
	Output string

	// Stdout and Stderr hold the captured text per-stream when
	// SplitStreams is true.
	Stdout string
	Stderr string

	// RawOutput, RawStdout, RawStderr mirror Output/Stdout/Stderr when
	// Encoding is disabled (raw bytes, no decoding attempted).
	RawOutput []byte
	RawStdout []byte
	RawStderr []byte

	// PID is the spawned child's process ID, or 0 if the child was never
	// spawned (e.g. ExitArgIncompatible, ExitSpawnOrIOFailure before Start).
	PID int

	// Duration is the wall-clock time from spawn attempt to classification.
	Duration time.Duration

	// CorrelationID identifies this invocation across heartbeat and log
	// events; see internal/supervisor.
	CorrelationID string
}
