// Package cmdrunner executes external commands with strict bounds on
// latency, resource usage, and observability. Run launches a child
// process, multiplexes its stdout/stderr while it runs, enforces a
// wall-clock deadline, honors cancellation, terminates the whole process
// subtree on any failure path, and always returns a Result — including
// under spawn failures, host failures, or a caller-triggered interrupt.
//
// Run never panics across its public boundary and never returns a nil
// *Result: every failure mode is mapped onto the reserved exit-code
// taxonomy (ExitTimeout, ExitStopPredicate, ...) documented alongside
// Result.
package cmdrunner

import (
	"context"

	"github.com/riftproc/cmdrunner/internal/specs"
	"github.com/riftproc/cmdrunner/internal/supervisor"
)

// Re-exported types: the public surface lives in internal/specs so that
// internal packages (internal/supervisor, internal/classify, ...) can
// depend on it without importing this root package back.
type (
	Command  = specs.Command
	Options  = specs.Options
	Option   = specs.Option
	Result   = specs.Result
	Method   = specs.Method
	Priority = specs.Priority
	SinkKind = specs.SinkKind
	SinkSpec = specs.SinkSpec
)

// Reserved exit-code taxonomy (spec.md §7).
const (
	ExitArgIncompatible = specs.ExitArgIncompatible
	ExitStopPredicate   = specs.ExitStopPredicate
	ExitInterrupted     = specs.ExitInterrupted
	ExitSpawnOrIOFailure = specs.ExitSpawnOrIOFailure
	ExitTimeout          = specs.ExitTimeout
	ExitOther            = specs.ExitOther
)

const (
	MethodPoller  = specs.MethodPoller
	MethodMonitor = specs.MethodMonitor
)

const (
	PriorityNormal = specs.PriorityNormal
	PriorityLow    = specs.PriorityLow
	PriorityHigh   = specs.PriorityHigh
)

// Command / sink constructors.
var (
	New              = specs.New
	Shell            = specs.Shell
	Pipe             = specs.Pipe
	DevNull          = specs.DevNull
	ToFile           = specs.ToFile
	ToQueue          = specs.ToQueue
	ToCallback       = specs.ToCallback
	MergeIntoStdout  = specs.MergeIntoStdout
	DefaultOptions   = specs.DefaultOptions
	Build            = specs.Build
	IsReservedExitCode = specs.IsReservedExitCode
)

// Functional options.
var (
	WithShell           = specs.WithShell
	WithTimeout         = specs.WithTimeout
	WithEncoding        = specs.WithEncoding
	WithEncodingDisabled = specs.WithEncodingDisabled
	WithStdin           = specs.WithStdin
	WithStdout          = specs.WithStdout
	WithStderr          = specs.WithStderr
	WithSplitStreams    = specs.WithSplitStreams
	WithLiveOutput      = specs.WithLiveOutput
	WithMethod          = specs.WithMethod
	WithCheckInterval   = specs.WithCheckInterval
	WithDrainDeadline   = specs.WithDrainDeadline
	WithStopOn          = specs.WithStopOn
	WithProcessCallback = specs.WithProcessCallback
	WithOnExit          = specs.WithOnExit
	WithValidExitCodes  = specs.WithValidExitCodes
	WithAllExitCodesValid = specs.WithAllExitCodesValid
	WithSilent          = specs.WithSilent
	WithPriority        = specs.WithPriority
	WithIOPriority      = specs.WithIOPriority
	WithHeartbeat       = specs.WithHeartbeat
	WithWindowsNoWindow = specs.WithWindowsNoWindow
	WithBufsize         = specs.WithBufsize
	WithGraceDuration   = specs.WithGraceDuration
	WithEnv             = specs.WithEnv
	WithDir             = specs.WithDir
)

// Run is the single public entry point (spec.md §6). It returns exactly
// once and never raises a fault to the caller; command and options are
// read-only to Run and discarded at return.
func Run(ctx context.Context, command Command, opts ...Option) *Result {
	o := specs.Build(opts...)
	return supervisor.Run(ctx, command, o)
}
