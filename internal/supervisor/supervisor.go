// Package supervisor is the Supervisor (C6): it drives the state machine
// in spec.md §4.6 — validate, spawn, running, drained, classify, done —
// wiring together every other internal package. It is the only
// orchestration point in the engine; the other internal packages import
// only the few leaves they build on (specs, sink, pump, xlog).
package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/riftproc/cmdrunner/internal/classify"
	"github.com/riftproc/cmdrunner/internal/monitor"
	"github.com/riftproc/cmdrunner/internal/pump"
	"github.com/riftproc/cmdrunner/internal/sink"
	"github.com/riftproc/cmdrunner/internal/spawn"
	"github.com/riftproc/cmdrunner/internal/specs"
	"github.com/riftproc/cmdrunner/internal/subtree"
	"github.com/riftproc/cmdrunner/internal/xlog"
)

// Run is the Supervisor's entry point, called by the root cmdrunner
// package once Options is built. It never panics across this boundary
// and always returns a non-nil Result (spec.md §3, invariant 1).
func Run(ctx context.Context, cmd specs.Command, o specs.Options) (result *specs.Result) {
	start := time.Now()
	correlationID := uuid.NewString()
	log := xlog.For(correlationID, o.Silent)

	result = &specs.Result{CorrelationID: correlationID}

	defer func() {
		if r := recover(); r != nil {
			// Programmer errors inside the engine itself must never
			// cross the public boundary (spec.md §3, invariant 1).
			log.Error("recovered panic", zap.Any("panic", r))
			result.ExitCode = classify.ExitCode(classify.Outcome{Kind: classify.KindOther})
			result.Duration = time.Since(start)
			if o.OnExit != nil {
				o.OnExit(result)
			}
		}
	}()

	downgrade := func(code int) bool {
		if code == 0 || o.AllExitCodesValid {
			return true
		}
		for _, v := range o.ValidExitCodes {
			if v == code {
				return true
			}
		}
		return false
	}

	finish := func(kind classify.Kind, waitErr, err error, pid int) *specs.Result {
		code := classify.ExitCode(classify.Outcome{Kind: kind, WaitErr: waitErr, Err: err})
		result.ExitCode = code
		result.PID = pid
		result.Duration = time.Since(start)
		log.ErrorOrInfo(downgrade(code), "run finished",
			zap.Int("exit_code", code), zap.Int("pid", pid), zap.Duration("duration", result.Duration))
		if o.OnExit != nil {
			o.OnExit(result)
		}
		return result
	}

	log.Info("run starting")

	// --- validate -----------------------------------------------------
	if len(cmd.Args) == 0 && cmd.Line == "" {
		err := errors.New("supervisor: empty command")
		log.Error("invocation rejected", zap.Error(err))
		return finish(classify.KindArgIncompatible, nil, err, 0)
	}
	if err := validate(o); err != nil {
		log.Error("invocation rejected", zap.Error(err))
		return finish(classify.KindArgIncompatible, nil, err, 0)
	}

	stdoutResolved, err := sink.Resolve(o.Stdout)
	if err != nil {
		return finish(argIncompatibleOrIOFailure(err), nil, err, 0)
	}
	var stderrResolved sink.Resolved
	// Without split_streams, two captured streams share one accumulator so
	// Output holds both, interleaved as read.
	merged := o.Stderr.Kind == specs.SinkMerge ||
		(!o.SplitStreams && o.Stdout.Kind == specs.SinkPipe && o.Stderr.Kind == specs.SinkPipe)
	if merged {
		stderrResolved = stdoutResolved
	} else {
		stderrResolved, err = sink.Resolve(o.Stderr)
		if err != nil {
			_ = stdoutResolved.Sink.Close()
			return finish(argIncompatibleOrIOFailure(err), nil, err, 0)
		}
	}

	stdinFile, closeStdin, err := prepareStdin(o.Stdin)
	if err != nil {
		_ = stdoutResolved.Sink.Close()
		if !merged {
			_ = stderrResolved.Sink.Close()
		}
		return finish(classify.KindSpawnFailed, nil, err, 0)
	}
	defer closeStdin()

	spec := spawn.Spec{
		Args:            cmd.Args,
		Line:            cmd.Line,
		Shell:           o.Shell,
		Env:             o.Env,
		Dir:             o.Dir,
		Stdin:           stdinFile,
		Priority:        priorityToNice(o.Priority),
		IOPriority:      priorityToNice(o.IOPriority),
		WindowsNoWindow: o.WindowsNoWindow,
	}

	// --- spawn ----------------------------------------------------------
	proc, stdoutR, stderrR, err := spawn.Start(ctx, spec,
		spawn.Target{Direct: stdoutResolved.Direct},
		spawn.Target{Direct: stderrResolved.Direct},
	)
	if err != nil {
		log.Error("spawn failed", zap.Error(err))
		_ = stdoutResolved.Sink.Close()
		if !merged {
			_ = stderrResolved.Sink.Close()
		}
		return finish(classify.KindSpawnFailed, nil, err, 0)
	}

	if o.ProcessCallback != nil {
		o.ProcessCallback(proc.PID())
	}

	waitDone := proc.Done()
	go func() { _ = proc.Wait() }()

	// --- running ----------------------------------------------------------
	drainDeadline := o.DrainDeadline
	if drainDeadline <= 0 {
		drainDeadline = o.CheckInterval
	}

	stdoutSink, stderrSink := stdoutResolved.Sink, stderrResolved.Sink
	if o.LiveOutput {
		// live_output tees a copy to this process's own stdout alongside
		// whatever the resolved sink already does, instead of a separate
		// write path in the pump (spec.md §3).
		stdoutSink = sink.NewTee(stdoutSink, sink.NewWriterSink(os.Stdout))
		stderrSink = sink.NewTee(stderrSink, sink.NewWriterSink(os.Stdout))
	}

	stdoutCfg := pump.Config{
		Reader:  stdoutR,
		Bufsize: o.Bufsize,
		Decode:  pump.NewDecoder(o.Encoding, o.DisableEncoding),
		Sink:    stdoutSink,
		Log:     log,
		Stream:  "stdout",
	}
	stderrCfg := pump.Config{
		Reader:  stderrR,
		Bufsize: o.Bufsize,
		Decode:  pump.NewDecoder(o.Encoding, o.DisableEncoding),
		Sink:    stderrSink,
		Log:     log,
		Stream:  "stderr",
	}
	if merged && stderrCfg.Reader != nil {
		stderrCfg.Sink = sink.NoClose(stderrCfg.Sink)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	var pumpWG sync.WaitGroup
	pumpsDone := make(chan struct{})
	if o.Method == specs.MethodPoller {
		if stdoutCfg.Reader != nil {
			pumpWG.Add(1)
			go func() { defer pumpWG.Done(); _ = pump.Run(stdoutCfg) }()
		}
		if stderrCfg.Reader != nil {
			pumpWG.Add(1)
			go func() { defer pumpWG.Done(); _ = pump.Run(stderrCfg) }()
		}
		go func() { pumpWG.Wait(); close(pumpsDone) }()
	}

	ticker := time.NewTicker(checkIntervalOrDefault(o.CheckInterval))
	defer ticker.Stop()

	var timeoutC <-chan time.Time
	if o.Timeout > 0 {
		timer := time.NewTimer(o.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	var heartbeat *time.Ticker
	var heartbeatC <-chan time.Time
	if o.Heartbeat > 0 {
		heartbeat = time.NewTicker(o.Heartbeat)
		defer heartbeat.Stop()
		heartbeatC = heartbeat.C
	}

	kind := classify.KindCompleted
	engineKilled := false

runLoop:
	for {
		select {
		case <-waitDone:
			break runLoop

		case <-timeoutC:
			log.Warn("timeout elapsed, killing subtree")
			kind, engineKilled = classify.KindTimeout, true
			break runLoop

		case sig := <-sigCh:
			log.Warn("interrupt observed, killing subtree", zap.String("signal", sig.String()))
			kind, engineKilled = classify.KindInterrupted, true
			break runLoop

		case <-ctx.Done():
			log.Warn("context canceled, killing subtree")
			kind, engineKilled = classify.KindInterrupted, true
			break runLoop

		case <-heartbeatC:
			log.Info("still running", heartbeatFields(proc.PID(), start)...)

		case <-ticker.C:
			if o.StopOn != nil && o.StopOn() {
				log.Warn("stop predicate triggered, killing subtree")
				kind, engineKilled = classify.KindStopPredicate, true
				break runLoop
			}
		}
	}

	// --- shutdown -----------------------------------------------------
	if engineKilled {
		escalated, err := subtree.Kill(proc.PID(), o.GraceDuration)
		if err != nil {
			log.Warn("subtree kill reported an error", zap.Error(err))
		}
		if escalated {
			log.Warn("subtree kill escalated to forceful signal", zap.Int("pid", proc.PID()))
		}
		// proc.Wait's goroutine will now observe the child's exit.
		select {
		case <-waitDone:
		case <-time.After(o.GraceDuration + time.Second):
		}
	}

	switch o.Method {
	case specs.MethodPoller:
		select {
		case <-pumpsDone:
		case <-time.After(drainDeadline):
			log.Warn("drain deadline exceeded, abandoning pumps")
			closeIfNotNil(stdoutR, stderrR)
		}
	case specs.MethodMonitor:
		stdoutErr, stderrErr := monitor.Drain(stdoutCfg, stderrCfg)
		if stdoutErr != nil {
			log.Debug("stdout drain ended", zap.Error(stdoutErr))
		}
		if stderrErr != nil {
			log.Debug("stderr drain ended", zap.Error(stderrErr))
		}
	}
	// Sinks that never ran through a pump (DevNull/File direct redirects,
	// or the shared sink in the merge case) still need a final Close;
	// every Sink implementation tolerates a repeat Close from the pump
	// path, so this is safe to call unconditionally.
	_ = stdoutResolved.Sink.Close()
	if !merged {
		_ = stderrResolved.Sink.Close()
	}

	// --- classify -------------------------------------------------------
	waitErr := proc.Err()
	result.PID = proc.PID()
	assembleOutput(result, o, stdoutResolved, stderrResolved, merged)

	return finish(kind, waitErr, nil, proc.PID())
}

// assembleOutput drains the accumulator sinks into the Result, honoring
// split_streams and the disjoint string/bytes contract (spec.md §3,
// invariant 3).
func assembleOutput(result *specs.Result, o specs.Options, stdoutResolved, stderrResolved sink.Resolved, merged bool) {
	stdoutMem, _ := stdoutResolved.Sink.(*sink.Memory)
	var stderrMem *sink.Memory
	if !merged {
		stderrMem, _ = stderrResolved.Sink.(*sink.Memory)
	}

	if stdoutMem == nil {
		return
	}

	if o.SplitStreams {
		if o.DisableEncoding {
			result.RawStdout = stdoutMem.Bytes()
			if stderrMem != nil {
				result.RawStderr = stderrMem.Bytes()
			}
			return
		}
		result.Stdout = string(stdoutMem.Bytes())
		if stderrMem != nil {
			result.Stderr = string(stderrMem.Bytes())
		}
		return
	}

	if o.DisableEncoding {
		result.RawOutput = stdoutMem.Bytes()
		return
	}
	result.Output = string(stdoutMem.Bytes())
}

func closeIfNotNil(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

func checkIntervalOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}

// validate rejects invocation-time argument incompatibilities before any
// process is spawned (spec.md §4.5: monitor method cannot service queue
// or callback sinks).
func validate(o specs.Options) error {
	if o.Method != specs.MethodMonitor {
		return nil
	}
	if sink.IsLive(o.Stdout.Kind) || sink.IsLive(o.Stderr.Kind) {
		return errors.New("supervisor: monitor method cannot service queue or callback sinks")
	}
	return nil
}

// argIncompatibleOrIOFailure distinguishes a programmer-error sink
// argument (spec.md §7: maps to -250) from an OS-level failure opening a
// file sink (-253).
func argIncompatibleOrIOFailure(err error) classify.Kind {
	if errors.Is(err, sink.ErrNilQueue) || errors.Is(err, sink.ErrNilCallback) {
		return classify.KindArgIncompatible
	}
	return classify.KindSpawnFailed
}

// prepareStdin adapts an arbitrary io.Reader into the *os.File spawn
// wants. An *os.File is passed through untouched; anything else is
// copied into an anonymous pipe by a background goroutine, since
// spec.md §1 deliberately does not support incremental stdin feeding
// after spawn — this bridges only the handle itself, not a streaming
// protocol.
func prepareStdin(r io.Reader) (*os.File, func(), error) {
	if r == nil {
		return nil, func() {}, nil
	}
	if f, ok := r.(*os.File); ok {
		return f, func() {}, nil
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	go func() {
		_, _ = io.Copy(pw, r)
		_ = pw.Close()
	}()
	return pr, func() { _ = pr.Close() }, nil
}

// heartbeatFields builds the "still running" log fields spec.md's
// heartbeat event promises: elapsed running time and the child's RSS,
// alongside its PID. The correlation ID is not repeated here — log is
// already bound to it via xlog.For, so every line it emits carries it.
// RSS is best-effort: a child that exited between the ticker firing and
// this lookup just gets no rss field rather than a failed heartbeat.
func heartbeatFields(pid int, start time.Time) []zap.Field {
	fields := []zap.Field{
		zap.Int("pid", pid),
		zap.Duration("elapsed", time.Since(start)),
	}
	if p, err := process.NewProcess(int32(pid)); err == nil {
		if mem, err := p.MemoryInfo(); err == nil && mem != nil {
			fields = append(fields, zap.Uint64("rss_bytes", mem.RSS))
		}
	}
	return fields
}

// priorityToNice maps the coarse Priority enum to the signed delta
// spawn.Spec expects (spec.md §9: clamped to [-20,19] downstream).
func priorityToNice(p specs.Priority) int {
	switch p {
	case specs.PriorityLow:
		return 1
	case specs.PriorityHigh:
		return -1
	default:
		return 0
	}
}
