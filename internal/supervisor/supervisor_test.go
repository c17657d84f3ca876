package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/riftproc/cmdrunner/internal/specs"
	"github.com/riftproc/cmdrunner/internal/subtree"
	"github.com/riftproc/cmdrunner/internal/xlog"
)

func TestPriorityToNice(t *testing.T) {
	cases := []struct {
		p    specs.Priority
		want int
	}{
		{specs.PriorityNormal, 0},
		{specs.PriorityLow, 1},
		{specs.PriorityHigh, -1},
	}
	for _, tc := range cases {
		if got := priorityToNice(tc.p); got != tc.want {
			t.Errorf("priorityToNice(%v) = %d, want %d", tc.p, got, tc.want)
		}
	}
}

func TestCheckIntervalOrDefault(t *testing.T) {
	if got := checkIntervalOrDefault(0); got != 50*time.Millisecond {
		t.Errorf("checkIntervalOrDefault(0) = %v, want 50ms", got)
	}
	if got := checkIntervalOrDefault(10 * time.Millisecond); got != 10*time.Millisecond {
		t.Errorf("checkIntervalOrDefault(10ms) = %v, want 10ms", got)
	}
}

func TestValidateRejectsMonitorWithQueueSink(t *testing.T) {
	o := specs.Build(
		specs.WithMethod(specs.MethodMonitor),
		specs.WithStdout(specs.ToQueue(make(chan []byte, 1))),
	)
	if err := validate(o); err == nil {
		t.Error("expected validate to reject monitor+queue combination")
	}
}

func TestValidateAllowsMonitorWithPipeSink(t *testing.T) {
	o := specs.Build(specs.WithMethod(specs.MethodMonitor))
	if err := validate(o); err != nil {
		t.Errorf("validate(monitor, pipe sinks) = %v, want nil", err)
	}
}

func TestValidateAllowsPollerWithQueueSink(t *testing.T) {
	o := specs.Build(
		specs.WithMethod(specs.MethodPoller),
		specs.WithStdout(specs.ToQueue(make(chan []byte, 1))),
	)
	if err := validate(o); err != nil {
		t.Errorf("validate(poller, queue sink) = %v, want nil", err)
	}
}

func TestRunEmptyCommandIsArgIncompatible(t *testing.T) {
	result := Run(context.Background(), specs.Command{}, specs.DefaultOptions())
	if result == nil {
		t.Fatal("Run returned nil result")
	}
	if result.ExitCode != specs.ExitArgIncompatible {
		t.Errorf("ExitCode = %d, want %d", result.ExitCode, specs.ExitArgIncompatible)
	}
}

func TestRunNonexistentBinaryIsSpawnFailure(t *testing.T) {
	cmd := specs.Command{Args: []string{"definitely-not-a-real-binary-xyz"}}
	result := Run(context.Background(), cmd, specs.DefaultOptions())
	if result.ExitCode != specs.ExitSpawnOrIOFailure {
		t.Errorf("ExitCode = %d, want %d", result.ExitCode, specs.ExitSpawnOrIOFailure)
	}
}

func TestRunCapturesStdoutAndExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	cmd := specs.Command{Args: []string{"sh", "-c", "echo hello"}}
	result := Run(context.Background(), cmd, specs.DefaultOptions())
	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", result.ExitCode)
	}
	if result.Output != "hello\n" {
		t.Errorf("Output = %q, want %q", result.Output, "hello\n")
	}
	if result.PID == 0 {
		t.Error("PID should be non-zero after a successful spawn")
	}
}

func TestRunNativeNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	cmd := specs.Command{Args: []string{"sh", "-c", "exit 7"}}
	result := Run(context.Background(), cmd, specs.DefaultOptions())
	if result.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", result.ExitCode)
	}
}

func TestRunTimeoutKillsChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	cmd := specs.Command{Args: []string{"sh", "-c", "sleep 30"}}
	o := specs.Build(specs.WithTimeout(100 * time.Millisecond))
	start := time.Now()
	result := Run(context.Background(), cmd, o)
	if result.ExitCode != specs.ExitTimeout {
		t.Errorf("ExitCode = %d, want %d", result.ExitCode, specs.ExitTimeout)
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("Run took %v, expected a fast timeout-driven kill", time.Since(start))
	}
}

func TestRunSplitStreams(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	cmd := specs.Command{Args: []string{"sh", "-c", "echo out; echo err 1>&2"}}
	o := specs.Build(specs.WithSplitStreams(true))
	result := Run(context.Background(), cmd, o)
	if result.Stdout != "out\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "out\n")
	}
	if result.Stderr != "err\n" {
		t.Errorf("Stderr = %q, want %q", result.Stderr, "err\n")
	}
	if result.Output != "" {
		t.Errorf("Output = %q, want empty when split_streams is set", result.Output)
	}
}

// TestRunPollerQueueSinkBackpressureAndSentinel drives S5 end-to-end: a
// real child, a bounded queue sink smaller than the output it produces
// (forcing the pump to block on a full channel mid-run), and the
// end-of-stream nil sentinel on completion.
func TestRunPollerQueueSinkBackpressureAndSentinel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	q := make(chan []byte, 1)
	var received [][]byte
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			chunk, ok := <-q
			if !ok || chunk == nil {
				return
			}
			received = append(received, chunk)
		}
	}()

	cmd := specs.Command{Args: []string{"sh", "-c", "printf 'abcdefgh'"}}
	o := specs.Build(
		specs.WithMethod(specs.MethodPoller),
		specs.WithStdout(specs.ToQueue(q)),
		specs.WithBufsize(4),
	)
	result := Run(context.Background(), cmd, o)
	<-drained

	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", result.ExitCode)
	}
	var got []byte
	for _, chunk := range received {
		got = append(got, chunk...)
	}
	if string(got) != "abcdefgh" {
		t.Errorf("assembled queue chunks = %q, want %q", got, "abcdefgh")
	}
}

// TestRunTimeoutKillsGrandchild exercises S6: a timeout-driven kill must
// bring down the whole subtree, not just the immediate child.
func TestRunTimeoutKillsGrandchild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	pidFile := filepath.Join(t.TempDir(), "grandchild.pid")
	script := fmt.Sprintf("sleep 30 & echo $! > %s; wait", pidFile)
	cmd := specs.Command{Args: []string{"sh", "-c", script}}
	o := specs.Build(
		specs.WithTimeout(150*time.Millisecond),
		specs.WithGraceDuration(200*time.Millisecond),
	)
	result := Run(context.Background(), cmd, o)
	if result.ExitCode != specs.ExitTimeout {
		t.Fatalf("ExitCode = %d, want %d", result.ExitCode, specs.ExitTimeout)
	}

	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("reading grandchild pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("parsing grandchild pid: %v", err)
	}
	if subtree.Alive(int32(pid)) {
		t.Errorf("grandchild pid %d still alive after timeout-driven subtree kill", pid)
	}
}

// TestRunValidExitCodesDowngradesErrorLog exercises S7: an exit code
// present in ValidExitCodes must downgrade the "run finished" log from
// ERROR to INFO rather than suppress it.
func TestRunValidExitCodesDowngradesErrorLog(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	core, logs := observer.New(zapcore.DebugLevel)
	defer xlog.SetCoreForTest(core)()

	cmd := specs.Command{Args: []string{"sh", "-c", "exit 3"}}
	o := specs.Build(specs.WithValidExitCodes(3))
	result := Run(context.Background(), cmd, o)
	if result.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", result.ExitCode)
	}

	entry := findLogEntry(t, logs, "run finished")
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("run finished log level = %v, want Info (downgraded via valid_exit_codes)", entry.Level)
	}
}

// TestRunNonZeroExitWithoutValidExitCodesLogsError is the control case
// for TestRunValidExitCodesDowngradesErrorLog: absent a matching
// ValidExitCodes entry, the same non-zero exit still logs at ERROR.
func TestRunNonZeroExitWithoutValidExitCodesLogsError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	core, logs := observer.New(zapcore.DebugLevel)
	defer xlog.SetCoreForTest(core)()

	cmd := specs.Command{Args: []string{"sh", "-c", "exit 3"}}
	result := Run(context.Background(), cmd, specs.DefaultOptions())
	if result.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", result.ExitCode)
	}

	entry := findLogEntry(t, logs, "run finished")
	if entry.Level != zapcore.ErrorLevel {
		t.Errorf("run finished log level = %v, want Error", entry.Level)
	}
}

func findLogEntry(t *testing.T, logs *observer.ObservedLogs, message string) observer.LoggedEntry {
	t.Helper()
	for _, entry := range logs.All() {
		if entry.Message == message {
			return entry
		}
	}
	t.Fatalf("no log entry with message %q", message)
	return observer.LoggedEntry{}
}

func TestRunOnExitAndProcessCallbackInvoked(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	var onExitPID, callbackPID int
	cmd := specs.Command{Args: []string{"sh", "-c", "true"}}
	o := specs.Build(
		specs.WithProcessCallback(func(pid int) { callbackPID = pid }),
		specs.WithOnExit(func(r *specs.Result) { onExitPID = r.PID }),
	)
	result := Run(context.Background(), cmd, o)
	if callbackPID == 0 || callbackPID != result.PID {
		t.Errorf("ProcessCallback pid = %d, want %d", callbackPID, result.PID)
	}
	if onExitPID != result.PID {
		t.Errorf("OnExit saw pid = %d, want %d", onExitPID, result.PID)
	}
}
