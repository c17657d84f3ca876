package specs

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if o.Stdout.Kind != SinkPipe || o.Stderr.Kind != SinkPipe {
		t.Fatalf("expected default sinks to be Pipe, got %v/%v", o.Stdout.Kind, o.Stderr.Kind)
	}
	if o.CheckInterval != 50*time.Millisecond {
		t.Errorf("CheckInterval = %v, want 50ms", o.CheckInterval)
	}
	if o.GraceDuration != 3*time.Second {
		t.Errorf("GraceDuration = %v, want 3s", o.GraceDuration)
	}
	if o.Bufsize != 16384 {
		t.Errorf("Bufsize = %d, want 16384", o.Bufsize)
	}
	if o.Method != MethodPoller {
		t.Errorf("Method = %v, want MethodPoller", o.Method)
	}
}

func TestBuildAppliesOptionsOverDefaults(t *testing.T) {
	called := false
	o := Build(
		WithTimeout(2*time.Second),
		WithShell(true),
		WithSplitStreams(true),
		WithBufsize(4096),
		WithStdout(ToFile("/tmp/out.log")),
		WithStderr(MergeIntoStdout()),
		WithOnExit(func(*Result) { called = true }),
	)
	if o.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", o.Timeout)
	}
	if !o.Shell {
		t.Error("Shell = false, want true")
	}
	if !o.SplitStreams {
		t.Error("SplitStreams = false, want true")
	}
	if o.Bufsize != 4096 {
		t.Errorf("Bufsize = %d, want 4096", o.Bufsize)
	}
	if o.Stdout.Kind != SinkFile || o.Stdout.Path != "/tmp/out.log" {
		t.Errorf("Stdout = %+v, want SinkFile /tmp/out.log", o.Stdout)
	}
	if o.Stderr.Kind != SinkMerge {
		t.Errorf("Stderr.Kind = %v, want SinkMerge", o.Stderr.Kind)
	}
	if o.OnExit == nil {
		t.Fatal("OnExit not set")
	}
	o.OnExit(&Result{})
	if !called {
		t.Error("OnExit callback not invoked")
	}
	// Unset fields still fall back to defaults.
	if o.GraceDuration != 3*time.Second {
		t.Errorf("GraceDuration = %v, want default 3s", o.GraceDuration)
	}
}

func TestCommandConstructors(t *testing.T) {
	c := New("echo", "hi", "there")
	if len(c.Args) != 3 || c.Args[0] != "echo" {
		t.Errorf("New(...) = %+v", c)
	}
	if c.String() != "echo hi there" {
		t.Errorf("String() = %q", c.String())
	}

	s := Shell("echo hi | cat")
	if !s.isString() {
		t.Error("isString() = false for a Line-only Command")
	}
	if s.String() != "echo hi | cat" {
		t.Errorf("String() = %q", s.String())
	}

	mixed := Command{Args: []string{"a"}, Line: "b"}
	if mixed.isString() {
		t.Error("isString() = true when Args is also set")
	}
}

func TestSinkConstructors(t *testing.T) {
	if DevNull().Kind != SinkDevNull {
		t.Error("DevNull() wrong kind")
	}
	q := make(chan []byte, 1)
	if s := ToQueue(q); s.Kind != SinkQueue || s.Queue == nil {
		t.Error("ToQueue() wrong shape")
	}
	fired := false
	cb := ToCallback(func([]byte) { fired = true })
	if cb.Kind != SinkCallback || cb.Callback == nil {
		t.Fatal("ToCallback() wrong shape")
	}
	cb.Callback(nil)
	if !fired {
		t.Error("callback not wired")
	}
}
