// Package sink is the Output Sinks component (C3): a uniform destination
// abstraction over an in-memory buffer, a file, a bounded queue, or a
// callback — the tagged-variant resolution of the "dynamic sink
// argument" pattern flagged in spec.md §9.
package sink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/riftproc/cmdrunner/internal/specs"
)

// ErrNilQueue and ErrNilCallback mark an invocation-time argument
// incompatibility (spec.md §7: "a sink argument of a wholly unsupported
// type"), distinct from an OS-level failure opening a file sink.
var (
	ErrNilQueue    = errors.New("sink: queue sink with nil channel")
	ErrNilCallback = errors.New("sink: callback sink with nil function")
)

// Sink is the capability set every variant implements: accept a chunk,
// and close exactly once when the stream ends.
type Sink interface {
	Accept(chunk []byte) error
	Close() error
}

// Resolved is what Resolve hands back to the caller: a Sink plus,
// optionally, an already-open *os.File the spawner can wire directly as
// the child's stdout/stderr descriptor (spec.md §4.1's "redirect at the
// OS level to avoid copying"). Merge is set when the spec asked for
// stderr to be folded into stdout (spec.md §3: stderr=null means merge).
type Resolved struct {
	Sink   Sink
	Direct *os.File
	Merge  bool
}

// Resolve adapts a specs.SinkSpec into a concrete Sink, opening files as
// needed. The caller is responsible for calling Close exactly once.
func Resolve(spec specs.SinkSpec) (Resolved, error) {
	switch spec.Kind {
	case specs.SinkPipe:
		return Resolved{Sink: NewMemory()}, nil

	case specs.SinkDevNull:
		f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return Resolved{}, fmt.Errorf("sink: open devnull: %w", err)
		}
		return Resolved{Sink: &fileSink{f: f}, Direct: f}, nil

	case specs.SinkFile:
		f, err := os.OpenFile(spec.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return Resolved{}, fmt.Errorf("sink: open %q: %w", spec.Path, err)
		}
		return Resolved{Sink: &fileSink{f: f}, Direct: f}, nil

	case specs.SinkQueue:
		if spec.Queue == nil {
			return Resolved{}, ErrNilQueue
		}
		return Resolved{Sink: &queueSink{ch: spec.Queue}}, nil

	case specs.SinkCallback:
		if spec.Callback == nil {
			return Resolved{}, ErrNilCallback
		}
		return Resolved{Sink: &callbackSink{fn: spec.Callback}}, nil

	case specs.SinkMerge:
		return Resolved{Merge: true}, nil

	default:
		return Resolved{}, fmt.Errorf("sink: unrecognized sink kind %d", spec.Kind)
	}
}

// IsLive reports whether a sink kind requires live delivery as bytes
// arrive (Queue, Callback) as opposed to tolerating a single end-of-run
// drain (spec.md §4.5: Monitor method cannot service these).
func IsLive(kind specs.SinkKind) bool {
	return kind == specs.SinkQueue || kind == specs.SinkCallback
}

// --- Memory -----------------------------------------------------------

// Memory accumulates every chunk behind a mutex — the one shared-mutable
// resource in the engine per spec.md §5.
type Memory struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Accept(chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.buf.Write(chunk)
	return err
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, m.buf.Len())
	copy(out, m.buf.Bytes())
	return out
}

// --- File ---------------------------------------------------------------

type fileSink struct {
	f *os.File
}

func (s *fileSink) Accept(chunk []byte) error {
	_, err := s.f.Write(chunk)
	return err
}

func (s *fileSink) Close() error { return s.f.Close() }

// --- Queue ----------------------------------------------------------------

// queueSink delivers each chunk to a caller-owned bounded channel; a
// full channel applies backpressure straight to the pump goroutine, per
// spec.md §4.4. Close deposits the nil end-of-stream sentinel exactly
// once (spec.md §3, invariant 6).
type queueSink struct {
	ch     chan []byte
	mu     sync.Mutex
	closed bool
}

func (s *queueSink) Accept(chunk []byte) error {
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.ch <- cp
	return nil
}

func (s *queueSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.ch <- nil
	return nil
}

// --- Callback ---------------------------------------------------------

// callbackSink invokes fn synchronously, never re-entering the pump
// (spec.md §6's sink protocol). It is not invoked again on Close.
type callbackSink struct {
	fn func(chunk []byte)
}

func (s *callbackSink) Accept(chunk []byte) error {
	s.fn(chunk)
	return nil
}

func (s *callbackSink) Close() error { return nil }

// --- NoClose --------------------------------------------------------------

// noClose forwards Accept but swallows Close, for a Sink shared by more
// than one pump (stderr merged into stdout): only the owning stream may
// close it.
type noClose struct{ Sink }

func (noClose) Close() error { return nil }

// NoClose wraps s so Close is a no-op, for sinks shared across pumps.
func NoClose(s Sink) Sink { return noClose{Sink: s} }

// --- Writer -----------------------------------------------------------

// writerSink adapts an io.Writer into a Sink for composing into a Tee
// (spec.md §3's live_output: the child's bytes still reach the
// accumulator sink, but a copy is also written straight to the
// caller-supplied writer as it arrives). Close is a no-op — the writer
// (typically os.Stdout) outlives this run and is not ours to close.
type writerSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a Sink whose Close is a no-op.
func NewWriterSink(w io.Writer) Sink { return writerSink{w: w} }

func (s writerSink) Accept(chunk []byte) error {
	_, err := s.w.Write(chunk)
	return err
}

func (writerSink) Close() error { return nil }

// --- Tee ------------------------------------------------------------------

// Tee fans a single stream out to an ordered list of sinks, preserving
// order on both Accept and Close (spec.md §4.3).
type Tee struct {
	sinks []Sink
}

func NewTee(sinks ...Sink) *Tee { return &Tee{sinks: sinks} }

func (t *Tee) Accept(chunk []byte) error {
	var firstErr error
	for _, s := range t.sinks {
		if err := s.Accept(chunk); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Tee) Close() error {
	var firstErr error
	for _, s := range t.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
