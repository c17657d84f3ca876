// Package pump is the Stream Pump component (C4): it drains one child
// pipe in its own goroutine, decoding each chunk and handing it to a
// sink, until EOF or the read end is closed out from under it.
package pump

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/riftproc/cmdrunner/internal/sink"
	"github.com/riftproc/cmdrunner/internal/xlog"
)

// Config wires one pipe to its destination(s).
type Config struct {
	// Reader is the child's pipe read end (or any io.Reader in tests).
	Reader io.Reader

	// Bufsize is the chunk size requested from Options.Bufsize.
	Bufsize int

	// Decode converts raw bytes into the form delivered to Sink. When
	// encoding is disabled the caller passes the identity decoder, since
	// invariant 3 (spec.md §3) forbids ever populating both the decoded
	// and raw forms of the same chunk.
	Decode Decoder

	// Sink receives decoded (or, with the identity decoder, raw) chunks.
	// Options.LiveOutput (spec.md §3) is implemented by the caller
	// composing a sink.Tee here rather than by a separate write path.
	Sink sink.Sink

	// Log, if non-nil, receives a DEBUG event per chunk read (spec.md
	// §7) plus any per-chunk decode error. Stream distinguishes stdout
	// from stderr in the log line.
	Log    *xlog.Invocation
	Stream string
}

// Run blocks until Reader returns EOF or a read error, decoding and
// forwarding each chunk as it arrives. It never re-splits on line
// boundaries — bufio.Scanner is intentionally not used here, since
// spec.md §4.4 requires byte-for-byte passthrough of whatever the child
// wrote, not a line-oriented reinterpretation of it.
//
// Run always closes Sink before returning, even on error, so callers
// waiting on a bounded queue's end-of-stream sentinel are never left
// hanging.
func Run(cfg Config) error {
	defer closeSink(cfg.Sink)

	bufsize := cfg.Bufsize
	if bufsize <= 0 {
		bufsize = 16384
	}
	buf := make([]byte, bufsize)
	decode := cfg.Decode
	if decode == nil {
		decode = passthrough
	}

	var firstErr error
	for {
		n, err := cfg.Reader.Read(buf)
		if n > 0 {
			raw := append([]byte(nil), buf[:n]...)
			decoded, decErr := decode(raw)
			if cfg.Log != nil {
				cfg.Log.Debug("chunk read", zap.String("stream", cfg.Stream), zap.Int("bytes", n))
				if decErr != nil {
					cfg.Log.Debug("chunk decode error", zap.String("stream", cfg.Stream), zap.Error(decErr))
				}
			}
			if cfg.Sink != nil {
				if serr := cfg.Sink.Accept(decoded); serr != nil && firstErr == nil {
					firstErr = serr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return firstErr
			}
			// A closed pipe (supervisor abandoning a stalled pump past
			// DrainDeadline) surfaces here as a plain read error, not a
			// panic: the loop exits cleanly.
			if firstErr == nil {
				firstErr = err
			}
			return firstErr
		}
	}
}

func closeSink(s sink.Sink) {
	if s == nil {
		return
	}
	_ = s.Close()
}
