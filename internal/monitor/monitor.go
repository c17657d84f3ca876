// Package monitor is the Wait-and-Communicate component (C5): the
// lower-overhead alternative to the Stream Pump. Instead of a reader
// goroutine running concurrently with the child, it waits for the
// Supervisor to decide the child is done (exited naturally, or just
// killed) and then drains each pipe once, reading it to end of stream.
package monitor

import (
	"github.com/riftproc/cmdrunner/internal/pump"
)

// Drain performs the Monitor method's single post-exit read of both
// pipes, stdout before stderr, per spec.md §4.3's deterministic closing
// order. Each Config's Reader end is read to EOF, which occurs as soon
// as the child (or, on the kill path, its entire subtree) has released
// its write end — there is no separate "wait for exit" step here beyond
// that implicit by the closed descriptor.
//
// Drain deliberately reuses pump.Run rather than a bespoke read loop:
// the Monitor method differs from the Poller method only in when the
// read happens (once, after the child is already gone) not in how a
// single pipe's bytes become sink chunks.
func Drain(stdoutCfg, stderrCfg pump.Config) (stdoutErr, stderrErr error) {
	if stdoutCfg.Reader != nil {
		stdoutErr = pump.Run(stdoutCfg)
	}
	if stderrCfg.Reader != nil {
		stderrErr = pump.Run(stderrCfg)
	}
	return stdoutErr, stderrErr
}
