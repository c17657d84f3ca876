//go:build !windows

package classify

import (
	"os/exec"
	"syscall"
)

// signalOf reports the POSIX signal that terminated the child, per the
// "128+signal" convention in spec.md §4.7.
func signalOf(exitErr *exec.ExitError) (signal int, signaled bool) {
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}
