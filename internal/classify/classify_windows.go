//go:build windows

package classify

import "os/exec"

// signalOf: Windows exit statuses are never "signaled" in the POSIX
// sense; TerminateProcess reports a plain exit code.
func signalOf(exitErr *exec.ExitError) (signal int, signaled bool) {
	return 0, false
}
