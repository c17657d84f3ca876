// Package elevate is the privilege-elevation collaborator (spec.md §6):
// a sibling utility with no contract back into the execution engine.
//
// Nothing in the teacher or the rest of the reference pack performs OS
// privilege elevation, so this package is built directly on platform
// APIs (golang.org/x/sys/windows on Windows, already in the module graph
// through gopsutil; the os/syscall packages' own euid check and exec
// replacement on POSIX) rather than an adapted
// pattern — see DESIGN.md.
package elevate

import "os"

// IsAdmin reports whether the current process already holds
// administrator (Windows) or root (POSIX) privileges.
func IsAdmin() bool {
	return isAdmin()
}

// Relaunch ensures mainFn runs with elevated privileges. If the current
// process is already elevated, it calls mainFn directly and exits with
// its return value. Otherwise it re-executes the current binary with an
// elevation request (sudo re-exec on POSIX, a UAC "runas" ShellExecute
// on Windows) and does not return on success — the elevated child takes
// over. It returns only if the relaunch itself could not be started.
func Relaunch(mainFn func() int) error {
	if IsAdmin() {
		os.Exit(mainFn())
		return nil
	}
	return relaunch()
}
