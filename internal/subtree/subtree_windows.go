//go:build windows

package subtree

import "time"

// killPlatform runs the gopsutil-based snapshot BFS directly (spec.md
// §4.2's Windows algorithm): terminate every descendant youngest-first,
// then the root, then re-snapshot once after grace for late-born
// grandchildren. A real Job-Object-based implementation would contain
// the whole tree atomically via AssignProcessToJobObject, but that needs
// golang.org/x/sys/windows, which this package does not import (only the
// elevate package does); the BFS fallback is what spec.md §4.2 describes as the baseline
// Windows strategy anyway.
func killPlatform(pid int, grace time.Duration) (bool, error) {
	escalated := killGopsutilSubtree(int32(pid), grace, false)
	return escalated, nil
}
