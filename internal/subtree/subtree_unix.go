//go:build !windows

package subtree

import (
	"syscall"
	"time"
)

// killPlatform signals the whole process group (spec.md §4.2's POSIX
// algorithm): SIGTERM the group, wait grace, SIGKILL the group if the
// root is still alive. The gopsutil-based BFS runs afterward as a
// cross-check for any descendant that escaped the process group (e.g.
// one that called setsid itself).
func killPlatform(pid int, grace time.Duration) (bool, error) {
	pgid := pid
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	if grace > 0 {
		time.Sleep(grace)
	}

	stillAlive := Alive(int32(pid))
	if stillAlive {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}

	// Cross-check: a descendant that left the group (e.g. via setsid) but
	// is still parented inside the tree gets a BFS-based forceful kill.
	// One already reparented away from the tree is not found.
	crossCheckEscalated := killGopsutilSubtree(int32(pid), 0, true)

	return stillAlive || crossCheckEscalated, nil
}
