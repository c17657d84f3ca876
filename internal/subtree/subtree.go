// Package subtree is the Subtree Walker & Killer (C2): given a root PID,
// it terminates every live descendant together with the root. The
// cross-platform descendant enumeration is adapted from the teacher's
// internal/sys.GetProcesses, which already walks gopsutil's process list
// for its "ps"-style CLI output; here the same walk builds a parent→child
// map instead of a flat info table.
package subtree

import (
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// node is one process observed in a snapshot, enough to run the reverse
// BFS and the PID-reuse tie-break from spec.md §4.2.
type node struct {
	pid        int32
	ppid       int32
	createTime int64
}

// snapshot lists every process gopsutil can see, keyed by PID. When the
// same PID appears more than once within one listing, the entry with the
// newer CreateTime is kept. Entries from separate snapshots are not
// compared with each other.
func snapshot() (map[int32]node, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	out := make(map[int32]node, len(procs))
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}
		ct, _ := p.CreateTime()
		n := node{pid: p.Pid, ppid: ppid, createTime: ct}
		if existing, ok := out[p.Pid]; ok && existing.createTime >= ct {
			continue
		}
		out[p.Pid] = n
	}
	return out, nil
}

// Descendants returns every live PID reachable from root by following
// parent→child links, root excluded, via a reverse BFS over a single
// snapshot (spec.md §4.2's Windows algorithm, used here as the common
// cross-platform enumeration strategy).
func Descendants(root int32) ([]int32, error) {
	snap, err := snapshot()
	if err != nil {
		return nil, err
	}
	return descendantsFrom(snap, root), nil
}

func descendantsFrom(snap map[int32]node, root int32) []int32 {
	children := make(map[int32][]int32, len(snap))
	for pid, n := range snap {
		children[n.ppid] = append(children[n.ppid], pid)
	}

	var out []int32
	queue := []int32{root}
	seen := map[int32]bool{root: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	// Youngest-first ordering for termination: deepest/most-recently
	// created processes first, so a parent never outlives the child that
	// would otherwise be reparented away from under it mid-kill.
	sort.Slice(out, func(i, j int) bool {
		return snap[out[i]].createTime > snap[out[j]].createTime
	})
	return out
}

// Alive reports whether pid currently refers to a live process.
func Alive(pid int32) bool {
	ok, err := process.PidExists(pid)
	return err == nil && ok
}

// Kill terminates pid together with every descendant it had at the time
// of the call. It delivers a polite signal first, waits up to grace, then
// escalates to a forceful kill for anything still alive — including a
// second snapshot pass after grace to catch late-born grandchildren
// (spec.md §4.2). Orphaned descendants reparented away before shutdown
// are explicitly out of reach and are not an error.
//
// The returned bool reports whether the forceful step actually had to
// run against something still alive (as opposed to the polite signal
// alone finishing the job), so callers can log the escalation per
// spec.md §7 ("WARNING on subtree-kill escalations").
func Kill(pid int, grace time.Duration) (escalated bool, err error) {
	return killPlatform(pid, grace)
}

// killGopsutilSubtree is the platform-neutral fallback BFS-kill used
// directly on Windows and as the cross-check on POSIX after the process
// group signal. It reports whether the root or any descendant found by
// the second snapshot was still alive when the second, forceful pass ran.
func killGopsutilSubtree(root int32, grace time.Duration, forceful bool) bool {
	descendants, err := Descendants(root)
	if err != nil {
		return false
	}
	all := append(descendants, root)
	terminateAll(all, forceful)

	if grace > 0 {
		time.Sleep(grace)
	}

	// Second pass: late-born grandchildren of processes that were still
	// starting up during the first snapshot, plus anything the first
	// pass failed to bring down.
	second, err := Descendants(root)
	if err != nil {
		return false
	}
	survivors := append(second, root)
	escalated := false
	for _, pid := range survivors {
		if Alive(pid) {
			escalated = true
			break
		}
	}
	terminateAll(survivors, true)
	return escalated
}

func terminateAll(pids []int32, forceful bool) {
	for _, pid := range pids {
		p, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		if forceful {
			_ = p.Kill()
		} else {
			_ = p.Terminate()
		}
	}
}
