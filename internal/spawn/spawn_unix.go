//go:build !windows

package spawn

import (
	"os/exec"
	"syscall"
)

func platformShell() (name, flag string) {
	return "/bin/sh", "-c"
}

// applyPlatformAttrs places the child in its own process group (spec.md
// §4.1) so the whole group can later be signaled by internal/subtree,
// adapted from cluster/worker_unix.go's applyOSSpecificSettings.
func applyPlatformAttrs(cmd *exec.Cmd, spec Spec) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// applyPriority clamps priority to [-20,19] and applies it via nice,
// resolving spec.md §9's Open Question: POSIX priority is clamped, not
// passed through raw.
func applyPriority(pid int, priority int) {
	if priority == 0 {
		return
	}
	nice := clampNice(priority)
	_ = syscall.Setpriority(syscall.PRIO_PROCESS, pid, nice)
}

func clampNice(priority int) int {
	// priority here is already the caller's mapped -1/0/1 band, scaled to
	// a reasonable nice delta from the default. Callers that want a raw
	// integer nice value should clamp it themselves before reaching spawn;
	// this clamp is the final backstop.
	nice := priority * 10
	if nice < -20 {
		nice = -20
	}
	if nice > 19 {
		nice = 19
	}
	return nice
}
