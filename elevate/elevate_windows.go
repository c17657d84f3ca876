//go:build windows

package elevate

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

func isAdmin() bool {
	var token windows.Token
	proc, err := windows.GetCurrentProcess()
	if err != nil {
		return false
	}
	if err := windows.OpenProcessToken(proc, windows.TOKEN_QUERY, &token); err != nil {
		return false
	}
	defer token.Close()

	var elevation uint32
	var size uint32
	err = windows.GetTokenInformation(token, windows.TokenElevation,
		(*byte)(unsafe.Pointer(&elevation)), uint32(unsafe.Sizeof(elevation)), &size)
	return err == nil && elevation != 0
}

// relaunch triggers the UAC consent prompt via ShellExecute's "runas"
// verb, matching spec.md §6's "relaunches ... as administrator/root"
// contract on Windows. Unlike the POSIX path this spawns a separate
// process rather than replacing the current image (Windows has no
// exec() analogue), so the un-elevated parent exits once the child is
// launched.
func relaunch() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("elevate: resolve executable: %w", err)
	}
	verb, _ := syscall.UTF16PtrFromString("runas")
	exePtr, _ := syscall.UTF16PtrFromString(exe)
	argPtr, _ := syscall.UTF16PtrFromString(strings.Join(os.Args[1:], " "))

	err = windows.ShellExecute(0, verb, exePtr, argPtr, nil, windows.SW_NORMAL)
	if err != nil {
		return fmt.Errorf("elevate: ShellExecute runas: %w", err)
	}
	os.Exit(0)
	return nil
}
