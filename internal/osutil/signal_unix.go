//go:build !windows

package osutil

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var kill = unix.Kill

// Interrupt asks pid to shut down cooperatively.
func Interrupt(pid int) error {
	if err := kill(pid, unix.SIGINT); err != nil {
		return fmt.Errorf("interrupting process %d: %w", pid, err)
	}
	return nil
}

// Terminate kills pid without giving it a chance to clean up.
func Terminate(pid int) error {
	if err := kill(pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("killing process %d: %w", pid, err)
	}
	return nil
}

// Alive reports whether pid exists and can be signalled.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := kill(pid, 0)
	return err == nil || err == unix.EPERM
}
