//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// setProcAttr detaches the daemon from our session so terminal signals
// aimed at podsup do not reach it directly.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
