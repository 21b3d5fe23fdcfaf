//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
	"time"
)

// setProcessGroup puts the child in its own process group so that
// terminateProcessGroup can signal every descendant it spawns, not just
// the shell itself.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcessGroup sends SIGTERM to the child's process group, waits
// briefly for it to exit, then escalates to SIGKILL, per spec §4.5.
func terminateProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.Sleep(100 * time.Millisecond)
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
