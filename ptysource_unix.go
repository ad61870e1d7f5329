//go:build !windows

package main

import (
	"os/exec"
	"syscall"
	"time"
)

// setProcAttr puts the captioner in its own session with the PTY as its
// controlling terminal.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}
}

// killProcessGroup hangs up the captioner's session, then forces it down.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return
	}

	syscall.Kill(-cmd.Process.Pid, syscall.SIGHUP)
	time.Sleep(100 * time.Millisecond)

	cmd.Process.Signal(syscall.SIGTERM)
	time.Sleep(50 * time.Millisecond)
	cmd.Process.Kill()
}
