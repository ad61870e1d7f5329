//go:build windows

package main

import (
	"os/exec"
	"strconv"
	"time"
)

// setProcAttr is a no-op on Windows, ConPTY handles terminal setup.
func setProcAttr(cmd *exec.Cmd) {}

// killProcessGroup kills the captioner and its children with taskkill.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	kill := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid))
	kill.Run()

	time.Sleep(100 * time.Millisecond)
	cmd.Process.Kill()
}
