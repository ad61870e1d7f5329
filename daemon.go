//go:build !windows

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var errDaemonRunning = errors.New("daemon is already running")

// pidFilePath returns the path to the PID file used by daemon mode.
func pidFilePath() string {
	return filepath.Join(getConfigDir(), "livesub.pid")
}

// logFilePath returns the path to the daemon's log file.
func logFilePath() string {
	return filepath.Join(getConfigDir(), "livesub.log")
}

func writePIDFile(pid int) error {
	if err := os.MkdirAll(getConfigDir(), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPIDFile() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

// removePIDFile is best-effort.
func removePIDFile() {
	os.Remove(pidFilePath())
}

// isProcessAlive sends signal 0 to pid.
func isProcessAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// checkDaemonStart refuses to start a second daemon and clears a stale PID
// file. The captioning command must resolve, since the daemon cannot report
// a launch failure to a terminal.
func checkDaemonStart(captionCommand string) error {
	if pid, err := readPIDFile(); err == nil {
		if isProcessAlive(pid) {
			return fmt.Errorf("%w (PID %d)", errDaemonRunning, pid)
		}
		removePIDFile()
	}
	if _, err := exec.LookPath(captionCommand); err != nil {
		return fmt.Errorf("caption command %q: %w", captionCommand, err)
	}
	return nil
}

// daemonize re-executes the binary with --daemon-child, detached in its own
// session, and records the child's PID.
func daemonize(extraArgs []string, captionCommand string) error {
	if err := checkDaemonStart(captionCommand); err != nil {
		return err
	}
	if err := os.MkdirAll(getConfigDir(), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	logPath := logFilePath()
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot open log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	args := append([]string{"--daemon-child"}, extraArgs...)
	cmd := exec.Command(os.Args[0], args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), "LIVESUB_DAEMON=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	if err := writePIDFile(cmd.Process.Pid); err != nil {
		fmt.Printf("Warning: Failed to write PID file: %v\n", err)
	}

	fmt.Printf("Daemon started (PID %d).\n", cmd.Process.Pid)
	fmt.Printf("Log file: %s\n", logPath)
	fmt.Printf("PID file: %s\n", pidFilePath())
	fmt.Println()
	fmt.Println("Use --status to check status, --stop to stop.")
	return nil
}

// daemonStop sends SIGTERM and escalates to SIGKILL after 5s.
func daemonStop() {
	pid, err := readPIDFile()
	if err != nil {
		fmt.Println("No daemon is running (PID file not found).")
		return
	}

	if !isProcessAlive(pid) {
		fmt.Printf("Daemon (PID %d) is not running. Removing stale PID file.\n", pid)
		removePIDFile()
		return
	}

	fmt.Printf("Stopping daemon (PID %d)...\n", pid)
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		fmt.Printf("Error sending SIGTERM: %v\n", err)
		return
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !isProcessAlive(pid) {
			fmt.Println("Daemon stopped.")
			removePIDFile()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Println("Daemon did not stop gracefully. Sending SIGKILL...")
	syscall.Kill(pid, syscall.SIGKILL)
	time.Sleep(500 * time.Millisecond)

	if !isProcessAlive(pid) {
		fmt.Println("Daemon killed.")
	} else {
		fmt.Printf("Warning: Failed to kill daemon (PID %d).\n", pid)
	}
	removePIDFile()
}

func daemonStatus() {
	pid, err := readPIDFile()
	if err != nil {
		fmt.Println("Status: Not running (no PID file).")
		return
	}

	if isProcessAlive(pid) {
		fmt.Printf("Status: Running (PID %d)\n", pid)
		fmt.Printf("PID file: %s\n", pidFilePath())
		fmt.Printf("Log file: %s\n", logFilePath())
	} else {
		fmt.Printf("Status: Not running (stale PID %d)\n", pid)
		removePIDFile()
	}
}
