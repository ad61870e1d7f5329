//go:build windows

package main

import (
	"errors"
	"fmt"
	"path/filepath"
)

var errDaemonUnsupported = errors.New("daemon mode is not supported on Windows")

func pidFilePath() string {
	return filepath.Join(getConfigDir(), "livesub.pid")
}

func logFilePath() string {
	return filepath.Join(getConfigDir(), "livesub.log")
}

func removePIDFile() {}

func daemonize(extraArgs []string, captionCommand string) error {
	return errDaemonUnsupported
}

func daemonStop() {
	fmt.Println("Daemon mode is not supported on Windows.")
	fmt.Println("Run livesub from a terminal or as a Windows service.")
}

func daemonStatus() {
	fmt.Println("Daemon mode is not supported on Windows.")
}
