//go:build !windows

package session

import (
	"os"
	"syscall"
)

// terminate sends SIGTERM. Delivery is all that is checked.
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
