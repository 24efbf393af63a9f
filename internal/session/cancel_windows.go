//go:build windows

package session

import (
	"os/exec"
	"strconv"
)

// terminate kills the process tree rooted at pid.
func terminate(pid int) error {
	return exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F").Run()
}
