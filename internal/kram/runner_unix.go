//go:build unix

package kram

import (
	"os/exec"
	"syscall"
)

// detach moves the child into a new process group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
