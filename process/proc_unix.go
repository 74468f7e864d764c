//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// detach puts the child in a new session so signals aimed at our process group never reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
