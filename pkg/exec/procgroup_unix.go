//go:build unix

package exec

import (
	osexec "os/exec"
	"syscall"
)

func setProcessGroup(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup signals the whole group so descendants of the command
// die with it.
func killProcessGroup(cmd *osexec.Cmd) error {
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		// Fall back to killing just the direct child.
		return cmd.Process.Kill()
	}
	return nil
}
