//go:build !unix

package worker

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// killProcessGroup убивает только сам процесс: групп процессов здесь нет.
func killProcessGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
