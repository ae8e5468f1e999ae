//go:build windows

package process

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

// terminate kills the process; Windows has no SIGTERM equivalent for
// console children.
func terminate(p *os.Process) error {
	return p.Kill()
}

func kill(p *os.Process) error {
	return p.Kill()
}

func signalExitCode(*exec.ExitError) (int, bool) {
	return 0, false
}
