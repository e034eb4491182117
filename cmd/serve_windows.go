//go:build windows

package cmd

import (
	"os"
	"os/exec"
)

// setDaemonAttrs is a no-op: Windows has no Setsid and the child already
// outlives its parent.
func setDaemonAttrs(_ *exec.Cmd) {}

// shutdownSignals is Ctrl+C only. 'serve stop' falls back to SIGKILL here.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
