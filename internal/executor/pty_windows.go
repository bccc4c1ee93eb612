//go:build windows

package executor

import (
	"fmt"
	"io"
	"os/exec"
)

// isTerminal always reports false on Windows; interactive runs fall back
// to the plain captured path.
var isTerminal = func(_ uintptr) bool {
	return false
}

// ptyStarter is unsupported on Windows.
var ptyStarter = func(_ *exec.Cmd, _ io.Reader, _ io.Writer) error {
	return fmt.Errorf("PTY not supported on Windows")
}
