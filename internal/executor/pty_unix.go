//go:build !windows

package executor

import (
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// isTerminal reports whether the file descriptor refers to a terminal. It
// is a package-level variable so tests can simulate terminal conditions
// without a real TTY.
var isTerminal = func(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// makeRaw and restoreTerminal wrap terminal mode changes so tests can
// override them. The default disables local echo only, keeping output
// post-processing intact while hiding typed secrets.
var makeRaw = func(fd int) (*term.State, error) {
	oldState, err := term.GetState(fd)
	if err != nil {
		return nil, err
	}
	if err := setEcho(fd, false); err != nil {
		return nil, err
	}
	return oldState, nil
}

var restoreTerminal = func(fd int, state *term.State) error {
	return term.Restore(fd, state)
}

// ptyStarter runs a command with a hybrid PTY setup. The child's stdin and
// controlling terminal use a PTY so scripts that open /dev/tty (sudo,
// signing prompts) keep working; stdout and stderr stay pipes feeding the
// sink so output capture is untouched. Tests override this variable.
var ptyStarter = func(cmd *exec.Cmd, stdin io.Reader, sink io.Writer) error {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return err
	}

	cmd.Stdin = pts
	cmd.Stdout = sink
	cmd.Stderr = sink

	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true

	if err := cmd.Start(); err != nil {
		_ = pts.Close()
		_ = ptmx.Close()
		return err
	}
	_ = pts.Close()

	// Stop the host terminal from echoing keystrokes while the child owns
	// input, then restore it when the command finishes.
	if f, ok := stdin.(interface{ Fd() uintptr }); ok && isTerminal(f.Fd()) {
		if oldState, err := makeRaw(int(f.Fd())); err == nil {
			defer func() { _ = restoreTerminal(int(f.Fd()), oldState) }()
		}
	}

	// Keystrokes flow into the PTY master; anything the child writes to
	// /dev/tty flows back out to the sink.
	go func() { _, _ = io.Copy(ptmx, stdin) }()
	go func() { _, _ = io.Copy(sink, ptmx) }()

	err = cmd.Wait()
	_ = ptmx.Close()
	return err
}
