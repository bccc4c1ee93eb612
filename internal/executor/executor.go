// Package executor runs build scripts through the platform shell with
// captured output, merged environments, and optional PTY streaming for
// interactive local runs.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
)

// Request describes one script invocation.
type Request struct {
	// Command is a single-line shell command.
	Command string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are appended to the parent environment.
	Env map[string]string
	// Timeout kills the command when exceeded. Zero means no limit.
	Timeout time.Duration
	// Interactive routes the command through a PTY when stdin is a
	// terminal, so scripts that prompt keep working in local runs.
	Interactive bool
}

// Result carries what a finished command produced, whether it failed or
// not.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
}

// Runner executes requests. Tests inject fakes to avoid running real
// commands.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Executor is the real Runner implementation.
type Executor struct {
	DryRun bool
	Shell  string // optional shell override (e.g. "pwsh")

	// Stream mirrors captured output as it is produced, for live logs.
	Stream io.Writer
	// Stdin feeds interactive commands; defaults to os.Stdin.
	Stdin io.Reader
}

// New returns an Executor with the given dry-run mode.
func New(dry bool) *Executor {
	return &Executor{DryRun: dry}
}

// maxCapturedOutput bounds how much output a step keeps. The tail is
// retained because failures show up at the end of build logs.
const maxCapturedOutput = 64 * 1024

// Run executes the request and returns its captured output. A non-zero
// exit is an error; the Result still carries the output and exit code.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	command, err := validateAndSanitize(req.Command)
	if err != nil {
		return nil, err
	}

	if e.DryRun {
		return &Result{Output: "dry-run: " + command + "\n"}, nil
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	shell, args := shellInvocation(command, e.Shell)
	if _, err := exec.LookPath(shell); err != nil {
		return nil, fmt.Errorf("shell not found in PATH: %s", shell)
	}

	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Dir = req.Dir
	cmd.Env = mergedEnv(req.Env)

	capture := newTailBuffer(maxCapturedOutput)
	var sink io.Writer = capture
	if e.Stream != nil {
		sink = io.MultiWriter(capture, e.Stream)
	}

	start := time.Now()
	runErr := e.start(cmd, req, sink)
	res := &Result{
		Output:   capture.String(),
		Duration: time.Since(start),
	}
	if runErr != nil {
		res.ExitCode = exitCode(runErr)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("command timed out after %s", req.Timeout)
		}
		return res, commandError(runErr, res.Output)
	}
	return res, nil
}

func (e *Executor) start(cmd *exec.Cmd, req Request, sink io.Writer) error {
	if req.Interactive {
		stdin := e.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		if f, ok := stdin.(interface{ Fd() uintptr }); ok && isTerminal(f.Fd()) {
			return ptyStarter(cmd, stdin, sink)
		}
	}
	cmd.Stdout = sink
	cmd.Stderr = sink
	return cmd.Run()
}

// commandError keeps a short tail of output in the error text so failures
// stay readable in logs that only carry the error.
func commandError(err error, output string) error {
	out := strings.TrimSpace(output)
	const tail = 300
	if len(out) > tail {
		out = "..." + out[len(out)-tail:]
	}
	if out != "" {
		return fmt.Errorf("command failed: %w (output=%q)", err, out)
	}
	return fmt.Errorf("command failed: %w", err)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// mergedEnv appends extra entries to the parent environment in sorted
// order. A nil return inherits the parent environment untouched.
func mergedEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// shellInvocation returns the shell executable and arguments for the
// platform. An override lets callers request an alternate shell.
func shellInvocation(command, override string) (string, []string) {
	if override != "" {
		switch override {
		case "pwsh", "powershell":
			return override, []string{"-Command", command}
		default:
			return override, []string{"-c", command}
		}
	}
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "bash", []string{"-c", command}
}

// sanitizeCommand normalizes unicode characters that editors tend to
// insert (smart quotes, NBSP, zero-width spaces) and strips NUL bytes.
func sanitizeCommand(s string) string {
	s = strings.NewReplacer(
		"‘", "'",
		"’", "'",
		"“", "\"",
		"”", "\"",
		" ", " ",
		"​", "",
		"‎", "",
		"‏", "",
	).Replace(s)
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}

// Sanitize exposes command sanitization for callers that clean up
// user-edited script lines before saving them.
func Sanitize(s string) string {
	return sanitizeCommand(s)
}

// QuoteArgs renders args as a single shell-safe string, for appending
// extra arguments to a script line.
func QuoteArgs(args []string) string {
	return shellquote.Join(args...)
}

func validateAndSanitize(command string) (string, error) {
	command = sanitizeCommand(command)
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("invalid command: empty")
	}
	if err := ValidateCommand(command); err != nil {
		return "", err
	}
	return command, nil
}

// ValidateCommand rejects commands that cannot survive a shell invocation:
// multiline strings and embedded control characters.
func ValidateCommand(s string) error {
	if strings.Contains(s, "\n") {
		return fmt.Errorf("invalid command: contains newline characters; a script line must be a single line")
	}
	if strings.IndexFunc(s, func(r rune) bool { return r == 0 || (r < 32 && r != '\t') || r == 0x7f }) != -1 {
		return fmt.Errorf("invalid command: contains control characters")
	}
	return nil
}

// tailBuffer keeps the last max bytes written. stdout and stderr share one
// sink, so writes are serialized.
type tailBuffer struct {
	mu        sync.Mutex
	max       int
	buf       []byte
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		keep := make([]byte, b.max)
		copy(keep, b.buf[len(b.buf)-b.max:])
		b.buf = keep
		b.truncated = true
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return "[earlier output truncated]\n" + string(b.buf)
	}
	return string(b.buf)
}
