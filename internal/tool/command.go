package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// maxReportedLines caps how many output lines a Result carries; full
// output stays on the tool's own stdout/stderr in verbose runs.
const maxReportedLines = 20

// CommandSpec describes the subprocess behind a tool id.
type CommandSpec struct {
	Tool      string
	Dimension Dimension
	Critical  bool

	// Argv is the command line. File scope, when given and accepted,
	// is appended.
	Argv []string

	// AcceptsFiles reports whether the command takes explicit file
	// arguments (fast mode scoping).
	AcceptsFiles bool

	// Timeout bounds one execution; zero means the caller's context
	// deadline alone applies.
	Timeout time.Duration

	// Dir is the working directory for the subprocess.
	Dir string
}

// CommandAdapter executes an external tool as a subprocess.
type CommandAdapter struct {
	spec CommandSpec
}

// NewCommandAdapter creates an adapter from a command spec.
func NewCommandAdapter(spec CommandSpec) *CommandAdapter {
	return &CommandAdapter{spec: spec}
}

func (a *CommandAdapter) Name() string         { return a.spec.Tool }
func (a *CommandAdapter) Dimension() Dimension { return a.spec.Dimension }
func (a *CommandAdapter) Critical() bool       { return a.spec.Critical }

// Initialize verifies the command binary resolves. Failing here aborts
// the run before any tool executes.
func (a *CommandAdapter) Initialize(ctx context.Context) error {
	if len(a.spec.Argv) == 0 {
		return fmt.Errorf("tool %s: empty command", a.spec.Tool)
	}
	if _, err := exec.LookPath(a.spec.Argv[0]); err != nil {
		return fmt.Errorf("tool %s: %w", a.spec.Tool, err)
	}
	return nil
}

// Execute runs the subprocess and converts its outcome into a Result.
//
// On timeout the result is a synthesized non-crashing failure; whether
// that failure is treated as critical is the executor's call. Spawn
// permission problems surface as ErrSpawnDenied.
func (a *CommandAdapter) Execute(ctx context.Context, files []string) (*Result, error) {
	if a.spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.spec.Timeout)
		defer cancel()
	}

	argv := a.spec.Argv
	if a.spec.AcceptsFiles && len(files) > 0 {
		argv = append(append([]string(nil), argv...), files...)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = a.spec.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := &Result{
		Tool:      a.spec.Tool,
		Dimension: a.spec.Dimension,
		Critical:  a.spec.Critical,
		MemoryMB:  peakMemoryMB(cmd),
	}
	result.SetDuration(elapsed)

	switch {
	case err == nil:
		result.Success = true
		result.Warnings = headLines(stderr.String())

	case ctx.Err() == context.DeadlineExceeded:
		result.Success = false
		result.TimedOut = true
		result.Errors = []string{"timeout"}

	case isSpawnDenied(err):
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnDenied, a.spec.Tool, err)

	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("tool %s: %w", a.spec.Tool, err)
		}
		result.Success = false
		result.Errors = headLines(stderr.String())
		if len(result.Errors) == 0 {
			result.Errors = headLines(stdout.String())
		}
		if len(result.Errors) == 0 {
			result.Errors = []string{fmt.Sprintf("exit status %d", exitErr.ExitCode())}
		}
	}

	return result, nil
}

// peakMemoryMB reads the subprocess's max RSS where the platform
// exposes it.
func peakMemoryMB(cmd *exec.Cmd) int64 {
	if cmd.ProcessState == nil {
		return 0
	}
	rusage, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage)
	if !ok || rusage == nil {
		return 0
	}
	// Maxrss is kilobytes on Linux.
	return rusage.Maxrss / 1024
}

// isSpawnDenied distinguishes permission failures from ordinary tool
// failures.
func isSpawnDenied(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES)
}

// headLines returns up to maxReportedLines non-empty lines of s.
func headLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxReportedLines {
			break
		}
	}
	return lines
}
