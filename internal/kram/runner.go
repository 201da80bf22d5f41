package kram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner starts an external program and waits for it to exit.
//
// exitCode is the program's exit status. err is non-nil only when the
// program could not be started at all (missing binary, bad permissions);
// in that case exitCode is -1.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (exitCode int, err error)
}

// ExecRunner runs programs with os/exec. With Verbose set, the child's
// stdout and stderr are connected to this process's streams.
//
// On Unix each child runs in its own process group, so a Ctrl-C at the
// terminal reaches kramtex but not the encoders it started; cancellation
// is left to the caller's context.
type ExecRunner struct {
	Verbose bool

	// Stdout and Stderr override the verbose destinations. Nil means
	// os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements [Runner].
func (r ExecRunner) Run(ctx context.Context, name string, args []string) (int, error) {
	cmd := newCommand(ctx, name, args)
	if r.Verbose {
		cmd.Stdout = orDefault(r.Stdout, os.Stdout)
		cmd.Stderr = orDefault(r.Stderr, os.Stderr)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed by a signal reports -1; still a nonzero status.
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("start %s: %w", name, err)
}

func newCommand(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	detach(cmd)
	return cmd
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
