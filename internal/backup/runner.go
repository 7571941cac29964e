package backup

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Command describes one external tool invocation
type Command struct {
	Name string
	Args []string
	// Env entries ("KEY=VALUE") are appended to the inherited environment
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// ProcessRunner abstracts child-process execution so unit tests can
// substitute a fake runner with canned stdout and exit codes instead of
// invoking real dump binaries.
type ProcessRunner interface {
	// LookPath resolves a binary name on PATH
	LookPath(name string) (string, error)

	// Run executes the command and blocks until it exits. The command's
	// stdout is streamed to cmd.Stdout, never buffered in memory.
	Run(ctx context.Context, cmd Command) error
}

type execRunner struct{}

// NewProcessRunner creates the os/exec backed runner used in production
func NewProcessRunner() ProcessRunner {
	return &execRunner{}
}

func (r *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *execRunner) Run(ctx context.Context, cmd Command) error {
	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Env = os.Environ()
	if len(cmd.Env) > 0 {
		proc.Env = append(proc.Env, cmd.Env...)
	}
	proc.Stdout = cmd.Stdout
	proc.Stderr = cmd.Stderr
	return proc.Run()
}
