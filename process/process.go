package process

import (
	"context"
	"fmt"
	"io"
)

// Request describes a command to run on the local host.
type Request struct {
	Command string
	Args    []string
	Env     []string
	WD      string

	// Stdin is fed to the process if non-nil. Detached processes ignore it.
	Stdin io.Reader
}

// Result is the outcome of a captured process run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimeMS   int64
}

// Handle identifies a detached process that has been released from this process.
type Handle struct {
	Pid int
}

// Runner launches external commands.
type Runner interface {
	// Run starts the command, drains stdout and stderr to completion and waits for it to exit.
	// A non-zero exit code is reported in the Result, not as an error.
	Run(ctx context.Context, req Request) (*Result, error)

	// RunDetached starts the command in its own session with no stdio attached and returns as soon as it has a pid.
	// The process keeps running after the caller exits.
	RunDetached(ctx context.Context, req Request) (*Handle, error)
}

// SpawnError is returned when the OS could not create the process.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %q: %s", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
