package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNoPid = errors.New("no pid allocated")

// Local runs processes directly on the underlying host.
type Local struct {
	Log *zap.SugaredLogger
}

func NewLocal(log *zap.SugaredLogger) *Local {
	return &Local{Log: log.Named("local_runner")}
}

func (l *Local) command(req Request) *exec.Cmd {
	cmd := exec.Command(req.Command, req.Args...)
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	cmd.Dir = req.WD
	return cmd
}

func (l *Local) Run(ctx context.Context, req Request) (*Result, error) {
	cmd := l.command(req)
	cmd.Stdin = req.Stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr pipe: %w", err)
	}

	start := time.Now()
	err = cmd.Start()
	if err != nil {
		return nil, &SpawnError{Command: req.Command, Err: err}
	}
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return nil, &SpawnError{Command: req.Command, Err: errNoPid}
	}
	l.Log.Debugw("process started", "Command", req.Command, "Args", req.Args, "Pid", cmd.Process.Pid)

	// kill the process if the context is canceled
	procExitedChan := make(chan struct{})
	defer close(procExitedChan)
	go func() {
		select {
		case <-ctx.Done():
			cmd.Process.Kill()
		case <-procExitedChan:
		}
	}()

	// both streams must hit EOF before Wait, which closes the pipes
	var stdoutBuf, stderrBuf bytes.Buffer
	var group errgroup.Group
	group.Go(func() error {
		_, err := io.Copy(&stdoutBuf, stdout)
		return err
	})
	group.Go(func() error {
		_, err := io.Copy(&stderrBuf, stderr)
		return err
	})
	drainErr := group.Wait()

	err = cmd.Wait()
	timeMS := time.Since(start).Milliseconds()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("waiting for %q: %w", req.Command, err)
		}
		exitCode = exitErr.ExitCode()
	}
	if drainErr != nil {
		return nil, fmt.Errorf("reading output of %q: %w", req.Command, drainErr)
	}

	l.Log.Debugw("process exited", "Command", req.Command, "ExitCode", exitCode, "TimeMS", timeMS)
	return &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: exitCode,
		TimeMS:   timeMS,
	}, nil
}

func (l *Local) RunDetached(ctx context.Context, req Request) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := l.command(req)
	detach(cmd)

	err := cmd.Start()
	if err != nil {
		return nil, &SpawnError{Command: req.Command, Err: err}
	}
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return nil, &SpawnError{Command: req.Command, Err: errNoPid}
	}
	pid := cmd.Process.Pid
	l.Log.Debugw("detached process started", "Command", req.Command, "Args", req.Args, "Pid", pid)

	err = cmd.Process.Release()
	if err != nil {
		l.Log.Debugf("error releasing process %d: %s", pid, err)
	}
	return &Handle{Pid: pid}, nil
}
