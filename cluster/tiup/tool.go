package tiup

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/guseggert/playground/internal/files"
	"github.com/guseggert/playground/process"
	"go.uber.org/zap"
)

const (
	// EnvDir is the environment variable holding the directory of an installed tiup binary.
	EnvDir  = "TIUP_PATH"
	binName = "tiup"
)

var ErrNotFound = errors.New("no usable tiup binary found")

// Tool is a tiup binary that answered a version check.
type Tool struct {
	Bin     string
	Dir     string
	Version string
}

// Version runs "<bin> -v" and returns the first whitespace-delimited token of its output.
func Version(ctx context.Context, runner process.Runner, bin string) (string, error) {
	res, err := runner.Run(ctx, process.Request{Command: bin, Args: []string{"-v"}})
	if err != nil {
		return "", err
	}
	fields := strings.Fields(res.Stdout)
	if res.ExitCode != 0 || len(fields) == 0 {
		return "", &VersionCheckError{Bin: bin, ExitCode: res.ExitCode, Stderr: strings.TrimSpace(res.Stderr)}
	}
	return fields[0], nil
}

// Resolver locates a usable tiup binary.
//
// An Explicit path must pass the version check. Paths are made absolute before use.
// Otherwise the binary in EnvDir, the default install location under Home and the one on PATH are tried in turn,
// and if none of them works the Installer runs. A nil Installer disables installation.
type Resolver struct {
	Explicit  string
	EnvDir    string
	Home      string
	Runner    process.Runner
	Installer *Installer
	Log       *zap.SugaredLogger
}

func (r *Resolver) candidates() []string {
	var c []string
	if r.EnvDir != "" {
		dir, err := filepath.Abs(r.EnvDir)
		if err != nil {
			dir = r.EnvDir
		}
		c = append(c, filepath.Join(dir, binName))
	}
	if r.Home != "" {
		c = append(c, filepath.Join(r.Home, ".tiup", "bin", binName))
	}
	if p, err := exec.LookPath(binName); err == nil {
		c = append(c, p)
	}
	return files.Executables(c...)
}

// absBin looks up bare names on PATH and makes the result absolute, so that the path still works from another directory.
func absBin(bin string) string {
	if filepath.Base(bin) == bin {
		p, err := exec.LookPath(bin)
		if err != nil && !errors.Is(err, exec.ErrDot) {
			return bin
		}
		bin = p
	}
	abs, err := filepath.Abs(bin)
	if err != nil {
		return bin
	}
	return abs
}

func (r *Resolver) check(ctx context.Context, bin string) (*Tool, error) {
	bin = absBin(bin)
	v, err := Version(ctx, r.Runner, bin)
	if err != nil {
		return nil, err
	}
	r.Log.Infow("using tiup", "Bin", bin, "Version", v)
	return &Tool{Bin: bin, Dir: filepath.Dir(bin), Version: v}, nil
}

func (r *Resolver) Resolve(ctx context.Context) (*Tool, error) {
	if r.Explicit != "" {
		return r.check(ctx, r.Explicit)
	}

	for _, bin := range r.candidates() {
		tool, err := r.check(ctx, bin)
		// a broken candidate, e.g. one built for another platform, must not block installation
		var versionErr *VersionCheckError
		var spawnErr *process.SpawnError
		if errors.As(err, &versionErr) || errors.As(err, &spawnErr) {
			r.Log.Debugw("skipping unusable tiup", "Bin", bin, "Error", err)
			continue
		}
		return tool, err
	}

	if r.Installer == nil {
		return nil, ErrNotFound
	}
	dir, err := r.Installer.Install(ctx)
	if err != nil {
		return nil, err
	}
	return r.check(ctx, filepath.Join(dir, binName))
}
