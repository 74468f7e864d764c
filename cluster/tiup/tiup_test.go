package tiup

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/guseggert/playground/cluster"
	"github.com/guseggert/playground/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type stubRunner struct {
	run      func(req process.Request) (*process.Result, error)
	detached func(req process.Request) (*process.Handle, error)

	reqs   []process.Request
	stdins []string
}

func (s *stubRunner) Run(ctx context.Context, req process.Request) (*process.Result, error) {
	s.reqs = append(s.reqs, req)
	stdin := ""
	if req.Stdin != nil {
		b, err := io.ReadAll(req.Stdin)
		if err != nil {
			return nil, err
		}
		stdin = string(b)
	}
	s.stdins = append(s.stdins, stdin)
	return s.run(req)
}

func (s *stubRunner) RunDetached(ctx context.Context, req process.Request) (*process.Handle, error) {
	s.reqs = append(s.reqs, req)
	s.stdins = append(s.stdins, "")
	if s.detached == nil {
		return &process.Handle{Pid: 1234}, nil
	}
	return s.detached(req)
}

var errNoPid = errors.New("no pid")

func failingSpawn(req process.Request) (*process.Result, error) {
	return nil, &process.SpawnError{Command: req.Command, Err: errNoPid}
}

func testLog(t *testing.T) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}

func TestPlaygroundArgs(t *testing.T) {
	cases := []struct {
		name string
		cfg  cluster.Config
		want []string
	}{
		{
			name: "primary count drives all roles",
			cfg:  cluster.Config{Version: "v8", Tag: "abcd1234", Replicas: cluster.Replicas{DB: 3}},
			want: []string{
				"playground", "v8", "--tag", "abcd1234",
				"--db", "3", "--pd", "3", "--tiflash", "3", "--kv", "3",
				"--db.host", "0.0.0.0", "--pd.host", "0.0.0.0",
			},
		},
		{
			name: "defaults to one of each",
			cfg:  cluster.Config{Tag: "x"},
			want: []string{
				"playground", "--tag", "x",
				"--db", "1", "--pd", "1", "--tiflash", "1", "--kv", "1",
				"--db.host", "0.0.0.0", "--pd.host", "0.0.0.0",
			},
		},
		{
			name: "other counts ignored without independent replicas",
			cfg:  cluster.Config{Tag: "x", Replicas: cluster.Replicas{PD: 3, KV: 2}},
			want: []string{
				"playground", "--tag", "x",
				"--db", "1", "--pd", "1", "--tiflash", "1", "--kv", "1",
				"--db.host", "0.0.0.0", "--pd.host", "0.0.0.0",
			},
		},
		{
			name: "independent replicas",
			cfg: cluster.Config{
				Tag:                 "x",
				WithoutMonitor:      true,
				IndependentReplicas: true,
				Replicas:            cluster.Replicas{DB: 2, PD: 3, KV: 4},
			},
			want: []string{
				"playground", "--tag", "x", "--without-monitor",
				"--db", "2", "--pd", "3", "--tiflash", "1", "--kv", "4",
				"--db.host", "0.0.0.0", "--pd.host", "0.0.0.0",
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, PlaygroundArgs(c.cfg))
		})
	}
}

func TestPlaygroundStartIsDetached(t *testing.T) {
	r := &stubRunner{run: failingSpawn}
	p := NewPlayground("/opt/tiup", r, testLog(t))

	require.NoError(t, p.Start(context.Background(), cluster.Config{Tag: "abcd1234"}))
	require.Len(t, r.reqs, 1)
	assert.Equal(t, "/opt/tiup", r.reqs[0].Command)
	assert.Equal(t, PlaygroundArgs(cluster.Config{Tag: "abcd1234"}), r.reqs[0].Args)
}

func TestPlaygroundIsReady(t *testing.T) {
	exitCode := 1
	r := &stubRunner{run: func(req process.Request) (*process.Result, error) {
		return &process.Result{ExitCode: exitCode}, nil
	}}
	p := NewPlayground("tiup", r, testLog(t))

	ready, err := p.IsReady(context.Background(), "abcd1234")
	require.NoError(t, err)
	assert.False(t, ready)

	exitCode = 0
	ready, err = p.IsReady(context.Background(), "abcd1234")
	require.NoError(t, err)
	assert.True(t, ready)

	assert.Equal(t, []string{"client", "abcd1234"}, r.reqs[1].Args)
	assert.Equal(t, "SELECT 1;\n", r.stdins[1])
}

func TestPlaygroundCleanNonZeroIsNotFatal(t *testing.T) {
	r := &stubRunner{run: func(req process.Request) (*process.Result, error) {
		return &process.Result{ExitCode: 1, Stderr: "no such instance"}, nil
	}}
	p := NewPlayground("tiup", r, testLog(t))

	require.NoError(t, p.Clean(context.Background(), "abcd1234"))
	assert.Equal(t, []string{"clean", "abcd1234"}, r.reqs[0].Args)
}

func TestProvisionSpawnFailure(t *testing.T) {
	r := &stubRunner{
		run: failingSpawn,
		detached: func(req process.Request) (*process.Handle, error) {
			return nil, &process.SpawnError{Command: req.Command, Err: errNoPid}
		},
	}
	p := cluster.NewProvisioner(NewPlayground("tiup", r, testLog(t)),
		cluster.WithLogger(testLog(t)), cluster.WithInterval(time.Millisecond), cluster.WithAttempts(5))

	_, err := p.Provision(context.Background(), cluster.Config{Tag: "x"})
	var spawnErr *process.SpawnError
	require.True(t, errors.As(err, &spawnErr), "expected SpawnError, got %v", err)
	require.Len(t, r.reqs, 1, "no probe may run after a failed spawn")
}

func TestReclaimSpawnFailure(t *testing.T) {
	r := &stubRunner{run: failingSpawn}
	rc := cluster.NewReclaimer(NewPlayground("tiup", r, testLog(t)),
		cluster.WithLogger(testLog(t)), cluster.WithInterval(time.Millisecond), cluster.WithAttempts(5))

	err := rc.Reclaim(context.Background(), "x")
	var spawnErr *process.SpawnError
	require.True(t, errors.As(err, &spawnErr), "expected SpawnError, got %v", err)
	require.Len(t, r.reqs, 1, "no probe may run after a failed spawn")
}

func TestProvisionProbeSpawnFailure(t *testing.T) {
	r := &stubRunner{run: failingSpawn}
	p := cluster.NewProvisioner(NewPlayground("tiup", r, testLog(t)),
		cluster.WithLogger(testLog(t)), cluster.WithInterval(time.Millisecond), cluster.WithAttempts(5))

	_, err := p.Provision(context.Background(), cluster.Config{Tag: "x"})
	var spawnErr *process.SpawnError
	require.True(t, errors.As(err, &spawnErr), "expected SpawnError, got %v", err)
	// the detached start plus a single probe
	require.Len(t, r.reqs, 2)
}

func TestVersion(t *testing.T) {
	r := &stubRunner{run: func(req process.Request) (*process.Result, error) {
		return &process.Result{Stdout: "v1.16.1 tiup\nGo Version: go1.21\n"}, nil
	}}
	v, err := Version(context.Background(), r, "tiup")
	require.NoError(t, err)
	assert.Equal(t, "v1.16.1", v)
	assert.Equal(t, []string{"-v"}, r.reqs[0].Args)
}

func TestVersionCheckError(t *testing.T) {
	r := &stubRunner{run: func(req process.Request) (*process.Result, error) {
		return &process.Result{ExitCode: 127, Stderr: "not found"}, nil
	}}
	_, err := Version(context.Background(), r, "tiup")
	var versionErr *VersionCheckError
	require.True(t, errors.As(err, &versionErr), "expected VersionCheckError, got %v", err)
	assert.Equal(t, 127, versionErr.ExitCode)
}

func installScriptServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestInstaller(t *testing.T, url string, r process.Runner) *Installer {
	i := NewInstaller(r, testLog(t))
	i.URL = url
	i.HTTPClient.RetryMax = 0
	return i
}

func TestInstall(t *testing.T) {
	srv := installScriptServer(t, http.StatusOK, "echo installing\n")
	r := &stubRunner{run: func(req process.Request) (*process.Result, error) {
		return &process.Result{Stdout: "Downloading...\nInstalled path: /home/runner/.tiup/bin/tiup\n"}, nil
	}}

	dir, err := newTestInstaller(t, srv.URL, r).Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/home/runner/.tiup/bin", dir)
	assert.Equal(t, "sh", r.reqs[0].Command)
	assert.Equal(t, "echo installing\n", r.stdins[0])
}

func TestInstallErrors(t *testing.T) {
	ok := func(req process.Request) (*process.Result, error) {
		return &process.Result{Stdout: "Installed path: /x/bin/tiup\n"}, nil
	}
	cases := []struct {
		name   string
		status int
		run    func(req process.Request) (*process.Result, error)
	}{
		{name: "http failure", status: http.StatusNotFound, run: ok},
		{name: "script failure", status: http.StatusOK, run: func(req process.Request) (*process.Result, error) {
			return &process.Result{ExitCode: 1, Stderr: "curl failed"}, nil
		}},
		{name: "no installed path", status: http.StatusOK, run: func(req process.Request) (*process.Result, error) {
			return &process.Result{Stdout: "done\n"}, nil
		}},
		{name: "spawn failure", status: http.StatusOK, run: failingSpawn},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := installScriptServer(t, c.status, "script")
			_, err := newTestInstaller(t, srv.URL, &stubRunner{run: c.run}).Install(context.Background())
			var installErr *InstallError
			require.True(t, errors.As(err, &installErr), "expected InstallError, got %v", err)
		})
	}
}

func writeExecutable(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
}

func versionByBin(versions map[string]string) func(req process.Request) (*process.Result, error) {
	return func(req process.Request) (*process.Result, error) {
		v, ok := versions[req.Command]
		if !ok {
			return &process.Result{ExitCode: 1}, nil
		}
		return &process.Result{Stdout: v + " tiup\n"}, nil
	}
}

func TestResolveExplicit(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "tiup")
	r := &stubRunner{run: versionByBin(map[string]string{bin: "v1.16.0"})}
	res := &Resolver{Explicit: bin, Runner: r, Log: testLog(t)}

	tool, err := res.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Tool{Bin: bin, Dir: dir, Version: "v1.16.0"}, tool)

	res.Explicit = filepath.Join(dir, "broken")
	_, err = res.Resolve(context.Background())
	var versionErr *VersionCheckError
	require.True(t, errors.As(err, &versionErr), "expected VersionCheckError, got %v", err)
}

func TestResolveExplicitRelativeIsMadeAbsolute(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	bin := filepath.Join(wd, "bin", "tiup")
	r := &stubRunner{run: versionByBin(map[string]string{bin: "v1.16.0"})}
	res := &Resolver{Explicit: filepath.Join("bin", "tiup"), Runner: r, Log: testLog(t)}

	tool, err := res.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bin, tool.Bin)
	assert.Equal(t, filepath.Join(wd, "bin"), tool.Dir)
	assert.Equal(t, bin, r.reqs[0].Command)
}

func TestResolveRelativeEnvDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not meaningful on windows")
	}
	t.Setenv("PATH", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	envDir := t.TempDir()
	bin := filepath.Join(envDir, "tiup")
	writeExecutable(t, bin)
	rel, err := filepath.Rel(wd, envDir)
	require.NoError(t, err)

	r := &stubRunner{run: versionByBin(map[string]string{bin: "v1.16.1"})}
	res := &Resolver{EnvDir: rel, Home: t.TempDir(), Runner: r, Log: testLog(t)}

	tool, err := res.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bin, tool.Bin)
	assert.Equal(t, envDir, tool.Dir)
}

func TestResolveCandidates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not meaningful on windows")
	}
	t.Setenv("PATH", "")
	envDir := t.TempDir()
	home := t.TempDir()
	broken := filepath.Join(envDir, "tiup")
	good := filepath.Join(home, ".tiup", "bin", "tiup")
	writeExecutable(t, broken)
	writeExecutable(t, good)

	r := &stubRunner{run: versionByBin(map[string]string{good: "v1.16.1"})}
	res := &Resolver{EnvDir: envDir, Home: home, Runner: r, Log: testLog(t)}

	tool, err := res.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, good, tool.Bin)
	assert.Equal(t, "v1.16.1", tool.Version)
	require.Len(t, r.reqs, 2)
	assert.Equal(t, broken, r.reqs[0].Command)
}

func TestResolveFallsBackToInstall(t *testing.T) {
	t.Setenv("PATH", "")
	installed := "/home/runner/.tiup/bin/tiup"
	srv := installScriptServer(t, http.StatusOK, "script")
	r := &stubRunner{run: func(req process.Request) (*process.Result, error) {
		if req.Command == "sh" {
			return &process.Result{Stdout: "Installed path: " + installed + "\n"}, nil
		}
		return versionByBin(map[string]string{installed: "v1.16.1"})(req)
	}}
	res := &Resolver{
		Home:      t.TempDir(),
		Runner:    r,
		Installer: newTestInstaller(t, srv.URL, r),
		Log:       testLog(t),
	}

	tool, err := res.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, installed, tool.Bin)
	assert.Equal(t, "/home/runner/.tiup/bin", tool.Dir)
}

func TestResolveNotFoundWithoutInstaller(t *testing.T) {
	t.Setenv("PATH", "")
	res := &Resolver{Home: t.TempDir(), Runner: &stubRunner{run: failingSpawn}, Log: testLog(t)}

	_, err := res.Resolve(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSkipsCandidateThatCannotSpawn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not meaningful on windows")
	}
	t.Setenv("PATH", "")
	envDir := t.TempDir()
	foreign := filepath.Join(envDir, "tiup")
	writeExecutable(t, foreign)
	installed := filepath.Join(t.TempDir(), ".tiup", "bin", "tiup")

	srv := installScriptServer(t, http.StatusOK, "script")
	r := &stubRunner{run: func(req process.Request) (*process.Result, error) {
		switch req.Command {
		case foreign:
			return nil, &process.SpawnError{Command: req.Command, Err: errors.New("exec format error")}
		case "sh":
			return &process.Result{Stdout: "Installed path: " + installed + "\n"}, nil
		}
		return versionByBin(map[string]string{installed: "v1.16.1"})(req)
	}}
	res := &Resolver{
		EnvDir:    envDir,
		Home:      t.TempDir(),
		Runner:    r,
		Installer: newTestInstaller(t, srv.URL, r),
		Log:       testLog(t),
	}

	tool, err := res.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, installed, tool.Bin)
	assert.Equal(t, foreign, r.reqs[0].Command)
}
