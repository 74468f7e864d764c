package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guseggert/playground/actions"
	"github.com/guseggert/playground/cluster"
	"github.com/guseggert/playground/process"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// keys of the values handed from the provision step to the reclaim step
const (
	stateClusterID = "cluster-id"
	stateTiupBin   = "tiup-bin"
)

// deps are the collaborators shared by both commands.
type deps struct {
	runner   process.Runner
	getenv   func(string) string
	interval time.Duration
}

func inputEnv(name string) []string {
	return []string{actions.InputEnvVar(name)}
}

func tiupPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "tiup-path",
		Usage:   "Path to the tiup binary. Resolved or installed when empty.",
		EnvVars: inputEnv("tiup-path"),
	}
}

func timeoutFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "timeout",
		Usage:   "Seconds to wait for the cluster to change state, probing once per second.",
		Value:   60,
		EnvVars: inputEnv("timeout"),
	}
}

func homeDir(log *zap.SugaredLogger) string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Debugf("no home dir: %s", err)
	}
	return home
}

// run executes the app and returns the process exit code.
// A nil d.runner is replaced with a local runner logging to out.
func run(ctx context.Context, args []string, out io.Writer, d deps) int {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger := actions.NewLogger(out, level)
	log := logger.Sugar()

	if d.runner == nil {
		d.runner = process.NewLocal(log)
	}
	if d.getenv == nil {
		d.getenv = os.Getenv
	}
	if d.interval <= 0 {
		d.interval = cluster.DefaultInterval
	}

	app := &cli.App{
		Name:  "playground",
		Usage: "provision and reclaim ephemeral TiDB playground clusters in CI",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging.",
				EnvVars: []string{"RUNNER_DEBUG"},
			},
			&cli.StringFlag{
				Name:  "state-file",
				Usage: "File used to hand the cluster over to reclaim when not running under GitHub Actions.",
				Value: ".playground-state.toml",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("debug") {
				level.SetLevel(zapcore.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			provisionCommand(log, d),
			reclaimCommand(log, d),
		},
		Writer:    out,
		ErrWriter: out,
	}

	err := app.RunContext(ctx, args)
	if err != nil {
		log.Error(err)
		_ = logger.Sync()
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, deps{})
	stop()
	os.Exit(code)
}
