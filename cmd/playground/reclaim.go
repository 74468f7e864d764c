package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guseggert/playground/actions"
	"github.com/guseggert/playground/cluster"
	"github.com/guseggert/playground/cluster/tiup"
	"github.com/guseggert/playground/process"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type reclaimOptions struct {
	// ClusterID and TiupPath fall back to the values saved by provision.
	ClusterID cluster.ID
	TiupPath  string

	Timeout  time.Duration
	Interval time.Duration

	EnvDir string
	Home   string
}

func reclaimCommand(log *zap.SugaredLogger, d deps) *cli.Command {
	return &cli.Command{
		Name:  "reclaim",
		Usage: "clean a playground cluster and wait for it to stop accepting queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "cluster-id",
				Usage:   "Tag of the cluster to clean. Defaults to the one saved by provision.",
				EnvVars: inputEnv("cluster-id"),
			},
			timeoutFlag(),
			tiupPathFlag(),
		},
		Action: func(cctx *cli.Context) error {
			store := actions.NewStore(d.getenv, cctx.String("state-file"))
			return reclaim(cctx.Context, log, store, d.runner, reclaimOptions{
				ClusterID: cluster.ID(cctx.String("cluster-id")),
				TiupPath:  cctx.String("tiup-path"),
				Timeout:   time.Duration(cctx.Int("timeout")) * time.Second,
				Interval:  d.interval,
				EnvDir:    d.getenv(tiup.EnvDir),
				Home:      homeDir(log),
			})
		},
	}
}

func reclaim(ctx context.Context, log *zap.SugaredLogger, store actions.Store, runner process.Runner, opts reclaimOptions) error {
	id := opts.ClusterID
	if id == "" {
		id = cluster.ID(store.State(stateClusterID))
	}
	if id == "" {
		return errors.New("no cluster ID given and none saved by provision")
	}

	bin := opts.TiupPath
	if bin == "" {
		bin = store.State(stateTiupBin)
	}
	resolver := &tiup.Resolver{
		Explicit: bin,
		EnvDir:   opts.EnvDir,
		Home:     opts.Home,
		Runner:   runner,
		Log:      log.Named("tiup_resolver"),
	}
	tool, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving tiup: %w", err)
	}

	reclaimer := cluster.NewReclaimer(
		tiup.NewPlayground(tool.Bin, runner, log),
		cluster.WithLogger(log),
		cluster.WithInterval(opts.Interval),
		cluster.WithTimeout(opts.Timeout),
	)
	err = reclaimer.Reclaim(ctx, id)
	if err != nil {
		return err
	}

	if fs, ok := store.(*actions.FileStore); ok {
		err = fs.Remove()
		if err != nil {
			log.Warnf("removing state file: %s", err)
		}
	}

	log.Infof("tiup playground %s stopped", id)
	return nil
}
