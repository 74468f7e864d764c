package main

import (
	"context"
	"fmt"
	"time"

	"github.com/guseggert/playground/actions"
	"github.com/guseggert/playground/cluster"
	"github.com/guseggert/playground/cluster/tiup"
	"github.com/guseggert/playground/process"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type provisionOptions struct {
	Config   cluster.Config
	Timeout  time.Duration
	Interval time.Duration

	// TiupPath is an explicit tiup binary. When empty, EnvDir, Home and PATH are searched and tiup is installed from InstallURL as a last resort.
	TiupPath   string
	EnvDir     string
	Home       string
	InstallURL string
}

func provisionCommand(log *zap.SugaredLogger, d deps) *cli.Command {
	return &cli.Command{
		Name:  "provision",
		Usage: "start a playground cluster and wait for it to accept queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "version",
				Usage:   "TiDB version to boot, e.g. v8.1.0. Defaults to tiup's choice.",
				EnvVars: inputEnv("version"),
			},
			&cli.IntFlag{Name: "db", Usage: "TiDB instances.", EnvVars: inputEnv("db")},
			&cli.IntFlag{Name: "pd", Usage: "PD instances.", EnvVars: inputEnv("pd")},
			&cli.IntFlag{Name: "tiflash", Usage: "TiFlash instances.", EnvVars: inputEnv("tiflash")},
			&cli.IntFlag{Name: "kv", Usage: "TiKV instances.", EnvVars: inputEnv("kv")},
			&cli.BoolFlag{
				Name:    "without-monitor",
				Usage:   "Do not start the monitoring components.",
				EnvVars: inputEnv("without-monitor"),
			},
			&cli.BoolFlag{
				Name:    "independent-replicas",
				Usage:   "Use each role's own count. By default --db applies to every role.",
				EnvVars: inputEnv("independent-replicas"),
			},
			&cli.StringFlag{
				Name:    "cluster-id",
				Usage:   "Tag for the cluster. Generated when empty.",
				EnvVars: inputEnv("cluster-id"),
			},
			timeoutFlag(),
			tiupPathFlag(),
		},
		Action: func(cctx *cli.Context) error {
			store := actions.NewStore(d.getenv, cctx.String("state-file"))
			return provision(cctx.Context, log, store, d.runner, provisionOptions{
				Config: cluster.Config{
					Version: cctx.String("version"),
					Tag:     cluster.ID(cctx.String("cluster-id")),
					Replicas: cluster.Replicas{
						DB:      cctx.Int("db"),
						PD:      cctx.Int("pd"),
						TiFlash: cctx.Int("tiflash"),
						KV:      cctx.Int("kv"),
					},
					WithoutMonitor:      cctx.Bool("without-monitor"),
					IndependentReplicas: cctx.Bool("independent-replicas"),
				},
				Timeout:  time.Duration(cctx.Int("timeout")) * time.Second,
				Interval: d.interval,
				TiupPath: cctx.String("tiup-path"),
				EnvDir:   d.getenv(tiup.EnvDir),
				Home:     homeDir(log),
			})
		},
	}
}

func provision(ctx context.Context, log *zap.SugaredLogger, store actions.Store, runner process.Runner, opts provisionOptions) error {
	installer := tiup.NewInstaller(runner, log)
	if opts.InstallURL != "" {
		installer.URL = opts.InstallURL
	}
	resolver := &tiup.Resolver{
		Explicit:  opts.TiupPath,
		EnvDir:    opts.EnvDir,
		Home:      opts.Home,
		Runner:    runner,
		Installer: installer,
		Log:       log.Named("tiup_resolver"),
	}
	tool, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving tiup: %w", err)
	}
	err = store.ExportVariable(tiup.EnvDir, tool.Dir)
	if err != nil {
		return fmt.Errorf("exporting %s: %w", tiup.EnvDir, err)
	}
	err = store.SaveState(stateTiupBin, tool.Bin)
	if err != nil {
		return fmt.Errorf("saving tiup path: %w", err)
	}

	cfg := opts.Config
	if cfg.Tag == "" {
		cfg.Tag = cluster.NewID()
	}
	if !cfg.IndependentReplicas && (cfg.Replicas.PD > 0 || cfg.Replicas.TiFlash > 0 || cfg.Replicas.KV > 0) {
		log.Warnf("pd, tiflash and kv counts are ignored, every role uses the db count (%d); set independent-replicas to honor them", cfg.Replicas.DB)
	}

	// published before waiting so that a later step can clean up a cluster that timed out
	err = store.SaveState(stateClusterID, string(cfg.Tag))
	if err != nil {
		return fmt.Errorf("saving cluster ID: %w", err)
	}
	err = store.SetOutput("cluster-id", string(cfg.Tag))
	if err != nil {
		return fmt.Errorf("setting output cluster-id: %w", err)
	}

	provisioner := cluster.NewProvisioner(
		tiup.NewPlayground(tool.Bin, runner, log),
		cluster.WithLogger(log),
		cluster.WithInterval(opts.Interval),
		cluster.WithTimeout(opts.Timeout),
	)
	id, err := provisioner.Provision(ctx, cfg)
	if err != nil {
		return err
	}

	outputs := [][2]string{
		{"tiup-path", tool.Bin},
		{"tiup-version", tool.Version},
	}
	for _, o := range outputs {
		err = store.SetOutput(o[0], o[1])
		if err != nil {
			return fmt.Errorf("setting output %s: %w", o[0], err)
		}
	}

	log.Infof("tiup playground %s started", id)
	return nil
}
