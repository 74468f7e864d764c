package tiup

import (
	"context"
	"strings"

	"github.com/guseggert/playground/cluster"
	"github.com/guseggert/playground/process"
	"go.uber.org/zap"
)

// probeQuery is piped into "tiup client" to check that the cluster accepts queries.
const probeQuery = "SELECT 1;\n"

// Playground drives playground clusters through the tiup binary at Bin.
type Playground struct {
	Bin    string
	Runner process.Runner
	Log    *zap.SugaredLogger
}

var _ cluster.Cluster = (*Playground)(nil)

func NewPlayground(bin string, runner process.Runner, log *zap.SugaredLogger) *Playground {
	return &Playground{
		Bin:    bin,
		Runner: runner,
		Log:    log.Named("tiup_playground"),
	}
}

// Start launches "tiup playground" detached, so the cluster survives this process.
func (p *Playground) Start(ctx context.Context, cfg cluster.Config) error {
	args := PlaygroundArgs(cfg)
	p.Log.Debugw("launching playground", "Bin", p.Bin, "Args", args)
	h, err := p.Runner.RunDetached(ctx, process.Request{Command: p.Bin, Args: args})
	if err != nil {
		return err
	}
	p.Log.Debugw("playground launched", "Pid", h.Pid)
	return nil
}

// Clean runs "tiup clean <id>". A non-zero exit is only logged; callers verify absence by probing.
func (p *Playground) Clean(ctx context.Context, id cluster.ID) error {
	res, err := p.Runner.Run(ctx, process.Request{
		Command: p.Bin,
		Args:    []string{"clean", string(id)},
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		p.Log.Warnw("tiup clean exited non-zero", "ClusterID", id, "ExitCode", res.ExitCode, "Stderr", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// IsReady pipes a trivial query into "tiup client <id>" and reports whether it exited cleanly.
func (p *Playground) IsReady(ctx context.Context, id cluster.ID) (bool, error) {
	res, err := p.Runner.Run(ctx, process.Request{
		Command: p.Bin,
		Args:    []string{"client", string(id)},
		Stdin:   strings.NewReader(probeQuery),
	})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}
