package cluster

import (
	"context"
	"fmt"

	"github.com/guseggert/playground/poll"
)

// Provisioner brings up one cluster and waits until it answers queries.
type Provisioner struct {
	cluster Cluster
	waitConfig
}

func NewProvisioner(c Cluster, opts ...Option) *Provisioner {
	return &Provisioner{
		cluster:    c,
		waitConfig: newWaitConfig("provisioner", opts),
	}
}

// Provision starts the cluster and returns its ID once it is ready.
// A tag is generated if cfg has none. On timeout the cluster is left running.
func (p *Provisioner) Provision(ctx context.Context, cfg Config) (ID, error) {
	if cfg.Tag == "" {
		cfg.Tag = NewID()
	}
	id := cfg.Tag
	log := p.log.With("ClusterID", id)

	log.Infow("starting cluster", "Version", cfg.Version)
	err := p.cluster.Start(ctx, cfg)
	if err != nil {
		return id, fmt.Errorf("starting cluster %s: %w", id, err)
	}

	log.Infof("waiting for cluster to be ready (%d attempts, %s interval)", p.attempts, p.interval)
	attempt := 0
	ready, err := poll.Until(ctx, func(ctx context.Context) (bool, error) {
		attempt++
		ready, err := p.isReady(ctx, p.cluster, id, false)
		log.Debugw("probed cluster", "Attempt", attempt, "Ready", ready)
		return ready, err
	}, true, p.attempts, p.interval)
	if err != nil {
		return id, fmt.Errorf("probing cluster %s: %w", id, err)
	}
	if !ready {
		return id, &ProvisionTimeoutError{ID: id, Attempts: p.attempts}
	}

	log.Info("cluster ready")
	return id, nil
}
