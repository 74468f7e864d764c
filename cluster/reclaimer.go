package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/guseggert/playground/poll"
)

// Reclaimer tears down a provisioned cluster and confirms it no longer answers queries.
type Reclaimer struct {
	cluster Cluster
	waitConfig
}

func NewReclaimer(c Cluster, opts ...Option) *Reclaimer {
	return &Reclaimer{
		cluster:    c,
		waitConfig: newWaitConfig("reclaimer", opts),
	}
}

func (r *Reclaimer) Reclaim(ctx context.Context, id ID) error {
	if id == "" {
		return errors.New("no cluster ID to reclaim")
	}
	log := r.log.With("ClusterID", id)

	log.Info("cleaning cluster")
	err := r.cluster.Clean(ctx, id)
	if err != nil {
		return fmt.Errorf("cleaning cluster %s: %w", id, err)
	}

	log.Infof("waiting for cluster to stop (%d attempts, %s interval)", r.attempts, r.interval)
	attempt := 0
	ready, err := poll.Until(ctx, func(ctx context.Context) (bool, error) {
		attempt++
		ready, err := r.isReady(ctx, r.cluster, id, true)
		log.Debugw("probed cluster", "Attempt", attempt, "Ready", ready)
		return ready, err
	}, false, r.attempts, r.interval)
	if err != nil {
		return fmt.Errorf("probing cluster %s: %w", id, err)
	}
	if ready {
		return &ReclaimTimeoutError{ID: id, Attempts: r.attempts}
	}

	log.Info("cluster stopped")
	return nil
}
