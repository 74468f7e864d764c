package cluster

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAttempts = 60
	DefaultInterval = time.Second
	// DefaultCheckTimeout bounds a single readiness check.
	DefaultCheckTimeout = 10 * time.Second
)

var defaultLogger *zap.SugaredLogger

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("error constructing default logger: %s", err))
	}
	defaultLogger = logger.Sugar()
}

type waitConfig struct {
	log          *zap.SugaredLogger
	attempts     int
	interval     time.Duration
	checkTimeout time.Duration
}

func newWaitConfig(name string, opts []Option) waitConfig {
	w := waitConfig{
		log:          defaultLogger,
		attempts:     DefaultAttempts,
		interval:     DefaultInterval,
		checkTimeout: DefaultCheckTimeout,
	}
	for _, o := range opts {
		o(&w)
	}
	w.log = w.log.Named(name)
	return w
}

// Option configures a Provisioner or Reclaimer.
type Option func(w *waitConfig)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *waitConfig) {
		w.log = l
	}
}

// WithAttempts sets the number of readiness probes before giving up.
func WithAttempts(n int) Option {
	return func(w *waitConfig) {
		w.attempts = n
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *waitConfig) {
		w.interval = d
	}
}

// WithTimeout derives the attempt budget from a wall-clock timeout at the configured interval.
// Apply it after WithInterval.
func WithTimeout(d time.Duration) Option {
	return func(w *waitConfig) {
		if w.interval <= 0 {
			w.attempts = 1
			return
		}
		w.attempts = int(d / w.interval)
		if w.attempts < 1 {
			w.attempts = 1
		}
	}
}

// WithCheckTimeout bounds each readiness check. Zero disables the bound.
func WithCheckTimeout(d time.Duration) Option {
	return func(w *waitConfig) {
		w.checkTimeout = d
	}
}

// isReady runs one readiness check under the check timeout.
// A check that runs out of time counts as pending, which is not ready while provisioning and still up while reclaiming.
func (w waitConfig) isReady(ctx context.Context, c Cluster, id ID, pending bool) (bool, error) {
	if w.checkTimeout <= 0 {
		return c.IsReady(ctx, id)
	}
	checkCtx, cancel := context.WithTimeout(ctx, w.checkTimeout)
	defer cancel()

	ready, err := c.IsReady(checkCtx, id)
	if checkCtx.Err() != nil && ctx.Err() == nil {
		w.log.Debugw("readiness check timed out", "ClusterID", id, "Timeout", w.checkTimeout)
		return pending, nil
	}
	return ready, err
}
