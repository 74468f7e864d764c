package cluster

import "context"

// Cluster is the surface of the external tool that manages playground clusters.
// Implementations are generally not goroutine-safe.
type Cluster interface {
	// Start launches the cluster described by cfg and returns without waiting for it to be ready.
	// The cluster must outlive the calling process.
	Start(ctx context.Context, cfg Config) error

	// Clean asks the tool to tear down the cluster. A nil error does not mean the cluster is gone.
	Clean(ctx context.Context, id ID) error

	// IsReady reports whether the cluster currently answers a trivial query.
	IsReady(ctx context.Context, id ID) (bool, error)
}
