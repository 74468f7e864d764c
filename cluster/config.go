package cluster

import (
	"strings"

	"github.com/google/uuid"
)

// ID names one cluster instance. It correlates the start, probe and clean commands.
type ID string

// NewID returns a random 8 character hex identifier.
func NewID() ID {
	return ID(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Replicas holds the requested instance count per component role. Zero means unset.
type Replicas struct {
	DB      int
	PD      int
	TiFlash int
	KV      int
}

// Config describes the requested shape of a cluster.
type Config struct {
	// Version is the database version to boot, empty for the tool's default.
	Version string
	Tag     ID

	Replicas Replicas

	// WithoutMonitor suppresses the auxiliary monitoring components.
	WithoutMonitor bool

	// IndependentReplicas makes each role use its own count.
	// When false, Replicas.DB drives all four roles, which is what the tool has always been invoked with.
	IndependentReplicas bool
}
