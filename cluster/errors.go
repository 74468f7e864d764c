package cluster

import "fmt"

// ProvisionTimeoutError means the cluster never became ready. The cluster is left running.
type ProvisionTimeoutError struct {
	ID       ID
	Attempts int
}

func (e *ProvisionTimeoutError) Error() string {
	return fmt.Sprintf("cluster %s not ready after %d attempts", e.ID, e.Attempts)
}

// ReclaimTimeoutError means the cluster still answered queries after being cleaned.
type ReclaimTimeoutError struct {
	ID       ID
	Attempts int
}

func (e *ReclaimTimeoutError) Error() string {
	return fmt.Sprintf("cluster %s still ready after %d attempts", e.ID, e.Attempts)
}
