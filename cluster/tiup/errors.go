package tiup

import "fmt"

// VersionCheckError means the binary did not report a version, i.e. it is unusable.
type VersionCheckError struct {
	Bin      string
	ExitCode int
	Stderr   string
}

func (e *VersionCheckError) Error() string {
	return fmt.Sprintf("%s -v exited with code %d: %s", e.Bin, e.ExitCode, e.Stderr)
}

// InstallError means the tiup installer could not be fetched, failed, or did not report where it installed.
type InstallError struct {
	Reason string
	Err    error
}

func (e *InstallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("installing tiup: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("installing tiup: %s", e.Reason)
}

func (e *InstallError) Unwrap() error { return e.Err }
