package actions

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Workflow writes GitHub Actions file commands.
type Workflow struct {
	Getenv func(string) string
	Setenv func(string, string) error
}

func (w *Workflow) issueFileCommand(envVar, name, value string) error {
	path := w.Getenv(envVar)
	if path == "" {
		return fmt.Errorf("%s is not set", envVar)
	}

	delim := "ghadelimiter_" + uuid.NewString()
	if strings.Contains(name, delim) || strings.Contains(value, delim) {
		return fmt.Errorf("%q must not contain the delimiter %q", name, delim)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s file: %w", envVar, err)
	}
	_, err = fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", name, delim, value, delim)
	if err != nil {
		f.Close()
		return fmt.Errorf("writing %s file: %w", envVar, err)
	}
	return f.Close()
}

func (w *Workflow) SetOutput(name, value string) error {
	return w.issueFileCommand("GITHUB_OUTPUT", name, value)
}

func (w *Workflow) SaveState(name, value string) error {
	return w.issueFileCommand("GITHUB_STATE", name, value)
}

func (w *Workflow) State(name string) string {
	return w.Getenv(StateEnvVar(name))
}

// ExportVariable sets the variable for this process and for every later step of the job.
func (w *Workflow) ExportVariable(name, value string) error {
	if err := w.Setenv(name, value); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	return w.issueFileCommand("GITHUB_ENV", name, value)
}
