/*
Package actions talks to the CI environment that invokes the playground binary.

Inputs arrive as INPUT_<NAME> environment variables. Outputs, state saved for the post step and
exported variables are written through a Store: under GitHub Actions that is the runner's file
commands (GITHUB_OUTPUT, GITHUB_STATE, GITHUB_ENV), elsewhere a TOML file so that a local provision
and reclaim can still hand the cluster ID to each other.
*/
package actions

import (
	"os"
	"strings"
)

// InputEnvVar returns the environment variable the runner uses for the named input.
func InputEnvVar(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// StateEnvVar returns the environment variable the runner uses to pass saved state to the post step.
func StateEnvVar(name string) string {
	return "STATE_" + name
}

// Store receives the values handed from the provision step to later steps.
type Store interface {
	SetOutput(name, value string) error
	SaveState(name, value string) error
	State(name string) string
	ExportVariable(name, value string) error
}

// NewStore returns a Workflow store when running under GitHub Actions and a FileStore at statePath otherwise.
func NewStore(getenv func(string) string, statePath string) Store {
	if getenv("GITHUB_ACTIONS") == "true" {
		return &Workflow{Getenv: getenv, Setenv: os.Setenv}
	}
	return &FileStore{Path: statePath, Setenv: os.Setenv}
}
