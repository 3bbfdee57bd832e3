package sandbox

import (
	"context"
	"time"
)

// CommandResult is the outcome of a shell command run in the sandbox.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// Success reports whether the command exited with status 0.
func (r *CommandResult) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Info describes a provisioned sandbox.
type Info struct {
	ID        string    `json:"sandboxId"`
	URL       string    `json:"url"`
	Provider  string    `json:"provider"`
	HostPort  int       `json:"hostPort,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Executor is the capability the reconciliation engine needs from a
// sandbox. Paths are relative to the app directory.
type Executor interface {
	// RunCommand runs a shell command in the app directory. A non-zero exit
	// is reported through the result, not as an error.
	RunCommand(ctx context.Context, cmd string) (*CommandResult, error)

	// WriteFile creates parent directories as needed and replaces the file.
	WriteFile(ctx context.Context, path, content string) error

	// ReadFile returns the file's content.
	ReadFile(ctx context.Context, path string) (string, error)

	// InstallPackages installs npm packages into the app.
	InstallPackages(ctx context.Context, names []string) (*CommandResult, error)

	// RestartDevServer stops and restarts the Vite dev server.
	RestartDevServer(ctx context.Context) error

	// Info returns the sandbox description, or nil when not provisioned.
	Info() *Info
}
