package runtime

import (
	"context"
	"io"
)

// ContainerStatus is the engine-reported state of a sandbox container.
type ContainerStatus string

const (
	StatusRunning  ContainerStatus = "running"
	StatusStopped  ContainerStatus = "stopped"
	StatusNotFound ContainerStatus = "not-found"
	StatusUnknown  ContainerStatus = "unknown"
)

// ContainerInfo describes one sandbox container. Name is the sandbox id,
// not the engine's container name.
type ContainerInfo struct {
	Name      string
	Status    ContainerStatus
	StartedAt string
}

// ExecResult is the captured outcome of a command run inside a sandbox.
// A non-zero ExitCode is not an error.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CreateOptions configures a new sandbox container.
type CreateOptions struct {
	Name         string
	Image        string
	Start        bool
	ForwardPorts map[int]int // host -> container, bound to 127.0.0.1
	WorkingDir   string
	Env          []string
	Labels       map[string]string
	Command      []string // sleep infinity when empty
}

// ExecOptions configures a single exec.
type ExecOptions struct {
	WorkingDir string
	Env        []string
	Stdin      io.Reader
}

// Runtime hosts sandbox containers. Implementations must be safe for
// concurrent use.
type Runtime interface {
	Name() string
	Create(ctx context.Context, opts CreateOptions) error
	Start(ctx context.Context, name string) error

	// Destroy removes the container. Removing a missing container is not an error.
	Destroy(ctx context.Context, name string) error

	// Status reports StatusNotFound rather than an error for unknown containers.
	Status(ctx context.Context, name string) (*ContainerInfo, error)

	Exec(ctx context.Context, name string, command []string, opts ExecOptions) (*ExecResult, error)

	// List returns every container carrying the given label, whatever its state.
	List(ctx context.Context, label string) ([]*ContainerInfo, error)
}
