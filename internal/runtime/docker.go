package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
)

// DockerRuntime drives the docker or podman CLI.
type DockerRuntime struct {
	Command         string // docker or podman
	ContainerPrefix string
}

// NewDockerRuntime checks that command is on PATH. An empty command picks
// the first installed engine.
func NewDockerRuntime(command, containerPrefix string) (*DockerRuntime, error) {
	if command == "" {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		command = string(detected)
	} else if _, err := lookPath(command); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", command, err)
	}
	return &DockerRuntime{Command: command, ContainerPrefix: containerPrefix}, nil
}

func (r *DockerRuntime) Name() string { return r.Command }

func (r *DockerRuntime) containerName(sandboxID string) string {
	return r.ContainerPrefix + sandboxID
}

// invoke runs the engine CLI and captures both streams. The returned error
// is an *exec.ExitError when the engine itself exited non-zero.
func (r *DockerRuntime) invoke(ctx context.Context, stdin io.Reader, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = stdin
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// control runs a management subcommand where any failure is an error.
func (r *DockerRuntime) control(ctx context.Context, args ...string) (string, error) {
	out, errOut, err := r.invoke(ctx, nil, args...)
	if err != nil {
		return "", fmt.Errorf("%s %s: %s: %w", r.Command, args[0], strings.TrimSpace(errOut), err)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *DockerRuntime) createArgs(opts CreateOptions) []string {
	args := []string{"create", "--name", r.containerName(opts.Name)}

	hostPorts := make([]int, 0, len(opts.ForwardPorts))
	for p := range opts.ForwardPorts {
		hostPorts = append(hostPorts, p)
	}
	sort.Ints(hostPorts)
	for _, p := range hostPorts {
		args = append(args, "-p", fmt.Sprintf("127.0.0.1:%d:%d", p, opts.ForwardPorts[p]))
	}

	if opts.WorkingDir != "" {
		args = append(args, "-w", opts.WorkingDir)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	for _, k := range sortedKeys(opts.Labels) {
		args = append(args, "--label", k+"="+opts.Labels[k])
	}

	args = append(args, opts.Image)
	if len(opts.Command) == 0 {
		return append(args, "sleep", "infinity")
	}
	return append(args, opts.Command...)
}

func (r *DockerRuntime) Create(ctx context.Context, opts CreateOptions) error {
	if opts.Image == "" {
		return fmt.Errorf("create %s: no image given", opts.Name)
	}
	logging.Debug("creating sandbox container", "container", r.containerName(opts.Name), "engine", r.Command, "image", opts.Image)

	if _, err := r.control(ctx, r.createArgs(opts)...); err != nil {
		return err
	}
	if !opts.Start {
		return nil
	}
	return r.Start(ctx, opts.Name)
}

func (r *DockerRuntime) Start(ctx context.Context, name string) error {
	_, err := r.control(ctx, "start", r.containerName(name))
	return err
}

func (r *DockerRuntime) Destroy(ctx context.Context, name string) error {
	logging.Debug("removing sandbox container", "container", r.containerName(name))
	_, err := r.control(ctx, "rm", "-f", r.containerName(name))
	if err != nil && isNoSuchContainer(err) {
		return nil
	}
	return err
}

// isNoSuchContainer matches the docker and podman wording.
func isNoSuchContainer(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such container") || strings.Contains(msg, "no container with name")
}

type inspectState struct {
	State struct {
		Status    string `json:"Status"`
		StartedAt string `json:"StartedAt"`
	} `json:"State"`
}

func parseInspect(name, output string) *ContainerInfo {
	info := &ContainerInfo{Name: name, Status: StatusNotFound}

	var states []inspectState
	if err := json.Unmarshal([]byte(output), &states); err != nil || len(states) == 0 {
		return info
	}

	switch states[0].State.Status {
	case "running":
		info.Status = StatusRunning
	case "exited", "stopped", "created":
		info.Status = StatusStopped
	default:
		info.Status = StatusUnknown
	}
	info.StartedAt = states[0].State.StartedAt
	return info
}

func (r *DockerRuntime) Status(ctx context.Context, name string) (*ContainerInfo, error) {
	out, err := r.control(ctx, "inspect", r.containerName(name))
	if err != nil {
		return &ContainerInfo{Name: name, Status: StatusNotFound}, nil
	}
	return parseInspect(name, out), nil
}

func (r *DockerRuntime) execArgs(name string, command []string, opts ExecOptions) []string {
	args := []string{"exec"}
	if opts.Stdin != nil {
		args = append(args, "-i")
	}
	if opts.WorkingDir != "" {
		args = append(args, "-w", opts.WorkingDir)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	args = append(args, r.containerName(name))
	return append(args, command...)
}

// Exec reports the command's exit status in the result. Only failures to
// run it at all, including cancellation, are returned as errors.
func (r *DockerRuntime) Exec(ctx context.Context, name string, command []string, opts ExecOptions) (*ExecResult, error) {
	out, errOut, err := r.invoke(ctx, opts.Stdin, r.execArgs(name, command, opts)...)
	res := &ExecResult{Stdout: out, Stderr: errOut}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("exec in %s: %w", r.containerName(name), err)
}

// listArgs asks the engine for the label value of each matching container,
// which is the sandbox id.
func listArgs(label string) []string {
	return []string{"ps", "-a", "--filter", "label=" + label, "--format", fmt.Sprintf("{{.Label %q}}", label)}
}

func (r *DockerRuntime) List(ctx context.Context, label string) ([]*ContainerInfo, error) {
	out, err := r.control(ctx, listArgs(label)...)
	if err != nil {
		return nil, err
	}

	var containers []*ContainerInfo
	for _, id := range strings.Fields(out) {
		info, _ := r.Status(ctx, id)
		containers = append(containers, info)
	}
	return containers, nil
}

var _ Runtime = (*DockerRuntime)(nil)
