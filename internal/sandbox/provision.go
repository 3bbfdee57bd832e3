package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/port"
	"github.com/zenprocess/open-lovable-cf/internal/project"
	"github.com/zenprocess/open-lovable-cf/internal/runtime"
)

// Label set on every sandbox container.
const LabelSandbox = "lovable.sandbox"

// Provisioner creates and destroys container-backed sandboxes.
type Provisioner struct {
	rt       runtime.Runtime
	cfg      config.SandboxConfig
	packages config.PackagesConfig

	// PortAvailable filters candidate host ports. Defaults to port.Free.
	PortAvailable func(int) bool

	// NewID returns a sandbox id. Defaults to a short random id.
	NewID func() string

	// Now is the clock used for Info.CreatedAt.
	Now func() time.Time

	// RestartDelay is passed to the executors this provisioner creates.
	RestartDelay time.Duration

	mu        sync.Mutex
	usedPorts map[string]int
}

// NewProvisioner returns a provisioner for the given runtime and config.
func NewProvisioner(rt runtime.Runtime, cfg config.SandboxConfig, pkgs config.PackagesConfig) *Provisioner {
	return &Provisioner{
		rt:            rt,
		cfg:           cfg,
		packages:      pkgs,
		PortAvailable: port.Free,
		NewID:         newID,
		Now:           time.Now,
		RestartDelay:  2 * time.Second,
		usedPorts:     make(map[string]int),
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Provisioned is a freshly created sandbox.
type Provisioned struct {
	Executor *ContainerExecutor
	// ScaffoldPaths are the files written during setup.
	ScaffoldPaths []string
}

// Create starts a container, writes the Vite scaffold, installs the base
// dependencies and starts the dev server. On failure the container is
// destroyed.
func (p *Provisioner) Create(ctx context.Context) (*Provisioned, error) {
	id := p.NewID()
	if err := config.ValidateSandboxID(id); err != nil {
		return nil, errors.ValidationError(err.Error())
	}

	hostPort, err := p.reservePort(id)
	if err != nil {
		return nil, errors.SandboxUnavailable("port allocation failed", err)
	}
	logging.Debug("port allocated", "sandbox", id, "port", hostPort)

	err = p.rt.Create(ctx, runtime.CreateOptions{
		Name:         id,
		Image:        p.cfg.Image,
		Start:        true,
		ForwardPorts: map[int]int{hostPort: p.cfg.DevPort},
		WorkingDir:   p.cfg.AppDir,
		Labels:       map[string]string{LabelSandbox: id},
	})
	if err != nil {
		p.releasePort(id)
		return nil, errors.ContainerFailed("create", err)
	}

	info := &Info{
		ID:        id,
		URL:       fmt.Sprintf("http://127.0.0.1:%d", hostPort),
		Provider:  p.rt.Name(),
		HostPort:  hostPort,
		CreatedAt: p.Now(),
	}
	exec := NewContainerExecutor(p.rt, info, ContainerOptions{
		AppDir:         p.cfg.AppDir,
		CommandTimeout: p.cfg.CommandTimeout.Duration,
		LegacyPeerDeps: p.packages.LegacyPeerDeps,
		RestartDelay:   p.RestartDelay,
	})

	paths, err := p.setup(ctx, exec)
	if err != nil {
		p.destroy(id)
		return nil, err
	}

	return &Provisioned{Executor: exec, ScaffoldPaths: paths}, nil
}

func (p *Provisioner) reservePort(id string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	used := make([]int, 0, len(p.usedPorts))
	for _, hp := range p.usedPorts {
		used = append(used, hp)
	}
	hostPort, err := port.Allocate(p.cfg.HostPortFrom, p.cfg.HostPortTo, used, p.PortAvailable)
	if err != nil {
		return 0, err
	}
	p.usedPorts[id] = hostPort
	return hostPort, nil
}

func (p *Provisioner) releasePort(id string) {
	p.mu.Lock()
	delete(p.usedPorts, id)
	p.mu.Unlock()
}

func (p *Provisioner) active(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.usedPorts[id]
	return ok
}

// setup writes the scaffold into the container and starts Vite.
func (p *Provisioner) setup(ctx context.Context, exec *ContainerExecutor) ([]string, error) {
	files := project.Scaffold(project.ScaffoldOptions{DevPort: p.cfg.DevPort})

	paths := make([]string, 0, len(files))
	for _, f := range files {
		if err := exec.WriteFile(ctx, f.Path, f.Content); err != nil {
			return nil, errors.SandboxUnavailable("writing scaffold", err)
		}
		paths = append(paths, f.Path)
	}
	logging.Debug("scaffold written", "sandbox", exec.id, "files", len(paths))

	res, err := exec.RunCommand(ctx, "npm install")
	if err != nil {
		return nil, errors.SandboxUnavailable("installing base dependencies", err)
	}
	if !res.Success() {
		logging.Warn("npm install failed during setup", "sandbox", exec.id, "exitCode", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))
	}

	if res, err := exec.RunCommand(ctx, StartDevServerCmd); err != nil {
		return nil, errors.SandboxUnavailable("starting dev server", err)
	} else if !res.Success() {
		logging.Warn("dev server did not start", "sandbox", exec.id, "stderr", strings.TrimSpace(res.Stderr))
	}

	if d := p.cfg.StartupDelay.Duration; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	return paths, nil
}

// Terminate destroys the sandbox container.
func (p *Provisioner) Terminate(ctx context.Context, exec *ContainerExecutor) error {
	if exec == nil {
		return nil
	}
	p.releasePort(exec.id)
	if err := p.rt.Destroy(ctx, exec.id); err != nil {
		return errors.ContainerFailed("destroy", err)
	}
	return nil
}

// destroy removes a half-created container. It uses a fresh context so
// cleanup still runs when the creation context was cancelled.
func (p *Provisioner) destroy(id string) {
	p.releasePort(id)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.rt.Destroy(ctx, id); err != nil {
		logging.Warn("failed to remove container after failed setup", "sandbox", id, "error", err)
	}
}

// Prune destroys leftover sandbox containers from earlier runs.
func (p *Provisioner) Prune(ctx context.Context) (int, error) {
	containers, err := p.rt.List(ctx, LabelSandbox)
	if err != nil {
		return 0, errors.ContainerFailed("list", err)
	}

	removed := 0
	for _, c := range containers {
		if p.active(c.Name) {
			continue
		}
		if err := p.rt.Destroy(ctx, c.Name); err != nil {
			logging.Warn("failed to remove stale sandbox", "sandbox", c.Name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
