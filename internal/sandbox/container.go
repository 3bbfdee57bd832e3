package sandbox

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/project"
	"github.com/zenprocess/open-lovable-cf/internal/runtime"
)

// Dev server commands run inside the container. The bracket keeps pkill
// from matching the sh -c process that runs it.
const (
	StopDevServerCmd  = "pkill -f '[v]ite' || true"
	StartDevServerCmd = "nohup npm run dev > /tmp/vite.log 2>&1 &"
)

// ContainerExecutor runs sandbox operations in a container through a
// runtime.Runtime.
type ContainerExecutor struct {
	rt             runtime.Runtime
	id             string
	appDir         string
	commandTimeout time.Duration
	legacyPeerDeps bool
	restartDelay   time.Duration
	info           *Info
}

// ContainerOptions configures a ContainerExecutor.
type ContainerOptions struct {
	AppDir         string
	CommandTimeout time.Duration
	LegacyPeerDeps bool
	// RestartDelay is the pause between stopping and starting the dev server.
	RestartDelay time.Duration
}

// NewContainerExecutor returns an executor for an existing container.
func NewContainerExecutor(rt runtime.Runtime, info *Info, opts ContainerOptions) *ContainerExecutor {
	if opts.AppDir == "" {
		opts.AppDir = "/home/user/app"
	}
	return &ContainerExecutor{
		rt:             rt,
		id:             info.ID,
		appDir:         opts.AppDir,
		commandTimeout: opts.CommandTimeout,
		legacyPeerDeps: opts.LegacyPeerDeps,
		restartDelay:   opts.RestartDelay,
		info:           info,
	}
}

// Info returns the sandbox description.
func (e *ContainerExecutor) Info() *Info {
	return e.info
}

// Container returns the runtime status of the backing container.
func (e *ContainerExecutor) Container(ctx context.Context) (*runtime.ContainerInfo, error) {
	return e.rt.Status(ctx, e.id)
}

// exec runs argv in the container with the command timeout applied.
func (e *ContainerExecutor) exec(ctx context.Context, argv []string, stdin string) (*CommandResult, error) {
	if e.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.commandTimeout)
		defer cancel()
	}

	opts := runtime.ExecOptions{WorkingDir: e.appDir}
	if stdin != "" {
		opts.Stdin = strings.NewReader(stdin)
	}

	res, err := e.rt.Exec(ctx, e.id, argv, opts)
	if err != nil {
		return nil, errors.ContainerFailed("exec", err)
	}
	return &CommandResult{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}, nil
}

// RunCommand runs cmd with sh -c in the app directory.
func (e *ContainerExecutor) RunCommand(ctx context.Context, cmd string) (*CommandResult, error) {
	logging.Debug("sandbox command", "sandbox", e.id, "cmd", cmd)
	return e.exec(ctx, []string{"sh", "-c", cmd}, "")
}

// resolve maps a relative path into the app directory, rejecting escapes.
func (e *ContainerExecutor) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.TrimLeft(p, "/"))
	if clean == "/" || strings.Contains(p, "\x00") {
		return "", errors.ValidationError(fmt.Sprintf("invalid file path %q", p))
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", errors.ValidationError(fmt.Sprintf("path escapes app directory: %q", p))
		}
	}
	return path.Join(e.appDir, clean), nil
}

// WriteFile writes content through stdin so it never appears in the
// command line.
func (e *ContainerExecutor) WriteFile(ctx context.Context, p, content string) error {
	full, err := e.resolve(p)
	if err != nil {
		return err
	}

	script := "mkdir -p " + shellquote.Join(path.Dir(full)) + " && cat > " + shellquote.Join(full)
	if content == "" {
		// No stdin is attached for empty content
		script = "mkdir -p " + shellquote.Join(path.Dir(full)) + " && : > " + shellquote.Join(full)
	}

	res, err := e.exec(ctx, []string{"sh", "-c", script}, content)
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("write %s: exit %d: %s", p, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// ReadFile returns the content of p.
func (e *ContainerExecutor) ReadFile(ctx context.Context, p string) (string, error) {
	full, err := e.resolve(p)
	if err != nil {
		return "", err
	}

	res, err := e.exec(ctx, []string{"cat", full}, "")
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", fmt.Errorf("read %s: %s", p, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// InstallCommand returns the npm command line for names.
func InstallCommand(names []string, legacyPeerDeps bool) string {
	args := []string{"npm", "install"}
	if legacyPeerDeps {
		args = append(args, "--legacy-peer-deps")
	}
	return shellquote.Join(append(args, names...)...)
}

// InstallPackages validates names and runs npm install.
func (e *ContainerExecutor) InstallPackages(ctx context.Context, names []string) (*CommandResult, error) {
	if len(names) == 0 {
		return &CommandResult{}, nil
	}
	for _, name := range names {
		if !project.ValidPackageName(name) {
			return nil, errors.ValidationError(fmt.Sprintf("invalid package name %q", name))
		}
	}

	logging.Debug("installing packages", "sandbox", e.id, "packages", names)
	return e.RunCommand(ctx, InstallCommand(names, e.legacyPeerDeps))
}

// RestartDevServer kills any running Vite process and starts a new one in
// the background.
func (e *ContainerExecutor) RestartDevServer(ctx context.Context) error {
	if _, err := e.RunCommand(ctx, StopDevServerCmd); err != nil {
		return err
	}

	if e.restartDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.restartDelay):
		}
	}

	res, err := e.RunCommand(ctx, StartDevServerCmd)
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("start dev server: exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

var _ Executor = (*ContainerExecutor)(nil)
