package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zenprocess/open-lovable-cf/internal/audit"
	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/edits"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/mirror"
	"github.com/zenprocess/open-lovable-cf/internal/reconcile"
	"github.com/zenprocess/open-lovable-cf/internal/runtime"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
	"github.com/zenprocess/open-lovable-cf/internal/server"
	"github.com/zenprocess/open-lovable-cf/internal/session"
	"github.com/zenprocess/open-lovable-cf/internal/system"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Runtime is the container runtime. Nil when none could be detected;
	// sandbox creation then fails.
	Runtime runtime.Runtime

	// FS backs the mirror
	FS system.FileSystem

	Logger *slog.Logger

	History      *audit.History
	Mirror       *mirror.Mirror
	Applier      edits.Applier
	Installer    *reconcile.Installer
	Orchestrator *reconcile.Orchestrator
	Manager      *session.Manager

	factory session.Factory
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithFileSystem sets the filesystem used by the mirror
func WithFileSystem(fs system.FileSystem) Option {
	return func(a *App) {
		a.FS = fs
	}
}

// WithLogger sets the logger passed to every component
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithFactory replaces the container-backed sandbox factory
func WithFactory(f session.Factory) Option {
	return func(a *App) {
		a.factory = f
	}
}

// New wires the application from its configuration. If no runtime is
// provided it is auto-detected; a missing runtime is not an error until a
// sandbox is created.
func New(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.Config == nil {
		a.Config = config.Default()
	}
	if err := a.Config.Validate(); err != nil {
		return nil, errors.ConfigError("invalid configuration", err)
	}
	if a.FS == nil {
		a.FS = system.OS()
	}
	a.Logger = logging.OrDefault(a.Logger)
	cfg := a.Config

	applier, err := edits.New(cfg.Edits)
	if err != nil {
		return nil, err
	}
	a.Applier = applier

	a.History = audit.NewHistory(cfg.State.Dir)
	if cfg.Mirror.Folder != "" {
		a.Mirror = mirror.New(cfg.Mirror.Folder, a.FS, logging.Component(a.Logger, "mirror"))
	}
	a.Installer = &reconcile.Installer{
		RestartDevServer: cfg.Packages.AutoRestartDevServer,
		Logger:           logging.Component(a.Logger, "packages"),
	}
	a.Orchestrator = &reconcile.Orchestrator{
		Applier:   a.Applier,
		Mirror:    a.Mirror,
		History:   a.History,
		Installer: a.Installer,
		Logger:    logging.Component(a.Logger, "reconcile"),
	}

	if a.factory == nil {
		if a.Runtime == nil {
			rt, err := runtime.New(&runtime.Config{
				Type:            runtime.RuntimeType(cfg.Sandbox.Runtime),
				ContainerPrefix: cfg.Sandbox.ContainerPrefix,
			})
			if err != nil {
				logging.Debug("failed to initialize runtime", "error", err)
			} else {
				a.Runtime = rt
			}
		}
		a.factory = newProvisionerFactory(a.Runtime, cfg)
	}

	a.Manager = session.NewManager(a.factory, session.ManagerOptions{
		RestartCooldown: cfg.Server.RestartCooldown.Duration,
		Logger:          logging.Component(a.Logger, "session"),
		OnEvent:         a.recordLifecycle,
	})
	return a, nil
}

// recordLifecycle writes session creation and teardown to history.
func (a *App) recordLifecycle(event string, s *session.Session) {
	t := audit.EventCreate
	if event == session.EventTerminated {
		t = audit.EventTerminate
	}
	var details string
	if info := s.Info(); info != nil {
		details = info.URL
	}
	if err := a.History.RecordEvent(t, s.ID, details); err != nil {
		a.Logger.Warn("failed to record history", "sandbox", s.ID, "error", err)
	}
}

// Server builds the HTTP API on top of the app's components.
func (a *App) Server() (*server.Server, error) {
	return server.NewServer(&server.Config{
		Settings:     a.Config.Server,
		Manager:      a.Manager,
		Orchestrator: a.Orchestrator,
		Installer:    a.Installer,
		Mirror:       a.Mirror,
		History:      a.History,
		HealthClient: &http.Client{Timeout: 5 * time.Second},
		Logger:       logging.Component(a.Logger, "server"),
	})
}

// Close terminates the active sandbox, if any.
func (a *App) Close(ctx context.Context) error {
	_, err := a.Manager.Terminate(ctx)
	return err
}

// provisionerFactory adapts a Provisioner to session.Factory.
type provisionerFactory struct {
	p *sandbox.Provisioner
}

func newProvisionerFactory(rt runtime.Runtime, cfg *config.Config) *provisionerFactory {
	if rt == nil {
		return &provisionerFactory{}
	}
	return &provisionerFactory{p: sandbox.NewProvisioner(rt, cfg.Sandbox, cfg.Packages)}
}

func (f *provisionerFactory) Create(ctx context.Context) (sandbox.Executor, []string, error) {
	if f.p == nil {
		return nil, nil, errors.SandboxUnavailable("no container runtime available (install podman or docker)", nil)
	}
	pr, err := f.p.Create(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pr.Executor, pr.ScaffoldPaths, nil
}

func (f *provisionerFactory) Destroy(ctx context.Context, exec sandbox.Executor) error {
	if f.p == nil || exec == nil {
		return nil
	}
	ce, ok := exec.(*sandbox.ContainerExecutor)
	if !ok {
		return fmt.Errorf("cannot destroy %T: not a container sandbox", exec)
	}
	return f.p.Terminate(ctx, ce)
}

// Default is the application instance used by the CLI. It is set once
// the configuration has been loaded.
var Default *App

// SetDefault sets the default application instance
func SetDefault(app *App) {
	Default = app
}

// ResetDefault clears the default application instance
func ResetDefault() {
	Default = nil
}
