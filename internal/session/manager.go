package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

// Factory provisions and destroys sandboxes.
type Factory interface {
	// Create returns a ready executor and the scaffold paths it wrote.
	Create(ctx context.Context) (sandbox.Executor, []string, error)
	Destroy(ctx context.Context, exec sandbox.Executor) error
}

// Lifecycle events passed to ManagerOptions.OnEvent.
const (
	EventCreated    = "create"
	EventTerminated = "terminate"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	RestartCooldown time.Duration
	Logger          *slog.Logger
	Now             func() time.Time

	// OnEvent, when set, is called after a session is created or terminated.
	OnEvent func(event string, s *Session)
}

// Manager holds the single active session.
type Manager struct {
	factory Factory
	opts    ManagerOptions
	logger  *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	active *Session
}

// NewManager returns a manager that creates sandboxes with factory.
func NewManager(factory Factory, opts ManagerOptions) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		factory: factory,
		opts:    opts,
		logger:  logging.OrDefault(opts.Logger).With("component", "session"),
	}
}

// Active returns the active session or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && !m.active.Active() {
		return nil
	}
	return m.active
}

// Create terminates the current session and provisions a new one.
// Concurrent callers share one in-flight creation. It fails with a
// run-in-progress error while a run holds the current session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	if err := m.checkIdle(); err != nil {
		return nil, err
	}

	// The creation outlives any single caller's cancellation since other
	// callers may be waiting on it.
	createCtx := context.WithoutCancel(ctx)

	ch := m.group.DoChan("create", func() (any, error) {
		return m.create(createCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			m.logger.Debug("joined in-flight sandbox creation")
		}
		return res.Val.(*Session), nil
	}
}

func (m *Manager) create(ctx context.Context) (*Session, error) {
	if _, err := m.Terminate(ctx); err != nil {
		m.logger.Warn("failed to terminate previous sandbox", "error", err)
	}

	start := m.opts.Now()
	exec, scaffold, err := m.factory.Create(ctx)
	if err != nil {
		return nil, errors.SandboxUnavailable("failed to create sandbox", err)
	}

	s := New(exec, Options{
		KnownFiles:      scaffold,
		RestartCooldown: m.opts.RestartCooldown,
		Now:             m.opts.Now,
	})
	if err := s.Activate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.active = s
	m.mu.Unlock()

	m.logger.Info("sandbox created", "sandbox", s.ID, "elapsed", m.opts.Now().Sub(start))
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(EventCreated, s)
	}
	return s, nil
}

// GetOrCreate returns the active session when id is empty or matches it,
// and otherwise creates a new one, which Create refuses while the active
// session is running.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if s := m.Active(); s != nil && (id == "" || id == s.ID) {
		return s, nil
	}
	return m.Create(ctx)
}

// Get returns the active session, failing when there is none or its id
// differs from a non-empty id.
func (m *Manager) Get(id string) (*Session, error) {
	s := m.Active()
	if s == nil {
		return nil, errors.NoActiveSandbox()
	}
	if id != "" && id != s.ID {
		return nil, errors.SandboxNotFound(id)
	}
	return s, nil
}

// checkIdle fails when the active session is held by a run.
func (m *Manager) checkIdle() error {
	if s := m.Active(); s != nil && s.Running() {
		return errors.RunInProgress(s.ID)
	}
	return nil
}

// Kill is Terminate for callers that must not interrupt a run in progress.
func (m *Manager) Kill(ctx context.Context) (bool, error) {
	if err := m.checkIdle(); err != nil {
		return false, err
	}
	return m.Terminate(ctx)
}

// Terminate destroys the active session, even one with a run in progress.
// It reports whether there was one.
func (m *Manager) Terminate(ctx context.Context) (bool, error) {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()

	if s == nil || !s.markTerminated() {
		return false, nil
	}

	err := m.factory.Destroy(ctx, s.Executor())
	if err != nil {
		m.logger.Warn("failed to destroy sandbox", "sandbox", s.ID, "error", err)
	} else {
		m.logger.Info("sandbox terminated", "sandbox", s.ID)
	}
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(EventTerminated, s)
	}
	return true, err
}

// Adopt makes exec the active session without provisioning. It is used
// when a caller already holds a sandbox.
func (m *Manager) Adopt(exec sandbox.Executor, knownFiles []string) (*Session, error) {
	s := New(exec, Options{
		KnownFiles:      knownFiles,
		RestartCooldown: m.opts.RestartCooldown,
		Now:             m.opts.Now,
	})
	if err := s.Activate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	prev := m.active
	m.active = s
	m.mu.Unlock()
	if prev != nil {
		prev.markTerminated()
	}
	return s, nil
}
