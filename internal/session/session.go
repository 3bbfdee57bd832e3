package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

// State is a session lifecycle state.
type State string

const (
	StateCreated    State = "created"
	StateActive     State = "active"
	StateTerminated State = "terminated"
)

// DefaultRestartCooldown is the minimum time between dev server restarts.
const DefaultRestartCooldown = 5 * time.Second

// Session owns one sandbox and the state that tracks its contents.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	executor  sandbox.Executor
	preloaded bool

	knownFiles   *KnownFiles
	cache        *FileCache
	conversation *Conversation

	running atomic.Bool

	restartMu       sync.Mutex
	restarting      bool
	lastRestart     time.Time
	restartCooldown time.Duration

	now func() time.Time
}

// Options configures a new session.
type Options struct {
	// KnownFiles seeds the known-files registry, usually with the scaffold.
	KnownFiles []string

	RestartCooldown time.Duration

	Now func() time.Time
}

// New returns a session in the created state.
func New(exec sandbox.Executor, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RestartCooldown == 0 {
		opts.RestartCooldown = DefaultRestartCooldown
	}

	id := ""
	if info := exec.Info(); info != nil {
		id = info.ID
	}

	cache := NewFileCache()
	cache.now = opts.Now

	return &Session{
		ID:              id,
		CreatedAt:       opts.Now(),
		state:           StateCreated,
		executor:        exec,
		knownFiles:      NewKnownFiles(opts.KnownFiles...),
		cache:           cache,
		conversation:    newConversation(opts.Now),
		restartCooldown: opts.RestartCooldown,
		now:             opts.Now,
	}
}

// Activate moves a created session to active.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return fmt.Errorf("session %s: cannot activate from %s", s.ID, s.state)
	}
	s.state = StateActive
	return nil
}

// markTerminated moves the session to terminated and clears its registry.
// It reports whether the session was not already terminated.
func (s *Session) markTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTerminated {
		return false
	}
	s.state = StateTerminated
	s.knownFiles.Clear()
	return true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the session can be written to.
func (s *Session) Active() bool {
	return s != nil && s.State() == StateActive
}

// Executor returns the sandbox executor.
func (s *Session) Executor() sandbox.Executor {
	return s.executor
}

// Info returns the sandbox description.
func (s *Session) Info() *sandbox.Info {
	return s.executor.Info()
}

func (s *Session) KnownFiles() *KnownFiles {
	return s.knownFiles
}

func (s *Session) Cache() *FileCache {
	return s.cache
}

func (s *Session) Conversation() *Conversation {
	return s.conversation
}

// MarkPreloaded records that a project was loaded into the sandbox, which
// forces later runs into edit mode.
func (s *Session) MarkPreloaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preloaded = true
}

func (s *Session) Preloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preloaded
}

// BeginRun claims the session for one reconciliation run. The returned
// release func must be called when the run ends. A second concurrent run
// fails with a run-in-progress error.
func (s *Session) BeginRun() (release func(), err error) {
	if !s.Active() {
		return nil, errors.SandboxUnavailable(fmt.Sprintf("sandbox %s is %s", s.ID, s.State()), nil)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, errors.RunInProgress(s.ID)
	}
	var once sync.Once
	return func() {
		once.Do(func() { s.running.Store(false) })
	}, nil
}

// Running reports whether a run holds the session.
func (s *Session) Running() bool {
	return s.running.Load()
}

// RestartOutcome describes what RestartDevServer did.
type RestartOutcome struct {
	Restarted bool   `json:"restarted"`
	Message   string `json:"message"`
}

// RestartDevServer restarts Vite unless a restart is running or one
// finished within the cooldown. Skips are reported in the outcome, not
// as errors.
func (s *Session) RestartDevServer(ctx context.Context) (RestartOutcome, error) {
	s.restartMu.Lock()
	if s.restarting {
		s.restartMu.Unlock()
		return RestartOutcome{Message: "Vite restart already in progress"}, nil
	}
	if !s.lastRestart.IsZero() {
		if elapsed := s.now().Sub(s.lastRestart); elapsed < s.restartCooldown {
			s.restartMu.Unlock()
			remaining := int(math.Ceil((s.restartCooldown - elapsed).Seconds()))
			return RestartOutcome{
				Message: fmt.Sprintf("Vite was recently restarted, cooldown active (%ds remaining)", remaining),
			}, nil
		}
	}
	s.restarting = true
	s.restartMu.Unlock()

	if err := s.restartNow(ctx); err != nil {
		return RestartOutcome{}, err
	}
	return RestartOutcome{Restarted: true, Message: "Vite restarted successfully"}, nil
}

// ForceRestartDevServer restarts Vite regardless of the cooldown or a
// concurrent restart. Callers that stopped the dev server themselves use
// it so the server is never left down.
func (s *Session) ForceRestartDevServer(ctx context.Context) error {
	s.restartMu.Lock()
	s.restarting = true
	s.restartMu.Unlock()
	return s.restartNow(ctx)
}

// restartNow runs the restart with s.restarting already set.
func (s *Session) restartNow(ctx context.Context) error {
	err := s.executor.RestartDevServer(ctx)

	s.restartMu.Lock()
	s.restarting = false
	if err == nil {
		s.lastRestart = s.now()
	}
	s.restartMu.Unlock()
	return err
}
