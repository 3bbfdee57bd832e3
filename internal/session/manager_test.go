package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	apperrors "github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

type fakeFactory struct {
	mu        sync.Mutex
	created   atomic.Int32
	destroyed []string
	err       error
	gate      chan struct{}
	started   chan struct{}
}

func (f *fakeFactory) Create(ctx context.Context) (sandbox.Executor, []string, error) {
	n := f.created.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	return sandbox.NewMockExecutor(fmt.Sprintf("sb%d", n)), []string{"package.json"}, nil
}

func (f *fakeFactory) Destroy(ctx context.Context, exec sandbox.Executor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, exec.Info().ID)
	return nil
}

func TestManager_Create(t *testing.T) {
	f := &fakeFactory{}
	var events []string
	m := NewManager(f, ManagerOptions{OnEvent: func(ev string, s *Session) {
		events = append(events, ev+":"+s.ID)
	}})

	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !s.Active() {
		t.Error("new session should be active")
	}
	if !s.KnownFiles().Has("package.json") {
		t.Error("scaffold paths should seed known files")
	}
	if m.Active() != s {
		t.Error("Active() should return the new session")
	}

	s2, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if s.Active() {
		t.Error("previous session should be terminated")
	}
	if s2.ID == s.ID {
		t.Errorf("second session reused id %q", s.ID)
	}
	if len(f.destroyed) != 1 || f.destroyed[0] != s.ID {
		t.Errorf("destroyed = %v, want [%s]", f.destroyed, s.ID)
	}

	want := []string{"create:sb1", "terminate:sb1", "create:sb2"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestManager_CreateFailure(t *testing.T) {
	f := &fakeFactory{err: errors.New("no docker")}
	m := NewManager(f, ManagerOptions{})

	_, err := m.Create(context.Background())
	if err == nil {
		t.Fatal("Create() should fail")
	}
	if code := apperrors.GetExitCode(err); code != apperrors.ExitSandboxUnavailable {
		t.Errorf("exit code = %d, want %d", code, apperrors.ExitSandboxUnavailable)
	}
	if m.Active() != nil {
		t.Error("Active() should be nil after failed create")
	}
}

func TestManager_ConcurrentCreateShared(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeFactory{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	m := NewManager(f, ManagerOptions{})

	const callers = 4
	results := make([]*Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Create(context.Background())
			if err != nil {
				t.Errorf("Create() error = %v", err)
				return
			}
			results[i] = s
		}(i)
	}

	<-f.started
	// Let the other callers join the in-flight creation.
	time.Sleep(100 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if n := f.created.Load(); n != 1 {
		t.Errorf("factory called %d times, want 1", n)
	}
	for i, s := range results {
		if s != results[0] {
			t.Errorf("caller %d got a different session", i)
		}
	}
}

func TestManager_CreateCallerCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeFactory{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	m := NewManager(f, ManagerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := m.Create(ctx)
		errc <- err
	}()

	<-f.started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Create() error = %v, want context.Canceled", err)
	}

	// The creation keeps going for other callers.
	close(f.gate)
	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !s.Active() {
		t.Error("session should be active")
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	f := &fakeFactory{}
	m := NewManager(f, ManagerOptions{})
	ctx := context.Background()

	s, err := m.GetOrCreate(ctx, "")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	same, _ := m.GetOrCreate(ctx, s.ID)
	if same != s {
		t.Error("GetOrCreate(active id) should return the active session")
	}
	same, _ = m.GetOrCreate(ctx, "")
	if same != s {
		t.Error("GetOrCreate(\"\") should return the active session")
	}

	other, _ := m.GetOrCreate(ctx, "unknown")
	if other == s {
		t.Error("GetOrCreate(unknown id) should create a new session")
	}
}

func TestManager_Get(t *testing.T) {
	m := NewManager(&fakeFactory{}, ManagerOptions{})

	if _, err := m.Get(""); apperrors.GetExitCode(err) != apperrors.ExitSandboxNotFound {
		t.Errorf("Get() with no session error = %v", err)
	}

	s, _ := m.Create(context.Background())
	if got, err := m.Get(s.ID); err != nil || got != s {
		t.Errorf("Get(%q) = %v, %v", s.ID, got, err)
	}
	if _, err := m.Get("other"); err == nil {
		t.Error("Get(other) should fail")
	}
}

func TestManager_Terminate(t *testing.T) {
	f := &fakeFactory{}
	m := NewManager(f, ManagerOptions{})
	ctx := context.Background()

	killed, err := m.Terminate(ctx)
	if err != nil || killed {
		t.Errorf("Terminate() with no session = %v, %v", killed, err)
	}

	s, _ := m.Create(ctx)
	killed, err = m.Terminate(ctx)
	if err != nil || !killed {
		t.Errorf("Terminate() = %v, %v", killed, err)
	}
	if s.State() != StateTerminated {
		t.Errorf("State() = %q, want %q", s.State(), StateTerminated)
	}
	if m.Active() != nil {
		t.Error("Active() should be nil after Terminate")
	}
}

func TestManager_BusySessionIsNotReplaced(t *testing.T) {
	f := &fakeFactory{}
	m := NewManager(f, ManagerOptions{})
	ctx := context.Background()

	s, _ := m.Create(ctx)
	release, err := s.BeginRun()
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}

	if _, err := m.Create(ctx); apperrors.GetExitCode(err) != apperrors.ExitRunInProgress {
		t.Errorf("Create() while running error = %v, want run in progress", err)
	}
	if _, err := m.GetOrCreate(ctx, "other"); apperrors.GetExitCode(err) != apperrors.ExitRunInProgress {
		t.Errorf("GetOrCreate(other) while running error = %v, want run in progress", err)
	}
	if got, err := m.GetOrCreate(ctx, s.ID); err != nil || got != s {
		t.Errorf("GetOrCreate(active id) = %v, %v", got, err)
	}
	if killed, err := m.Kill(ctx); killed || apperrors.GetExitCode(err) != apperrors.ExitRunInProgress {
		t.Errorf("Kill() while running = %v, %v", killed, err)
	}
	if m.Active() != s || f.created.Load() != 1 {
		t.Errorf("active session replaced while running (created %d)", f.created.Load())
	}

	release()
	if killed, err := m.Kill(ctx); err != nil || !killed {
		t.Errorf("Kill() after release = %v, %v", killed, err)
	}
}

func TestManager_TerminateIgnoresRun(t *testing.T) {
	m := NewManager(&fakeFactory{}, ManagerOptions{})
	ctx := context.Background()

	s, _ := m.Create(ctx)
	release, _ := s.BeginRun()
	defer release()

	if killed, err := m.Terminate(ctx); err != nil || !killed {
		t.Errorf("Terminate() = %v, %v, want shutdown to proceed", killed, err)
	}
}

func TestManager_Adopt(t *testing.T) {
	m := NewManager(&fakeFactory{}, ManagerOptions{})
	exec := sandbox.NewMockExecutor("local")

	s, err := m.Adopt(exec, []string{"index.html"})
	if err != nil {
		t.Fatalf("Adopt() error = %v", err)
	}
	if m.Active() != s || s.ID != "local" {
		t.Errorf("Adopt() did not activate %q", s.ID)
	}
	if !s.KnownFiles().Has("index.html") {
		t.Error("known files not seeded")
	}
}
