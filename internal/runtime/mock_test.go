package runtime

import (
	"context"
	"errors"
	"testing"
)

func TestMockRuntime_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMockRuntime()

	if err := m.Create(ctx, CreateOptions{Name: "abc", Image: "node"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	info, _ := m.Status(ctx, "abc")
	if info.Status != StatusStopped {
		t.Errorf("Status = %q, want %q", info.Status, StatusStopped)
	}

	if err := m.Start(ctx, "abc"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	info, _ = m.Status(ctx, "abc")
	if info.Status != StatusRunning {
		t.Errorf("Status after Start = %q, want %q", info.Status, StatusRunning)
	}
	if err := m.Start(ctx, "missing"); err == nil {
		t.Error("Start() of an unknown container should fail")
	}

	if err := m.Destroy(ctx, "abc"); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	info, _ = m.Status(ctx, "abc")
	if info.Status != StatusNotFound {
		t.Errorf("Status after Destroy = %q, want %q", info.Status, StatusNotFound)
	}

	if got := len(m.GetCallsFor("Status")); got != 3 {
		t.Errorf("Status calls = %d, want 3", got)
	}
}

func TestMockRuntime_List(t *testing.T) {
	ctx := context.Background()
	m := NewMockRuntime()
	m.AddContainer("a", StatusRunning)
	m.AddContainer("b", StatusStopped)

	got, err := m.List(ctx, "lovable.sandbox")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List() returned %d containers, want 2", len(got))
	}

	m.SetError("List", errors.New("engine down"))
	if _, err := m.List(ctx, "lovable.sandbox"); err == nil {
		t.Error("List() should return the injected error")
	}
}

func TestMockRuntime_Exec(t *testing.T) {
	ctx := context.Background()
	m := NewMockRuntime()

	m.SetExecResult("abc", &ExecResult{Stdout: "hi"})
	res, err := m.Exec(ctx, "abc", []string{"echo", "hi"}, ExecOptions{})
	if err != nil || res.Stdout != "hi" {
		t.Errorf("Exec() = %+v, %v; want stdout hi", res, err)
	}

	m.ExecFunc = func(name string, command []string, opts ExecOptions) (*ExecResult, error) {
		return &ExecResult{ExitCode: 3, Stderr: command[0]}, nil
	}
	res, _ = m.Exec(ctx, "abc", []string{"false"}, ExecOptions{})
	if res.ExitCode != 3 || res.Stderr != "false" {
		t.Errorf("Exec() with ExecFunc = %+v", res)
	}

	m.SetError("Exec", errors.New("boom"))
	if _, err := m.Exec(ctx, "abc", []string{"x"}, ExecOptions{}); err == nil {
		t.Error("Exec() should return the injected error")
	}

	calls := m.GetCallsFor("Exec")
	if len(calls) != 3 {
		t.Fatalf("Exec calls = %d, want 3", len(calls))
	}
	if calls[0].Args[0] != "abc" {
		t.Errorf("first call container = %v, want abc", calls[0].Args[0])
	}
}
