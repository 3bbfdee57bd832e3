package sandbox

import (
	"context"
	"errors"
	"testing"
)

func TestMockExecutor_Files(t *testing.T) {
	m := NewMockExecutor("test")
	ctx := context.Background()

	if err := m.WriteFile(ctx, "src/App.jsx", "app"); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := m.ReadFile(ctx, "src/App.jsx")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got != "app" {
		t.Errorf("ReadFile() = %q, want %q", got, "app")
	}
	if _, err := m.ReadFile(ctx, "missing.js"); err == nil {
		t.Error("ReadFile() should fail for a missing file")
	}
}

func TestMockExecutor_InjectedErrors(t *testing.T) {
	m := NewMockExecutor("test")
	m.WriteErrors["src/B.jsx"] = errors.New("disk full")

	if err := m.WriteFile(context.Background(), "src/B.jsx", "x"); err == nil {
		t.Error("WriteFile() should return the injected error")
	}
	if _, ok := m.File("src/B.jsx"); ok {
		t.Error("failed write should not store the file")
	}
	if len(m.Writes) != 1 {
		t.Errorf("Writes = %v, want the attempt recorded", m.Writes)
	}
}

func TestMockExecutor_Commands(t *testing.T) {
	m := NewMockExecutor("test")
	m.CommandResults["npm test"] = &CommandResult{ExitCode: 1, Stderr: "fail"}

	res, _ := m.RunCommand(context.Background(), "npm test")
	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
	res, _ = m.RunCommand(context.Background(), "ls")
	if !res.Success() {
		t.Error("unscripted commands should succeed")
	}
	if !m.RanCommand("npm") {
		t.Error("RanCommand(npm) = false, want true")
	}
}

func TestMockExecutor_Install(t *testing.T) {
	m := NewMockExecutor("test")
	if _, err := m.InstallPackages(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("InstallPackages() error = %v", err)
	}
	if len(m.Installs) != 1 || len(m.Installs[0]) != 2 {
		t.Errorf("Installs = %v", m.Installs)
	}
}
