package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
	"github.com/zenprocess/open-lovable-cf/internal/testutil"
)

// serveTestApp runs the HTTP API of a test app and points the sandbox
// commands at it.
func serveTestApp(t *testing.T) *testutil.Factory {
	t.Helper()
	a, factory := newTestApp(t)
	srv, err := a.Server()
	if err != nil {
		t.Fatalf("Server() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())

	sandboxServer = ts.URL
	stdout, stderr := logging.Stdout, logging.Stderr
	logging.Stdout, logging.Stderr = io.Discard, io.Discard
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Stop()
		sandboxServer = ""
		filesJSON = false
		logging.Stdout, logging.Stderr = stdout, stderr
	})
	return factory
}

// run invokes a sandbox command handler and returns what it printed.
func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&stdout)
	c.SetErr(&stderr)
	c.SetIn(strings.NewReader(""))
	c.SetContext(context.Background())
	err := fn(c, args)
	return stdout.String(), stderr.String(), err
}

func TestSandboxCommands_NoSandbox(t *testing.T) {
	serveTestApp(t)

	out, _, err := run(t, runSandboxStatus)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "No active sandbox") {
		t.Errorf("status output = %q", out)
	}

	_, _, err = run(t, runSandboxExec, "ls")
	if code := errors.GetExitCode(err); code != errors.ExitSandboxNotFound {
		t.Errorf("exec exit code = %d, want %d", code, errors.ExitSandboxNotFound)
	}
	_, _, err = run(t, runSandboxHistory)
	if code := errors.GetExitCode(err); code != errors.ExitSandboxNotFound {
		t.Errorf("history exit code = %d, want %d", code, errors.ExitSandboxNotFound)
	}
}

func TestSandboxCommands_Lifecycle(t *testing.T) {
	factory := serveTestApp(t)
	factory.Setup = func(m *sandbox.MockExecutor) {
		m.CommandResults["echo 'hello world'"] = &sandbox.CommandResult{Stdout: "hello world\n"}
		m.CommandResults["exit 3"] = &sandbox.CommandResult{Stderr: "nope\n", ExitCode: 3}
	}

	out, _, err := run(t, runSandboxCreate)
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	if !strings.Contains(out, "URL: http://127.0.0.1:5173") {
		t.Errorf("create output = %q", out)
	}
	if factory.Created() != 1 {
		t.Fatalf("Created() = %d, want 1", factory.Created())
	}

	out, _, err = run(t, runSandboxStatus)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, "Sandbox: sandbox-1") {
		t.Errorf("status output = %q", out)
	}

	out, _, err = run(t, runSandboxExec, "echo", "hello world")
	if err != nil {
		t.Fatalf("exec error = %v", err)
	}
	if out != "hello world\n" {
		t.Errorf("exec stdout = %q, want %q", out, "hello world\n")
	}

	_, errOut, err := run(t, runSandboxExec, "exit", "3")
	if code := errors.GetExitCode(err); code != 3 {
		t.Errorf("exec exit code = %d, want 3 (error %v)", code, err)
	}
	if errOut != "nope\n" {
		t.Errorf("exec stderr = %q, want %q", errOut, "nope\n")
	}

	out, _, err = run(t, runSandboxHistory)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	for _, want := range []string{"create", "echo 'hello world'"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}

	if _, _, err := run(t, runSandboxRestart); err != nil {
		t.Errorf("restart error = %v", err)
	}
	if _, _, err := run(t, runSandboxInstall, "lodash"); err != nil {
		t.Errorf("install error = %v", err)
	}

	if _, _, err := run(t, runSandboxKill); err != nil {
		t.Fatalf("kill error = %v", err)
	}
	if factory.Destroyed() != 1 {
		t.Errorf("Destroyed() = %d, want 1", factory.Destroyed())
	}
}

func TestSandboxFiles(t *testing.T) {
	factory := serveTestApp(t)
	factory.Setup = func(m *sandbox.MockExecutor) {
		m.CommandFunc = func(cmd string) (*sandbox.CommandResult, error) {
			switch {
			case strings.HasPrefix(cmd, "find . -type d"):
				return &sandbox.CommandResult{Stdout: ".\n./src\n"}, nil
			case strings.HasPrefix(cmd, "find ."):
				return &sandbox.CommandResult{Stdout: "./src/App.jsx\n"}, nil
			case strings.HasPrefix(cmd, "stat "):
				return &sandbox.CommandResult{Stdout: "32\n"}, nil
			}
			return &sandbox.CommandResult{}, nil
		}
		m.SetFile("src/App.jsx", "export default function App() {}")
	}
	if _, _, err := run(t, runSandboxCreate); err != nil {
		t.Fatalf("create error = %v", err)
	}

	out, _, err := run(t, runSandboxFiles)
	if err != nil {
		t.Fatalf("files error = %v", err)
	}
	if !strings.Contains(out, "src/App.jsx") {
		t.Errorf("files output = %q", out)
	}

	filesJSON = true
	out, _, err = run(t, runSandboxFiles)
	if err != nil {
		t.Fatalf("files --json error = %v", err)
	}
	if !strings.Contains(out, `"fileCount"`) {
		t.Errorf("files --json output = %q", out)
	}
}

func TestSandboxLoad(t *testing.T) {
	factory := serveTestApp(t)
	if _, _, err := run(t, runSandboxCreate); err != nil {
		t.Fatalf("create error = %v", err)
	}

	dir := t.TempDir()
	for p, content := range map[string]string{
		"src/App.jsx":               "export default function App() { return null }",
		"node_modules/x/index.js":   "module.exports = 1",
		".env":                      "SECRET=1",
		"src/components/Header.jsx": "export default function Header() {}",
	} {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := run(t, runSandboxLoad, dir); err != nil {
		t.Fatalf("load error = %v", err)
	}
	exec := factory.Last()
	if got, _ := exec.File("src/App.jsx"); got != "export default function App() { return null }" {
		t.Errorf("App.jsx = %q", got)
	}
	if _, ok := exec.File("src/components/Header.jsx"); !ok {
		t.Error("Header.jsx was not loaded")
	}
	if _, ok := exec.File("node_modules/x/index.js"); ok {
		t.Error("node_modules should be skipped")
	}
	if _, ok := exec.File(".env"); ok {
		t.Error("dotfiles should be skipped")
	}
}

func TestSandboxLoad_EmptyDir(t *testing.T) {
	serveTestApp(t)
	_, _, err := run(t, runSandboxLoad, t.TempDir())
	if code := errors.GetExitCode(err); code != errors.ExitValidation {
		t.Errorf("exit code = %d, want %d", code, errors.ExitValidation)
	}
}

func TestSandboxApply(t *testing.T) {
	factory := serveTestApp(t)
	if _, _, err := run(t, runSandboxCreate); err != nil {
		t.Fatalf("create error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "response.txt")
	if err := os.WriteFile(path, []byte(heroResponse), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := run(t, runSandboxApply, path)
	if err != nil {
		t.Fatalf("apply error = %v\n%s", err, out)
	}
	if _, ok := factory.Last().File("src/components/Hero.jsx"); !ok {
		t.Error("Hero.jsx was not written")
	}
	if !strings.Contains(out, "src/components/Hero.jsx") {
		t.Errorf("apply output should list the file:\n%s", out)
	}
}

func TestBoolStatus(t *testing.T) {
	if boolStatus(true) != "✓" || boolStatus(false) != "✗" {
		t.Errorf("boolStatus() = %q/%q", boolStatus(true), boolStatus(false))
	}
}
