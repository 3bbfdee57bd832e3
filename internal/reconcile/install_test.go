package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/parser"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
	"github.com/zenprocess/open-lovable-cf/internal/testutil"
)

func packageMessages(rec *progress.Recorder) []string {
	var out []string
	for _, e := range rec.Events() {
		if p, ok := e.(progress.PackageProgress); ok {
			out = append(out, p.Status+": "+p.Message)
		}
	}
	return out
}

func TestInstaller_InstallsMissing(t *testing.T) {
	sess, exec := testutil.ReadySession(t)
	missingNodeModules(exec)
	exec.InstallResult = &sandbox.CommandResult{Stdout: "added 2 packages\nnpm WARN deprecated x\n"}
	var rec progress.Recorder

	in := &Installer{Logger: logging.Discard()}
	res := in.Install(context.Background(), sess, []string{"vite", "lodash", "axios"}, &rec)

	if diff := cmp.Diff([]string{"lodash", "axios"}, res.Installed); diff != "" {
		t.Errorf("Installed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"vite"}, res.Already); diff != "" {
		t.Errorf("Already mismatch (-want +got):\n%s", diff)
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}

	want := []string{
		"start: Installing 3 packages...",
		"status: Checking installed packages...",
		"info: Already installed: vite",
		"info: Installing 2 new packages: lodash, axios",
		"output: added 2 packages",
		"warning: npm WARN deprecated x",
		"success: Successfully installed: lodash, axios",
	}
	if diff := cmp.Diff(want, packageMessages(&rec)); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if len(exec.Installs) != 1 {
		t.Errorf("Installs = %v, want one npm install", exec.Installs)
	}
	if exec.Restarts != 0 {
		t.Errorf("Restarts = %d, want 0", exec.Restarts)
	}
}

func TestInstaller_AllAlreadyInstalled(t *testing.T) {
	sess, exec := testutil.ReadySession(t)
	var rec progress.Recorder

	res := (&Installer{}).Install(context.Background(), sess, []string{"tailwindcss"}, &rec)

	if diff := cmp.Diff([]string{"tailwindcss"}, res.Already); diff != "" {
		t.Errorf("Already mismatch (-want +got):\n%s", diff)
	}
	if len(exec.Installs) != 0 {
		t.Errorf("npm install ran for installed packages: %v", exec.Installs)
	}
	msgs := packageMessages(&rec)
	if got := msgs[len(msgs)-1]; got != "success: All packages are already installed" {
		t.Errorf("last message = %q", got)
	}
}

func TestInstaller_RestartsDevServer(t *testing.T) {
	sess, exec := testutil.ReadySession(t)
	missingNodeModules(exec)
	var rec progress.Recorder

	in := &Installer{RestartDevServer: true}
	in.Install(context.Background(), sess, []string{"lodash"}, &rec)

	if !exec.RanCommand(sandbox.StopDevServerCmd) {
		t.Error("dev server was not stopped before installing")
	}
	if exec.Restarts != 1 {
		t.Errorf("Restarts = %d, want 1", exec.Restarts)
	}
	msgs := packageMessages(&rec)
	if msgs[1] != "status: Stopping development server..." {
		t.Errorf("second message = %q", msgs[1])
	}
	if got := msgs[len(msgs)-1]; got != "complete: Dev server restarted!" {
		t.Errorf("last message = %q", got)
	}

	// A second install inside the cooldown stopped the server again, so it
	// must start it again too.
	var again progress.Recorder
	in.Install(context.Background(), sess, []string{"axios"}, &again)
	if exec.Restarts != 2 {
		t.Errorf("Restarts = %d, want 2", exec.Restarts)
	}
}

func TestInstaller_RestartsAfterRecentManualRestart(t *testing.T) {
	sess, exec := testutil.ReadySession(t)
	if out, err := sess.RestartDevServer(context.Background()); err != nil || !out.Restarted {
		t.Fatalf("RestartDevServer() = %+v, %v", out, err)
	}
	var rec progress.Recorder

	(&Installer{RestartDevServer: true}).Install(context.Background(), sess, []string{"vite"}, &rec)

	if !exec.RanCommand(sandbox.StopDevServerCmd) {
		t.Fatal("dev server was not stopped")
	}
	if exec.Restarts != 2 {
		t.Errorf("Restarts = %d, want 2 (manual then install)", exec.Restarts)
	}
	msgs := packageMessages(&rec)
	if got := msgs[len(msgs)-1]; got != "complete: Dev server restarted!" {
		t.Errorf("last message = %q", got)
	}

	// The cooldown still applies to ordinary restarts afterwards.
	if out, _ := sess.RestartDevServer(context.Background()); out.Restarted {
		t.Error("RestartDevServer() right after install should be skipped by the cooldown")
	}
}

func TestInstaller_RestartFailure(t *testing.T) {
	sess, exec := testutil.ReadySession(t)
	exec.RestartErr = errors.New("vite crashed")
	var rec progress.Recorder

	(&Installer{RestartDevServer: true}).Install(context.Background(), sess, []string{"vite"}, &rec)

	msgs := packageMessages(&rec)
	if got := msgs[len(msgs)-1]; got != "error: Failed to restart dev server: vite crashed" {
		t.Errorf("last message = %q", got)
	}
}

func TestInstaller_InvalidNames(t *testing.T) {
	sess, exec := testutil.ReadySession(t)
	missingNodeModules(exec)
	var rec progress.Recorder

	res := (&Installer{}).Install(context.Background(), sess, []string{"lodash; rm -rf /", "axios"}, &rec)

	if diff := cmp.Diff([]string{"lodash; rm -rf /"}, res.Failed); diff != "" {
		t.Errorf("Failed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"axios"}}, exec.Installs); diff != "" {
		t.Errorf("Installs mismatch (-want +got):\n%s", diff)
	}
	if msgs := packageMessages(&rec); msgs[1] != "warning: Skipping invalid package names: lodash; rm -rf /" {
		t.Errorf("second message = %q", msgs[1])
	}
}

func TestInstaller_NonZeroExit(t *testing.T) {
	sess, exec := testutil.ReadySession(t)
	missingNodeModules(exec)
	exec.InstallResult = &sandbox.CommandResult{Stderr: "npm ERR! 404 Not Found", ExitCode: 1}
	var rec progress.Recorder

	res := (&Installer{}).Install(context.Background(), sess, []string{"no-such-pkg"}, &rec)

	if res.Err == nil || res.Err.Error() != "npm install exited with code 1" {
		t.Errorf("Err = %v", res.Err)
	}
	if diff := cmp.Diff([]string{"no-such-pkg"}, res.Failed); diff != "" {
		t.Errorf("Failed mismatch (-want +got):\n%s", diff)
	}
	msgs := packageMessages(&rec)
	if got := msgs[len(msgs)-1]; got != "error: Package installation failed" {
		t.Errorf("last message = %q", got)
	}
}

func TestMissingImports(t *testing.T) {
	present := map[string]bool{
		"src/components/Header.jsx":   true,
		"src/components/Nav/index.js": true,
		"src/lib/utils.js":            true,
	}
	tests := []struct {
		name string
		app  string
		want []string
	}{
		{"all present", "import Header from './components/Header';\nimport Nav from './components/Nav';", nil},
		{"missing", "import Footer from './components/Footer';", []string{"./components/Footer"}},
		{"css skipped", "import './App.css';", nil},
		{"parent dir resolves", "import { cn } from '../src/lib/utils';", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := parseApp(tt.app)
			got := missingImports(parsed, func(p string) bool { return present[p] })
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("missingImports() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func parseApp(content string) *parser.Response {
	return parser.Parse(`<file path="src/App.jsx">` + content + `</file>`)
}
