package app

import (
	"context"
	"strings"
	"testing"

	"github.com/zenprocess/open-lovable-cf/internal/audit"
	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/edits"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/reconcile"
	"github.com/zenprocess/open-lovable-cf/internal/runtime"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
	"github.com/zenprocess/open-lovable-cf/internal/system"
	"github.com/zenprocess/open-lovable-cf/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.State.Dir = t.TempDir()
	return cfg
}

func TestNew(t *testing.T) {
	a, err := New(
		WithConfig(testConfig(t)),
		WithFactory(&testutil.Factory{}),
		WithLogger(logging.Discard()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.Manager == nil || a.Orchestrator == nil || a.Installer == nil || a.History == nil {
		t.Fatal("New() left components unset")
	}
	if a.Mirror != nil {
		t.Error("Mirror should be nil without a folder")
	}
	if a.Applier != nil {
		t.Errorf("Applier = %v, want nil with edits disabled", a.Applier)
	}
	if !a.Installer.RestartDevServer {
		t.Error("Installer should restart the dev server by default")
	}
	if a.Orchestrator.Installer != a.Installer {
		t.Error("Orchestrator should share the app Installer")
	}
}

func TestNew_DefaultConfig(t *testing.T) {
	a, err := New(WithFactory(&testutil.Factory{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Config == nil {
		t.Error("Config should default")
	}
	if a.FS == nil {
		t.Error("FS should default to the OS filesystem")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sandbox.Runtime = "lxc"

	_, err := New(WithConfig(cfg), WithFactory(&testutil.Factory{}))
	if err == nil {
		t.Fatal("New() should reject invalid configuration")
	}
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestNew_WithMirrorAndEdits(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mirror.Folder = "/mirror"
	cfg.Edits.Backend = config.EditBackendLocal
	fs := system.NewMockFS()

	a, err := New(WithConfig(cfg), WithFactory(&testutil.Factory{}), WithFileSystem(fs))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Mirror == nil {
		t.Fatal("Mirror should be configured")
	}
	if a.Orchestrator.Mirror != a.Mirror {
		t.Error("Orchestrator should write through the app Mirror")
	}
	if _, ok := a.Applier.(edits.MergeApplier); !ok {
		t.Errorf("Applier = %T, want edits.MergeApplier", a.Applier)
	}
}

func TestNew_WithRuntime(t *testing.T) {
	rt := runtime.NewMockRuntime()
	a, err := New(WithConfig(testConfig(t)), WithRuntime(rt))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Runtime != rt {
		t.Error("WithRuntime did not set runtime")
	}
	if _, ok := a.factory.(*provisionerFactory); !ok {
		t.Errorf("factory = %T, want *provisionerFactory", a.factory)
	}
}

func TestLifecycleHistory(t *testing.T) {
	a, err := New(WithConfig(testConfig(t)), WithFactory(&testutil.Factory{}), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	sess, err := a.Manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events, err := a.History.Events(sess.ID)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != audit.EventCreate || events[1].Type != audit.EventTerminate {
		t.Errorf("event types = %s, %s", events[0].Type, events[1].Type)
	}
	if events[0].Details != "http://127.0.0.1:5173" {
		t.Errorf("create details = %q, want the sandbox URL", events[0].Details)
	}
}

func TestApplyThroughApp(t *testing.T) {
	a, err := New(WithConfig(testConfig(t)), WithFactory(&testutil.Factory{}), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	sess, err := a.Manager.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var rec progress.Recorder
	a.Orchestrator.Apply(ctx, reconcile.Request{
		ResponseText: `<file path="src/components/Hero.jsx">export default function Hero() { return null }</file>`,
	}, sess, &rec)

	done, ok := rec.Last().(progress.Complete)
	if !ok {
		t.Fatalf("last event = %#v, want complete", rec.Last())
	}
	if len(done.Results.FilesCreated) == 0 {
		t.Error("no files created")
	}

	events, _ := a.History.Events(sess.ID)
	var sawApply bool
	for _, e := range events {
		if e.Type == audit.EventApply {
			sawApply = true
		}
	}
	if !sawApply {
		t.Error("apply was not recorded")
	}
}

func TestProvisionerFactory_NoRuntime(t *testing.T) {
	f := newProvisionerFactory(nil, config.Default())
	_, _, err := f.Create(context.Background())
	if err == nil {
		t.Fatal("Create() should fail without a runtime")
	}
	if !strings.Contains(err.Error(), "no container runtime") {
		t.Errorf("error = %q", err)
	}
	if err := f.Destroy(context.Background(), nil); err != nil {
		t.Errorf("Destroy(nil) error = %v", err)
	}
}

func TestProvisionerFactory_DestroyRejectsForeignExecutor(t *testing.T) {
	f := newProvisionerFactory(runtime.NewMockRuntime(), config.Default())
	if err := f.Destroy(context.Background(), sandbox.NewMockExecutor("x")); err == nil {
		t.Error("Destroy() should reject executors it did not create")
	}
}

func TestSetDefault(t *testing.T) {
	original := Default
	defer func() { Default = original }()

	a := &App{}
	SetDefault(a)
	if Default != a {
		t.Error("SetDefault did not update Default")
	}
	ResetDefault()
	if Default != nil {
		t.Error("ResetDefault should clear Default")
	}
}
