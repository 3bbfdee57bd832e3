package testutil

import (
	"testing"

	"github.com/zenprocess/open-lovable-cf/internal/project"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
	"github.com/zenprocess/open-lovable-cf/internal/session"
)

// ScaffoldPackageJSON is the package.json seeded into ready sandboxes.
const ScaffoldPackageJSON = `{
  "name": "sandbox-app",
  "dependencies": {"react": "^18.2.0", "react-dom": "^18.2.0"},
  "devDependencies": {"vite": "^5.0.0", "tailwindcss": "^3.3.0"}
}`

// ReadySession returns an active session over a mock executor that holds
// the Vite scaffold, as a freshly provisioned sandbox would.
func ReadySession(t *testing.T) (*session.Session, *sandbox.MockExecutor) {
	t.Helper()

	exec := sandbox.NewMockExecutor("test-sandbox")
	for _, f := range project.Scaffold(project.ScaffoldOptions{}) {
		exec.SetFile(f.Path, f.Content)
	}
	exec.SetFile("package.json", ScaffoldPackageJSON)

	s := session.New(exec, session.Options{KnownFiles: project.ScaffoldPaths()})
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	return s, exec
}

// EmptySession is ReadySession without any known files, as after a
// session whose registry was lost.
func EmptySession(t *testing.T) (*session.Session, *sandbox.MockExecutor) {
	t.Helper()

	exec := sandbox.NewMockExecutor("test-sandbox")
	exec.SetFile("package.json", ScaffoldPackageJSON)

	s := session.New(exec, session.Options{})
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	return s, exec
}
