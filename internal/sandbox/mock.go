package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MockExecutor is an in-memory Executor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Files is the sandbox filesystem keyed by relative path
	Files map[string]string

	// CommandResults maps exact command strings to predefined results
	CommandResults map[string]*CommandResult

	// CommandFunc, when set, computes command results instead of CommandResults
	CommandFunc func(cmd string) (*CommandResult, error)

	// WriteErrors and ReadErrors inject failures for specific paths
	WriteErrors map[string]error
	ReadErrors  map[string]error

	// InstallResult and InstallErr are returned by InstallPackages
	InstallResult *CommandResult
	InstallErr    error

	// RestartErr is returned by RestartDevServer
	RestartErr error

	// InfoValue is returned by Info
	InfoValue *Info

	// Recorded calls
	Commands []string
	Writes   []string
	Installs [][]string
	Restarts int
}

// NewMockExecutor returns a mock with an empty filesystem.
func NewMockExecutor(id string) *MockExecutor {
	return &MockExecutor{
		Files:          make(map[string]string),
		CommandResults: make(map[string]*CommandResult),
		WriteErrors:    make(map[string]error),
		ReadErrors:     make(map[string]error),
		InfoValue:      &Info{ID: id, URL: "http://127.0.0.1:5173", Provider: "mock"},
	}
}

func (m *MockExecutor) RunCommand(ctx context.Context, cmd string) (*CommandResult, error) {
	m.mu.Lock()
	m.Commands = append(m.Commands, cmd)
	fn := m.CommandFunc
	res, ok := m.CommandResults[cmd]
	m.mu.Unlock()

	if fn != nil {
		return fn(cmd)
	}
	if ok {
		return res, nil
	}
	return &CommandResult{}, nil
}

func (m *MockExecutor) WriteFile(ctx context.Context, path, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes = append(m.Writes, path)
	if err, ok := m.WriteErrors[path]; ok {
		return err
	}
	m.Files[path] = content
	return nil
}

func (m *MockExecutor) ReadFile(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.ReadErrors[path]; ok {
		return "", err
	}
	content, ok := m.Files[path]
	if !ok {
		return "", fmt.Errorf("read %s: no such file", path)
	}
	return content, nil
}

func (m *MockExecutor) InstallPackages(ctx context.Context, names []string) (*CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Installs = append(m.Installs, append([]string(nil), names...))
	if m.InstallErr != nil {
		return nil, m.InstallErr
	}
	if m.InstallResult != nil {
		return m.InstallResult, nil
	}
	return &CommandResult{Stdout: "added " + fmt.Sprint(len(names)) + " packages"}, nil
}

func (m *MockExecutor) RestartDevServer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Restarts++
	return m.RestartErr
}

func (m *MockExecutor) Info() *Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InfoValue
}

// SetFile seeds the filesystem.
func (m *MockExecutor) SetFile(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[path] = content
}

// File returns the content of path and whether it exists.
func (m *MockExecutor) File(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.Files[path]
	return content, ok
}

// Paths returns the stored paths in sorted order.
func (m *MockExecutor) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// CommandLog returns the commands run so far.
func (m *MockExecutor) CommandLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Commands...)
}

// RanCommand reports whether a command containing substr was run.
func (m *MockExecutor) RanCommand(substr string) bool {
	for _, c := range m.CommandLog() {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

var _ Executor = (*MockExecutor)(nil)
