package runtime

import (
	"context"
	"fmt"
	"sync"
)

// MockRuntime is an in-memory Runtime for tests.
type MockRuntime struct {
	mu sync.Mutex

	// Containers is keyed by sandbox id
	Containers map[string]*ContainerInfo

	// ExecResults scripts Exec output per container
	ExecResults map[string]*ExecResult

	// ExecFunc takes precedence over ExecResults
	ExecFunc func(name string, command []string, opts ExecOptions) (*ExecResult, error)

	// Errors is keyed by method name
	Errors map[string]error

	CallLog []MockCall
}

// MockCall is one recorded method call.
type MockCall struct {
	Method string
	Args   []any
}

func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Containers:  make(map[string]*ContainerInfo),
		ExecResults: make(map[string]*ExecResult),
		Errors:      make(map[string]error),
	}
}

// begin records the call and returns the injected error for method, if any.
// Callers hold m.mu.
func (m *MockRuntime) begin(method string, args ...any) error {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
	return m.Errors[method]
}

func (m *MockRuntime) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method] = err
}

func (m *MockRuntime) SetExecResult(name string, result *ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecResults[name] = result
}

// AddContainer seeds a container, as if left over from an earlier run.
func (m *MockRuntime) AddContainer(name string, status ContainerStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers[name] = &ContainerInfo{Name: name, Status: status}
}

// GetCallsFor returns the recorded calls to method in order.
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, c := range m.CallLog {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

func (m *MockRuntime) Name() string { return "mock" }

func (m *MockRuntime) Create(ctx context.Context, opts CreateOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Create", opts); err != nil {
		return err
	}
	status := StatusStopped
	if opts.Start {
		status = StatusRunning
	}
	m.Containers[opts.Name] = &ContainerInfo{Name: opts.Name, Status: status}
	return nil
}

func (m *MockRuntime) Start(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Start", name); err != nil {
		return err
	}
	c, ok := m.Containers[name]
	if !ok {
		return fmt.Errorf("no such container: %s", name)
	}
	c.Status = StatusRunning
	return nil
}

func (m *MockRuntime) Destroy(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Destroy", name); err != nil {
		return err
	}
	delete(m.Containers, name)
	return nil
}

func (m *MockRuntime) Status(ctx context.Context, name string) (*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("Status", name); err != nil {
		return nil, err
	}
	if c, ok := m.Containers[name]; ok {
		info := *c
		return &info, nil
	}
	return &ContainerInfo{Name: name, Status: StatusNotFound}, nil
}

// Exec runs ExecFunc without holding the lock so it may call back into m.
func (m *MockRuntime) Exec(ctx context.Context, name string, command []string, opts ExecOptions) (*ExecResult, error) {
	m.mu.Lock()
	err := m.begin("Exec", name, command, opts)
	fn := m.ExecFunc
	res, scripted := m.ExecResults[name]
	m.mu.Unlock()

	switch {
	case err != nil:
		return nil, err
	case fn != nil:
		return fn(name, command, opts)
	case scripted:
		return res, nil
	}
	return &ExecResult{}, nil
}

// List ignores label; every mock container counts as a sandbox.
func (m *MockRuntime) List(ctx context.Context, label string) ([]*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("List", label); err != nil {
		return nil, err
	}
	containers := make([]*ContainerInfo, 0, len(m.Containers))
	for _, c := range m.Containers {
		info := *c
		containers = append(containers, &info)
	}
	return containers, nil
}

var _ Runtime = (*MockRuntime)(nil)
