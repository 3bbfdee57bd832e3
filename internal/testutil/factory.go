package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/zenprocess/open-lovable-cf/internal/project"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

// Factory is a session.Factory that hands out mock executors seeded with
// the scaffold.
type Factory struct {
	// Err fails every Create when set
	Err error

	// Setup, when set, is applied to each new executor
	Setup func(*sandbox.MockExecutor)

	mu        sync.Mutex
	created   []*sandbox.MockExecutor
	destroyed int
}

func (f *Factory) Create(ctx context.Context) (sandbox.Executor, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, nil, f.Err
	}

	exec := sandbox.NewMockExecutor(fmt.Sprintf("sandbox-%d", len(f.created)+1))
	for _, file := range project.Scaffold(project.ScaffoldOptions{}) {
		exec.SetFile(file.Path, file.Content)
	}
	exec.SetFile("package.json", ScaffoldPackageJSON)
	if f.Setup != nil {
		f.Setup(exec)
	}
	f.created = append(f.created, exec)
	return exec, project.ScaffoldPaths(), nil
}

func (f *Factory) Destroy(ctx context.Context, exec sandbox.Executor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return nil
}

// Created returns how many sandboxes were created.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// Destroyed returns how many sandboxes were destroyed.
func (f *Factory) Destroyed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

// Last returns the most recently created executor, or nil.
func (f *Factory) Last() *sandbox.MockExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}
