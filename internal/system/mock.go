package system

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"testing/fstest"
)

// MockFS is an in-memory FileSystem for tests. Paths are absolute and
// slash-separated; reads are served by an fstest.MapFS.
type MockFS struct {
	mu    sync.RWMutex
	files fstest.MapFS

	// Fail injects an error for the named method (e.g. "WriteFile").
	Fail map[string]error

	// Writes records every path passed to WriteFile, including failed ones.
	Writes []string
}

func NewMockFS() *MockFS {
	return &MockFS{files: fstest.MapFS{}, Fail: map[string]error{}}
}

// key converts an absolute path to a MapFS name.
func key(p string) string {
	p = strings.TrimPrefix(path.Clean(p), "/")
	if p == "" {
		return "."
	}
	return p
}

// AddFile seeds a file. Parent directories are implied.
func (m *MockFS) AddFile(p string, data []byte, mode fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key(p)] = &fstest.MapFile{Data: data, Mode: mode}
}

// AddDir seeds an empty directory.
func (m *MockFS) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key(p)] = &fstest.MapFile{Mode: fs.ModeDir | 0755}
}

// GetFile returns the contents of a regular file.
func (m *MockFS) GetFile(p string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[key(p)]
	if !ok || f.Mode.IsDir() {
		return nil, false
	}
	return f.Data, true
}

func (m *MockFS) isDir(name string) bool {
	if name == "." {
		return true
	}
	info, err := fs.Stat(m.files, name)
	return err == nil && info.IsDir()
}

func (m *MockFS) ReadFile(p string) ([]byte, error) {
	if err := m.Fail["ReadFile"]; err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadFile(m.files, key(p))
}

// WriteFile fails with fs.ErrNotExist unless the parent directory exists.
func (m *MockFS) WriteFile(p string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes = append(m.Writes, p)
	if err := m.Fail["WriteFile"]; err != nil {
		return err
	}
	name := key(p)
	if !m.isDir(path.Dir(name)) {
		return &fs.PathError{Op: "write", Path: p, Err: fs.ErrNotExist}
	}
	m.files[name] = &fstest.MapFile{Data: append([]byte(nil), data...), Mode: perm}
	return nil
}

func (m *MockFS) Remove(p string) error {
	if err := m.Fail["Remove"]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name := key(p)
	if _, ok := m.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	delete(m.files, name)
	return nil
}

func (m *MockFS) MkdirAll(p string, perm fs.FileMode) error {
	if err := m.Fail["MkdirAll"]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for name := key(p); name != "."; name = path.Dir(name) {
		if !m.isDir(name) {
			m.files[name] = &fstest.MapFile{Mode: fs.ModeDir | perm}
		}
	}
	return nil
}

func (m *MockFS) Stat(p string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.Stat(m.files, key(p))
}

func (m *MockFS) ReadDir(p string) ([]fs.DirEntry, error) {
	if err := m.Fail["ReadDir"]; err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadDir(m.files, key(p))
}

// Paths returns every regular file as an absolute path, sorted.
func (m *MockFS) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for name, f := range m.files {
		if !f.Mode.IsDir() {
			paths = append(paths, "/"+name)
		}
	}
	sort.Strings(paths)
	return paths
}

var _ FileSystem = (*MockFS)(nil)
