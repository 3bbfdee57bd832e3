// Package mirror copies every file written to the sandbox into a local
// folder, and reads that folder back for project loading.
//
// The mirror is one-way: sandbox writes flow out. A failed mirror write is
// logged and never surfaces to the caller.
package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/system"
)

var excluded = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	"dist":         true,
	"build":        true,
}

// File is one file read back from the folder.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Mirror writes into a single root folder.
type Mirror struct {
	root   string
	fs     system.FileSystem
	logger *slog.Logger
}

// New returns a mirror rooted at folder, or nil when folder is empty.
// All methods are no-ops on a nil mirror.
func New(folder string, fsys system.FileSystem, logger *slog.Logger) *Mirror {
	if folder == "" {
		return nil
	}
	if fsys == nil {
		fsys = system.OS()
	}
	if abs, err := filepath.Abs(folder); err == nil {
		folder = abs
	}
	return &Mirror{
		root:   folder,
		fs:     fsys,
		logger: logging.OrDefault(logger).With("component", "mirror"),
	}
}

// Root returns the mirrored folder.
func (m *Mirror) Root() string {
	if m == nil {
		return ""
	}
	return m.root
}

// Enabled reports whether the mirror writes anywhere.
func (m *Mirror) Enabled() bool {
	return m != nil
}

// target resolves a sandbox-relative path inside the root. Paths that
// would escape the root through ".." or symlinks are confined to it.
func (m *Mirror) target(p string) (string, error) {
	rel := strings.TrimLeft(p, "/")
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("invalid mirror path %q", p)
	}
	return securejoin.SecureJoin(m.root, rel)
}

// Sync writes content to the mirrored copy of p.
func (m *Mirror) Sync(p, content string) {
	if m == nil {
		return
	}
	target, err := m.target(p)
	if err != nil {
		m.logger.Warn("mirror sync skipped", "path", p, "error", err)
		return
	}
	if err := m.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		m.logger.Warn("mirror sync failed", "path", p, "error", err)
		return
	}
	if err := m.fs.WriteFile(target, []byte(content), 0644); err != nil {
		m.logger.Warn("mirror sync failed", "path", p, "error", err)
		return
	}
	m.logger.Debug("mirrored file", "path", p, "target", target)
}

// Delete removes the mirrored copy of p if it exists.
func (m *Mirror) Delete(p string) {
	if m == nil {
		return
	}
	target, err := m.target(p)
	if err != nil {
		m.logger.Warn("mirror delete skipped", "path", p, "error", err)
		return
	}
	if err := m.fs.Remove(target); err != nil && !isNotExist(err) {
		m.logger.Warn("mirror delete failed", "path", p, "error", err)
		return
	}
	m.logger.Debug("mirror deleted file", "path", p)
}

// ReadAll returns every text file under the root, skipping build output,
// dependency folders and dotfiles. Paths are slash-separated and relative
// to the root. A missing root yields no files.
func (m *Mirror) ReadAll() ([]File, error) {
	if m == nil {
		return nil, nil
	}
	if _, err := m.fs.Stat(m.root); err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []File
	if err := m.walk(m.root, "", &out); err != nil {
		return out, err
	}
	return out, nil
}

func (m *Mirror) walk(dir, prefix string, out *[]File) error {
	entries, err := m.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if excluded[name] || strings.HasPrefix(name, ".") {
			continue
		}
		rel := path.Join(prefix, name)
		full := filepath.Join(dir, name)
		if entry.IsDir() {
			if err := m.walk(full, rel, out); err != nil {
				return err
			}
			continue
		}
		data, err := m.fs.ReadFile(full)
		if err != nil || !utf8.Valid(data) {
			continue
		}
		*out = append(*out, File{Path: rel, Content: string(data)})
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
