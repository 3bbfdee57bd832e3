package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// KnownFiles is the set of paths already materialized in the sandbox.
type KnownFiles struct {
	mu    sync.RWMutex
	paths map[string]bool
}

// NewKnownFiles returns a registry seeded with paths.
func NewKnownFiles(paths ...string) *KnownFiles {
	k := &KnownFiles{paths: make(map[string]bool, len(paths))}
	for _, p := range paths {
		k.Add(p)
	}
	return k
}

func normalize(p string) string {
	return strings.TrimPrefix(p, "/")
}

func (k *KnownFiles) Has(p string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.paths[normalize(p)]
}

func (k *KnownFiles) Add(p string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.paths[normalize(p)] = true
}

// Paths returns the registered paths in sorted order.
func (k *KnownFiles) Paths() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, 0, len(k.paths))
	for p := range k.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (k *KnownFiles) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.paths)
}

func (k *KnownFiles) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.paths = make(map[string]bool)
}

// CachedFile is a cached copy of a sandbox file.
type CachedFile struct {
	Content      string    `json:"content"`
	LastModified time.Time `json:"lastModified"`
}

// FileCache mirrors sandbox file contents. It is a read-through cache and
// never authoritative.
type FileCache struct {
	mu    sync.RWMutex
	files map[string]CachedFile
	now   func() time.Time

	lastSync time.Time
}

// NewFileCache returns an empty cache.
func NewFileCache() *FileCache {
	return &FileCache{files: make(map[string]CachedFile), now: time.Now}
}

func (c *FileCache) Put(p, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[normalize(p)] = CachedFile{Content: content, LastModified: c.now()}
}

func (c *FileCache) Get(p string) (CachedFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.files[normalize(p)]
	return f, ok
}

func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// Snapshot returns a copy of the cache contents.
func (c *FileCache) Snapshot() map[string]CachedFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]CachedFile, len(c.files))
	for p, f := range c.files {
		out[p] = f
	}
	return out
}

// Replace swaps the cache contents for files and records the sync time.
func (c *FileCache) Replace(files map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.files = make(map[string]CachedFile, len(files))
	for p, content := range files {
		c.files[normalize(p)] = CachedFile{Content: content, LastModified: now}
	}
	c.lastSync = now
}

// LastSync returns when Replace last ran.
func (c *FileCache) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}
