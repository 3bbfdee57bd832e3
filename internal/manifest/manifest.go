// Package manifest describes the files currently in a sandbox: their
// content, imports, the entry point, stylesheets and routes.
package manifest

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/zenprocess/open-lovable-cf/internal/parser"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

const (
	// MaxFileSize is the largest file whose content is read.
	MaxFileSize = 10000

	// MaxStructureLines caps the directory listing.
	MaxStructureLines = 50

	listFilesCmd = `find . -name node_modules -prune -o -name .git -prune -o -name dist -prune -o -name build -prune -o -type f \( -name "*.jsx" -o -name "*.js" -o -name "*.tsx" -o -name "*.ts" -o -name "*.css" -o -name "*.json" \) -print`
	listDirsCmd  = `find . -type d -not -path "*/node_modules*" -not -path "*/.git*"`
)

// File types
const (
	TypeComponent = "component"
	TypePage      = "page"
	TypeStyle     = "style"
	TypeConfig    = "config"
	TypeUtility   = "utility"
)

var (
	suspiciousPathRe = regexp.MustCompile("[`$;\x00|&]|\\.\\.")
	routeRe          = regexp.MustCompile(`path=["']([^"']+)["'].*(?:element|component)=\{([^}]+)\}`)
	pagesPrefixRe    = regexp.MustCompile(`^(src/)?pages/`)
)

// FileInfo describes one sandbox file.
type FileInfo struct {
	Content      string   `json:"content"`
	Type         string   `json:"type"`
	Path         string   `json:"path"`
	RelativePath string   `json:"relativePath"`
	Imports      []string `json:"imports,omitempty"`
	LastModified int64    `json:"lastModified"`
}

// Route is a client-side route found in the sources.
type Route struct {
	Path      string `json:"path"`
	Component string `json:"component"`
}

// Manifest is the analysed view of the sandbox files. Keys of Files are
// absolute ("/src/App.jsx").
type Manifest struct {
	Files      map[string]*FileInfo `json:"files"`
	Routes     []Route              `json:"routes"`
	EntryPoint string               `json:"entryPoint"`
	StyleFiles []string             `json:"styleFiles"`
	Timestamp  int64                `json:"timestamp"`
}

// Snapshot is the result of scanning a sandbox.
type Snapshot struct {
	// Files maps relative paths to content.
	Files     map[string]string `json:"files"`
	Structure string            `json:"structure"`
	FileCount int               `json:"fileCount"`
	Manifest  *Manifest         `json:"manifest"`
}

// Options configures Build.
type Options struct {
	Now func() time.Time
}

// Build lists the source files in the sandbox, reads the small ones and
// analyses them. Files that cannot be sized or read are skipped.
func Build(ctx context.Context, exec sandbox.Executor, opts Options) (*Snapshot, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	res, err := exec.RunCommand(ctx, listFilesCmd)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("listing files: %s", strings.TrimSpace(res.Stderr))
	}

	files := make(map[string]string)
	for _, line := range strings.Split(res.Stdout, "\n") {
		p := strings.TrimSpace(line)
		if p == "" || suspiciousPathRe.MatchString(p) {
			continue
		}
		rel := strings.TrimPrefix(p, "./")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		size, ok := fileSize(ctx, exec, rel)
		if !ok || size >= MaxFileSize {
			continue
		}
		content, err := exec.ReadFile(ctx, rel)
		if err != nil {
			continue
		}
		files[rel] = content
	}

	snap := &Snapshot{
		Files:     files,
		Structure: structure(ctx, exec),
		FileCount: len(files),
		Manifest:  Analyse(files, opts.Now()),
	}
	return snap, nil
}

func fileSize(ctx context.Context, exec sandbox.Executor, rel string) (int, bool) {
	quoted := shellquote.Join(rel)
	res, err := exec.RunCommand(ctx, fmt.Sprintf("stat -c %%s %s 2>/dev/null || stat -f %%z %s", quoted, quoted))
	if err != nil || !res.Success() {
		return 0, false
	}
	size, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, false
	}
	return size, true
}

func structure(ctx context.Context, exec sandbox.Executor) string {
	res, err := exec.RunCommand(ctx, listDirsCmd)
	if err != nil || !res.Success() {
		return ""
	}
	var dirs []string
	for _, d := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(d) != "" {
			dirs = append(dirs, d)
		}
		if len(dirs) == MaxStructureLines {
			break
		}
	}
	return strings.Join(dirs, "\n")
}

// Analyse builds a manifest from relative paths and contents.
func Analyse(files map[string]string, now time.Time) *Manifest {
	m := &Manifest{
		Files:      make(map[string]*FileInfo, len(files)),
		Routes:     []Route{},
		StyleFiles: []string{},
		Timestamp:  now.UnixMilli(),
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var appEntry string
	for _, rel := range paths {
		content := files[rel]
		full := "/" + rel
		info := &FileInfo{
			Content:      content,
			Type:         classify(rel),
			Path:         full,
			RelativePath: rel,
			LastModified: now.UnixMilli(),
		}

		switch path.Ext(rel) {
		case ".jsx", ".js", ".tsx", ".ts":
			info.Imports = append(parser.RelativeImports(content), parser.ExtractImports(content)...)
			if rel == "src/main.jsx" || rel == "src/index.jsx" {
				m.EntryPoint = full
			}
			if rel == "src/App.jsx" || rel == "App.jsx" {
				appEntry = full
			}
		case ".css":
			m.StyleFiles = append(m.StyleFiles, full)
		}

		m.Files[full] = info
		m.Routes = append(m.Routes, routes(info)...)
	}
	if m.EntryPoint == "" {
		m.EntryPoint = appEntry
	}
	return m
}

func classify(rel string) string {
	switch {
	case path.Ext(rel) == ".css":
		return TypeStyle
	case path.Ext(rel) == ".json", strings.Contains(path.Base(rel), ".config."):
		return TypeConfig
	case pagesPrefixRe.MatchString(rel):
		return TypePage
	case strings.Contains(rel, "components/"), path.Ext(rel) == ".jsx", path.Ext(rel) == ".tsx":
		return TypeComponent
	}
	return TypeUtility
}

func routes(info *FileInfo) []Route {
	var out []Route
	if strings.Contains(info.Content, "<Route") || strings.Contains(info.Content, "createBrowserRouter") {
		for _, m := range routeRe.FindAllStringSubmatch(info.Content, -1) {
			out = append(out, Route{Path: m[1], Component: info.Path})
		}
	}
	if pagesPrefixRe.MatchString(info.RelativePath) {
		r := pagesPrefixRe.ReplaceAllString(info.RelativePath, "")
		r = strings.TrimSuffix(r, path.Ext(r))
		r = strings.TrimSuffix(r, "index")
		out = append(out, Route{Path: "/" + r, Component: info.Path})
	}
	return out
}
