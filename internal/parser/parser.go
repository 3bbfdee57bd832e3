package parser

import (
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/project"
)

// File is one file block recovered from a response.
type File struct {
	Path    string `json:"path" yaml:"path"`
	Content string `json:"content" yaml:"content"`

	// Complete is false when the block was cut off before </file>.
	Complete bool `json:"complete" yaml:"complete"`

	// Suspicious marks content with a stray ellipsis that may indicate
	// the model elided part of the file.
	Suspicious bool `json:"suspicious,omitempty" yaml:"suspicious,omitempty"`
}

// Response is the structured form of an AI response.
type Response struct {
	Files       []File   `json:"files" yaml:"files"`
	Commands    []string `json:"commands" yaml:"commands"`
	Packages    []string `json:"packages" yaml:"packages"`
	Structure   string   `json:"structure,omitempty" yaml:"structure,omitempty"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Template    string   `json:"template,omitempty" yaml:"template,omitempty"`
}

// File returns the file recorded for path, if any.
func (r *Response) File(path string) (File, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Paths returns the file paths in encounter order.
func (r *Response) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

const (
	fileOpen         = `<file path="`
	fileClose        = `</file>`
	commandOpen      = `<command>`
	commandClose     = `</command>`
	packageOpen      = `<package>`
	packageClose     = `</package>`
	packagesOpen     = `<packages>`
	packagesClose    = `</packages>`
	structureOpen    = `<structure>`
	structureClose   = `</structure>`
	explanationOpen  = `<explanation>`
	explanationClose = `</explanation>`
	templateOpen     = `<template>`
	templateClose    = `</template>`
)

// fileSet keeps one best version per path in first-encounter order. Paths
// are compared by their normalized sandbox target, so "/src/App.jsx" and
// "App.jsx" are the same file; the first spelling seen is kept.
type fileSet struct {
	order []string
	byKey map[string]*File
}

func fileKey(path string) string {
	return project.NormalizePath(path)
}

func newFileSet() *fileSet {
	return &fileSet{byKey: make(map[string]*File)}
}

func (s *fileSet) has(path string) bool {
	_, ok := s.byKey[fileKey(path)]
	return ok
}

// offer applies the precedence rules to a new occurrence of a path.
func (s *fileSet) offer(path, content string, complete bool) {
	key := fileKey(path)
	existing, ok := s.byKey[key]

	replace := false
	switch {
	case !ok:
		replace = true
	case !existing.Complete && complete:
		logging.Debug("replacing incomplete file block with complete version", "path", path)
		replace = true
	case existing.Complete && complete && len(content) > len(existing.Content):
		logging.Debug("replacing file block with longer complete version", "path", path)
		replace = true
	case !existing.Complete && !complete && len(content) > len(existing.Content):
		replace = true
	}
	if !replace {
		return
	}

	suspicious := hasStrayEllipsis(content)
	if suspicious {
		logging.Warn("file block contains ellipsis, may be truncated", "path", path)
		if ok {
			return
		}
	}

	if !ok {
		s.order = append(s.order, key)
		existing = &File{Path: path}
		s.byKey[key] = existing
	}
	existing.Content = content
	existing.Complete = complete
	existing.Suspicious = suspicious
}

// add records a fallback file unless the path is already present.
func (s *fileSet) add(path, content string) bool {
	if path == "" || s.has(path) {
		return false
	}
	key := fileKey(path)
	s.order = append(s.order, key)
	s.byKey[key] = &File{Path: path, Content: content, Complete: true, Suspicious: hasStrayEllipsis(content)}
	return true
}

func (s *fileSet) files() []File {
	out := make([]File, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, *s.byKey[k])
	}
	return out
}

// hasStrayEllipsis reports whether content has a "..." that is not a spread
// or rest, i.e. one not immediately followed by an operand such as an
// identifier, [, { or (. Models use the bare form to elide code.
func hasStrayEllipsis(content string) bool {
	for rest := content; ; {
		i := strings.Index(rest, "...")
		if i < 0 {
			return false
		}
		rest = rest[i+3:]
		for strings.HasPrefix(rest, ".") {
			rest = rest[1:]
		}
		if rest == "" || !isSpreadOperand(rest[0]) {
			return true
		}
	}
}

func isSpreadOperand(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '_', c == '$', c == '[', c == '{', c == '(':
		return true
	}
	return false
}

// scanner walks the response once, tracking whether it is outside any tag,
// inside a file block, or inside a singleton block. Text inside a block is
// opaque to the other tag rules.
type scanner struct {
	src     string
	pos     int
	outside strings.Builder

	files    *fileSet
	commands []string
	explicit []string

	structure   string
	explanation string
	template    string

	haveStructure bool
	haveExpl      bool
	haveTmpl      bool
	havePackages  bool
}

// Parse extracts files, commands, packages and metadata from an AI
// response. It never fails; malformed regions are skipped or recovered.
func Parse(text string) *Response {
	s := &scanner{src: text, files: newFileSet()}
	s.run()

	outside := s.outside.String()
	fallbackFences(outside, s.files)
	fallbackGeneratedFiles(outside, s.files)
	fallbackCommentedFences(outside, s.files)

	resp := &Response{
		Files:       s.files.files(),
		Commands:    s.commands,
		Structure:   s.structure,
		Explanation: s.explanation,
		Template:    s.template,
	}
	if resp.Commands == nil {
		resp.Commands = []string{}
	}

	resp.Packages = appendUnique(nil, s.explicit...)
	for _, f := range resp.Files {
		for _, pkg := range ExtractImports(f.Content) {
			if !contains(resp.Packages, pkg) {
				logging.Debug("package detected from imports", "package", pkg, "path", f.Path)
				resp.Packages = append(resp.Packages, pkg)
			}
		}
	}
	if resp.Packages == nil {
		resp.Packages = []string{}
	}

	for _, f := range resp.Files {
		if !f.Complete {
			logging.Debug("file block appears truncated", "path", f.Path)
		}
	}
	return resp
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		i := strings.IndexByte(s.src[s.pos:], '<')
		if i < 0 {
			s.outside.WriteString(s.src[s.pos:])
			s.pos = len(s.src)
			return
		}
		s.outside.WriteString(s.src[s.pos : s.pos+i])
		s.pos += i

		if !s.tag() {
			s.outside.WriteByte('<')
			s.pos++
			continue
		}
		s.outside.WriteByte('\n')
	}
}

// tag tries to consume a recognized block at s.pos.
func (s *scanner) tag() bool {
	rest := s.src[s.pos:]
	switch {
	case strings.HasPrefix(rest, fileOpen):
		return s.fileBlock()
	case strings.HasPrefix(rest, commandOpen):
		body, ok := s.block(commandOpen, commandClose, false)
		if ok {
			if cmd := strings.TrimSpace(body); cmd != "" {
				s.commands = append(s.commands, cmd)
			}
		}
		return ok
	case strings.HasPrefix(rest, packageOpen):
		body, ok := s.block(packageOpen, packageClose, false)
		if ok {
			if name := strings.TrimSpace(body); name != "" {
				s.explicit = append(s.explicit, name)
			}
		}
		return ok
	case strings.HasPrefix(rest, packagesOpen):
		body, ok := s.block(packagesOpen, packagesClose, true)
		if ok && !s.havePackages {
			s.havePackages = true
			s.explicit = append(s.explicit, splitPackageList(body)...)
		}
		return ok
	case strings.HasPrefix(rest, structureOpen):
		body, ok := s.block(structureOpen, structureClose, true)
		if ok && !s.haveStructure {
			s.haveStructure = true
			s.structure = strings.TrimSpace(body)
		}
		return ok
	case strings.HasPrefix(rest, explanationOpen):
		body, ok := s.block(explanationOpen, explanationClose, true)
		if ok && !s.haveExpl {
			s.haveExpl = true
			s.explanation = strings.TrimSpace(body)
		}
		return ok
	case strings.HasPrefix(rest, templateOpen):
		body, ok := s.block(templateOpen, templateClose, false)
		if ok && !s.haveTmpl {
			s.haveTmpl = true
			s.template = strings.TrimSpace(body)
		}
		return ok
	}
	return false
}

// block consumes open...close starting at s.pos and returns the body.
// Single-line blocks must close before the next newline.
func (s *scanner) block(open, close string, multiline bool) (string, bool) {
	start := s.pos + len(open)
	end := strings.Index(s.src[start:], close)
	if end < 0 {
		return "", false
	}
	body := s.src[start : start+end]
	if !multiline && strings.ContainsAny(body, "\r\n") {
		return "", false
	}
	s.pos = start + end + len(close)
	return body, true
}

// fileBlock consumes a <file path="..."> block. The block ends at </file>,
// at the next file opener, or at the end of input.
func (s *scanner) fileBlock() bool {
	start := s.pos + len(fileOpen)
	q := strings.IndexByte(s.src[start:], '"')
	if q <= 0 {
		return false
	}
	path := s.src[start : start+q]
	if !strings.HasPrefix(s.src[start+q:], `">`) {
		return false
	}
	bodyStart := start + q + len(`">`)

	body := s.src[bodyStart:]
	closeAt := strings.Index(body, fileClose)
	nextAt := strings.Index(body, fileOpen)

	var content string
	complete := false
	switch {
	case closeAt >= 0 && (nextAt < 0 || closeAt < nextAt):
		content = body[:closeAt]
		complete = true
		s.pos = bodyStart + closeAt + len(fileClose)
	case nextAt >= 0:
		content = body[:nextAt]
		s.pos = bodyStart + nextAt
	default:
		content = body
		s.pos = len(s.src)
	}

	s.files.offer(path, strings.TrimSpace(content), complete)
	return true
}

func splitPackageList(body string) []string {
	fields := strings.FieldsFunc(body, func(r rune) bool { return r == '\n' || r == ',' })
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		if !contains(list, it) {
			list = append(list, it)
		}
	}
	return list
}
