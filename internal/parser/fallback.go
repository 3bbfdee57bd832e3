package parser

import (
	"regexp"
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/project"
)

// Fallback formats some models use instead of <file> tags. They only add
// paths the tag scan did not produce.
var (
	pathFenceRe      = regexp.MustCompile("```(?:file )?path=\"([^\"]+)\"\\n([\\s\\S]*?)```")
	generatedFilesRe = regexp.MustCompile(`(?i)Generated Files?:\s*([^\n]+)`)
	lineImportRe     = regexp.MustCompile(`(?m)^import`)
	codeFenceRe      = regexp.MustCompile("```(?:jsx?|tsx?|javascript|typescript)?\\n([\\s\\S]*?)```")
	fileCommentRe    = regexp.MustCompile(`//\s*(?:File:|Component:)\s*([^\n]+)`)
)

// fallbackFences handles ```path="src/App.jsx" fences.
func fallbackFences(text string, files *fileSet) {
	for _, m := range pathFenceRe.FindAllStringSubmatch(text, -1) {
		if files.add(m[1], strings.TrimSpace(m[2])) {
			logging.Debug("file recovered from path fence", "path", m[1])
		}
	}
}

// fallbackGeneratedFiles handles a plain "Generated Files: A.jsx, b.css"
// line followed by code for each file.
func fallbackGeneratedFiles(text string, files *fileSet) {
	m := generatedFilesRe.FindStringSubmatch(text)
	if m == nil {
		return
	}

	var names []string
	for _, name := range strings.Split(m[1], ",") {
		name = strings.TrimSpace(name)
		if project.IsGeneratedFile(name) {
			names = append(names, name)
		}
	}

	lower := asciiLower(text)
	for _, name := range names {
		content, ok := generatedContent(text, lower, name)
		if !ok {
			continue
		}
		path := project.ComponentPath(name)
		if files.add(path, content) {
			logging.Debug("file recovered from generated files list", "path", path)
		}
	}
}

// generatedContent finds the code that follows name: from the first line
// starting with "import" up to the next "Generated Files:" marker, the
// next "Applying code" marker, or the end of text.
func generatedContent(text, lower, name string) (string, bool) {
	at := strings.Index(lower, asciiLower(name))
	if at < 0 {
		return "", false
	}
	rest := text[at:]
	restLower := lower[at:]

	imp := strings.Index(restLower, "import")
	if imp < 0 {
		return "", false
	}

	end := len(rest)
	from := imp + len("import") + 1
	if from > len(rest) {
		return "", false
	}
	for _, marker := range []string{"generated files:", "applying code"} {
		if i := strings.Index(restLower[from:], marker); i >= 0 && from+i < end {
			end = from + i
		}
	}

	segment := rest[:end]
	loc := lineImportRe.FindStringIndex(segment)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(segment[loc[0]:]), true
}

// fallbackCommentedFences handles plain code fences whose body names the
// file in a "// File: X" or "// Component: X" comment.
func fallbackCommentedFences(text string, files *fileSet) {
	for _, m := range codeFenceRe.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(m[1])
		name := fileCommentRe.FindStringSubmatch(content)
		if name == nil {
			continue
		}
		path := project.ComponentPath(strings.TrimSpace(name[1]))
		if files.add(path, content) {
			logging.Debug("file recovered from commented fence", "path", path)
		}
	}
}

// asciiLower lowercases ASCII letters only so byte offsets stay valid
// against the original text.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
