package reconcile

import (
	"path"
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/parser"
	"github.com/zenprocess/open-lovable-cf/internal/project"
	"github.com/zenprocess/open-lovable-cf/internal/session"
)

// needsEntryFiles reports whether a first generation run should get a
// generated src/App.jsx: no edit mode, no App file in the response or the
// sandbox, and at least one file parsed.
func needsEntryFiles(editMode bool, parsed *parser.Response, known *session.KnownFiles) bool {
	if editMode || len(parsed.Files) == 0 {
		return false
	}
	for _, f := range parsed.Files {
		if project.IsAppFile(f.Path) {
			return false
		}
	}
	for _, p := range []string{"src/App.jsx", "src/App.tsx", "App.jsx", "App.tsx"} {
		if known.Has(p) {
			return false
		}
	}
	return true
}

// needsIndexCSS reports whether src/index.css should be generated.
func needsIndexCSS(parsed *parser.Response, known *session.KnownFiles) bool {
	for _, f := range parsed.Files {
		if project.IsIndexCSS(f.Path) {
			return false
		}
	}
	return !known.Has("src/index.css") && !known.Has("index.css")
}

// appSource returns the content of the App file in the response.
func appSource(parsed *parser.Response) (string, bool) {
	for _, f := range parsed.Files {
		p := strings.TrimPrefix(f.Path, "/")
		if p == "src/App.jsx" || p == "App.jsx" {
			return f.Content, true
		}
	}
	return "", false
}

// missingImports returns the relative, non-CSS imports of the App file
// that resolve to none of the present paths. Imports are resolved against
// src/ with .jsx, .js, /index.jsx and /index.js suffixes.
func missingImports(parsed *parser.Response, present func(string) bool) []string {
	content, ok := appSource(parsed)
	if !ok {
		return nil
	}

	var missing []string
	for _, imp := range parser.RelativeImports(content) {
		if strings.HasSuffix(imp, ".css") {
			continue
		}
		base := path.Join("src", imp)
		candidates := []string{base, base + ".jsx", base + ".js", base + "/index.jsx", base + "/index.js"}
		found := false
		for _, c := range candidates {
			if present(c) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, imp)
		}
	}
	return missing
}
