package packages

import (
	"regexp"
	"sort"

	"github.com/zenprocess/open-lovable-cf/internal/parser"
	"github.com/zenprocess/open-lovable-cf/internal/project"
)

var requireRe = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)

var builtins = map[string]bool{
	"fs":            true,
	"path":          true,
	"http":          true,
	"https":         true,
	"crypto":        true,
	"stream":        true,
	"util":          true,
	"os":            true,
	"url":           true,
	"querystring":   true,
	"child_process": true,
}

// ScanRequires returns the package names of require() calls in content.
func ScanRequires(content string) []string {
	var out []string
	for _, m := range requireRe.FindAllStringSubmatch(content, -1) {
		if name := parser.PackageName(m[1]); name != "" && !contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Detect returns the packages imported or required by the script files,
// visiting paths in sorted order. Node builtins are dropped.
func Detect(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		if project.IsScriptFile(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var out []string
	for _, p := range paths {
		content := files[p]
		for _, names := range [][]string{parser.ExtractImports(content), ScanRequires(content)} {
			for _, name := range names {
				if builtins[name] || contains(out, name) {
					continue
				}
				out = append(out, name)
			}
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
