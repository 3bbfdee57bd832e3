package project

import (
	"path"
	"regexp"
)

var (
	cssImportRe   = regexp.MustCompile(`import\s+['"]\./[^'"]+\.css['"];?\s*\n?`)
	shadowScaleRe = regexp.MustCompile(`shadow-[345]xl`)
)

// FixContent applies the content fix-ups for the target stack before a
// file is written. Relative CSS imports are removed from script files
// because styling goes through Tailwind, and shadow utilities Tailwind does
// not ship are clamped to shadow-2xl in stylesheets.
func FixContent(p, content string) string {
	switch {
	case IsScriptFile(p):
		return cssImportRe.ReplaceAllString(content, "")
	case path.Ext(p) == ".css":
		return shadowScaleRe.ReplaceAllString(content, "shadow-2xl")
	}
	return content
}
