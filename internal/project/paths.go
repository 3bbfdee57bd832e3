package project

import (
	"path"
	"strings"
)

// Project-level config files. The AI must not overwrite these; the
// orchestrator skips them by base name.
var configFiles = map[string]bool{
	"tailwind.config.js": true,
	"vite.config.js":     true,
	"package.json":       true,
	"package-lock.json":  true,
	"tsconfig.json":      true,
	"postcss.config.js":  true,
}

// IsConfigFile reports whether p names a project config file.
func IsConfigFile(p string) bool {
	return configFiles[path.Base(p)]
}

// ConfigFiles returns the protected config file names in sorted order.
func ConfigFiles() []string {
	return []string{
		"package-lock.json",
		"package.json",
		"postcss.config.js",
		"tailwind.config.js",
		"tsconfig.json",
		"vite.config.js",
	}
}

// NormalizePath maps a path from the AI response onto the project layout.
// A leading slash is stripped; anything outside src/ and public/ that is
// not index.html or a config file is placed under src/.
func NormalizePath(p string) string {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" {
		return p
	}
	if strings.HasPrefix(p, "src/") || strings.HasPrefix(p, "public/") {
		return p
	}
	if p == "index.html" || IsConfigFile(p) {
		return p
	}
	return "src/" + p
}

// IsAppFile reports whether p is the application root component.
func IsAppFile(p string) bool {
	p = strings.TrimPrefix(strings.TrimPrefix(p, "/"), "src/")
	return p == "App.jsx" || p == "App.tsx"
}

// IsIndexCSS reports whether p is the global stylesheet.
func IsIndexCSS(p string) bool {
	p = strings.TrimPrefix(strings.TrimPrefix(p, "/"), "src/")
	return p == "index.css"
}

// IsScriptFile reports whether p is a JavaScript or TypeScript source file.
func IsScriptFile(p string) bool {
	switch path.Ext(p) {
	case ".jsx", ".js", ".tsx", ".ts":
		return true
	}
	return false
}

// IsGeneratedFile reports whether p has an extension the AI is expected to
// produce in fallback formats.
func IsGeneratedFile(p string) bool {
	switch path.Ext(p) {
	case ".jsx", ".js", ".tsx", ".ts", ".css", ".json", ".html":
		return true
	}
	return false
}

// ComponentPath places a bare file name under src/components/.
func ComponentPath(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "/") {
		return name
	}
	return "src/components/" + name
}
