package parser

import (
	"regexp"
	"strings"
)

var (
	importRe         = regexp.MustCompile(`import\s+(?:(?:\{[^}]*\}|\*\s+as\s+\w+|\w+)(?:\s*,\s*(?:\{[^}]*\}|\*\s+as\s+\w+|\w+))*\s+from\s+)?['"]([^'"]+)['"]`)
	relativeImportRe = regexp.MustCompile(`import\s+(?:\w+|\{[^}]+\})\s+from\s+['"]([^'"]+)['"]`)
)

// ExtractImports returns the npm package names imported by content, in
// first-seen order. Relative and absolute paths, the "@/" alias, react and
// react-dom are skipped. Scoped imports keep their scope ("@scope/pkg").
func ExtractImports(content string) []string {
	var pkgs []string
	for _, m := range importRe.FindAllStringSubmatch(content, -1) {
		if name := PackageName(m[1]); name != "" && !contains(pkgs, name) {
			pkgs = append(pkgs, name)
		}
	}
	return pkgs
}

// PackageName maps an import specifier to the package that provides it.
// It returns "" for specifiers that are not installable packages.
func PackageName(imp string) string {
	switch {
	case imp == "",
		strings.HasPrefix(imp, "."),
		strings.HasPrefix(imp, "/"),
		strings.HasPrefix(imp, "@/"):
		return ""
	}

	parts := strings.Split(imp, "/")
	name := parts[0]
	if strings.HasPrefix(imp, "@") && len(parts) >= 2 {
		name = parts[0] + "/" + parts[1]
	}
	if name == "react" || name == "react-dom" {
		return ""
	}
	return name
}

// RelativeImports returns the "./" and "../" specifiers of default and
// named imports in content.
func RelativeImports(content string) []string {
	var out []string
	for _, m := range relativeImportRe.FindAllStringSubmatch(content, -1) {
		imp := m[1]
		if strings.HasPrefix(imp, "./") || strings.HasPrefix(imp, "../") {
			out = append(out, imp)
		}
	}
	return out
}
