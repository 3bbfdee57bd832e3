package project

import (
	"path"
	"strings"
)

// Paths recorded in the results when entry files are generated.
const (
	GeneratedAppLabel      = "src/App.jsx (auto-generated)"
	GeneratedIndexCSSLabel = "src/index.css (with Tailwind)"
)

var mainComponentHints = []string{"header", "hero", "layout", "main", "home"}

type appImport struct {
	Name string
	Path string
}

type appData struct {
	Imports    []appImport
	Main       string
	Components []string
}

// ComponentFiles returns the .jsx/.tsx paths that live under a component
// directory, in input order.
func ComponentFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		ext := path.Ext(p)
		if (ext == ".jsx" || ext == ".tsx") && strings.Contains(p, "component") {
			out = append(out, p)
		}
	}
	return out
}

// componentName returns the file name without its extension.
func componentName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// importPath turns a project path into an import relative to src/App.jsx.
func importPath(p string) string {
	p = strings.TrimSuffix(p, path.Ext(p))
	if strings.HasPrefix(p, "src/") {
		return "./" + strings.TrimPrefix(p, "src/")
	}
	return "./" + p
}

// MainComponent picks the component most likely to be the page root:
// the first whose path mentions header, hero, layout, main or home, else
// the first component. It returns "" for an empty list.
func MainComponent(components []string) string {
	for _, c := range components {
		lower := strings.ToLower(c)
		for _, hint := range mainComponentHints {
			if strings.Contains(lower, hint) {
				return c
			}
		}
	}
	if len(components) > 0 {
		return components[0]
	}
	return ""
}

// GenerateApp renders a src/App.jsx that imports the component files among
// paths and renders the main one.
func GenerateApp(paths []string) string {
	components := ComponentFiles(paths)

	data := appData{Components: components}
	for _, c := range components {
		base := path.Base(c)
		if strings.Contains(base, "App.") || strings.Contains(base, "main.") || strings.Contains(base, "index.") {
			continue
		}
		data.Imports = append(data.Imports, appImport{Name: componentName(c), Path: importPath(c)})
	}
	if main := MainComponent(components); main != "" {
		data.Main = componentName(main)
	}
	return renderTemplate("app.jsx.tmpl", data)
}

// IndexCSS returns the global stylesheet with the Tailwind directives.
func IndexCSS() string {
	return renderTemplate("index.css.tmpl", nil)
}
