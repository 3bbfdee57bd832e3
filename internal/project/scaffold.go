package project

import (
	"bytes"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"
)

//go:embed scaffold
var scaffoldFS embed.FS

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates *template.Template

func init() {
	funcs := template.FuncMap{
		"joinStrings": strings.Join,
	}
	templates = template.Must(
		template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.tmpl"),
	)
}

// renderTemplate executes a named template with the given data and returns the result.
func renderTemplate(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		// Templates are embedded and exercised by the package tests.
		panic("project: failed to render template " + name + ": " + err.Error())
	}
	return buf.String()
}

// File is a path relative to the app directory and its content.
type File struct {
	Path    string
	Content string
}

// ScaffoldOptions parameterizes the Vite project written into a new sandbox.
type ScaffoldOptions struct {
	DevPort int
}

// Scaffold returns the files of a fresh Vite + React + Tailwind project,
// sorted by path.
func Scaffold(opts ScaffoldOptions) []File {
	if opts.DevPort == 0 {
		opts.DevPort = 5173
	}

	var files []File
	err := fs.WalkDir(scaffoldFS, "scaffold", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := scaffoldFS.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, File{
			Path:    strings.TrimPrefix(p, "scaffold/"),
			Content: string(data),
		})
		return nil
	})
	if err != nil {
		panic("project: reading embedded scaffold: " + err.Error())
	}

	files = append(files, File{
		Path:    "vite.config.js",
		Content: renderTemplate("vite.config.js.tmpl", opts),
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// ScaffoldPaths returns the paths Scaffold writes. A new session seeds its
// known files with them.
func ScaffoldPaths() []string {
	files := Scaffold(ScaffoldOptions{})
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// Directories returns the distinct parent directories of files, excluding ".".
func Directories(files []File) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, f := range files {
		dir := path.Dir(f.Path)
		if dir == "." || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
