package manifest

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

var now = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// scriptedSandbox answers find and stat from its in-memory files.
func scriptedSandbox(files map[string]string, extraListed ...string) *sandbox.MockExecutor {
	m := sandbox.NewMockExecutor("test")
	for p, c := range files {
		m.SetFile(p, c)
	}
	m.CommandFunc = func(cmd string) (*sandbox.CommandResult, error) {
		switch {
		case cmd == listDirsCmd:
			return &sandbox.CommandResult{Stdout: ".\n./src\n./src/components\n"}, nil
		case cmd == listFilesCmd:
			var lines []string
			for _, p := range m.Paths() {
				lines = append(lines, "./"+p)
			}
			lines = append(lines, extraListed...)
			return &sandbox.CommandResult{Stdout: strings.Join(lines, "\n") + "\n"}, nil
		case strings.HasPrefix(cmd, "stat "):
			p := strings.Fields(cmd)[3]
			content, ok := m.File(p)
			if !ok {
				return &sandbox.CommandResult{ExitCode: 1}, nil
			}
			return &sandbox.CommandResult{Stdout: strconv.Itoa(len(content)) + "\n"}, nil
		}
		return &sandbox.CommandResult{ExitCode: 127}, nil
	}
	return m
}

func TestBuild(t *testing.T) {
	exec := scriptedSandbox(map[string]string{
		"src/main.jsx":              "import App from './App'\n",
		"src/App.jsx":               "import Header from './components/Header'\nimport { motion } from 'framer-motion'\n",
		"src/components/Header.jsx": "export default function Header() {}",
		"src/index.css":             "@tailwind base;",
		"package.json":              "{}",
		"src/big.js":                strings.Repeat("x", MaxFileSize),
	}, "./src/$(rm -rf).js", "./../etc/passwd")

	snap, err := Build(context.Background(), exec, Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if snap.FileCount != 5 {
		t.Errorf("FileCount = %d, want 5", snap.FileCount)
	}
	if _, ok := snap.Files["src/big.js"]; ok {
		t.Error("files at the size limit should be skipped")
	}
	if snap.Structure != ".\n./src\n./src/components" {
		t.Errorf("Structure = %q", snap.Structure)
	}

	m := snap.Manifest
	if m.EntryPoint != "/src/main.jsx" {
		t.Errorf("EntryPoint = %q, want %q", m.EntryPoint, "/src/main.jsx")
	}
	if diff := cmp.Diff([]string{"/src/index.css"}, m.StyleFiles); diff != "" {
		t.Errorf("StyleFiles mismatch (-want +got):\n%s", diff)
	}
	app := m.Files["/src/App.jsx"]
	if app == nil {
		t.Fatal("manifest missing /src/App.jsx")
	}
	if diff := cmp.Diff([]string{"./components/Header", "framer-motion"}, app.Imports); diff != "" {
		t.Errorf("Imports mismatch (-want +got):\n%s", diff)
	}
	if app.RelativePath != "src/App.jsx" {
		t.Errorf("RelativePath = %q", app.RelativePath)
	}
	if app.LastModified != now.UnixMilli() {
		t.Errorf("LastModified = %d, want %d", app.LastModified, now.UnixMilli())
	}
	for _, c := range exec.CommandLog() {
		if strings.Contains(c, "rm -rf") || strings.Contains(c, "passwd") {
			t.Errorf("suspicious path reached the sandbox: %q", c)
		}
	}
}

func TestBuild_ListFailure(t *testing.T) {
	exec := sandbox.NewMockExecutor("test")
	exec.CommandResults[listFilesCmd] = &sandbox.CommandResult{ExitCode: 1, Stderr: "find: not found"}

	if _, err := Build(context.Background(), exec, Options{}); err == nil {
		t.Fatal("Build() should fail when files cannot be listed")
	}
}

func TestAnalyse_EntryPointFallsBackToApp(t *testing.T) {
	m := Analyse(map[string]string{"src/App.jsx": "", "src/util.js": ""}, now)
	if m.EntryPoint != "/src/App.jsx" {
		t.Errorf("EntryPoint = %q, want %q", m.EntryPoint, "/src/App.jsx")
	}
}

func TestAnalyse_Types(t *testing.T) {
	m := Analyse(map[string]string{
		"src/index.css":           "",
		"package.json":            "",
		"vite.config.js":          "",
		"src/pages/About.jsx":     "",
		"src/components/Hero.jsx": "",
		"src/lib/format.js":       "",
	}, now)

	want := map[string]string{
		"/src/index.css":           TypeStyle,
		"/package.json":            TypeConfig,
		"/vite.config.js":          TypeConfig,
		"/src/pages/About.jsx":     TypePage,
		"/src/components/Hero.jsx": TypeComponent,
		"/src/lib/format.js":       TypeUtility,
	}
	for p, typ := range want {
		if got := m.Files[p].Type; got != typ {
			t.Errorf("type of %s = %q, want %q", p, got, typ)
		}
	}
}

func TestAnalyse_Routes(t *testing.T) {
	m := Analyse(map[string]string{
		"src/App.jsx":         `<Route path="/about" element={<About />} />`,
		"src/pages/index.jsx": "",
		"pages/blog/post.jsx": "",
	}, now)

	want := []Route{
		{Path: "/blog/post", Component: "/pages/blog/post.jsx"},
		{Path: "/about", Component: "/src/App.jsx"},
		{Path: "/", Component: "/src/pages/index.jsx"},
	}
	if diff := cmp.Diff(want, m.Routes); diff != "" {
		t.Errorf("Routes mismatch (-want +got):\n%s", diff)
	}
}
