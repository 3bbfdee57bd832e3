package project

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/App.jsx", "src/App.jsx"},
		{"/src/App.jsx", "src/App.jsx"},
		{"components/Header.jsx", "src/components/Header.jsx"},
		{"App.jsx", "src/App.jsx"},
		{"public/logo.svg", "public/logo.svg"},
		{"index.html", "index.html"},
		{"/index.html", "index.html"},
		{"package.json", "package.json"},
		{"tailwind.config.js", "tailwind.config.js"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePath(tt.in); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePath_Idempotent(t *testing.T) {
	for _, p := range []string{"/a/b.jsx", "src/x.css", "vite.config.js", "index.html"} {
		once := NormalizePath(p)
		if twice := NormalizePath(once); twice != once {
			t.Errorf("NormalizePath(NormalizePath(%q)) = %q, want %q", p, twice, once)
		}
	}
}

func TestIsConfigFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"package.json", true},
		{"src/package.json", true},
		{"vite.config.js", true},
		{"tsconfig.json", true},
		{"src/App.jsx", false},
		{"src/config.js", false},
	}

	for _, tt := range tests {
		if got := IsConfigFile(tt.path); got != tt.want {
			t.Errorf("IsConfigFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if len(ConfigFiles()) != len(configFiles) {
		t.Errorf("ConfigFiles() has %d entries, want %d", len(ConfigFiles()), len(configFiles))
	}
}

func TestIsAppFile(t *testing.T) {
	for _, p := range []string{"src/App.jsx", "App.jsx", "/src/App.tsx"} {
		if !IsAppFile(p) {
			t.Errorf("IsAppFile(%q) = false, want true", p)
		}
	}
	for _, p := range []string{"src/components/App.jsx", "src/App.css"} {
		if IsAppFile(p) {
			t.Errorf("IsAppFile(%q) = true, want false", p)
		}
	}
}

func TestComponentPath(t *testing.T) {
	if got := ComponentPath("Hero.jsx"); got != "src/components/Hero.jsx" {
		t.Errorf("ComponentPath(Hero.jsx) = %q", got)
	}
	if got := ComponentPath("src/pages/Home.jsx"); got != "src/pages/Home.jsx" {
		t.Errorf("ComponentPath(src/pages/Home.jsx) = %q", got)
	}
}

func TestFixContent(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    string
	}{
		{
			name:    "strips relative css import",
			path:    "src/components/Hero.jsx",
			content: "import React from 'react';\nimport './Hero.css';\nexport default Hero;",
			want:    "import React from 'react';\nexport default Hero;",
		},
		{
			name:    "keeps package css import",
			path:    "src/main.tsx",
			content: "import 'tailwindcss/tailwind.css';\n",
			want:    "import 'tailwindcss/tailwind.css';\n",
		},
		{
			name:    "clamps shadows in css",
			path:    "src/index.css",
			content: ".a { @apply shadow-3xl; } .b { @apply shadow-5xl; } .c { @apply shadow-xl; }",
			want:    ".a { @apply shadow-2xl; } .b { @apply shadow-2xl; } .c { @apply shadow-xl; }",
		},
		{
			name:    "untouched json",
			path:    "src/data.json",
			content: `{"a": "import './x.css'"}`,
			want:    `{"a": "import './x.css'"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixContent(tt.path, tt.content); got != tt.want {
				t.Errorf("FixContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScaffold(t *testing.T) {
	files := Scaffold(ScaffoldOptions{DevPort: 5174})

	var paths []string
	byPath := make(map[string]string)
	for _, f := range files {
		paths = append(paths, f.Path)
		byPath[f.Path] = f.Content
	}

	want := []string{
		"index.html",
		"package.json",
		"postcss.config.js",
		"src/App.jsx",
		"src/index.css",
		"src/main.jsx",
		"tailwind.config.js",
		"vite.config.js",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("Scaffold() paths mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(byPath["vite.config.js"], "port: 5174,") {
		t.Errorf("vite.config.js does not use the dev port:\n%s", byPath["vite.config.js"])
	}
	if !strings.Contains(byPath["package.json"], `"name": "sandbox-app"`) {
		t.Errorf("package.json missing app name:\n%s", byPath["package.json"])
	}
	if !strings.Contains(byPath["src/App.jsx"], "Sandbox Ready") {
		t.Errorf("src/App.jsx missing placeholder text")
	}
}

func TestScaffoldPaths_DefaultPort(t *testing.T) {
	if got := len(ScaffoldPaths()); got != 8 {
		t.Errorf("len(ScaffoldPaths()) = %d, want 8", got)
	}
	for _, f := range Scaffold(ScaffoldOptions{}) {
		if f.Path == "vite.config.js" && !strings.Contains(f.Content, "port: 5173,") {
			t.Errorf("default vite.config.js port not 5173:\n%s", f.Content)
		}
	}
}

func TestDirectories(t *testing.T) {
	got := Directories([]File{
		{Path: "src/components/A.jsx"},
		{Path: "src/App.jsx"},
		{Path: "index.html"},
		{Path: "src/components/B.jsx"},
	})
	want := []string{"src", "src/components"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Directories() mismatch (-want +got):\n%s", diff)
	}
}

func TestMainComponent(t *testing.T) {
	tests := []struct {
		name  string
		comps []string
		want  string
	}{
		{"hero wins", []string{"src/components/Footer.jsx", "src/components/Hero.jsx"}, "src/components/Hero.jsx"},
		{"first hint wins", []string{"src/components/Layout.jsx", "src/components/Header.jsx"}, "src/components/Layout.jsx"},
		{"falls back to first", []string{"src/components/Card.jsx", "src/components/List.jsx"}, "src/components/Card.jsx"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MainComponent(tt.comps); got != tt.want {
				t.Errorf("MainComponent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateApp(t *testing.T) {
	app := GenerateApp([]string{
		"src/components/Footer.jsx",
		"src/components/Hero.jsx",
		"src/utils/format.js",
		"src/index.css",
	})

	for _, want := range []string{
		"import Footer from './components/Footer';",
		"import Hero from './components/Hero';",
		"<Hero />",
		"export default App;",
		"Generated components: src/components/Footer.jsx, src/components/Hero.jsx",
	} {
		if !strings.Contains(app, want) {
			t.Errorf("GenerateApp() missing %q:\n%s", want, app)
		}
	}
	if strings.Contains(app, "format") {
		t.Errorf("GenerateApp() imported a non-component file:\n%s", app)
	}
}

func TestGenerateApp_NoComponents(t *testing.T) {
	app := GenerateApp([]string{"src/utils/format.js"})
	if !strings.Contains(app, "Welcome to your React App") {
		t.Errorf("GenerateApp() without components should render the welcome block:\n%s", app)
	}
}

func TestIndexCSS(t *testing.T) {
	css := IndexCSS()
	for _, want := range []string{"@tailwind base;", "@tailwind components;", "@tailwind utilities;", ":root"} {
		if !strings.Contains(css, want) {
			t.Errorf("IndexCSS() missing %q", want)
		}
	}
}
