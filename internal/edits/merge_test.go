package edits

import (
	"context"
	"strings"
	"testing"

	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

const footer = `import React from 'react';

export default function Footer() {
  return (
    <footer className="p-4">
      <p>Copyright 2024</p>
      <a href="/about">About</a>
    </footer>
  );
}
`

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		want    string
	}{
		{
			name: "changed line between context anchors",
			snippet: `// ... existing code ...
  return (
    <footer className="p-8 bg-gray-900">
      <p>Copyright 2024</p>
// ... existing code ...`,
			want: strings.Replace(footer, `<footer className="p-4">`, `<footer className="p-8 bg-gray-900">`, 1),
		},
		{
			name: "region anchored by first and last lines",
			snippet: `{/* ... existing code ... */}
      <p>Copyright 2024</p>
      <p>All rights reserved</p>
      <a href="/about">About</a>
{/* ... existing code ... */}`,
			want: strings.Replace(footer, "<p>Copyright 2024</p>\n", "<p>Copyright 2024</p>\n      <p>All rights reserved</p>\n", 1),
		},
		{
			name:    "no markers replaces file",
			snippet: "export default function Footer() { return null; }",
			want:    "export default function Footer() { return null; }\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(footer, tt.snippet)
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Merge() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestMerge_AnchorNotFound(t *testing.T) {
	snippet := "// ... existing code ...\n<nav>missing</nav>\n// ... existing code ..."
	if _, err := Merge(footer, snippet); err == nil {
		t.Fatal("Merge() should fail when an anchor is missing")
	}
}

func TestMergeApplier_Apply(t *testing.T) {
	exec := sandbox.NewMockExecutor("test")
	exec.SetFile("src/components/Footer.jsx", footer)

	in := Instruction{
		TargetFile: "/components/Footer.jsx",
		Update:     "// ... existing code ...\n      <p>Copyright 2024</p>\n      <p>Made by us</p>\n      <a href=\"/about\">About</a>\n// ... existing code ...",
	}
	p, err := MergeApplier{}.Apply(context.Background(), exec, in)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if p != "src/components/Footer.jsx" {
		t.Errorf("path = %q, want %q", p, "src/components/Footer.jsx")
	}
	got, _ := exec.File(p)
	if !strings.Contains(got, "<p>Made by us</p>") {
		t.Errorf("merged file missing new line:\n%s", got)
	}
}

func TestMergeApplier_ApplyMissingFile(t *testing.T) {
	exec := sandbox.NewMockExecutor("test")
	_, err := MergeApplier{}.Apply(context.Background(), exec, Instruction{TargetFile: "src/Nope.jsx", Update: "x"})
	if err == nil {
		t.Fatal("Apply() should fail when the file cannot be read")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EditsConfig
		want    string
		wantErr bool
	}{
		{"disabled", config.EditsConfig{}, "", false},
		{"local", config.EditsConfig{Backend: config.EditBackendLocal}, "local-merge", false},
		{"morph", config.EditsConfig{Backend: config.EditBackendMorph, APIKey: "k"}, "fast-apply", false},
		{"morph without key", config.EditsConfig{Backend: config.EditBackendMorph}, "", true},
		{"unknown", config.EditsConfig{Backend: "gpt"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := ""
			if a != nil {
				got = a.Name()
			}
			if got != tt.want {
				t.Errorf("New().Name() = %q, want %q", got, tt.want)
			}
		})
	}
}
