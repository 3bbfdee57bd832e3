package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/zenprocess/open-lovable-cf/internal/errors"
)

const sampleResponse = `Building a landing page.
<explanation>Adds a hero section</explanation>
<file path="components/Hero.jsx">export default function Hero() {
  return <h1>Hi</h1>
}</file>
<file path="/src/App.jsx">import Hero from './components/Hero'</file>
<package>framer-motion</package>
<command>npm run build</command>`

func TestBuildParseOutput(t *testing.T) {
	out := buildParseOutput(sampleResponse)

	var targets []string
	for _, f := range out.Files {
		targets = append(targets, f.Target)
	}
	if diff := cmp.Diff([]string{"src/components/Hero.jsx", "src/App.jsx"}, targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	if out.Files[0].Size != len(out.Files[0].Content) {
		t.Errorf("Size = %d, want %d", out.Files[0].Size, len(out.Files[0].Content))
	}
	if diff := cmp.Diff([]string{"framer-motion"}, out.Packages); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"npm run build"}, out.Commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if out.Explanation != "Adds a hero section" {
		t.Errorf("Explanation = %q, want %q", out.Explanation, "Adds a hero section")
	}
}

func TestBuildParseOutput_Empty(t *testing.T) {
	out := buildParseOutput("nothing to see")
	if out.Packages == nil || out.Commands == nil {
		t.Error("Packages and Commands should be non-nil")
	}
	if len(out.Files) != 0 {
		t.Errorf("Files = %v, want none", out.Files)
	}
}

func TestWriteParseOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeParseOutput(&buf, buildParseOutput(sampleResponse), "json"); err != nil {
		t.Fatalf("writeParseOutput() error = %v", err)
	}

	var got struct {
		Files []struct {
			Path   string `json:"path"`
			Target string `json:"target"`
		} `json:"files"`
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(got.Files) != 2 || got.Files[0].Path != "components/Hero.jsx" {
		t.Errorf("files = %+v", got.Files)
	}
	if got.Files[0].Target != "src/components/Hero.jsx" {
		t.Errorf("target = %q, want %q", got.Files[0].Target, "src/components/Hero.jsx")
	}
}

func TestWriteParseOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeParseOutput(&buf, buildParseOutput(sampleResponse), "yaml"); err != nil {
		t.Fatalf("writeParseOutput() error = %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	files, ok := got["files"].([]any)
	if !ok || len(files) != 2 {
		t.Fatalf("files = %v", got["files"])
	}
	first := files[0].(map[string]any)
	if first["path"] != "components/Hero.jsx" {
		t.Errorf("path = %v, want inlined parser field", first["path"])
	}
	if first["target"] != "src/components/Hero.jsx" {
		t.Errorf("target = %v", first["target"])
	}
}

func TestWriteParseOutput_UnknownFormat(t *testing.T) {
	err := writeParseOutput(&bytes.Buffer{}, parseOutput{}, "toml")
	if err == nil {
		t.Fatal("writeParseOutput() should reject unknown formats")
	}
	if code := errors.GetExitCode(err); code != errors.ExitValidation {
		t.Errorf("exit code = %d, want %d", code, errors.ExitValidation)
	}
}

func TestReadResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response.txt")
	if err := os.WriteFile(path, []byte(sampleResponse), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readResponse(nil, path)
	if err != nil {
		t.Fatalf("readResponse() error = %v", err)
	}
	if got != sampleResponse {
		t.Errorf("readResponse() = %q", got)
	}

	got, err = readResponse(strings.NewReader("from stdin"), "-")
	if err != nil {
		t.Fatalf("readResponse(-) error = %v", err)
	}
	if got != "from stdin" {
		t.Errorf("readResponse(-) = %q, want %q", got, "from stdin")
	}
}

func TestReadResponse_Errors(t *testing.T) {
	if _, err := readResponse(strings.NewReader(""), "-"); errors.GetExitCode(err) != errors.ExitValidation {
		t.Errorf("empty stdin error = %v, want validation error", err)
	}
	if _, err := readResponse(nil, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("readResponse() should fail for a missing file")
	}
}
