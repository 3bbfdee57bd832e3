package testutil

import (
	"strings"
	"testing"

	"github.com/zenprocess/open-lovable-cf/internal/parser"
)

func TestFixturesParse(t *testing.T) {
	resp := parser.Parse(LandingResponse())
	if len(resp.Files) != 4 {
		t.Errorf("landing files = %d, want 4", len(resp.Files))
	}
	if resp.Explanation == "" {
		t.Error("landing fixture should carry an explanation")
	}
	if !strings.Contains(EditResponse(), "<edit target_file=") {
		t.Error("edit fixture should contain an edit block")
	}
}

func TestLoadFixture_NotFound(t *testing.T) {
	if _, err := LoadFixture("nope.txt"); err == nil {
		t.Error("LoadFixture() should fail for a missing fixture")
	}
}

func TestReadySession(t *testing.T) {
	sess, exec := ReadySession(t)
	if !sess.Active() {
		t.Error("session should be active")
	}
	if !sess.KnownFiles().Has("src/App.jsx") {
		t.Error("scaffold App.jsx should be known")
	}
	if _, ok := exec.File("package.json"); !ok {
		t.Error("package.json should be seeded")
	}
}
