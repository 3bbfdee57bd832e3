package testutil

import (
	"embed"
)

//go:embed fixtures/*.txt
var fixturesFS embed.FS

// LoadFixture returns a fixture file by name.
func LoadFixture(name string) (string, error) {
	data, err := fixturesFS.ReadFile("fixtures/" + name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MustFixture is LoadFixture for tests; it panics on a missing fixture.
func MustFixture(name string) string {
	s, err := LoadFixture(name)
	if err != nil {
		panic(err)
	}
	return s
}

// LandingResponse is a first-generation response: three components, a
// protected package.json, one package and one command.
func LandingResponse() string {
	return MustFixture("landing.txt")
}

// EditResponse pairs an <edit> block for src/components/Footer.jsx with a
// stale full-file copy of the same file.
func EditResponse() string {
	return MustFixture("edit.txt")
}
