package packages

import "strings"

// Output line levels.
const (
	LevelOutput  = "output"
	LevelWarning = "warning"
	LevelError   = "error"
)

// OutputLine is one classified line of npm output.
type OutputLine struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Classify turns npm install output into progress lines. Blank lines are
// dropped.
func Classify(stdout, stderr string) []OutputLine {
	var out []OutputLine
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		level := LevelOutput
		if strings.Contains(line, "npm WARN") {
			level = LevelWarning
		}
		out = append(out, OutputLine{Level: level, Text: line})
	}
	for _, line := range strings.Split(stderr, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, "ERESOLVE") {
			out = append(out, OutputLine{
				Level: LevelWarning,
				Text:  "Dependency conflict resolved with --legacy-peer-deps: " + line,
			})
			continue
		}
		out = append(out, OutputLine{Level: LevelError, Text: line})
	}
	return out
}
