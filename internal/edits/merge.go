package edits

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

// markerRe matches elision lines such as "// ... existing code ...",
// "/* ... */", "{/* ... */}" and "# ...".
var markerRe = regexp.MustCompile(`^\s*(?://|/\*|\{/\*|#)\s*\.\.\.`)

// MergeApplier merges update snippets locally without a model.
type MergeApplier struct{}

func (MergeApplier) Name() string {
	return "local-merge"
}

func (MergeApplier) Apply(ctx context.Context, exec sandbox.Executor, in Instruction) (string, error) {
	return applyWith(ctx, exec, in, func(_ context.Context, original string) (string, error) {
		return Merge(original, in.Update)
	})
}

// Merge applies snippet to original. The snippet is split at marker lines
// into segments; each segment is anchored by its first and last non-blank
// lines in the original and replaces that region. Original lines outside
// the anchored regions are kept. A snippet without markers replaces the
// whole file.
func Merge(original, snippet string) (string, error) {
	segments, marked := splitSegments(snippet)
	if !marked {
		return ensureNewline(snippet, original), nil
	}

	lines := strings.Split(strings.TrimRight(original, "\n"), "\n")
	var out []string
	pos := 0
	for _, seg := range segments {
		first, last := seg[0], seg[len(seg)-1]

		start := find(lines, first, pos)
		if start < 0 {
			return "", fmt.Errorf("anchor not found: %q", strings.TrimSpace(first))
		}
		end := start
		if len(seg) > 1 {
			end = find(lines, last, start+1)
			if end < 0 {
				return "", fmt.Errorf("anchor not found: %q", strings.TrimSpace(last))
			}
		}

		out = append(out, lines[pos:start]...)
		out = append(out, seg...)
		pos = end + 1
	}
	out = append(out, lines[pos:]...)

	return strings.Join(out, "\n") + "\n", nil
}

// splitSegments returns the snippet's non-empty segments with blank edge
// lines trimmed, and whether any marker line was present.
func splitSegments(snippet string) ([][]string, bool) {
	var (
		segments [][]string
		cur      []string
		marked   bool
	)
	flush := func() {
		for len(cur) > 0 && strings.TrimSpace(cur[0]) == "" {
			cur = cur[1:]
		}
		for len(cur) > 0 && strings.TrimSpace(cur[len(cur)-1]) == "" {
			cur = cur[:len(cur)-1]
		}
		if len(cur) > 0 {
			segments = append(segments, cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(snippet, "\n") {
		if markerRe.MatchString(line) {
			marked = true
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return segments, marked
}

// find returns the index of the first line at or after from whose trimmed
// text equals target's, or -1.
func find(lines []string, target string, from int) int {
	want := strings.TrimSpace(target)
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == want {
			return i
		}
	}
	return -1
}

func ensureNewline(s, original string) string {
	if strings.HasSuffix(original, "\n") && !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}
