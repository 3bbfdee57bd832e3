package edits

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Instruction
	}{
		{
			name: "single block",
			text: `Here you go.
<edit target_file="src/components/Footer.jsx">
<instructions>Change the copyright year</instructions>
<update>
// ... existing code ...
<p>2026</p>
// ... existing code ...
</update>
</edit>`,
			want: []Instruction{{
				TargetFile:   "src/components/Footer.jsx",
				Instructions: "Change the copyright year",
				Update:       "// ... existing code ...\n<p>2026</p>\n// ... existing code ...",
			}},
		},
		{
			name: "two blocks single quotes",
			text: `<edit target_file='a.jsx'><instructions>one</instructions><update>A</update></edit>
<edit target_file="b.jsx"><update>B</update></edit>`,
			want: []Instruction{
				{TargetFile: "a.jsx", Instructions: "one", Update: "A"},
				{TargetFile: "b.jsx", Update: "B"},
			},
		},
		{
			name: "missing target skipped",
			text: `<edit><update>x</update></edit><edit target_file="ok.js"><update>y</update></edit>`,
			want: []Instruction{{TargetFile: "ok.js", Update: "y"}},
		},
		{
			name: "missing update skipped",
			text: `<edit target_file="x.js"><instructions>nothing</instructions></edit>`,
			want: nil,
		},
		{
			name: "unterminated skipped",
			text: `<edit target_file="x.js"><update>partial`,
			want: nil,
		},
		{
			name: "editor tag ignored",
			text: `<editor>not an edit</editor>`,
			want: nil,
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	if Enabled(true, nil) {
		t.Error("Enabled(true, nil) = true, want false")
	}
	if Enabled(false, MergeApplier{}) {
		t.Error("Enabled(false, applier) = true, want false")
	}
	if !Enabled(true, MergeApplier{}) {
		t.Error("Enabled(true, applier) = false, want true")
	}
}
