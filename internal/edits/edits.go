package edits

import (
	"strings"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
)

// Instruction is one precision edit: a target file, what to change, and an
// update snippet that elides unchanged code with marker comments.
type Instruction struct {
	TargetFile   string `json:"targetFile" yaml:"targetFile"`
	Instructions string `json:"instructions" yaml:"instructions"`
	Update       string `json:"update" yaml:"update"`
}

const (
	editOpen  = "<edit"
	editClose = "</edit>"
)

// Extract returns the edit blocks in text, in order. Blocks without a
// target or an update, and an unterminated final block, are skipped.
func Extract(text string) []Instruction {
	var out []Instruction
	rest := text
	for {
		i := indexTag(rest, editOpen)
		if i < 0 {
			return out
		}
		rest = rest[i+len(editOpen):]

		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			return out
		}
		attrs := rest[:gt]
		rest = rest[gt+1:]

		end := strings.Index(rest, editClose)
		if end < 0 {
			logging.Debug("skipping unterminated edit block")
			return out
		}
		body := rest[:end]
		rest = rest[end+len(editClose):]

		in := Instruction{
			TargetFile:   strings.TrimSpace(attr(attrs, "target_file")),
			Instructions: strings.TrimSpace(inner(body, "instructions")),
			Update:       strings.TrimSpace(inner(body, "update")),
		}
		if in.TargetFile == "" || in.Update == "" {
			logging.Debug("skipping edit block", "target", in.TargetFile, "hasUpdate", in.Update != "")
			continue
		}
		out = append(out, in)
	}
}

// indexTag finds tag followed by whitespace or '>', so "<edit" does not
// match "<editor".
func indexTag(s, tag string) int {
	off := 0
	for {
		i := strings.Index(s[off:], tag)
		if i < 0 {
			return -1
		}
		j := off + i + len(tag)
		if j < len(s) {
			switch s[j] {
			case ' ', '\t', '\n', '\r', '>':
				return off + i
			}
		}
		off = j
	}
}

// attr returns the value of name="value" within a tag's attribute text.
func attr(attrs, name string) string {
	key := name + "="
	i := strings.Index(attrs, key)
	if i < 0 {
		return ""
	}
	v := attrs[i+len(key):]
	if v == "" {
		return ""
	}
	q := v[0]
	if q != '"' && q != '\'' {
		if sp := strings.IndexAny(v, " \t\n"); sp >= 0 {
			return v[:sp]
		}
		return v
	}
	v = v[1:]
	if end := strings.IndexByte(v, q); end >= 0 {
		return v[:end]
	}
	return ""
}

// inner returns the text between <name> and </name>.
func inner(body, name string) string {
	open, closing := "<"+name+">", "</"+name+">"
	i := strings.Index(body, open)
	if i < 0 {
		return ""
	}
	v := body[i+len(open):]
	if end := strings.Index(v, closing); end >= 0 {
		return v[:end]
	}
	return ""
}
