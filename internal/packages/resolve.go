package packages

import "strings"

// preinstalled are part of the scaffold and never installed again.
var preinstalled = map[string]bool{
	"react":     true,
	"react-dom": true,
}

// IsPreinstalled reports whether name ships with the scaffold.
func IsPreinstalled(name string) bool {
	return preinstalled[BareName(name)]
}

// Resolve unions explicit and parsed package names, explicit first,
// dropping blanks, duplicates and preinstalled packages.
func Resolve(explicit, parsed []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{explicit, parsed} {
		for _, name := range list {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] || IsPreinstalled(name) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// BareName strips a version suffix: "lodash@4" is "lodash" and
// "@scope/pkg@1.0.0" is "@scope/pkg".
func BareName(name string) string {
	if strings.HasPrefix(name, "@") {
		if i := strings.Index(name[1:], "@"); i >= 0 {
			return name[:i+1]
		}
		return name
	}
	if i := strings.Index(name, "@"); i >= 0 {
		return name[:i]
	}
	return name
}
