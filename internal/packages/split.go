package packages

import (
	"context"
	"encoding/json"

	"github.com/kballard/go-shellquote"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

type manifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Declared returns the dependency names in package.json.
func Declared(ctx context.Context, exec sandbox.Executor) (map[string]bool, error) {
	data, err := exec.ReadFile(ctx, "package.json")
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	deps := make(map[string]bool, len(m.Dependencies)+len(m.DevDependencies))
	for name := range m.Dependencies {
		deps[name] = true
	}
	for name := range m.DevDependencies {
		deps[name] = true
	}
	return deps, nil
}

// Split divides candidates into those already present in the sandbox and
// those that need installing. A candidate is present when package.json
// declares it or node_modules has it. When package.json cannot be read
// every candidate needs installing.
func Split(ctx context.Context, exec sandbox.Executor, candidates []string) (already, need []string) {
	if len(candidates) == 0 {
		return nil, nil
	}

	deps, err := Declared(ctx, exec)
	if err != nil {
		logging.Debug("cannot read package.json, installing all candidates", "error", err)
		return nil, append([]string(nil), candidates...)
	}

	for _, c := range candidates {
		name := BareName(c)
		if deps[name] || onDisk(ctx, exec, name) {
			already = append(already, name)
			continue
		}
		need = append(need, c)
	}
	return already, need
}

func onDisk(ctx context.Context, exec sandbox.Executor, name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	res, err := exec.RunCommand(ctx, "test -d "+shellquote.Join("node_modules/"+name))
	return err == nil && res.Success()
}
