package edits

import (
	"context"
	"fmt"

	"github.com/zenprocess/open-lovable-cf/internal/config"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/project"
	"github.com/zenprocess/open-lovable-cf/internal/sandbox"
)

// Applier merges an edit into the current file content in the sandbox.
// It reads the file itself and returns the normalized path it wrote.
type Applier interface {
	Name() string
	Apply(ctx context.Context, exec sandbox.Executor, in Instruction) (string, error)
}

// Enabled reports whether precision edits should be used for a run.
func Enabled(editMode bool, applier Applier) bool {
	return editMode && applier != nil
}

// New returns the applier for the configured backend, or nil when edits
// are disabled.
func New(cfg config.EditsConfig) (Applier, error) {
	switch cfg.Backend {
	case config.EditBackendNone:
		return nil, nil
	case config.EditBackendMorph:
		f, err := NewFastApplier(cfg)
		if err != nil {
			return nil, err
		}
		return f, nil
	case config.EditBackendLocal:
		return MergeApplier{}, nil
	}
	return nil, errors.ConfigError(fmt.Sprintf("unknown edit backend %q", cfg.Backend), nil)
}

// mergeFunc produces the new file content from the original.
type mergeFunc func(ctx context.Context, original string) (string, error)

// applyWith reads the target, merges and writes the result back.
func applyWith(ctx context.Context, exec sandbox.Executor, in Instruction, merge mergeFunc) (string, error) {
	if exec == nil {
		return "", errors.NoActiveSandbox()
	}
	p := project.NormalizePath(in.TargetFile)
	if p == "" {
		return "", errors.ValidationError("edit has no target file")
	}

	original, err := exec.ReadFile(ctx, p)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", p, err)
	}

	merged, err := merge(ctx, original)
	if err != nil {
		return "", err
	}

	if err := exec.WriteFile(ctx, p, merged); err != nil {
		return "", fmt.Errorf("writing %s: %w", p, err)
	}
	return p, nil
}
