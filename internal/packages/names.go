package packages

import (
	"fmt"

	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/project"
)

// ValidateName returns a validation error for names that are not safe to
// pass to npm.
func ValidateName(name string) error {
	if !project.ValidPackageName(name) {
		return errors.ValidationError(fmt.Sprintf("invalid package name %q", name))
	}
	return nil
}

// FilterValid splits names into valid and rejected.
func FilterValid(names []string) (valid, rejected []string) {
	for _, n := range names {
		if ValidateName(n) != nil {
			rejected = append(rejected, n)
			continue
		}
		valid = append(valid, n)
	}
	return valid, rejected
}
