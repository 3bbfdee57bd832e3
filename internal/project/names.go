package project

import "regexp"

var packageNameRe = regexp.MustCompile(`^[@a-zA-Z0-9][\w.\-/]*$`)

// ValidPackageName reports whether name is safe to pass to npm install.
// Version suffixes ("lodash@4") are accepted.
func ValidPackageName(name string) bool {
	return packageNameRe.MatchString(name) || validVersioned(name)
}

// validVersioned accepts name@version where name is itself valid.
func validVersioned(name string) bool {
	at := -1
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '@' {
			at = i
			break
		}
	}
	if at <= 0 || at == len(name)-1 {
		return false
	}
	version := name[at+1:]
	return packageNameRe.MatchString(name[:at]) && versionRe.MatchString(version)
}

var versionRe = regexp.MustCompile(`^[\w.\-^~<>=*]+$`)
