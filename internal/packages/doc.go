// Package packages decides which npm packages a response needs and which of
// them the sandbox already has.
//
// Resolve merges explicit and import-derived names. Split checks the
// candidates against package.json and node_modules in the sandbox.
// Classify turns npm output into progress lines.
package packages
