// Package reconcile makes a sandbox match what an AI response asks for.
//
// Orchestrator.Apply parses the response and runs four stages in order
// against the session's sandbox executor:
//  1. Install: resolve packages, skip those already present, npm install the rest
//  2. Precision edits: apply <edit> blocks through an edits.Applier
//  3. File writes: normalize paths, fix content, write, classify create vs update
//  4. Commands: run each <command> and capture its output
//
// Every step is reported on a progress.Sink as it happens. A run always
// ends with exactly one complete or error event. Failures of a single
// file, command, edit or install are recorded in the Result and the run
// continues.
//
// After the writes, a first generation run without an App component gets
// a generated src/App.jsx, and the App component's relative imports are
// checked against the files present.
package reconcile
