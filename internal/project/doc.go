// Package project holds what lovable-ctl knows about the target stack: a
// Vite + React + Tailwind app rooted at the sandbox app directory.
//
// It covers path normalization for files named in AI responses, the set of
// protected config files, content fix-ups applied before writing, the
// scaffold written into a new sandbox, and the entry files generated on a
// first generation (src/App.jsx and src/index.css).
package project
