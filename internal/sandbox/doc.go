// Package sandbox provides the sandbox capability the reconciliation engine
// writes through, and the container-backed implementation of it.
//
// # Executor
//
// Executor is the only view of a sandbox the rest of lovable-ctl has:
// shell commands, file reads and writes relative to the app directory,
// package installation, dev server restart, and a description of the
// sandbox. ContainerExecutor implements it on top of a runtime.Runtime;
// MockExecutor keeps everything in memory for tests.
//
// # Provisioning
//
// Provisioner.Create builds a new sandbox:
//  1. Allocates a free host port for the dev server
//  2. Creates and starts a container forwarding that port
//  3. Writes the Vite + React + Tailwind scaffold
//  4. Runs npm install
//  5. Starts the dev server and waits for the startup delay
//
// If any setup step fails the container is destroyed before the error is
// returned.
package sandbox
