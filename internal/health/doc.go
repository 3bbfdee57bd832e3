// Package health provides health check utilities for sandboxes.
//
// Health checks verify that a sandbox is operational by running a trivial
// command through its executor and probing the dev server URL.
//
// # Health Status
//
// Sandbox health is represented by Status:
//
//	StatusHealthy     - Commands run and the dev server answers
//	StatusNoDevServer - Commands run but the dev server does not answer
//	StatusUnhealthy   - The sandbox exists but commands fail
//	StatusStopped     - No sandbox is provisioned
//
// # Check Functions
//
//	result := health.Check(ctx, exec, health.CheckOptions{})
//	status := result.Summary()
package health
