// Package app wires lovable-ctl's components together.
//
// New builds every long-lived dependency from a *config.Config using the
// functional options pattern, so tests can swap the runtime, filesystem or
// sandbox factory:
//
//	// Production usage
//	a, err := app.New(app.WithConfig(cfg))
//
//	// Testing with custom dependencies
//	a, err := app.New(
//	    app.WithConfig(cfg),
//	    app.WithFactory(&testutil.Factory{}),
//	    app.WithFileSystem(system.NewMockFS()),
//	)
//
// # Components
//
//	Manager       // active sandbox session, backed by the Provisioner
//	Orchestrator  // applies AI responses to the session's sandbox
//	Installer     // package installs, restarting Vite when configured
//	History       // JSONL event log under the state directory
//	Mirror        // optional one-way copy of written files
//
// Session creation and teardown are recorded in History.
package app
