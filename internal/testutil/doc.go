// Package testutil provides shared fixtures for tests.
//
// Sample AI responses are embedded from fixtures/*.txt:
//
//	text := testutil.LandingResponse()
//	text := testutil.EditResponse()
//
// ReadySession returns an active session backed by a sandbox.MockExecutor
// that already holds the Vite scaffold:
//
//	sess, exec := testutil.ReadySession(t)
//	orch.Apply(ctx, reconcile.Request{ResponseText: text}, sess, rec)
//	content, ok := exec.File("src/components/Header.jsx")
package testutil
