// Package session owns the state tied to one sandbox: its executor, the
// known-files registry, the file cache, conversation tracking and the
// single-run lock.
//
// A Session moves from created to active to terminated. The Manager holds
// at most one active session; creating a new one terminates the previous
// sandbox. Concurrent Create calls share one in-flight creation through
// singleflight.
//
// At most one reconciliation run may hold a session:
//
//	release, err := sess.BeginRun()
//	if err != nil {
//	    return err // run in progress
//	}
//	defer release()
package session
