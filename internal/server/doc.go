// Package server exposes the reconciliation engine and the sandbox session
// over HTTP.
//
// # Routes
//
// The apply route streams progress as server-sent events; the websocket
// route carries the same events as text messages:
//
//	POST /api/apply-ai-code-stream         {response, isEdit, packages, sandboxId}
//	GET  /api/apply-ai-code-ws             first message is the request JSON
//
// Sandbox routes:
//
//	POST /api/create-ai-sandbox
//	POST /api/kill-sandbox
//	GET  /api/sandbox-status
//	POST /api/run-command                  {command}
//	POST /api/restart-vite
//	POST /api/install-packages             {packages}, streamed
//	POST /api/detect-and-install-packages  {files: {path: content}}
//	GET  /api/get-sandbox-files
//	POST /api/load-project                 {files: [{path, content}]}
//	GET  /api/conversation-state
//	GET  /api/sandbox-history
//
// # Guards
//
// With localhost_only set every request whose Host is not a loopback name
// gets 403. Mutating routes share a fixed-window rate limit per client
// address; excess requests get 429 with a Retry-After header.
//
// Runs started by a request are not cancelled when the client disconnects.
// Shutdown waits for them.
package server
