// Package runtime runs sandbox containers on podman or docker.
//
// Both engines share a command line, so a single DockerRuntime drives
// either one; New picks whichever is installed, podman first. Sandbox ids
// map to container names through a configurable prefix and are tagged with
// a label so leftovers from a crashed server can be found and pruned.
//
// MockRuntime records every call and lets tests script exec results or
// inject per-method errors.
package runtime
