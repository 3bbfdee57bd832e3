// Package port allocates host ports for sandbox dev servers.
//
// Each sandbox forwards its Vite dev server to a host port on 127.0.0.1.
// Ports come from the range configured under [sandbox]:
//
//	p, err := port.Allocate(cfg.Sandbox.HostPortFrom, cfg.Sandbox.HostPortTo, inUse, port.Free)
//
// # Allocation Strategy
//
// Ports are allocated first-fit: the lowest value that is neither recorded
// as in use nor bound by another process is chosen.
package port
