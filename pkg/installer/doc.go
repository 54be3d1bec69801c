// Package installer turns manifest install steps into idempotent
// Probe/Install units and runs them in dependency order.
//
// Each step kind is provided by a Factory registered under its kind name.
// Built-in kinds cover the system package manager (apt), npm and pip
// globals, git clones, file downloads, plugin scripts and plain shell
// commands. Every installer answers Probe before anything is installed, so a
// second run over the same steps reports every step already present.
package installer
