// Package core wires devplug's components into the operations the CLI
// exposes: plugin registration, provisioning, mount generation, hooks,
// credentials and the container lifecycle.
//
// Every operation that runs steps or hooks returns a summary.RunSummary,
// which is also persisted as the last run record.
package core
