// Package types defines the data model shared across devplug: install
// steps, mount entries, credential bindings, registry entries, lifecycle
// phases and step results.
package types
