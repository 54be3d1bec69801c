// Package registry holds devplug's two registries.
//
// Index[T] is a small in-memory, thread-safe name index used for
// compile-time extension points such as installer kinds, which register
// themselves from init functions.
//
// Store is the persisted plugin registry: a YAML file listing every
// registered plugin with its path, enabled flag and timestamps. Plugin
// names are unique; registering a known name updates the entry in place.
package registry
