// Package filesystem holds the write primitives devplug uses for every file
// another process may read while devplug runs: the registry, the compose
// override, the symlink script, the last-run record and downloaded tools.
//
// Writes go to a temporary sibling that is synced and then renamed over the
// destination, so readers see either the old or the new content, never a
// truncated file.
package filesystem
