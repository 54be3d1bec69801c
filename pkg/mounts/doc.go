// Package mounts derives bind mounts from a plugin's mounted-files tree.
//
// The path of a file below the scan root is its container path, so
// mounted-files/root/.bashrc is mounted at /root/.bashrc. A mount is
// read-write when the owner or group write bit is set and read-only
// otherwise. Whole directories are mounted instead of their files when
// that gives the same result, so edits made inside the container to new
// files propagate back to the host.
//
// Symlinks cannot be bind mounted meaningfully. Valid ones (relative,
// inside the scan root, pointing at something that exists) are re-created
// in the container by a generated shell script; the rest are skipped with
// a warning.
package mounts
