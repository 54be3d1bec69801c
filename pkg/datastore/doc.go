// Package datastore persists run records under the devplug state
// directory. Only the most recent run is kept; `devplug status` reads it
// back.
package datastore
