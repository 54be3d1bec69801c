// Package testutil provides utilities for testing devplug components.
//
// Key components:
//   - FakeRunner: recording executor.Runner with scripted responses
//   - TestPlugin: declarative plugin directory builder
//   - SetupEnv: isolates XDG directories and the devplug environment
//
// All test data should be defined inline, not in external files, and each
// test should be completely isolated with no shared state.
package testutil
