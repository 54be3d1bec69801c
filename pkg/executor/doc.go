// Package executor runs external commands for devplug.
//
// Every component that shells out (package managers, hook scripts, the
// container engine) goes through the Runner interface so tests can swap in
// a recording fake. The exec-backed implementation captures stdout and
// stderr while optionally streaming them, and reports non-zero exits as
// COMMAND_FAILED errors carrying the exit code.
package executor
