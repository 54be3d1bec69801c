// Package manifest loads and validates plugin.yaml.
//
// A manifest names the plugin, declares its install steps, credential
// bindings, extra mounts and home dotfiles. Hooks are not declared; they
// are detected from the files present under hooks/. Validation collects
// every problem it finds so validate-plugin can report them all at once;
// Load turns any problem into a fatal CONFIG_INVALID error.
package manifest
