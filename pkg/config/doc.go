// Package config handles configuration management for devplug.
//
// Configuration is layered with koanf, lowest precedence first:
//
//  1. embedded defaults (embedded/defaults.toml)
//  2. user config ($XDG_CONFIG_HOME/devplug/config.toml or config.yaml)
//  3. an explicit --config file
//  4. the repository's .devplug.toml
//  5. DEVPLUG_* environment variables
//  6. command-line flags
//
// The result is unmarshalled once into a Config value that is passed by
// value to every component. Nothing mutates it after Load returns.
package config
