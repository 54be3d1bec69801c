package cli

// Command descriptions
const (
	MsgRootShort = "Manage user plugins for a Docker development container"
	MsgRootLong  = `devplug manages "user plugins" for a Docker-based development container.

A plugin is a directory with a plugin.yaml manifest, lifecycle hooks under
hooks/, files to bind-mount under mounted-files/ and optional templates.
devplug registers plugins, installs the tools they declare, generates the
compose override file with bind mounts, runs lifecycle hooks, wires
credentials into the environment and drives the container engine.

Run 'devplug help topics' for the manifest, mounts, hooks and credentials
guides.`

	MsgRegisterShort   = "Register a plugin directory"
	MsgRegisterLong    = "Validate the plugin at <path> (default: runtime.plugin_root, then the current directory) and add it to the registry. Registering a plugin again updates its entry and keeps its enabled state."
	MsgRegisterExample = `  devplug register-plugin ~/plugins/rust
  devplug register-plugin . --disabled`
	MsgUnregisterShort = "Remove a plugin from the registry"
	MsgUnregisterLong  = "Remove a plugin from the registry. The plugin directory is left untouched. Asks for confirmation when run interactively unless --yes is given."
	MsgEnableShort     = "Enable a registered plugin"
	MsgDisableShort    = "Disable a registered plugin"
	MsgListShort       = "List registered plugins"
	MsgValidateShort   = "Validate a plugin manifest"
	MsgValidateLong    = "Report every problem in the plugin manifest at <path> without registering it. Exits non-zero when there are problems."
	MsgInfoShort       = "Show a registered plugin and its README"

	MsgInstallShort   = "Install the tools declared by enabled plugins"
	MsgInstallLong    = "Probe every install step of every enabled plugin and install what is missing, in dependency order. With step names, only those steps and their dependencies run. Steps may be named bare or as plugin/step."
	MsgInstallExample = `  devplug install
  devplug install ripgrep rust/cargo-binstall
  devplug install --dry-run`
	MsgMountsShort     = "Generate the compose override file with bind mounts"
	MsgMountsLong      = "Scan the mounted-files tree of every enabled plugin, write the symlink script and the compose override file, and print the resulting mounts. With --watch, regenerate on every change until interrupted."
	MsgHooksShort      = "Run one lifecycle hook phase"
	MsgHooksLong       = "Run hooks/<phase>.sh of every enabled plugin, in registry order. Phases: user-setup, pre-up, post-up, container-startup, env-setup."
	MsgEnvShort        = "Print credential exports for eval"
	MsgEnvExample      = `  eval "$(devplug env)"`
	MsgStartupShort    = "Run the container start sequence"
	MsgStartupLong     = "Link dotfiles for the secondary user, re-create plugin symlinks and run the container-startup hooks. Meant to run inside the container."
	MsgBuildShort      = "Build the development container"
	MsgUpShort         = "Start the development container"
	MsgBuildLong       = "Regenerate the mounts and build the container images.\n\nuser-setup hooks run inside the image build, not on the host: call\n`devplug hooks user-setup` from the Dockerfile."
	MsgUpLong          = "Run the pre-up hooks, regenerate the mounts, start the container in the background and run the post-up hooks.\nWithout --detach a shell is then attached; leaving it does not stop the container."
	MsgDownShort       = "Stop the development container"
	MsgAttachShort     = "Open a shell in the running container"
	MsgStatusShort     = "Show the last run"
	MsgGenConfigShort  = "Print the default or effective configuration"
	MsgGenConfigLong   = "Print the default configuration with every value commented out, or the effective configuration with --effective. With --write, save it as the repository's .devplug.toml."
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
)

// Flag descriptions
const (
	MsgFlagVerbose    = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDryRun     = "Probe only; never install, write or start anything"
	MsgFlagFailFast   = "Stop at the first failed step or hook"
	MsgFlagOutput     = "Output format: auto, term, text or json"
	MsgFlagRepoRoot   = "Development-environment repository root"
	MsgFlagPluginRoot = "Plugin directory hooks and commands default to"
	MsgFlagConfig     = "Additional config file (TOML or YAML)"
	MsgFlagDisabled   = "Register the plugin disabled"
	MsgFlagYes        = "Do not ask for confirmation"
	MsgFlagWatch      = "Regenerate on every change until interrupted"
	MsgFlagNoCache    = "Build without the image cache"
	MsgFlagDetach     = "Do not attach a shell after starting"
	MsgFlagEffective  = "Print the effective configuration instead of the defaults"
	MsgFlagWrite      = "Write to the repository's .devplug.toml"
)

// Output messages
const (
	MsgRegistered        = "Registered plugin %s %s from %s"
	MsgUpdated           = "Updated plugin %s to %s from %s"
	MsgUnregistered      = "Unregistered plugin %s"
	MsgEnabled           = "Enabled plugin %s"
	MsgDisabled          = "Disabled plugin %s"
	MsgConfirmUnregister = "Unregister plugin %s?"
	MsgAborted           = "Aborted."
	MsgNoRunYet          = "No run recorded yet."
	MsgWroteConfig       = "Wrote %s"
	MsgWatching          = "Watching mounted files; press Ctrl-C to stop."
	MsgOverrideWritten   = "Override: %s"
	MsgOverrideDryRun    = "Dry run: %s not written"
	MsgFallbackWarning   = "Warning: not in a git repository and DEVPLUG_REPO_ROOT is not set.\nUsing current directory: %s\n"
)
