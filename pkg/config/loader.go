package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "DEVPLUG_"

// EnvCredentialDir is honoured when credentials.dir is not configured.
const EnvCredentialDir = "CREDENTIAL_SCRIPT_DIR"

var sections = map[string]bool{
	"general":     true,
	"container":   true,
	"mounts":      true,
	"credentials": true,
	"idmap":       true,
	"home":        true,
}

// contract variables live under runtime.* and keep their names.
var runtimeEnv = map[string]string{
	"plugin_root": "runtime.plugin_root",
	"repo_root":   "runtime.repo_root",
	"host_uid":    "runtime.host_uid",
}

var flagKeys = map[string]string{
	"fail-fast":   "general.fail_fast",
	"dry-run":     "general.dry_run",
	"output":      "general.output",
	"repo-root":   "runtime.repo_root",
	"plugin-root": "runtime.plugin_root",
	"host-uid":    "runtime.host_uid",
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	Paths      *paths.Paths
	ConfigFile string
	Flags      *pflag.FlagSet
	Verbosity  int
}

// Load builds the layered configuration and returns it as an immutable
// value. Errors carry CONFIG_* codes and are fatal to the caller.
func Load(opts LoadOptions) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return Config{}, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	if opts.Paths != nil {
		for _, candidate := range opts.Paths.UserConfigCandidates() {
			if err := loadFileIfExists(k, candidate); err != nil {
				return Config{}, err
			}
		}
	}

	if opts.ConfigFile != "" {
		path := paths.ExpandHome(opts.ConfigFile)
		if _, err := os.Stat(path); err != nil {
			return Config{}, errors.Wrap(err, errors.ErrConfigLoad, "config file not found").
				WithDetail("path", path)
		}
		if err := loadFileIfExists(k, path); err != nil {
			return Config{}, err
		}
	}

	if opts.Paths != nil {
		if err := loadFileIfExists(k, opts.Paths.RepoConfigPath()); err != nil {
			return Config{}, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, errors.Wrap(err, errors.ErrConfigLoad, "failed to load command-line flags")
		}
	}

	if err := k.Set("runtime.verbosity", logging.EffectiveVerbosity(opts.Verbosity)); err != nil {
		return Config{}, errors.Wrap(err, errors.ErrInternal, "failed to set verbosity")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return Config{}, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	postProcessConfig(&cfg, opts.Paths)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the embedded defaults, post-processed without any
// environment or file overrides. Mostly useful in tests.
func Default() Config {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		panic(fmt.Sprintf("embedded defaults are invalid: %v", err))
	}
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		panic(fmt.Sprintf("embedded defaults do not unmarshal: %v", err))
	}
	postProcessConfig(&cfg, nil)
	return cfg
}

func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = k.Load(file.Provider(path), yaml.Parser())
	default:
		err = k.Load(file.Provider(path), toml.Parser())
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path).
			WithDetail("path", path)
	}
	return nil
}

// envKey maps DEVPLUG_<SECTION>_<KEY> to section.key. Unknown variables
// return "" and are ignored by koanf.
func envKey(s string) string {
	name := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if key, ok := runtimeEnv[name]; ok {
		return key
	}
	section, key, ok := strings.Cut(name, "_")
	if !ok || !sections[section] || key == "" {
		return ""
	}
	return section + "." + key
}

func postProcessConfig(cfg *Config, p *paths.Paths) {
	if cfg.Runtime.HostUID < 0 {
		cfg.Runtime.HostUID = os.Getuid()
	}
	if cfg.Runtime.RepoRoot == "" && p != nil {
		cfg.Runtime.RepoRoot = p.RepoRoot()
	}
	cfg.Runtime.RepoRoot = paths.ExpandHome(cfg.Runtime.RepoRoot)
	cfg.Runtime.PluginRoot = paths.ExpandHome(cfg.Runtime.PluginRoot)

	if cfg.Credentials.Dir == "" {
		cfg.Credentials.Dir = os.Getenv(EnvCredentialDir)
	}
	cfg.Credentials.Dir = paths.ExpandHome(cfg.Credentials.Dir)

	cfg.Mounts.SymlinkScript = paths.ExpandHome(cfg.Mounts.SymlinkScript)
	for i := range cfg.Mounts.Extra {
		cfg.Mounts.Extra[i].Host = paths.ExpandHome(cfg.Mounts.Extra[i].Host)
		if cfg.Mounts.Extra[i].Mode == "" {
			cfg.Mounts.Extra[i].Mode = "ro"
		}
	}
}

// Validate checks the configuration for values no component can work with.
func Validate(cfg Config) error {
	switch cfg.General.Output {
	case "auto", "term", "terminal", "text", "plain", "json":
	default:
		return errors.Newf(errors.ErrConfigValid, "unknown output format %q", cfg.General.Output)
	}
	if cfg.Container.Engine == "" {
		return errors.New(errors.ErrConfigValid, "container.engine must be set")
	}
	if cfg.Container.Service == "" {
		return errors.New(errors.ErrConfigValid, "container.service must be set")
	}
	if cfg.Mounts.MinDirectoryDepth < 1 {
		return errors.Newf(errors.ErrConfigValid, "mounts.min_directory_depth must be at least 1, got %d", cfg.Mounts.MinDirectoryDepth)
	}
	for _, m := range cfg.Mounts.Extra {
		if m.Host == "" || !strings.HasPrefix(m.Container, "/") {
			return errors.Newf(errors.ErrConfigValid, "extra mount needs a host path and an absolute container path: %+v", m)
		}
		if m.Mode != "ro" && m.Mode != "rw" {
			return errors.Newf(errors.ErrConfigValid, "extra mount mode must be ro or rw, got %q", m.Mode)
		}
	}
	return nil
}
