package buildenv

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/headers"
)

// LoadOptions locate the optional file sources.
type LoadOptions struct {
	// ConfigFile is an explicit TOML file; empty looks for avbindgen.toml
	// in the project root
	ConfigFile string
	// EnvFile is loaded with godotenv before reading the environment.
	// Missing files are ignored; variables already set are never overridden.
	EnvFile string
}

// Load reads the configuration. Precedence, lowest to highest: defaults,
// TOML file, environment (including the env file). The result is not
// validated; call Validate before building.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "failed to load %s", opts.EnvFile), errors.ErrConfig)
		}
	}

	v := viper.New()
	SetDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "failed to bind %s", env)
		}
	}

	if err := mergeConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	// reject a malformed stack size with the variable name, before viper's
	// decoder reports it without one
	if raw := os.Getenv(EnvName("stack_size")); strings.TrimSpace(raw) != "" {
		if _, err := strconv.Atoi(strings.TrimSpace(raw)); err != nil {
			return nil, errors.NewConfigError("%s must be a valid number, got %q", EnvName("stack_size"), raw)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to unmarshal config"), errors.ErrConfig)
	}
	cfg.Features = features(cfg.Features)
	return &cfg, nil
}

// mergeConfigFile reads the explicit file, or the project file when one
// exists. An explicit file that cannot be read is an error.
func mergeConfigFile(v *viper.Viper, explicit string) error {
	path := explicit
	if path == "" {
		root := v.GetString("project_root")
		if root == "" {
			return nil
		}
		path = filepath.Join(root, ConfigFileName)
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		err = errors.Wrapf(err, "failed to read config file %s", path)
		return errors.Mark(err, errors.ErrConfig)
	}
	return nil
}

// features combines capabilities from the file with CARGO_FEATURE_*
// variables. A variable enables its capability by being present.
func features(fromFile map[string]bool) map[string]bool {
	out := make(map[string]bool, len(headers.AllCapabilities))
	for name, on := range fromFile {
		out[strings.ToLower(name)] = on
	}
	for _, c := range headers.AllCapabilities {
		if _, ok := os.LookupEnv(c.EnvName()); ok {
			out[string(c)] = true
		}
	}
	return out
}
