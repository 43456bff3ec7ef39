package buildenv

import "github.com/teranos/avbindgen/errors"

// required lists the inputs a build cannot run without, in report order.
var required = []struct {
	key string
	get func(*Config) string
}{
	{"native_root", func(c *Config) string { return c.NativeRoot }},
	{"toolchain_root", func(c *Config) string { return c.ToolchainRoot }},
	{"project_root", func(c *Config) string { return c.ProjectRoot }},
	{"out_dir", func(c *Config) string { return c.OutDir }},
}

// Validate checks that the configuration can drive a build
func (c *Config) Validate() error {
	for _, r := range required {
		if r.get(c) == "" {
			env := EnvName(r.key)
			err := errors.Newf("%s is not set", env)
			err = errors.WithHintf(err, "set %s (or %s in %s)", env, r.key, ConfigFileName)
			return errors.Mark(err, errors.ErrConfig)
		}
	}

	if c.StackSize < 0 {
		return errors.NewConfigError("stack_size must be >= 0, got %d", c.StackSize)
	}
	if c.OutputFile == "" {
		return errors.NewConfigError("output_file cannot be empty")
	}
	return nil
}
