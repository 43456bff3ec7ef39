// Package buildenv reads the build-script environment into an immutable
// Config: the native library root, the toolchain root, the output
// directory, the enabled capabilities and the translation knobs.
package buildenv

import (
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/headers"
)

// Config is the immutable input of one build.
type Config struct {
	NativeRoot     string `mapstructure:"native_root" toml:"native_root"`           // FFMPEG_DIR
	ToolchainRoot  string `mapstructure:"toolchain_root" toml:"toolchain_root"`     // EMSDK
	ProjectRoot    string `mapstructure:"project_root" toml:"project_root"`         // CARGO_MANIFEST_DIR
	OutDir         string `mapstructure:"out_dir" toml:"out_dir"`                   // OUT_DIR
	StackSize      int    `mapstructure:"stack_size" toml:"stack_size"`             // bytes; 0 keeps the runtime default
	ExtraClangArgs string `mapstructure:"extra_clang_args" toml:"extra_clang_args"` // shell-quoted
	PlatformHeader string `mapstructure:"platform_header" toml:"platform_header"`   // empty skips it
	OutputFile     string `mapstructure:"output_file" toml:"output_file"`

	Features map[string]bool `mapstructure:"features" toml:"features"`
}

// Toolchain-relative locations.
const (
	sysrootRel         = "upstream/emscripten/cache/sysroot"
	platformIncludeRel = "upstream/emscripten/system/include"
)

// Sysroot is the toolchain's C library root.
func (c *Config) Sysroot() string {
	return filepath.Join(c.ToolchainRoot, sysrootRel)
}

// IncludeRoots lists the directories searched for library headers, in
// priority order.
func (c *Config) IncludeRoots() []string {
	return []string{
		filepath.Join(c.NativeRoot, "include"),
		filepath.Join(c.Sysroot(), "include"),
	}
}

// PlatformRoots lists the directories searched for the platform header.
func (c *Config) PlatformRoots() []string {
	return []string{filepath.Join(c.ToolchainRoot, platformIncludeRel)}
}

// LibDir is where the static native libraries live.
func (c *Config) LibDir() string {
	return filepath.Join(c.NativeRoot, "lib")
}

// OutputPath is the artifact location.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutDir, c.OutputFile)
}

// Flags returns the enabled capabilities.
func (c *Config) Flags() headers.Flags {
	caps := make([]headers.Capability, 0, len(c.Features))
	for name, on := range c.Features {
		if on {
			caps = append(caps, headers.Capability(name))
		}
	}
	return headers.NewFlags(caps...)
}

// Serde reports whether enums get serde attributes.
func (c *Config) Serde() bool {
	return c.Features[string(headers.Serde)]
}

// EnabledFeatures returns the enabled capability names, sorted.
func (c *Config) EnabledFeatures() []string {
	var names []string
	for name, on := range c.Features {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ToTOML renders the effective configuration.
func (c *Config) ToTOML() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal config")
	}
	return string(data), nil
}
