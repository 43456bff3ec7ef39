package buildenv

import "github.com/spf13/viper"

// Defaults for the optional inputs.
const (
	DefaultStackSize      = 3 * 1024 * 1024
	DefaultPlatformHeader = "emscripten.h"
	DefaultOutputFile     = "bindings.rs"

	// ConfigFileName is looked up in the project root when no --config is given
	ConfigFileName = "avbindgen.toml"
)

// envBindings maps configuration keys to the variables the build tool sets.
var envBindings = map[string]string{
	"native_root":      "FFMPEG_DIR",
	"toolchain_root":   "EMSDK",
	"project_root":     "CARGO_MANIFEST_DIR",
	"out_dir":          "OUT_DIR",
	"stack_size":       "FFMPEG_SYS_BUILD_STACK_SIZE",
	"extra_clang_args": "BINDGEN_EXTRA_CLANG_ARGS",
	"platform_header":  "AVBINDGEN_PLATFORM_HEADER",
	"output_file":      "AVBINDGEN_OUTPUT_FILE",
}

// EnvName returns the environment variable bound to key, or "".
func EnvName(key string) string {
	return envBindings[key]
}

// SetDefaults configures default values for the optional inputs
func SetDefaults(v *viper.Viper) {
	v.SetDefault("stack_size", DefaultStackSize)
	v.SetDefault("extra_clang_args", "")
	v.SetDefault("platform_header", DefaultPlatformHeader)
	v.SetDefault("output_file", DefaultOutputFile)
}
