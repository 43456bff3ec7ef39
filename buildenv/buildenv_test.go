package buildenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/headers"
)

// unsetenv removes name for the duration of the test
func unsetenv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

// cleanEnv clears every variable Load reads
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		unsetenv(t, env)
	}
	for _, c := range headers.AllCapabilities {
		unsetenv(t, c.EnvName())
	}
}

func setBuildEnv(t *testing.T) (native, emsdk, project, out string) {
	t.Helper()
	cleanEnv(t)
	native, emsdk, project, out = t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir()
	t.Setenv("FFMPEG_DIR", native)
	t.Setenv("EMSDK", emsdk)
	t.Setenv("CARGO_MANIFEST_DIR", project)
	t.Setenv("OUT_DIR", out)
	return
}

func TestLoad_Defaults(t *testing.T) {
	native, emsdk, project, out := setBuildEnv(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, native, cfg.NativeRoot)
	assert.Equal(t, emsdk, cfg.ToolchainRoot)
	assert.Equal(t, project, cfg.ProjectRoot)
	assert.Equal(t, out, cfg.OutDir)
	assert.Equal(t, DefaultStackSize, cfg.StackSize)
	assert.Equal(t, DefaultPlatformHeader, cfg.PlatformHeader)
	assert.Equal(t, filepath.Join(out, "bindings.rs"), cfg.OutputPath())
	assert.Empty(t, cfg.EnabledFeatures())
	assert.False(t, cfg.Serde())
}

func TestLoad_DerivedPaths(t *testing.T) {
	native, emsdk, _, _ := setBuildEnv(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	sysroot := filepath.Join(emsdk, "upstream/emscripten/cache/sysroot")
	assert.Equal(t, sysroot, cfg.Sysroot())
	assert.Equal(t, []string{filepath.Join(native, "include"), filepath.Join(sysroot, "include")}, cfg.IncludeRoots())
	assert.Equal(t, []string{filepath.Join(emsdk, "upstream/emscripten/system/include")}, cfg.PlatformRoots())
	assert.Equal(t, filepath.Join(native, "lib"), cfg.LibDir())
}

func TestLoad_Features(t *testing.T) {
	setBuildEnv(t)
	t.Setenv("CARGO_FEATURE_AVCODEC", "1")
	t.Setenv("CARGO_FEATURE_SERDE", "")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"avcodec", "serde"}, cfg.EnabledFeatures(), "presence alone enables a feature")
	assert.True(t, cfg.Flags().Enabled(headers.AVCodec))
	assert.False(t, cfg.Flags().Enabled(headers.AVFormat))
	assert.True(t, cfg.Serde())
}

func TestLoad_StackSize(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		setBuildEnv(t)
		t.Setenv("FFMPEG_SYS_BUILD_STACK_SIZE", "8388608")
		cfg, err := Load(LoadOptions{})
		require.NoError(t, err)
		assert.Equal(t, 8388608, cfg.StackSize)
	})

	t.Run("malformed", func(t *testing.T) {
		setBuildEnv(t)
		t.Setenv("FFMPEG_SYS_BUILD_STACK_SIZE", "big")
		_, err := Load(LoadOptions{})
		require.Error(t, err)
		assert.True(t, errors.IsConfigError(err))
		assert.Contains(t, err.Error(), "FFMPEG_SYS_BUILD_STACK_SIZE must be a valid number")
	})
}

func TestLoad_ConfigFile(t *testing.T) {
	_, _, project, _ := setBuildEnv(t)
	unsetenv(t, "OUT_DIR")

	toml := `out_dir = "/from/file"
extra_clang_args = "-DFOO=1"

[features]
avformat = true
`
	require.NoError(t, os.WriteFile(filepath.Join(project, ConfigFileName), []byte(toml), 0644))
	t.Setenv("BINDGEN_EXTRA_CLANG_ARGS", "-DBAR=2")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.OutDir, "file fills what the environment leaves unset")
	assert.Equal(t, "-DBAR=2", cfg.ExtraClangArgs, "environment wins over the file")
	assert.Equal(t, []string{"avformat"}, cfg.EnabledFeatures())
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	setBuildEnv(t)
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.toml")})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestLoad_EnvFile(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FFMPEG_DIR=/from/dotenv\nEMSDK=/emsdk\n"), 0644))
	t.Setenv("EMSDK", "/real/emsdk")
	// godotenv sets variables outside t.Setenv; restore them afterwards
	t.Cleanup(func() { os.Unsetenv("FFMPEG_DIR") })

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.NativeRoot)
	assert.Equal(t, "/real/emsdk", cfg.ToolchainRoot, "real environment is never overridden")

	_, err = Load(LoadOptions{EnvFile: filepath.Join(dir, "missing.env")})
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			NativeRoot:    "/ffmpeg",
			ToolchainRoot: "/emsdk",
			ProjectRoot:   "/crate",
			OutDir:        "/out",
			StackSize:     DefaultStackSize,
			OutputFile:    DefaultOutputFile,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero stack keeps runtime default", func(c *Config) { c.StackSize = 0 }, ""},
		{"missing native root", func(c *Config) { c.NativeRoot = "" }, "FFMPEG_DIR is not set"},
		{"missing toolchain", func(c *Config) { c.ToolchainRoot = "" }, "EMSDK is not set"},
		{"missing project root", func(c *Config) { c.ProjectRoot = "" }, "CARGO_MANIFEST_DIR is not set"},
		{"missing out dir", func(c *Config) { c.OutDir = "" }, "OUT_DIR is not set"},
		{"negative stack", func(c *Config) { c.StackSize = -1 }, "stack_size must be >= 0"},
		{"empty output file", func(c *Config) { c.OutputFile = "" }, "output_file cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsConfigError(err))
		})
	}
}

func TestValidate_Hint(t *testing.T) {
	err := (&Config{}).Validate()
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "set FFMPEG_DIR")
}

func TestToTOML(t *testing.T) {
	cfg := &Config{
		NativeRoot: "/ffmpeg",
		OutDir:     "/out",
		StackSize:  DefaultStackSize,
		OutputFile: DefaultOutputFile,
		Features:   map[string]bool{"avcodec": true},
	}
	out, err := cfg.ToTOML()
	require.NoError(t, err)
	assert.Contains(t, out, "native_root = ")
	assert.Contains(t, out, "/ffmpeg")
	assert.Contains(t, out, "stack_size = 3145728")
	assert.Contains(t, out, "[features]")
	assert.Contains(t, out, "avcodec = true")
}
