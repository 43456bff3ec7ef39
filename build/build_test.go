package build

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/avbindgen/buildenv"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/logger"
	"github.com/teranos/avbindgen/postprocess"
	"github.com/teranos/avbindgen/rules"
	"github.com/teranos/avbindgen/translate"
	"github.com/teranos/avbindgen/typegen"
	"github.com/teranos/avbindgen/typegen/cparse"
	"github.com/teranos/avbindgen/typegen/rust"
)

// testdataConfig points a config at the header trees under testdata.
func testdataConfig(t *testing.T, root string, features ...string) *buildenv.Config {
	t.Helper()
	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	enabled := make(map[string]bool, len(features))
	for _, f := range features {
		enabled[f] = true
	}
	return &buildenv.Config{
		NativeRoot:     filepath.Join(abs, "ffmpeg"),
		ToolchainRoot:  filepath.Join(abs, "emsdk"),
		ProjectRoot:    t.TempDir(),
		OutDir:         t.TempDir(),
		StackSize:      buildenv.DefaultStackSize,
		PlatformHeader: buildenv.DefaultPlatformHeader,
		OutputFile:     buildenv.DefaultOutputFile,
		Features:       enabled,
	}
}

func runBuild(t *testing.T, cfg *buildenv.Config) (string, string) {
	t.Helper()
	var directives bytes.Buffer
	path, err := Run(cfg, rust.NewGenerator(), &directives)
	require.NoError(t, err)
	require.Equal(t, cfg.OutputPath(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data), directives.String()
}

func copyTree(t *testing.T, src, dst string) {
	t.Helper()
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	require.NoError(t, err)
}

type fakeEngine struct {
	text  string
	err   error
	panic bool
}

func (e fakeEngine) Translate(typegen.Request) (*typegen.Result, error) {
	if e.panic {
		panic("clang crashed")
	}
	if e.err != nil {
		return nil, e.err
	}
	return &typegen.Result{Text: e.text, Declarations: 1}, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func currentMaxStack() int {
	old := debug.SetMaxStack(1 << 30)
	debug.SetMaxStack(old)
	return old
}

// =============================================================================
// Link directives
// =============================================================================

func TestEmitLinkDirectives(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EmitLinkDirectives(&buf, "/opt/ffmpeg/lib"))

	want := "cargo:rustc-link-lib=static=avcodec\n" +
		"cargo:rustc-link-lib=static=avfilter\n" +
		"cargo:rustc-link-lib=static=avformat\n" +
		"cargo:rustc-link-lib=static=avutil\n" +
		"cargo:rustc-link-lib=static=swresample\n" +
		"cargo:rustc-link-search=native=/opt/ffmpeg/lib\n"
	assert.Equal(t, want, buf.String())
}

func TestEmitLinkDirectives_WriteError(t *testing.T) {
	err := EmitLinkDirectives(failingWriter{}, "/opt/ffmpeg/lib")
	require.Error(t, err)
	assert.True(t, errors.IsWriteError(err))
	assert.Contains(t, err.Error(), "broken pipe")
}

// =============================================================================
// Artifact writes
// =============================================================================

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "bindings.rs")

	t.Run("creates the directory and file", func(t *testing.T) {
		require.NoError(t, WriteArtifact(path, "first\n"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "first\n", string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	})

	t.Run("replaces an existing artifact", func(t *testing.T) {
		require.NoError(t, WriteArtifact(path, "second\n"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second\n", string(data))
	})

	t.Run("leaves no temporary files", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "bindings.rs", entries[0].Name())
	})
}

func TestWriteArtifact_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0644))

	err := WriteArtifact(filepath.Join(blocker, "bindings.rs"), "text")
	require.Error(t, err)
	assert.True(t, errors.IsWriteError(err))
}

// =============================================================================
// End-to-end runs against testdata
// =============================================================================

func TestRun_AVUtil(t *testing.T) {
	var logs bytes.Buffer
	require.NoError(t, logger.InitializeWithWriter(&logs, true, logger.VerbosityDefault))
	t.Cleanup(func() { logger.InitializeWithWriter(io.Discard, false, logger.VerbosityDefault) })

	cfg := testdataConfig(t, "testdata", "avutil")
	text, directives := runBuild(t, cfg)

	assert.Equal(t, 6, strings.Count(directives, "\n"))
	assert.Contains(t, directives, "cargo:rustc-link-search=native="+filepath.Join(cfg.NativeRoot, "lib")+"\n")
	assert.True(t, strings.HasPrefix(text, rust.Banner+"\n"))

	wantMediaType := `#[repr(i32)]
#[derive(Debug, Copy, Clone, Hash, PartialEq, Eq)]
pub enum AVMediaType {
    AVMEDIA_TYPE_UNKNOWN = -1,
    AVMEDIA_TYPE_VIDEO = 0,
    AVMEDIA_TYPE_AUDIO = 1,
    AVMEDIA_TYPE_DATA = 2,
    AVMEDIA_TYPE_SUBTITLE = 3,
    AVMEDIA_TYPE_ATTACHMENT = 4,
    AVMEDIA_TYPE_NB = 5,
}
`
	assert.Contains(t, text, wantMediaType)

	t.Run("macro kinds follow the rules", func(t *testing.T) {
		for _, want := range []string{
			"pub const AV_CH_FRONT_LEFT: libc::c_ulonglong = 1;",
			"pub const AV_CH_LAYOUT_STEREO: libc::c_ulonglong = 3;",
			"pub const AV_CH_WIDE_LEFT: libc::c_ulonglong = 2147483648;",
			"pub const AV_CH_LAYOUT_NATIVE: libc::c_ulonglong = 9223372036854775808;",
			"pub const AV_ERROR_MAX_STRING_SIZE: usize = 64;",
			"pub const AV_LOG_QUIET: libc::c_int = -8;",
			"pub const AV_TIME_BASE: libc::c_int = 1000000;",
			"pub const AVERROR_EOF: libc::c_int = -541478725;",
			"pub const AVERROR_BUG: libc::c_int = -558323010;",
			"pub const AV_CPU_FLAG_FORCE: u32 = 2147483648;",
			"pub const M_PI: f64 = 3.141592653589793;",
			"pub const EM_TIMING_RAF: libc::c_int = 1;",
		} {
			assert.Contains(t, text, want)
		}
	})

	t.Run("suppressed declarations are absent", func(t *testing.T) {
		for _, absent := range []string{
			"pub const FP_NAN",
			"pub const FP_NORMAL",
			"pub fn sqrtl(",
			"pub fn powl(",
			"pub fn nexttoward(",
			"pub fn strtold(",
			"pub fn __fpclassifyl(",
			"pub fn __errno_location(",
			"pub fn _Exit(",
			"pub struct max_align_t",
		} {
			assert.NotContains(t, text, absent)
		}
		assert.Contains(t, text, "pub fn sqrt(")
		assert.Contains(t, text, "pub fn emscripten_get_now() -> f64;")
		assert.Contains(t, text, "pub fn av_malloc(size: usize) -> *mut libc::c_void;")
	})

	t.Run("unrepresentable macro is dropped with a warning", func(t *testing.T) {
		assert.NotContains(t, text, "AV_NOPTS_VALUE")
		assert.Contains(t, logs.String(), "AV_NOPTS_VALUE")
	})

	assert.NotContains(t, text, "AV_CODEC_ID_", "avcodec headers are not selected")
	assert.Zero(t, postprocess.Annotated(text))
}

func TestRun_AVCodec(t *testing.T) {
	cfg := testdataConfig(t, "testdata", "avutil", "avcodec")
	text, _ := runBuild(t, cfg)

	for _, want := range []string{
		"pub const AV_CODEC_FLAG_GLOBAL_HEADER: libc::c_uint = 4194304;",
		"pub const AV_CODEC_FLAG_UNALIGNED: libc::c_uint = 1;",
		"pub const AV_CODEC_CAP_DR1: libc::c_uint = 2;",
		"pub const AV_CODEC_FLAG_CLOSED_GOP: u32 = 2147483648;",
		"pub const AV_INPUT_BUFFER_PADDING_SIZE: libc::c_int = 64;",
		"    AV_CODEC_ID_PCM_S16LE = 65536,\n",
		"    AV_CODEC_ID_TTF = 98304,\n",
		"    pub const AV_CODEC_ID_FIRST_AUDIO: AVCodecID = AVCodecID::AV_CODEC_ID_PCM_S16LE;",
		"    pub const AV_CODEC_ID_FIRST_SUBTITLE: AVCodecID = AVCodecID::AV_CODEC_ID_DVD_SUBTITLE;",
		"    pub const AV_CODEC_ID_FIRST_UNKNOWN: AVCodecID = AVCodecID::AV_CODEC_ID_TTF;",
		"pub enum AVDiscard {",
		"pub fn avcodec_version() -> libc::c_uint;",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "    AV_CODEC_ID_FIRST_AUDIO = ")

	// the base group still comes through
	assert.Contains(t, text, "pub enum AVMediaType {")
	assert.Contains(t, text, "pub const AV_CH_FRONT_LEFT: libc::c_ulonglong = 1;")
}

// TestRun_MacroSurvival pins which fixture macros reach the artifact: every
// evaluated macro is emitted unless a rule ignores it or no integer kind
// holds its value.
func TestRun_MacroSurvival(t *testing.T) {
	cfg := testdataConfig(t, "testdata", "avutil", "avcodec")

	req, err := translate.NewRequest(cfg)
	require.NoError(t, err)
	res, err := rust.NewGenerator().Translate(req)
	require.NoError(t, err)

	dropped := []string{"INT64_MAX", "AV_NOPTS_VALUE", "LLONG_MAX"}
	assert.Equal(t, dropped, res.DroppedMacros)

	unit, err := cparse.Parse(cparse.Config{IncludeDirs: cfg.IncludeRoots()}, req.Headers)
	require.NoError(t, err)
	require.NotEmpty(t, unit.Macros)

	callbacks := rules.Callbacks{}
	survivors := 0
	for _, m := range unit.Macros {
		decl := "pub const " + m.Name + ":"
		if callbacks.WillParseMacro(m.Name) == typegen.MacroIgnore || slices.Contains(dropped, m.Name) {
			assert.NotContains(t, res.Text, decl)
			continue
		}
		assert.Contains(t, res.Text, decl, "macro %s should survive translation", m.Name)
		survivors++
	}
	assert.Greater(t, survivors, 50)
}

func TestRun_Serde(t *testing.T) {
	plain, _ := runBuild(t, testdataConfig(t, "testdata", "avutil"))
	text, _ := runBuild(t, testdataConfig(t, "testdata", "avutil", "serde"))

	enums := postprocess.Count(plain)
	require.NotZero(t, enums)
	assert.Equal(t, enums, postprocess.Annotated(text))
	assert.Zero(t, postprocess.Count(text))

	want := "#[derive(Debug, Copy, Clone, Hash, PartialEq, Eq)]\n" +
		strings.Join(postprocess.SerdeAttributes, "\n") + "\n" +
		"pub enum AVMediaType {"
	assert.Contains(t, text, want)
}

func TestRun_Deterministic(t *testing.T) {
	first, _ := runBuild(t, testdataConfig(t, "testdata", "avutil", "avcodec"))
	second, _ := runBuild(t, testdataConfig(t, "testdata", "avutil", "avcodec"))
	assert.Equal(t, first, second)
}

func TestRun_MissingHeaderIsFatal(t *testing.T) {
	cfg := testdataConfig(t, "testdata", "avutil")
	cfg.PlatformHeader = "no_such_platform_header.h"

	_, err := Run(cfg, rust.NewGenerator(), io.Discard)
	require.Error(t, err)
	assert.True(t, errors.IsTranslationError(err))
	assert.Contains(t, err.Error(), "no_such_platform_header.h")
	assert.Contains(t, err.Error(), "cannot open file")

	_, statErr := os.Stat(cfg.OutputPath())
	assert.True(t, os.IsNotExist(statErr), "no artifact on failure")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testdataConfig(t, "testdata")
	cfg.NativeRoot = ""

	var directives bytes.Buffer
	_, err := Run(cfg, rust.NewGenerator(), &directives)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
	assert.Empty(t, directives.String(), "nothing is emitted before validation passes")
}

func TestRun_EngineErrorVerbatim(t *testing.T) {
	cfg := testdataConfig(t, "testdata")
	_, err := Run(cfg, fakeEngine{err: errors.New("libavutil/frame.h:42: unknown type name 'AVBufferRef'")}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libavutil/frame.h:42: unknown type name 'AVBufferRef'")
}

func TestRun_EnginePanic(t *testing.T) {
	cfg := testdataConfig(t, "testdata")
	path, err := Run(cfg, fakeEngine{panic: true}, io.Discard)
	require.Error(t, err)
	assert.Empty(t, path)
	assert.True(t, errors.IsTranslationError(err))
	assert.Contains(t, err.Error(), "clang crashed")
}

func TestGenerate(t *testing.T) {
	cfg := testdataConfig(t, "testdata", "serde")
	text, err := Generate(cfg, fakeEngine{text: "#[derive(Debug)]\npub enum E {\n    A = 0,\n}\n"})
	require.NoError(t, err)
	assert.Equal(t, 1, postprocess.Annotated(text))

	entries, err := os.ReadDir(cfg.OutDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "Generate writes nothing")
}

// =============================================================================
// Worker and stack limit
// =============================================================================

func TestRunWorker(t *testing.T) {
	cfg := testdataConfig(t, "testdata")

	path, err := runWorker(cfg, func() (string, error) { return "/out/bindings.rs", nil })
	require.NoError(t, err)
	assert.Equal(t, "/out/bindings.rs", path)

	_, err = runWorker(cfg, func() (string, error) { panic("deep recursion") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deep recursion")
}

func TestRaiseMaxStack(t *testing.T) {
	before := currentMaxStack()

	restore := raiseMaxStack(before * 2)
	assert.Equal(t, before*2, currentMaxStack())
	restore()
	assert.Equal(t, before, currentMaxStack())

	t.Run("smaller size keeps the current limit", func(t *testing.T) {
		var logs bytes.Buffer
		require.NoError(t, logger.InitializeWithWriter(&logs, true, logger.VerbosityDefault))
		t.Cleanup(func() { logger.InitializeWithWriter(io.Discard, false, logger.VerbosityDefault) })

		restore := raiseMaxStack(1 << 20)
		assert.Equal(t, before, currentMaxStack())
		restore()
		assert.Equal(t, before, currentMaxStack())

		logger.Cleanup()
		assert.Contains(t, logs.String(), "stack size not applied")
		assert.Contains(t, logs.String(), `"stack_size":1048576`)
	})

	t.Run("zero is a no-op", func(t *testing.T) {
		raiseMaxStack(0)()
		assert.Equal(t, before, currentMaxStack())
	})
}

// =============================================================================
// Watch
// =============================================================================

func TestWatchDirs(t *testing.T) {
	cfg := testdataConfig(t, "testdata", "avutil", "avcodec")
	assert.Equal(t, []string{
		filepath.Join(cfg.ToolchainRoot, "upstream/emscripten/system/include"),
		filepath.Join(cfg.NativeRoot, "include/libavcodec"),
		filepath.Join(cfg.NativeRoot, "include/libavutil"),
	}, WatchDirs(cfg))
}

func TestIsHeaderChange(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"header write", fsnotify.Event{Name: "libavutil/frame.h", Op: fsnotify.Write}, true},
		{"header created", fsnotify.Event{Name: "libavutil/new.h", Op: fsnotify.Create}, true},
		{"header renamed", fsnotify.Event{Name: "libavutil/frame.h", Op: fsnotify.Rename}, true},
		{"header chmod", fsnotify.Event{Name: "libavutil/frame.h", Op: fsnotify.Chmod}, false},
		{"editor swap file", fsnotify.Event{Name: "libavutil/.frame.h.swp", Op: fsnotify.Write}, false},
		{"source file", fsnotify.Event{Name: "libavutil/frame.c", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isHeaderChange(tt.event))
		})
	}
}

func TestWatch_RebuildsOnHeaderChange(t *testing.T) {
	root := t.TempDir()
	copyTree(t, "testdata", root)
	cfg := testdataConfig(t, root, "avutil")

	old := DebouncePeriod
	DebouncePeriod = 20 * time.Millisecond
	t.Cleanup(func() { DebouncePeriod = old })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, cfg, rust.NewGenerator(), io.Discard) }()

	read := func() string {
		data, _ := os.ReadFile(cfg.OutputPath())
		return string(data)
	}
	require.Eventually(t, func() bool {
		return strings.Contains(read(), "pub enum AVMediaType {")
	}, 10*time.Second, 20*time.Millisecond, "initial build")

	header := filepath.Join(cfg.NativeRoot, "include/libavutil/avutil.h")
	original, err := os.ReadFile(header)
	require.NoError(t, err)
	changed := append(original, []byte("\n#define AV_WATCH_PROBE 7\n")...)

	// rewrite until the watcher, which is added after the initial build, sees it
	require.Eventually(t, func() bool {
		if strings.Contains(read(), "pub const AV_WATCH_PROBE: libc::c_int = 7;") {
			return true
		}
		_ = os.WriteFile(header, changed, 0644)
		return false
	}, 10*time.Second, 100*time.Millisecond, "rebuild after header change")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_InvalidConfig(t *testing.T) {
	cfg := testdataConfig(t, "testdata")
	cfg.OutDir = ""

	err := Watch(context.Background(), cfg, rust.NewGenerator(), io.Discard)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}
