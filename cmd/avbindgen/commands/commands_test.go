package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/avbindgen/buildenv"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/typegen"
)

func TestExplainMacro(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		want  string
	}{
		{"AV_CH_FRONT_LEFT", 1, "AV_CH_FRONT_LEFT: libc::c_ulonglong = 1"},
		{"AV_CH_LAYOUT_NATIVE", -9223372036854775808, "AV_CH_LAYOUT_NATIVE: libc::c_ulonglong = 9223372036854775808"},
		{"AV_CODEC_FLAG_GLOBAL_HEADER", 1 << 22, "AV_CODEC_FLAG_GLOBAL_HEADER: libc::c_uint = 4194304"},
		{"AV_CODEC_FLAG_CLOSED_GOP", 1 << 31, "AV_CODEC_FLAG_CLOSED_GOP: u32 = 2147483648 (default)"},
		{"AV_ERROR_MAX_STRING_SIZE", 64, "AV_ERROR_MAX_STRING_SIZE: usize = 64"},
		{"AV_ERROR_MAX_STRING_SIZE", -1, "AV_ERROR_MAX_STRING_SIZE: dropped, -1 does not fit usize"},
		{"AV_LOG_QUIET", -8, "AV_LOG_QUIET: libc::c_int = -8"},
		{"FP_NAN", 0, "FP_NAN: ignored"},
		{"AV_NOPTS_VALUE", -9223372036854775808, "AV_NOPTS_VALUE: dropped, no integer kind holds -9223372036854775808"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, explainMacro(tt.name, tt.value))
		})
	}
}

func TestParseMacroValue(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"-8", -8},
		{"0x400000", 1 << 22},
		{"0x8000000000000000", -9223372036854775808},
		{"010", 8},
	}
	for _, tt := range tests {
		got, err := parseMacroValue(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseMacroValue("1<<22")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "0x hex")
}

func TestExplainVariant(t *testing.T) {
	assert.Equal(t, "AV_CODEC_ID_FIRST_AUDIO: constify", explainVariant("AV_CODEC_ID_FIRST_AUDIO"))
	assert.Equal(t, "AV_CODEC_ID_H264: default", explainVariant("AV_CODEC_ID_H264"))
}

func TestExplainSuppressed(t *testing.T) {
	assert.Equal(t, "sqrtl: function suppressed", explainSuppressed("sqrtl"))
	assert.Equal(t, "__fpclassifyl: function suppressed by pattern _.*", explainSuppressed("__fpclassifyl"))
	assert.Equal(t, "max_align_t: type blocklisted", explainSuppressed("max_align_t"))
	assert.Equal(t, "__mingw_ldbl_type_t: type opaque", explainSuppressed("__mingw_ldbl_type_t"))
	assert.Equal(t, "av_malloc: not suppressed", explainSuppressed("av_malloc"))
}

func TestReportCheck(t *testing.T) {
	t.Run("up to date", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, reportCheck(&buf, "/out/bindings.rs", &typegen.CheckResult{UpToDate: true}))
		assert.Equal(t, "✓ /out/bindings.rs is up to date\n", buf.String())
	})

	t.Run("missing", func(t *testing.T) {
		var buf bytes.Buffer
		err := reportCheck(&buf, "/out/bindings.rs", &typegen.CheckResult{Missing: true})
		require.Error(t, err)
		assert.Contains(t, buf.String(), "does not exist")
		assert.Contains(t, errors.FlattenHints(err), "avbindgen generate")
	})

	t.Run("out of date", func(t *testing.T) {
		var buf bytes.Buffer
		err := reportCheck(&buf, "/out/bindings.rs", &typegen.CheckResult{
			Differences: []string{`line 3: -"a" +"b"`},
		})
		require.Error(t, err)
		assert.Contains(t, buf.String(), "is out of date:\n")
		assert.Contains(t, buf.String(), `  line 3: -"a" +"b"`)
	})
}

func TestHeaderRows(t *testing.T) {
	native := t.TempDir()
	emsdk := t.TempDir()
	present := filepath.Join(native, "include", "libavutil", "avutil.h")
	require.NoError(t, os.MkdirAll(filepath.Dir(present), 0755))
	require.NoError(t, os.WriteFile(present, []byte("/* avutil */\n"), 0644))

	cfg := &buildenv.Config{
		NativeRoot:     native,
		ToolchainRoot:  emsdk,
		PlatformHeader: "emscripten.h",
		Features:       map[string]bool{"avformat": true},
	}
	rows, missing := headerRows(cfg)

	require.Len(t, rows, 1+1+2+52)
	assert.Equal(t, []string{"Group", "Header", "Path", "Status"}, rows[0])
	assert.Equal(t, "platform", rows[1][0])
	assert.Equal(t, "missing", rows[1][3])
	assert.Equal(t, []string{"avformat", "libavformat/avformat.h"}, rows[2][:2])
	assert.Equal(t, "avutil", rows[len(rows)-1][0])

	var found []string
	for _, row := range rows[1:] {
		if row[3] == "found" {
			found = append(found, row[2])
		}
	}
	assert.Contains(t, found, present)
	assert.Equal(t, len(rows)-1-len(found), missing)
}

func TestRootCmd_ConfigShow(t *testing.T) {
	t.Setenv("FFMPEG_DIR", "/opt/ffmpeg")
	t.Setenv("EMSDK", "/opt/emsdk")
	t.Setenv("CARGO_MANIFEST_DIR", t.TempDir())
	t.Setenv("OUT_DIR", "/tmp/out")

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"config", "show"})
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetArgs(nil)
	})

	require.NoError(t, RootCmd.Execute())
	assert.Contains(t, out.String(), "# avbindgen configuration\n")
	assert.Contains(t, out.String(), "/opt/ffmpeg")
	assert.Contains(t, out.String(), "bindings.rs")
}

func TestRootCmd_RulesMacro(t *testing.T) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"rules", "macro", "AV_CODEC_CAP_DR1", "0x2"})
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetArgs(nil)
	})

	require.NoError(t, RootCmd.Execute())
	assert.Equal(t, "AV_CODEC_CAP_DR1: libc::c_uint = 2\n", out.String())
}

func TestRootCmd_Headers(t *testing.T) {
	t.Setenv("FFMPEG_DIR", t.TempDir())
	t.Setenv("EMSDK", t.TempDir())
	t.Setenv("CARGO_MANIFEST_DIR", t.TempDir())
	t.Setenv("OUT_DIR", t.TempDir())
	t.Setenv("AVBINDGEN_PLATFORM_HEADER", "avbindgen_no_such_platform.h")

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"headers"})
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetArgs(nil)
	})

	require.NoError(t, RootCmd.Execute())
	assert.Contains(t, out.String(), "libavutil/avutil.h")
	assert.Contains(t, out.String(), "avbindgen_no_such_platform.h")
	assert.Contains(t, out.String(), "headers are missing", "status line goes to the command output")
}
