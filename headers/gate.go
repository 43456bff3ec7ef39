package headers

import (
	"sort"
	"strings"
)

// Capability names an optional component of the native library suite.
// The set is closed; see AllCapabilities.
type Capability string

const (
	AVCodec    Capability = "avcodec"
	AVDevice   Capability = "avdevice"
	AVFilter   Capability = "avfilter"
	AVFormat   Capability = "avformat"
	AVResample Capability = "avresample"
	AVUtil     Capability = "avutil"
	PostProc   Capability = "postproc"
	SWResample Capability = "swresample"
	SWScale    Capability = "swscale"
	LibDRM     Capability = "lib_drm"
	Serde      Capability = "serde"
)

// AllCapabilities lists every known capability in a fixed order.
var AllCapabilities = []Capability{
	AVCodec, AVDevice, AVFilter, AVFormat, AVResample, AVUtil,
	PostProc, SWResample, SWScale, LibDRM, Serde,
}

// EnvName returns the build-tool variable announcing the capability,
// e.g. CARGO_FEATURE_AVCODEC.
func (c Capability) EnvName() string {
	return "CARGO_FEATURE_" + strings.ToUpper(string(c))
}

// Flags is the set of enabled capabilities for one run.
type Flags map[Capability]bool

// NewFlags builds a Flags set from capability names. Unknown names are kept;
// they select nothing.
func NewFlags(caps ...Capability) Flags {
	f := make(Flags, len(caps))
	for _, c := range caps {
		f[c] = true
	}
	return f
}

// Enabled reports whether c is in the set.
func (f Flags) Enabled(c Capability) bool {
	return f[c]
}

// Names returns the enabled capability names, sorted.
func (f Flags) Names() []string {
	names := make([]string, 0, len(f))
	for c, on := range f {
		if on {
			names = append(names, string(c))
		}
	}
	sort.Strings(names)
	return names
}

// Group is a named list of header requests that are selected together.
type Group struct {
	Name    string
	Headers []string
}

// BaseGroup holds the utility headers every consumer needs. It is always
// selected, and always last.
var BaseGroup = Group{
	Name: "avutil",
	Headers: []string{
		"libavutil/adler32.h",
		"libavutil/aes.h",
		"libavutil/audio_fifo.h",
		"libavutil/base64.h",
		"libavutil/blowfish.h",
		"libavutil/bprint.h",
		"libavutil/buffer.h",
		"libavutil/camellia.h",
		"libavutil/cast5.h",
		"libavutil/channel_layout.h",
		"libavutil/cpu.h",
		"libavutil/crc.h",
		"libavutil/dict.h",
		"libavutil/display.h",
		"libavutil/downmix_info.h",
		"libavutil/error.h",
		"libavutil/eval.h",
		"libavutil/fifo.h",
		"libavutil/file.h",
		"libavutil/frame.h",
		"libavutil/hash.h",
		"libavutil/hmac.h",
		"libavutil/imgutils.h",
		"libavutil/lfg.h",
		"libavutil/log.h",
		"libavutil/lzo.h",
		"libavutil/macros.h",
		"libavutil/mathematics.h",
		"libavutil/md5.h",
		"libavutil/mem.h",
		"libavutil/motion_vector.h",
		"libavutil/murmur3.h",
		"libavutil/opt.h",
		"libavutil/parseutils.h",
		"libavutil/pixdesc.h",
		"libavutil/pixfmt.h",
		"libavutil/random_seed.h",
		"libavutil/rational.h",
		"libavutil/replaygain.h",
		"libavutil/ripemd.h",
		"libavutil/samplefmt.h",
		"libavutil/sha.h",
		"libavutil/sha512.h",
		"libavutil/stereo3d.h",
		"libavutil/avstring.h",
		"libavutil/threadmessage.h",
		"libavutil/time.h",
		"libavutil/timecode.h",
		"libavutil/twofish.h",
		"libavutil/avutil.h",
		"libavutil/xtea.h",
		"libavutil/hwcontext.h",
	},
}

// optionalGroups maps each capability to its header groups. Slice order is
// the selection order.
var optionalGroups = []struct {
	capability Capability
	groups     []Group
}{
	{AVCodec, []Group{{Name: "avcodec", Headers: []string{
		"libavcodec/avcodec.h",
		"libavcodec/dv_profile.h",
		"libavcodec/avfft.h",
		"libavcodec/vaapi.h",
		"libavcodec/vorbis_parser.h",
	}}}},
	{AVDevice, []Group{{Name: "avdevice", Headers: []string{
		"libavdevice/avdevice.h",
	}}}},
	{AVFilter, []Group{{Name: "avfilter", Headers: []string{
		"libavfilter/buffersink.h",
		"libavfilter/buffersrc.h",
		"libavfilter/avfilter.h",
	}}}},
	{AVFormat, []Group{{Name: "avformat", Headers: []string{
		"libavformat/avformat.h",
		"libavformat/avio.h",
	}}}},
	{AVResample, []Group{{Name: "avresample", Headers: []string{
		"libavresample/avresample.h",
	}}}},
	{PostProc, []Group{{Name: "postproc", Headers: []string{
		"libpostproc/postprocess.h",
	}}}},
	{SWResample, []Group{{Name: "swresample", Headers: []string{
		"libswresample/swresample.h",
	}}}},
	{SWScale, []Group{{Name: "swscale", Headers: []string{
		"libswscale/swscale.h",
	}}}},
	{LibDRM, []Group{{Name: "lib_drm", Headers: []string{
		"libavutil/hwcontext_drm.h",
	}}}},
}

// Select returns the header groups to translate for flags: the groups of
// every enabled optional capability in fixed order, followed by BaseGroup.
func Select(flags Flags) []Group {
	selected := make([]Group, 0, len(optionalGroups)+1)
	for _, og := range optionalGroups {
		if !flags.Enabled(og.capability) {
			continue
		}
		selected = append(selected, og.groups...)
	}
	return append(selected, BaseGroup)
}

// GroupsFor returns the groups a single capability contributes. avutil and
// serde contribute none of their own.
func GroupsFor(c Capability) []Group {
	for _, og := range optionalGroups {
		if og.capability == c {
			return og.groups
		}
	}
	return nil
}

// Flatten concatenates the headers of groups in order.
func Flatten(groups []Group) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Headers...)
	}
	return out
}
