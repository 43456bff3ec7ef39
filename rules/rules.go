// Package rules holds the translation policy for the multimedia headers:
// which macros are skipped, which integer kind each macro constant gets,
// which enum sentinels become constants, and which declarations are
// suppressed outright.
package rules

import (
	"strings"

	"github.com/teranos/avbindgen/typegen"
)

// Macro name prefixes with a fixed integer kind.
const (
	ChannelLayoutPrefix = "AV_CH_"
	CodecCapPrefix      = "AV_CODEC_CAP_"
	CodecFlagPrefix     = "AV_CODEC_FLAG_"
	ErrorMaxStringSize  = "AV_ERROR_MAX_STRING_SIZE"

	// SentinelCodecIDPrefix marks AVCodecID range markers that share a value
	// with a real codec id.
	SentinelCodecIDPrefix = "AV_CODEC_ID_FIRST_"
)

// ignoredMacros are defined both as macros and as enumerators by the C
// library's math.h; translating both yields duplicate definitions.
var ignoredMacros = map[string]bool{
	"FP_INFINITE":  true,
	"FP_NAN":       true,
	"FP_NORMAL":    true,
	"FP_SUBNORMAL": true,
	"FP_ZERO":      true,
}

// Callbacks implements typegen.ParseCallbacks. It is stateless.
type Callbacks struct{}

var _ typegen.ParseCallbacks = Callbacks{}

// WillParseMacro skips the FP_* classification macros.
func (Callbacks) WillParseMacro(name string) typegen.MacroParsingBehavior {
	if ignoredMacros[name] {
		return typegen.MacroIgnore
	}
	return typegen.MacroDefault
}

// IntMacro picks the integer kind of a macro constant. The first matching
// rule wins:
//
//	AV_CH_*                            -> unsigned long long
//	AV_CODEC_CAP_*, AV_CODEC_FLAG_*    -> unsigned int (value must fit int32)
//	AV_ERROR_MAX_STRING_SIZE           -> usize
//	any value fitting int32            -> int
//
// Anything else gets no override and falls back to the engine default.
func (Callbacks) IntMacro(name string, value int64) *typegen.IntKind {
	// every int64 is within int64 range, so the layout rule is prefix-only
	if strings.HasPrefix(name, ChannelLayoutPrefix) {
		return kind(typegen.ULongLong)
	}
	if typegen.FitsInt32(value) &&
		(strings.HasPrefix(name, CodecCapPrefix) || strings.HasPrefix(name, CodecFlagPrefix)) {
		return kind(typegen.UInt)
	}
	if name == ErrorMaxStringSize {
		return kind(typegen.Custom("usize", false))
	}
	if typegen.FitsInt32(value) {
		return kind(typegen.Int)
	}
	return nil
}

// EnumVariantBehavior turns AV_CODEC_ID_FIRST_* sentinels into constants.
// Only the variant name is consulted.
func (Callbacks) EnumVariantBehavior(_, variantName string, _ int64) typegen.EnumVariantBehavior {
	if strings.HasPrefix(variantName, SentinelCodecIDPrefix) {
		return typegen.VariantConstify
	}
	return typegen.VariantDefault
}

func kind(k typegen.IntKind) *typegen.IntKind {
	return &k
}
