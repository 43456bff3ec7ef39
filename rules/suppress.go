package rules

import (
	"regexp"

	"github.com/teranos/avbindgen/typegen"
)

// longDoubleFunctions take or return long double (or its buffers), which
// has no stable Rust counterpart on the target.
var longDoubleFunctions = []string{
	"acoshl", "acosl", "asinhl", "asinl", "atan2l", "atanhl", "atanl",
	"cbrtl", "ceill", "copysignl", "coshl", "cosl", "dreml", "ecvt_r",
	"erfcl", "erfl", "exp2l", "expl", "expm1l", "fabsl", "fcvt_r",
	"fdiml", "finitel", "floorl", "fmal", "fmaxl", "fminl", "fmodl",
	"frexpl", "gammal", "hypotl", "ilogbl", "isinfl", "isnanl", "j0l",
	"j1l", "jnl", "ldexpl", "lgammal", "lgammal_r", "llrintl", "llroundl",
	"log10l", "log1pl", "log2l", "logbl", "logl", "lrintl", "lroundl",
	"modfl", "nanl", "nearbyintl", "nextafterl", "nexttoward",
	"nexttowardf", "nexttowardl", "powl", "qecvt", "qecvt_r", "qfcvt",
	"qfcvt_r", "qgcvt", "remainderl", "remquol", "rintl", "roundl",
	"scalbl", "scalblnl", "scalbnl", "significandl", "sinhl", "sinl",
	"sqrtl", "strtold", "tanhl", "tanl", "tgammal", "truncl", "y0l",
	"y1l", "ynl",
}

// Suppressions are the declarations left out of the artifact.
type Suppressions struct {
	// Functions are exact function names
	Functions []string
	// FunctionPatterns are regular expressions matched against whole names
	FunctionPatterns []string
	// Types are blocklisted type names
	Types []string
	// Opaque types keep their name but lose their layout
	Opaque []string
}

// DefaultSuppressions returns the suppression set for the multimedia headers.
func DefaultSuppressions() Suppressions {
	return Suppressions{
		Functions:        append([]string(nil), longDoubleFunctions...),
		FunctionPatterns: []string{"_.*"},
		Types:            []string{"max_align_t"},
		Opaque:           []string{"__mingw_ldbl_type_t"},
	}
}

// Apply appends the suppressions to opts. Exact names are quoted so that
// the engine's pattern matching treats them literally.
func (s Suppressions) Apply(opts *typegen.Options) {
	opts.BlocklistFunctions = append(opts.BlocklistFunctions, s.FunctionPatterns...)
	for _, fn := range s.Functions {
		opts.BlocklistFunctions = append(opts.BlocklistFunctions, regexp.QuoteMeta(fn))
	}
	opts.BlocklistTypes = append(opts.BlocklistTypes, s.Types...)
	opts.OpaqueTypes = append(opts.OpaqueTypes, s.Opaque...)
}

// SuppressesFunction reports whether a function named name is left out,
// and by which entry.
func (s Suppressions) SuppressesFunction(name string) (string, bool) {
	for _, fn := range s.Functions {
		if fn == name {
			return fn, true
		}
	}
	for _, p := range s.FunctionPatterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			continue
		}
		if re.MatchString(name) {
			return p, true
		}
	}
	return "", false
}

// SuppressesType reports whether a type is blocklisted or made opaque.
func (s Suppressions) SuppressesType(name string) (reason string, ok bool) {
	for _, t := range s.Types {
		if t == name {
			return "blocklisted", true
		}
	}
	for _, t := range s.Opaque {
		if t == name {
			return "opaque", true
		}
	}
	return "", false
}
