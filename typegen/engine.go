// Package typegen defines the contract between avbindgen and a header
// translation engine: what the engine is asked to translate, the options
// that normalize its output, and the callbacks it consults while parsing.
package typegen

import (
	"fmt"
	"math"
	"strconv"

	"github.com/teranos/avbindgen/errors"
)

// ErrNoDeclarations is returned when a translation run yields nothing at all.
var ErrNoDeclarations = errors.Mark(errors.New("translation produced no declarations"), errors.ErrTranslation)

// Engine turns a set of C headers into host-language declarations.
type Engine interface {
	Translate(req Request) (*Result, error)
}

// Request is everything an engine needs for one run.
type Request struct {
	// Headers are absolute header paths, translated in order
	Headers   []string
	// ClangArgs are compiler flags (-I, -D, --sysroot=, ...)
	ClangArgs []string
	// Options normalize the generated declarations
	Options   Options
	// Callbacks override per-macro and per-variant decisions; nil means defaults
	Callbacks ParseCallbacks
}

// EnumStyle selects how C enums are represented.
type EnumStyle int

const (
	// EnumStyleRustified emits a #[repr] Rust enum per C enum
	EnumStyleRustified EnumStyle = iota
	// EnumStyleConsts emits a type alias plus one constant per enumerator
	EnumStyleConsts
)

func (s EnumStyle) String() string {
	switch s {
	case EnumStyleRustified:
		return "rustified"
	case EnumStyleConsts:
		return "consts"
	default:
		return fmt.Sprintf("EnumStyle(%d)", int(s))
	}
}

// Options are the global normalization switches of a translation run.
type Options struct {
	EnumStyle       EnumStyle
	PrependEnumName bool
	DeriveEq        bool
	SizeTIsUsize    bool
	// CTypesPrefix is the crate providing C scalar types; empty means ::std::os::raw
	CTypesPrefix    string

	// BlocklistFunctions are regular expressions matched against the whole function name
	BlocklistFunctions []string
	// BlocklistTypes are regular expressions matched against the whole type name
	BlocklistTypes     []string
	// OpaqueTypes are emitted as opaque blobs instead of structurally
	OpaqueTypes        []string
}

// MacroParsingBehavior decides whether a macro takes part in translation.
type MacroParsingBehavior int

const (
	MacroDefault MacroParsingBehavior = iota
	MacroIgnore
)

// EnumVariantBehavior decides how one enumerator is emitted.
type EnumVariantBehavior int

const (
	// VariantDefault keeps the enumerator as a member of its enum
	VariantDefault EnumVariantBehavior = iota
	// VariantConstify emits the enumerator as a named constant instead
	VariantConstify
	// VariantHide drops the enumerator
	VariantHide
)

func (b EnumVariantBehavior) String() string {
	switch b {
	case VariantDefault:
		return "default"
	case VariantConstify:
		return "constify"
	case VariantHide:
		return "hide"
	default:
		return fmt.Sprintf("EnumVariantBehavior(%d)", int(b))
	}
}

// ParseCallbacks are consulted by the engine while it parses headers.
type ParseCallbacks interface {
	WillParseMacro(name string) MacroParsingBehavior
	IntMacro(name string, value int64) *IntKind
	EnumVariantBehavior(enumName, variantName string, value int64) EnumVariantBehavior
}

// IntKind is the integer representation chosen for an integer macro.
type IntKind struct {
	// Name is the fixed-width host type, e.g. "i32", "u64" or "usize"
	Name   string
	// CType is the C scalar the kind stands for ("c_int"); empty for custom kinds
	CType  string
	Signed bool
	// Bits is the width; 0 means pointer-sized
	Bits   int
}

// Integer kinds used by the translation rules.
var (
	Int       = IntKind{Name: "i32", CType: "c_int", Signed: true, Bits: 32}
	UInt      = IntKind{Name: "u32", CType: "c_uint", Signed: false, Bits: 32}
	LongLong  = IntKind{Name: "i64", CType: "c_longlong", Signed: true, Bits: 64}
	ULongLong = IntKind{Name: "u64", CType: "c_ulonglong", Signed: false, Bits: 64}
)

// Custom returns a named integer kind such as usize.
func Custom(name string, signed bool) IntKind {
	return IntKind{Name: name, Signed: signed}
}

func (k IntKind) String() string {
	return k.Name
}

// Literal renders value as an integer literal of kind k, reinterpreting
// the bits for unsigned kinds the way a C cast would.
func (k IntKind) Literal(value int64) string {
	if k.Signed {
		if k.Bits == 32 {
			return strconv.FormatInt(int64(int32(value)), 10)
		}
		return strconv.FormatInt(value, 10)
	}
	if k.Bits == 32 {
		return strconv.FormatUint(uint64(uint32(value)), 10)
	}
	return strconv.FormatUint(uint64(value), 10)
}

// Holds reports whether value is representable in k on every target.
// Fixed-width kinds reinterpret the bits like a C cast and always hold;
// pointer-sized kinds must fit 32 bits.
func (k IntKind) Holds(value int64) bool {
	if k.Bits != 0 {
		return true
	}
	if k.Signed {
		return FitsInt32(value)
	}
	return value >= 0 && value <= math.MaxUint32
}

// FitsInt32 reports whether v is representable as a 32-bit signed integer.
func FitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// DefaultCallbacks applies no overrides.
type DefaultCallbacks struct{}

func (DefaultCallbacks) WillParseMacro(string) MacroParsingBehavior { return MacroDefault }
func (DefaultCallbacks) IntMacro(string, int64) *IntKind             { return nil }
func (DefaultCallbacks) EnumVariantBehavior(string, string, int64) EnumVariantBehavior {
	return VariantDefault
}
