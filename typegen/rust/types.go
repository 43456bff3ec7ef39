package rust

import (
	"fmt"
	"strings"

	"github.com/teranos/avbindgen/typegen/cparse"
)

// ctypeMapping maps canonical C scalar names to the C type alias provided
// by the ctypes crate.
var ctypeMapping = map[string]string{
	"void":               "c_void",
	"char":               "c_char",
	"signed char":        "c_schar",
	"unsigned char":      "c_uchar",
	"short":              "c_short",
	"unsigned short":     "c_ushort",
	"int":                "c_int",
	"unsigned int":       "c_uint",
	"long":               "c_long",
	"unsigned long":      "c_ulong",
	"long long":          "c_longlong",
	"unsigned long long": "c_ulonglong",
}

// TypeMapping maps C scalars with a fixed width to Rust primitives
var TypeMapping = map[string]string{
	"float":             "f32",
	"double":            "f64",
	"long double":       "u128",
	"_Bool":             "bool",
	"bool":              "bool",
	"__int128":          "i128",
	"unsigned __int128": "u128",
	"int8_t":            "i8",
	"int16_t":           "i16",
	"int32_t":           "i32",
	"int64_t":           "i64",
	"uint8_t":           "u8",
	"uint16_t":          "u16",
	"uint32_t":          "u32",
	"uint64_t":          "u64",
}

// Rust keywords that need raw identifier prefix (r#)
var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "crate": true, "dyn": true, "else": true, "enum": true,
	"extern": true, "false": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "unsafe": true,
	"use": true, "where": true, "while": true, "yield": true,
	"abstract": true, "become": true, "box": true, "do": true, "final": true,
	"macro": true, "override": true, "priv": true, "try": true, "typeof": true,
	"unsized": true, "virtual": true,
}

// keywords that cannot be raw identifiers
var underscoreKeywords = map[string]bool{
	"self": true, "Self": true, "crate": true, "super": true, "_": true,
}

// toRustIdent converts an identifier to a valid Rust identifier
// Adds r# prefix for Rust keywords
func toRustIdent(s string) string {
	if underscoreKeywords[s] {
		return s + "_"
	}
	if rustKeywords[s] {
		return "r#" + s
	}
	return s
}

// typeWriter renders C types as Rust types.
type typeWriter struct {
	ctypes       string
	sizeTIsUsize bool
}

func (w typeWriter) ctype(name string) string {
	return w.ctypes + "::" + name
}

func (w typeWriter) scalar(name string) (string, bool) {
	if c, ok := ctypeMapping[name]; ok {
		return w.ctype(c), true
	}
	if r, ok := TypeMapping[name]; ok {
		return r, true
	}
	switch name {
	case "size_t":
		if w.sizeTIsUsize {
			return "usize", true
		}
		return w.ctype("size_t"), true
	case "__builtin_va_list":
		return "*mut " + w.ctype("c_void"), true
	}
	return "", false
}

func (w typeWriter) rustType(t cparse.Type) string {
	switch t.Kind {
	case cparse.KindPointer:
		if t.Elem.Kind == cparse.KindFunc {
			return w.fnPointer(t.Elem.Func)
		}
		if t.Elem.Const {
			return "*const " + w.rustType(*t.Elem)
		}
		return "*mut " + w.rustType(*t.Elem)
	case cparse.KindArray:
		n := t.Len
		if n < 0 {
			n = 0
		}
		return fmt.Sprintf("[%s; %d]", w.rustType(*t.Elem), n)
	case cparse.KindFunc:
		return w.fnPointer(t.Func)
	}
	if s, ok := w.scalar(t.Name); ok {
		return s
	}
	return toRustIdent(t.Name)
}

// params renders a parameter list; unnamed parameters become argN.
func (w typeWriter) params(fn *cparse.FuncType) string {
	parts := make([]string, 0, len(fn.Params)+1)
	for i, p := range fn.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i+1)
		}
		parts = append(parts, toRustIdent(name)+": "+w.rustType(p.Type))
	}
	if fn.Variadic {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

func (w typeWriter) returns(fn *cparse.FuncType) string {
	if fn.Return.IsVoid() {
		return ""
	}
	return " -> " + w.rustType(fn.Return)
}

func (w typeWriter) fnPointer(fn *cparse.FuncType) string {
	return fmt.Sprintf("::std::option::Option<unsafe extern \"C\" fn(%s)%s>", w.params(fn), w.returns(fn))
}

// isFloat reports whether t is a floating point scalar or an array of them.
func isFloat(t cparse.Type) bool {
	for t.Kind == cparse.KindArray {
		t = *t.Elem
	}
	return t.Kind == cparse.KindNamed && (t.Name == "float" || t.Name == "double")
}
