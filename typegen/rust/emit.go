package rust

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/teranos/avbindgen/typegen"
	"github.com/teranos/avbindgen/typegen/cparse"
)

// Banner is the first line of every generated file.
const Banner = "/* automatically generated by avbindgen */"

// emitter renders one scanned unit. It is single use.
type emitter struct {
	opts      typegen.Options
	callbacks typegen.ParseCallbacks
	types     typeWriter

	blockedFns   []*regexp.Regexp
	blockedTypes []*regexp.Regexp
	opaque       []*regexp.Regexp

	records map[string]*cparse.Record
	traits  map[string]traitSet
	model   dataModel
	layouts *layoutCalc

	sb  strings.Builder
	res *typegen.Result
}

// anchored compiles each pattern so that it must match a whole name.
func anchored(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func matchesAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (e *emitter) line(format string, args ...interface{}) {
	e.sb.WriteString(fmt.Sprintf(format, args...))
	e.sb.WriteByte('\n')
}

func (e *emitter) emitUnit(unit *cparse.Unit) {
	e.line("%s", Banner)
	e.line("")

	e.records = make(map[string]*cparse.Record)
	for _, d := range unit.Decls {
		if r, ok := d.(*cparse.Record); ok {
			e.records[r.Name] = r
		}
	}
	e.traits = make(map[string]traitSet)
	e.layouts = newLayoutCalc(e.model, unit)

	for _, m := range unit.Macros {
		e.emitMacro(m)
	}
	for _, d := range unit.Decls {
		switch d := d.(type) {
		case *cparse.Enum:
			e.emitEnum(d)
		case *cparse.Record:
			e.emitRecord(d)
		case *cparse.Typedef:
			e.emitTypedef(d)
		case *cparse.Function:
			e.emitFunction(d)
		case *cparse.Var:
			e.emitVar(d)
		}
	}
}

func (e *emitter) emitMacro(m cparse.Macro) {
	if e.callbacks.WillParseMacro(m.Name) == typegen.MacroIgnore {
		return
	}
	name := toRustIdent(m.Name)
	switch m.Kind {
	case cparse.MacroInt:
		kind := e.callbacks.IntMacro(m.Name, m.Int)
		if kind == nil {
			if m.Int < 0 || m.Int > math.MaxUint32 {
				e.res.DroppedMacros = append(e.res.DroppedMacros, m.Name)
				return
			}
			k := typegen.IntKind{Name: "u32", Bits: 32}
			kind = &k
		}
		if !kind.Holds(m.Int) {
			e.res.DroppedMacros = append(e.res.DroppedMacros, m.Name)
			e.res.Warnings = append(e.res.Warnings,
				fmt.Sprintf("%s: %d does not fit %s", m.Name, m.Int, kind.Name))
			return
		}
		e.line("pub const %s: %s = %s;", name, e.intType(*kind), kind.Literal(m.Int))
	case cparse.MacroFloat:
		e.line("pub const %s: f64 = %s;", name, formatFloat(m.Float))
	case cparse.MacroString:
		e.line("pub const %s: &[u8; %d] = b\"%s\\0\";", name, len(m.Str)+1, escapeBytes(m.Str))
	}
	e.res.Declarations++
}

func (e *emitter) intType(k typegen.IntKind) string {
	if k.CType != "" {
		return e.types.ctype(k.CType)
	}
	return k.Name
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func escapeBytes(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteString(fmt.Sprintf("\\x%02x", c))
		}
	}
	return sb.String()
}

func (e *emitter) blockedType(name string) bool {
	if matchesAny(e.blockedTypes, name) {
		e.res.Suppressed = append(e.res.Suppressed, name)
		return true
	}
	return false
}

// enumRepr picks the narrowest repr holding every value.
func enumRepr(values []int64) string {
	var lo, hi int64
	for i, v := range values {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	switch {
	case lo >= 0 && hi <= math.MaxUint32:
		return "u32"
	case typegen.FitsInt32(lo) && typegen.FitsInt32(hi):
		return "i32"
	case lo >= 0:
		return "u64"
	default:
		return "i64"
	}
}

func (e *emitter) enumCType(repr string) string {
	switch repr {
	case "u32":
		return e.types.ctype("c_uint")
	case "i32":
		return e.types.ctype("c_int")
	}
	return repr
}

func (e *emitter) constName(enum, variant string) string {
	if e.opts.PrependEnumName && enum != "" {
		return toRustIdent(enum + "_" + variant)
	}
	return toRustIdent(variant)
}

func (e *emitter) emitEnum(en *cparse.Enum) {
	if e.blockedType(en.Name) {
		return
	}
	enumName := en.Name
	if en.Anonymous {
		enumName = ""
	}

	var members, constants []cparse.Enumerator
	var values []int64
	for _, v := range en.Variants {
		switch e.callbacks.EnumVariantBehavior(enumName, v.Name, v.Value) {
		case typegen.VariantHide:
			continue
		case typegen.VariantConstify:
			e.res.Constified = append(e.res.Constified, v.Name)
			constants = append(constants, v)
		default:
			members = append(members, v)
		}
		values = append(values, v.Value)
	}
	repr := enumRepr(values)
	name := toRustIdent(en.Name)

	if en.Anonymous || e.opts.EnumStyle == typegen.EnumStyleConsts {
		e.line("pub type %s = %s;", name, e.enumCType(repr))
		for _, v := range en.Variants {
			if e.callbacks.EnumVariantBehavior(enumName, v.Name, v.Value) == typegen.VariantHide {
				continue
			}
			e.line("pub const %s: %s = %d;", e.constName(enumName, v.Name), name, v.Value)
			e.res.Declarations++
		}
		e.res.Declarations++
		return
	}

	// one member per value; later duplicates become aliases
	byValue := make(map[int64]string)
	var unique []cparse.Enumerator
	for _, v := range members {
		if _, dup := byValue[v.Value]; dup {
			constants = append(constants, v)
			continue
		}
		byValue[v.Value] = v.Name
		unique = append(unique, v)
	}

	if len(unique) == 0 {
		e.line("pub type %s = %s;", name, repr)
		for _, c := range constants {
			e.line("pub const %s: %s = %d;", e.constName(en.Name, c.Name), name, c.Value)
		}
		e.res.Declarations++
		return
	}

	e.line("#[repr(%s)]", repr)
	e.line("#[derive(Debug, Copy, Clone, Hash, PartialEq, Eq)]")
	e.line("pub enum %s {", name)
	for _, v := range unique {
		e.line("    %s = %d,", toRustIdent(v.Name), v.Value)
	}
	e.line("}")

	var aliases, loose []cparse.Enumerator
	for _, c := range constants {
		if _, ok := byValue[c.Value]; ok {
			aliases = append(aliases, c)
		} else {
			loose = append(loose, c)
		}
	}
	if len(aliases) > 0 {
		e.line("impl %s {", name)
		for _, c := range aliases {
			e.line("    pub const %s: %s = %s::%s;", toRustIdent(c.Name), name, name, toRustIdent(byValue[c.Value]))
		}
		e.line("}")
	}
	for _, c := range loose {
		e.line("pub const %s: %s = %d;", e.constName(en.Name, c.Name), repr, c.Value)
	}
	e.res.Declarations++
}

type traitSet struct {
	debug     bool
	partialEq bool
	eq        bool
}

// recordTraits decides which traits a record can derive from its fields.
func (e *emitter) recordTraits(r *cparse.Record, visiting map[string]bool) traitSet {
	if ts, ok := e.traits[r.Name]; ok {
		return ts
	}
	ts := traitSet{debug: true, partialEq: e.opts.DeriveEq, eq: e.opts.DeriveEq}
	if r.Opaque || r.Bitfields || e.isOpaque(r.Name) {
		e.traits[r.Name] = ts
		return ts
	}
	if r.Union {
		return traitSet{}
	}
	visiting[r.Name] = true
	for _, f := range r.Fields {
		t := f.Type
		for t.Kind == cparse.KindArray {
			t = *t.Elem
		}
		if isFloat(t) {
			ts.eq = false
		}
		if t.Kind != cparse.KindNamed {
			continue
		}
		inner, ok := e.records[t.Name]
		if !ok || visiting[t.Name] {
			continue
		}
		sub := e.recordTraits(inner, visiting)
		ts.debug = ts.debug && sub.debug
		ts.partialEq = ts.partialEq && sub.partialEq
		ts.eq = ts.eq && sub.eq
	}
	delete(visiting, r.Name)
	if !ts.partialEq {
		ts.eq = false
	}
	e.traits[r.Name] = ts
	return ts
}

func (ts traitSet) derives() string {
	d := []string{}
	if ts.debug {
		d = append(d, "Debug")
	}
	d = append(d, "Copy", "Clone")
	if ts.partialEq {
		d = append(d, "PartialEq")
	}
	if ts.eq {
		d = append(d, "Eq")
	}
	return strings.Join(d, ", ")
}

func (e *emitter) isOpaque(name string) bool {
	return matchesAny(e.opaque, name)
}

// emitOpaque renders name as a zero-sized handle, for types that are only
// ever used behind a pointer.
func (e *emitter) emitOpaque(name string) {
	ts := traitSet{debug: true, partialEq: e.opts.DeriveEq, eq: e.opts.DeriveEq}
	e.line("#[repr(C)]")
	e.line("#[derive(%s)]", ts.derives())
	e.line("pub struct %s {", toRustIdent(name))
	e.line("    _unused: [u8; 0],")
	e.line("}")
	e.res.Declarations++
}

// emitBlob renders name as a byte array with the C size and alignment in l,
// so records embedding it keep their field offsets.
func (e *emitter) emitBlob(name string, l layout) {
	ts := traitSet{debug: true, partialEq: e.opts.DeriveEq, eq: e.opts.DeriveEq}
	if l.align > 1 {
		e.line("#[repr(C, align(%d))]", l.align)
	} else {
		e.line("#[repr(C)]")
	}
	e.line("#[derive(%s)]", ts.derives())
	e.line("pub struct %s {", toRustIdent(name))
	e.line("    pub _opaque_blob: [u8; %d],", l.size)
	e.line("}")
	e.res.Declarations++
}

func (e *emitter) emitSized(name string, l layout, ok bool) {
	if !ok {
		e.res.Warnings = append(e.res.Warnings,
			fmt.Sprintf("%s: layout unknown, emitted as a zero-sized opaque type", name))
		e.emitOpaque(name)
		return
	}
	e.emitBlob(name, l)
}

func (e *emitter) emitRecord(r *cparse.Record) {
	if e.blockedType(r.Name) {
		return
	}
	if r.Opaque {
		e.emitOpaque(r.Name)
		return
	}
	if e.isOpaque(r.Name) || r.Bitfields {
		if r.Bitfields && !e.isOpaque(r.Name) {
			e.res.Warnings = append(e.res.Warnings,
				fmt.Sprintf("%s: bitfields flattened into an opaque blob", r.Name))
		}
		l, ok := e.layouts.record(r)
		e.emitSized(r.Name, l, ok)
		return
	}

	e.line("#[repr(C)]")
	keyword := "struct"
	if r.Union {
		keyword = "union"
		e.line("#[derive(Copy, Clone)]")
	} else {
		e.line("#[derive(%s)]", e.recordTraits(r, map[string]bool{}).derives())
	}
	e.line("pub %s %s {", keyword, toRustIdent(r.Name))
	for _, f := range r.Fields {
		e.line("    pub %s: %s,", toRustIdent(f.Name), e.types.rustType(f.Type))
	}
	e.line("}")
	e.res.Declarations++
}

func (e *emitter) emitTypedef(td *cparse.Typedef) {
	if e.blockedType(td.Name) {
		return
	}
	if e.isOpaque(td.Name) {
		l, ok := e.layouts.of(td.Type)
		e.emitSized(td.Name, l, ok)
		return
	}
	e.line("pub type %s = %s;", toRustIdent(td.Name), e.types.rustType(td.Type))
	e.res.Declarations++
}

func (e *emitter) emitFunction(fn *cparse.Function) {
	if matchesAny(e.blockedFns, fn.Name) {
		e.res.Suppressed = append(e.res.Suppressed, fn.Name)
		return
	}
	e.line("extern \"C\" {")
	e.line("    pub fn %s(%s)%s;", toRustIdent(fn.Name), e.types.params(&fn.Sig), e.types.returns(&fn.Sig))
	e.line("}")
	e.res.Declarations++
}

func (e *emitter) emitVar(v *cparse.Var) {
	mut := "mut "
	if v.Type.Const {
		mut = ""
	}
	e.line("extern \"C\" {")
	e.line("    pub static %s%s: %s;", mut, toRustIdent(v.Name), e.types.rustType(v.Type))
	e.line("}")
	e.res.Declarations++
}
