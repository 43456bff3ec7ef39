package cparse

import (
	"fmt"
	"strings"

	"github.com/teranos/avbindgen/errors"
)

// attribute-like words dropped before parsing; ffmpeg's own attribute
// macros are listed for headers read without libavutil/attributes.h
var droppedWords = map[string]bool{
	"__extension__": true, "__restrict": true, "__restrict__": true, "restrict": true,
	"__inline": true, "__inline__": true, "inline": true, "_Noreturn": true,
	"_Nullable": true, "_Nonnull": true, "_Null_unspecified": true,
	"__nullable": true, "__nonnull": true,
	"attribute_deprecated": true, "attribute_align_arg": true,
	"av_warn_unused_result": true, "av_const": true, "av_pure": true,
	"av_malloc_attrib": true, "av_cold": true, "av_always_inline": true, "av_extern_inline": true,
	"av_noinline": true, "av_noreturn": true, "av_flatten": true,
	"av_unused": true, "av_used": true,
}

// words dropped together with their parenthesized argument list
var droppedCalls = map[string]bool{
	"__attribute__": true, "__attribute": true, "__declspec": true,
	"__asm__": true, "__asm": true, "asm": true,
	"_Alignas": true, "alignas": true,
	"av_printf_format": true, "av_alloc_size": true,
}

var renamedWords = map[string]string{
	"__const":      "const",
	"__const__":    "const",
	"__signed":     "signed",
	"__signed__":   "signed",
	"__volatile":   "volatile",
	"__volatile__": "volatile",
}

var builtinWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "_Complex": true, "__int128": true,
}

var storageWords = map[string]bool{
	"typedef": true, "extern": true, "static": true, "register": true,
	"auto": true, "_Thread_local": true, "__thread": true,
}

func stripAttributes(toks []token) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind == tokIdent {
			if droppedWords[t.text] {
				continue
			}
			if droppedCalls[t.text] {
				if i+1 < len(toks) && toks[i+1].is("(") {
					if _, end, ok := collectArgs(toks, i+1); ok {
						i = end
					}
				}
				continue
			}
			if r, ok := renamedWords[t.text]; ok {
				t.text = r
			}
		}
		out = append(out, t)
	}
	return out
}

func matchingIndex(toks []token, open int) int {
	closer := map[string]string{"(": ")", "[": "]", "{": "}"}[toks[open].text]
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].is(toks[open].text):
			depth++
		case toks[i].is(closer):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks) - 1
}

// splitStatements cuts the token stream at top-level semicolons and drops
// function bodies.
func splitStatements(toks []token) [][]token {
	var stmts [][]token
	var cur []token
	depth := 0
	externC := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if depth == 0 && t.is("{") {
			switch {
			case len(cur) == 2 && cur[0].isIdent("extern") && cur[1].kind == tokString:
				externC++
				cur = nil
				continue
			case len(cur) > 0 && cur[len(cur)-1].is(")") && !containsPunct(cur, "="):
				i = matchingIndex(toks, i)
				cur = nil
				continue
			}
		}
		if depth == 0 && t.is("}") && externC > 0 {
			externC--
			continue
		}
		switch {
		case t.is("{") || t.is("(") || t.is("["):
			depth++
		case t.is("}") || t.is(")") || t.is("]"):
			depth--
		}
		if depth == 0 && t.is(";") {
			if len(cur) > 0 {
				stmts = append(stmts, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return stmts
}

func containsPunct(toks []token, p string) bool {
	for _, t := range toks {
		if t.is(p) {
			return true
		}
	}
	return false
}

type stmtReader struct {
	toks []token
	pos  int
}

func (s *stmtReader) done() bool { return s.pos >= len(s.toks) }

func (s *stmtReader) peek() token {
	if s.done() {
		return token{kind: tokPunct}
	}
	return s.toks[s.pos]
}

func (s *stmtReader) peekAt(n int) token {
	if s.pos+n >= len(s.toks) {
		return token{kind: tokPunct}
	}
	return s.toks[s.pos+n]
}

func (s *stmtReader) accept(p string) bool {
	if s.peek().is(p) {
		s.pos++
		return true
	}
	return false
}

func (s *stmtReader) expect(p string) error {
	if !s.accept(p) {
		return errors.Newf("expected %q, found %q", p, s.peek().text)
	}
	return nil
}

// skipTo advances to the next top-level occurrence of one of stops.
func (s *stmtReader) skipTo(stops ...string) {
	for !s.done() {
		t := s.peek()
		for _, stop := range stops {
			if t.is(stop) {
				return
			}
		}
		if t.is("(") || t.is("[") || t.is("{") {
			s.pos = matchingIndex(s.toks, s.pos) + 1
			continue
		}
		s.pos++
	}
}

type declSpec struct {
	typ     Type
	typedef bool
	extern  bool
	static  bool
}

type parser struct {
	decls       []Decl
	seen        map[string]bool
	records     map[string]bool
	forward     []*Record
	enumerators map[string]int64
	typedefs    map[string]bool
	skipped     []string
	anon        int
}

func newParser() *parser {
	return &parser{
		seen:        make(map[string]bool),
		records:     make(map[string]bool),
		enumerators: make(map[string]int64),
		typedefs:    make(map[string]bool),
	}
}

func (p *parser) add(kind string, d Decl) {
	key := kind + ":" + d.DeclName()
	if p.seen[key] {
		return
	}
	p.seen[key] = true
	p.decls = append(p.decls, d)
}

func (p *parser) lookupEnumerator(name string) (int64, bool) {
	v, ok := p.enumerators[name]
	return v, ok
}

func (p *parser) parse(toks []token) {
	for _, stmt := range splitStatements(stripAttributes(toks)) {
		if stmt[0].isIdent("_Static_assert") || stmt[0].isIdent("static_assert") {
			continue
		}
		if err := p.statement(&stmtReader{toks: stmt}); err != nil {
			p.skipped = append(p.skipped, fmt.Sprintf("%s: %v", summarize(stmt), err))
		}
	}
	for _, r := range p.forward {
		if !p.records[r.Name] {
			p.records[r.Name] = true
			p.add("record", r)
		}
	}
}

func summarize(stmt []token) string {
	if len(stmt) > 8 {
		stmt = stmt[:8]
	}
	return joinTokens(stmt)
}

func (p *parser) statement(s *stmtReader) error {
	spec, err := p.specifiers(s, "", nil)
	if err != nil {
		return err
	}
	if s.done() {
		return nil
	}
	for {
		name, t, err := p.declarator(s, spec.typ)
		if err != nil {
			return err
		}
		if s.accept("=") {
			s.skipTo(",")
		}
		p.declare(spec, name, t)
		if s.done() {
			return nil
		}
		if err := s.expect(","); err != nil {
			return err
		}
	}
}

func (p *parser) declare(spec declSpec, name string, t Type) {
	if name == "" {
		return
	}
	switch {
	case spec.typedef:
		if IsBuiltinName(name) {
			return
		}
		if t.Kind == KindNamed && t.Tag != "" && t.Name == name {
			return
		}
		p.typedefs[name] = true
		p.add("typedef", &Typedef{Name: name, Type: t})
	case spec.static:
	case t.Kind == KindFunc:
		p.add("fn", &Function{Name: name, Sig: *t.Func})
	default:
		p.add("var", &Var{Name: name, Type: t})
	}
}

// specifiers parses declaration specifiers. anonName supplies names for
// anonymous aggregates; typedefName is the name an anonymous typedef'd
// aggregate takes.
func (p *parser) specifiers(s *stmtReader, typedefHint string, anonName func() string) (declSpec, error) {
	var spec declSpec
	var words []string
	var typ *Type
	isConst := false

loop:
	for !s.done() {
		t := s.peek()
		if t.kind != tokIdent {
			break
		}
		switch {
		case storageWords[t.text]:
			switch t.text {
			case "typedef":
				spec.typedef = true
			case "extern":
				spec.extern = true
				if s.peekAt(1).kind == tokString {
					s.pos++
				}
			case "static":
				spec.static = true
			}
			s.pos++
		case t.text == "const":
			isConst = true
			s.pos++
		case t.text == "volatile":
			s.pos++
		case builtinWords[t.text]:
			words = append(words, t.text)
			s.pos++
		case t.text == "struct" || t.text == "union" || t.text == "enum":
			hint := typedefHint
			if hint == "" && spec.typedef {
				hint = p.typedefNameAfterBody(s)
			}
			tt, err := p.tagSpecifier(s, hint, anonName)
			if err != nil {
				return spec, err
			}
			typ = &tt
		default:
			if typ != nil || len(words) > 0 {
				break loop
			}
			tt := named(t.text)
			typ = &tt
			s.pos++
		}
	}

	if typ == nil {
		if len(words) == 0 {
			return spec, errors.Newf("expected a type, found %q", s.peek().text)
		}
		tt := named(canonicalBuiltin(words))
		typ = &tt
	}
	typ.Const = isConst
	spec.typ = *typ
	return spec, nil
}

// typedefNameAfterBody finds the declarator name following the aggregate
// body that starts at the current tag keyword.
func (p *parser) typedefNameAfterBody(s *stmtReader) string {
	i := s.pos + 1
	if i < len(s.toks) && s.toks[i].kind == tokIdent {
		i++
	}
	if i >= len(s.toks) || !s.toks[i].is("{") {
		return ""
	}
	end := matchingIndex(s.toks, i)
	for j := end + 1; j < len(s.toks); j++ {
		t := s.toks[j]
		if t.kind == tokIdent && t.text != "const" && t.text != "volatile" {
			return t.text
		}
		if !t.is("*") && t.kind != tokIdent {
			break
		}
	}
	return ""
}

func canonicalBuiltin(words []string) string {
	var unsigned, signed, char, short, float, double, void, boolean, i128 bool
	longs := 0
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "char":
			char = true
		case "short":
			short = true
		case "long":
			longs++
		case "float":
			float = true
		case "double":
			double = true
		case "void":
			void = true
		case "_Bool":
			boolean = true
		case "__int128":
			i128 = true
		}
	}
	prefix := ""
	if unsigned {
		prefix = "unsigned "
	}
	switch {
	case void:
		return "void"
	case boolean:
		return "_Bool"
	case float:
		return "float"
	case double && longs > 0:
		return "long double"
	case double:
		return "double"
	case char && signed:
		return "signed char"
	case char:
		return prefix + "char"
	case short:
		return prefix + "short"
	case i128:
		return prefix + "__int128"
	case longs >= 2:
		return prefix + "long long"
	case longs == 1:
		return prefix + "long"
	default:
		return prefix + "int"
	}
}

func (p *parser) nextAnon() string {
	p.anon++
	return fmt.Sprintf("_bindgen_ty_%d", p.anon)
}

func (p *parser) tagSpecifier(s *stmtReader, hint string, anonName func() string) (Type, error) {
	kind := s.peek().text
	s.pos++

	name := ""
	if t := s.peek(); t.kind == tokIdent {
		name = t.text
		s.pos++
	}
	if !s.peek().is("{") {
		if name == "" {
			return Type{}, errors.Newf("anonymous %s without a body", kind)
		}
		if kind != "enum" && !p.records[name] {
			p.forward = append(p.forward, &Record{Name: name, Union: kind == "union", Opaque: true})
		}
		return Type{Kind: KindNamed, Name: name, Tag: kind}, nil
	}

	anonymous := name == ""
	if anonymous {
		switch {
		case hint != "":
			name = hint
		case anonName != nil:
			name = anonName()
		default:
			name = p.nextAnon()
		}
	}

	open := s.pos
	end := matchingIndex(s.toks, open)
	body := &stmtReader{toks: s.toks[open+1 : end]}
	s.pos = end + 1

	if kind == "enum" {
		e := &Enum{Name: name, Anonymous: anonymous && hint == ""}
		if err := p.enumBody(body, e); err != nil {
			return Type{}, errors.Wrapf(err, "enum %s", name)
		}
		p.add("enum", e)
		return Type{Kind: KindNamed, Name: name, Tag: kind}, nil
	}

	r := &Record{Name: name, Union: kind == "union"}
	if err := p.recordBody(body, r); err != nil {
		return Type{}, errors.Wrapf(err, "%s %s", kind, name)
	}
	if !p.records[name] {
		p.records[name] = true
		p.add("record", r)
	}
	return Type{Kind: KindNamed, Name: name, Tag: kind}, nil
}

func (p *parser) enumBody(s *stmtReader, e *Enum) error {
	next := int64(0)
	ev := &evaluator{ident: p.lookupEnumerator}
	for !s.done() {
		t := s.peek()
		if t.kind != tokIdent {
			return errors.Newf("expected enumerator, found %q", t.text)
		}
		s.pos++
		v := next
		if s.accept("=") {
			start := s.pos
			s.skipTo(",")
			x, err := ev.eval(s.toks[start:s.pos])
			if err != nil {
				return errors.Wrapf(err, "enumerator %s", t.text)
			}
			v = x.Int64()
		}
		e.Variants = append(e.Variants, Enumerator{Name: t.text, Value: v})
		p.enumerators[t.text] = v
		next = v + 1
		if !s.accept(",") && !s.done() {
			return errors.Newf("expected ',' after enumerator %s", t.text)
		}
	}
	return nil
}

func (p *parser) recordBody(s *stmtReader, r *Record) error {
	nested, anonFields := 0, 0
	anonName := func() string {
		nested++
		return fmt.Sprintf("%s__bindgen_ty_%d", r.Name, nested)
	}
	for !s.done() {
		if s.accept(";") {
			continue
		}
		spec, err := p.specifiers(s, "", anonName)
		if err != nil {
			return err
		}
		if s.accept(";") {
			// anonymous member: struct { ... }; inside a struct
			if spec.typ.Tag != "" && strings.Contains(spec.typ.Name, "__bindgen_ty_") {
				anonFields++
				r.Fields = append(r.Fields, Field{
					Name: fmt.Sprintf("__bindgen_anon_%d", anonFields),
					Type: spec.typ,
				})
			}
			continue
		}
		for {
			name, t, err := p.declarator(s, spec.typ)
			if err != nil {
				return err
			}
			field := Field{Name: name, Type: t}
			if s.accept(":") {
				start := s.pos
				s.skipTo(",", ";")
				ev := &evaluator{ident: p.lookupEnumerator}
				w, err := ev.eval(s.toks[start:s.pos])
				if err != nil {
					return errors.Wrapf(err, "bitfield width of %s", name)
				}
				field.Bitfield, field.Width = true, w.Int64()
				r.Bitfields = true
			}
			r.Fields = append(r.Fields, field)
			if s.accept(";") {
				break
			}
			if err := s.expect(","); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) isTypeWord(t token) bool {
	if t.kind != tokIdent {
		return false
	}
	switch t.text {
	case "const", "volatile", "struct", "union", "enum":
		return true
	}
	return builtinWords[t.text] || p.typedefs[t.text] || IsBuiltinName(t.text)
}

type suffix struct {
	array bool
	n     int64
	fn    *FuncType
}

func (p *parser) declarator(s *stmtReader, base Type) (string, Type, error) {
	for s.accept("*") {
		base = pointerTo(base)
		for s.peek().isIdent("const") || s.peek().isIdent("volatile") {
			s.pos++
		}
	}

	var name string
	var inner *stmtReader
	switch t := s.peek(); {
	case t.is("(") && p.nestedDeclaratorAt(s):
		end := matchingIndex(s.toks, s.pos)
		inner = &stmtReader{toks: s.toks[s.pos+1 : end]}
		s.pos = end + 1
	case t.kind == tokIdent:
		name = t.text
		s.pos++
	}

	var suffixes []suffix
	for {
		switch {
		case s.peek().is("["):
			end := matchingIndex(s.toks, s.pos)
			dim := s.toks[s.pos+1 : end]
			s.pos = end + 1
			n := int64(-1)
			if len(dim) > 0 {
				ev := &evaluator{ident: p.lookupEnumerator}
				v, err := ev.eval(dim)
				if err != nil {
					return "", Type{}, errors.Wrapf(err, "array bound of %s", name)
				}
				n = v.Int64()
			}
			suffixes = append(suffixes, suffix{array: true, n: n})
		case s.peek().is("("):
			fn, err := p.params(s)
			if err != nil {
				return "", Type{}, err
			}
			suffixes = append(suffixes, suffix{fn: fn})
		default:
			t := base
			for i := len(suffixes) - 1; i >= 0; i-- {
				sf := suffixes[i]
				if sf.array {
					t = arrayOf(t, sf.n)
					continue
				}
				fn := *sf.fn
				fn.Return = t
				t = Type{Kind: KindFunc, Func: &fn}
			}
			if inner != nil {
				return p.declarator(inner, t)
			}
			return name, t, nil
		}
	}
}

func (p *parser) nestedDeclaratorAt(s *stmtReader) bool {
	next := s.peekAt(1)
	switch {
	case next.is("*") || next.is("^") || next.is("("):
		return true
	case next.kind == tokIdent:
		return !p.isTypeWord(next) && s.peekAt(2).is(")")
	}
	return false
}

func (p *parser) params(s *stmtReader) (*FuncType, error) {
	fn := &FuncType{}
	end := matchingIndex(s.toks, s.pos)
	list := &stmtReader{toks: s.toks[s.pos+1 : end]}
	s.pos = end + 1

	if list.done() {
		return fn, nil
	}
	if list.peek().isIdent("void") && len(list.toks) == 1 {
		return fn, nil
	}
	for !list.done() {
		if list.accept("...") {
			fn.Variadic = true
			break
		}
		spec, err := p.specifiers(list, "", nil)
		if err != nil {
			return nil, err
		}
		name, t, err := p.declarator(list, spec.typ)
		if err != nil {
			return nil, err
		}
		switch t.Kind {
		case KindArray:
			t = pointerTo(*t.Elem)
		case KindFunc:
			t = pointerTo(t)
		}
		fn.Params = append(fn.Params, Param{Name: name, Type: t})
		if !list.accept(",") && !list.done() {
			return nil, errors.Newf("expected ',' in parameter list, found %q", list.peek().text)
		}
	}
	return fn, nil
}
