// Package cparse scans C headers into declarations: a small preprocessor
// (includes, conditionals, object and function-like macros) followed by a
// declaration parser covering what public library headers use.
package cparse

import (
	"github.com/teranos/avbindgen/errors"
)

// Config controls header lookup and predefined macros.
type Config struct {
	// IncludeDirs are searched in order for #include
	IncludeDirs []string
	// Sysroot adds <Sysroot>/include after IncludeDirs
	Sysroot   string
	Defines   []Define
	Undefines []string
}

// builtinNames are scalar typedef names mapped directly to target types.
// Their typedefs in system headers are not reported.
var builtinNames = map[string]bool{
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
	"size_t": true, "__builtin_va_list": true, "bool": true,
}

// IsBuiltinName reports whether name is a scalar typedef the scanner
// treats as a builtin type.
func IsBuiltinName(name string) bool {
	return builtinNames[name]
}

// Parse reads headers in order, as if each were #included by one wrapper
// file, and returns every declaration and constant macro found.
func Parse(cfg Config, headers []string) (*Unit, error) {
	pp := newPreprocessor(cfg)
	for _, h := range headers {
		if err := pp.includeFile(h, 0); err != nil {
			return nil, err
		}
	}

	p := newParser()
	p.parse(pp.out)

	unit := &Unit{
		Macros:  evalMacros(pp, p.lookupEnumerator),
		Decls:   p.decls,
		Files:   pp.files,
		Missing: pp.missing,
		Skipped: p.skipped,
	}
	return unit, nil
}

func evalMacros(pp *preprocessor, lookup func(string) (int64, bool)) []Macro {
	var out []Macro
	for _, name := range pp.macros.order {
		m, ok := pp.macros.lookup(name)
		if !ok || m.funcLike || m.builtin || len(m.body) == 0 {
			continue
		}
		toks := pp.exp.expandHidden(pasteTokens(copyTokens(m.body)), map[string]bool{name: true}, 0)
		if mac, ok := classifyMacro(name, toks, lookup); ok {
			mac.File = m.file
			out = append(out, mac)
		}
	}
	return out
}

// classifyMacro evaluates an expanded macro body as a string, float or
// integer constant. Anything else is not a constant.
func classifyMacro(name string, toks []token, lookup func(string) (int64, bool)) (Macro, bool) {
	if len(toks) == 0 {
		return Macro{}, false
	}

	if toks[0].kind == tokString {
		var buf []byte
		for _, t := range toks {
			if t.kind != tokString || t.text[0] != '"' {
				return Macro{}, false
			}
			b, err := decodeEscapes(t.text[1 : len(t.text)-1])
			if err != nil {
				return Macro{}, false
			}
			buf = append(buf, b...)
		}
		return Macro{Name: name, Kind: MacroString, Str: buf}, true
	}

	if f, ok := floatBody(toks); ok {
		return Macro{Name: name, Kind: MacroFloat, Float: f}, true
	}

	ev := &evaluator{ident: lookup}
	v, err := ev.eval(toks)
	if err != nil {
		return Macro{}, false
	}
	return Macro{Name: name, Kind: MacroInt, Int: v.Int64()}, true
}

func floatBody(toks []token) (float64, bool) {
	for len(toks) >= 2 && toks[0].is("(") && toks[len(toks)-1].is(")") && matchingIndex(toks, 0) == len(toks)-1 {
		toks = toks[1 : len(toks)-1]
	}
	sign := 1.0
	if len(toks) == 2 && (toks[0].is("-") || toks[0].is("+")) {
		if toks[0].is("-") {
			sign = -1
		}
		toks = toks[1:]
	}
	if len(toks) != 1 || toks[0].kind != tokNumber {
		return 0, false
	}
	f, ok := parseFloatLiteral(toks[0].text)
	return sign * f, ok
}

// ErrCannotOpen marks a requested header that could not be read.
var ErrCannotOpen = errors.New("cannot open file")
