package cparse

import (
	"strings"
)

// maxExpansionDepth bounds nested macro expansion.
const maxExpansionDepth = 256

type macroDef struct {
	name     string
	body     []token
	params   []string
	funcLike bool
	variadic bool
	// builtin macros come from the target or the command line and are
	// never reported as header constants
	builtin bool
	file    string
}

// macroTable holds the live preprocessor definitions plus the order in
// which object-like header macros were first defined.
type macroTable struct {
	defs  map[string]*macroDef
	order []string
	seen  map[string]bool
}

func newMacroTable() *macroTable {
	return &macroTable{
		defs: make(map[string]*macroDef),
		seen: make(map[string]bool),
	}
}

func (mt *macroTable) define(m *macroDef) {
	mt.defs[m.name] = m
	if !m.builtin && !mt.seen[m.name] {
		mt.seen[m.name] = true
		mt.order = append(mt.order, m.name)
	}
}

func (mt *macroTable) undef(name string) {
	delete(mt.defs, name)
}

func (mt *macroTable) lookup(name string) (*macroDef, bool) {
	m, ok := mt.defs[name]
	return m, ok
}

// parseDefine builds a macro from the text following "#define".
func parseDefine(rest string, file string, builtin bool) (*macroDef, bool) {
	rest = strings.TrimLeft(rest, " \t")
	i := 0
	for i < len(rest) && isIdentChar(rest[i]) {
		i++
	}
	if i == 0 || !isIdentStart(rest[0]) {
		return nil, false
	}
	m := &macroDef{name: rest[:i], file: file, builtin: builtin}
	rest = rest[i:]

	// function-like only when "(" follows the name without whitespace
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return nil, false
		}
		m.funcLike = true
		for _, p := range strings.Split(rest[1:end], ",") {
			p = strings.TrimSpace(p)
			switch {
			case p == "":
			case p == "...":
				m.variadic = true
				m.params = append(m.params, "__VA_ARGS__")
			case strings.HasSuffix(p, "..."):
				m.variadic = true
				m.params = append(m.params, strings.TrimSpace(strings.TrimSuffix(p, "...")))
			default:
				m.params = append(m.params, p)
			}
		}
		rest = rest[end+1:]
	}
	m.body = tokenize(rest)
	if len(m.body) > 0 {
		m.body[0].space = false
	}
	return m, true
}

// expander performs macro replacement over token sequences.
type expander struct {
	macros *macroTable
}

func (e *expander) expand(toks []token) []token {
	return e.expandHidden(toks, map[string]bool{}, 0)
}

func (e *expander) expandHidden(toks []token, hide map[string]bool, depth int) []token {
	if depth > maxExpansionDepth {
		return toks
	}
	var out []token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent || hide[t.text] {
			out = append(out, t)
			continue
		}
		m, ok := e.macros.lookup(t.text)
		if !ok {
			out = append(out, t)
			continue
		}

		if !m.funcLike {
			body := pasteTokens(copyTokens(m.body))
			expanded := e.expandHidden(body, with(hide, m.name), depth+1)
			out = appendWithSpace(out, expanded, t.space)
			continue
		}

		if i+1 >= len(toks) || !toks[i+1].is("(") {
			out = append(out, t)
			continue
		}
		args, end, ok := collectArgs(toks, i+1)
		if !ok {
			out = append(out, t)
			continue
		}
		body := e.substitute(m, args, hide, depth)
		expanded := e.expandHidden(body, with(hide, m.name), depth+1)
		out = appendWithSpace(out, expanded, t.space)
		i = end
	}
	return out
}

func with(hide map[string]bool, name string) map[string]bool {
	next := make(map[string]bool, len(hide)+1)
	for k := range hide {
		next[k] = true
	}
	next[name] = true
	return next
}

func copyTokens(toks []token) []token {
	out := make([]token, len(toks))
	copy(out, toks)
	return out
}

func appendWithSpace(out, toks []token, space bool) []token {
	if len(toks) == 0 {
		return out
	}
	first := toks[0]
	first.space = space
	out = append(out, first)
	return append(out, toks[1:]...)
}

// collectArgs reads a parenthesized, comma separated argument list starting
// at toks[open], which must be "(". It returns the index of the closing ")".
func collectArgs(toks []token, open int) ([][]token, int, bool) {
	var args [][]token
	var cur []token
	depth := 0
	for i := open + 1; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.is("("):
			depth++
		case t.is(")"):
			if depth == 0 {
				args = append(args, cur)
				if len(args) == 1 && len(args[0]) == 0 {
					args = nil
				}
				return args, i, true
			}
			depth--
		case t.is(",") && depth == 0:
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return nil, 0, false
}

func (e *expander) substitute(m *macroDef, args [][]token, hide map[string]bool, depth int) []token {
	// fold surplus arguments into the variadic parameter
	if m.variadic && len(args) > len(m.params) {
		last := len(m.params) - 1
		merged := args[last]
		for _, a := range args[last+1:] {
			merged = append(merged, token{kind: tokPunct, text: ","})
			merged = append(merged, a...)
		}
		args = append(args[:last], merged)
	}

	param := func(name string) int {
		for i, p := range m.params {
			if p == name {
				return i
			}
		}
		return -1
	}
	arg := func(i int) []token {
		if i < len(args) {
			return args[i]
		}
		return nil
	}

	var out []token
	body := m.body
	for i := 0; i < len(body); i++ {
		t := body[i]

		if t.is("#") && i+1 < len(body) && body[i+1].kind == tokIdent {
			if p := param(body[i+1].text); p >= 0 {
				out = append(out, token{kind: tokString, text: stringize(arg(p)), space: t.space})
				i++
				continue
			}
		}

		if t.kind == tokIdent {
			if p := param(t.text); p >= 0 {
				pasted := (i > 0 && body[i-1].is("##")) || (i+1 < len(body) && body[i+1].is("##"))
				a := copyTokens(arg(p))
				if !pasted {
					a = e.expandHidden(a, hide, depth+1)
				}
				if len(a) == 0 && pasted {
					// placemarker keeps ## well formed
					a = []token{{kind: tokIdent, text: ""}}
				}
				out = appendWithSpace(out, a, t.space)
				continue
			}
		}
		out = append(out, t)
	}
	return pasteTokens(out)
}

func stringize(toks []token) string {
	s := joinTokens(toks)
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// pasteTokens applies the ## operator.
func pasteTokens(toks []token) []token {
	var out []token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.is("##") && len(out) > 0 && i+1 < len(toks) {
			left := out[len(out)-1]
			right := toks[i+1]
			joined := left.text + right.text
			re := tokenize(joined)
			merged := token{kind: tokIdent, text: joined, space: left.space}
			if len(re) == 1 {
				merged = re[0]
				merged.space = left.space
			}
			if joined == "" {
				out = out[:len(out)-1]
			} else {
				out[len(out)-1] = merged
			}
			i++
			continue
		}
		out = append(out, t)
	}
	// drop leftover placemarkers
	clean := out[:0]
	for _, t := range out {
		if t.kind == tokIdent && t.text == "" {
			continue
		}
		clean = append(clean, t)
	}
	return clean
}
