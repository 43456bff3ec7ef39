package cparse

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/avbindgen/errors"
)

// MaxIncludeDepth bounds #include nesting.
const MaxIncludeDepth = 64

// targetDefines describe the clang wasm32 target the headers are read for.
var targetDefines = []string{
	"__STDC__ 1",
	"__STDC_VERSION__ 201710L",
	"__STDC_HOSTED__ 1",
	"__GNUC__ 4",
	"__GNUC_MINOR__ 2",
	"__GNUC_PATCHLEVEL__ 1",
	"__clang__ 1",
	"__clang_major__ 17",
	"__EMSCRIPTEN__ 1",
	"__wasm__ 1",
	"__wasm32__ 1",
	"__ILP32__ 1",
	"__CHAR_BIT__ 8",
	"__SIZEOF_INT__ 4",
	"__SIZEOF_LONG__ 4",
	"__SIZEOF_LONG_LONG__ 8",
	"__SIZEOF_POINTER__ 4",
	"__SIZEOF_SIZE_T__ 4",
	"__INT_MAX__ 2147483647",
	"__LONG_MAX__ 2147483647L",
	"__LONG_LONG_MAX__ 9223372036854775807LL",
	"__ORDER_LITTLE_ENDIAN__ 1234",
	"__ORDER_BIG_ENDIAN__ 4321",
	"__BYTE_ORDER__ __ORDER_LITTLE_ENDIAN__",
	"INT8_C(c) c",
	"INT16_C(c) c",
	"INT32_C(c) c",
	"INT64_C(c) c ## LL",
	"UINT8_C(c) c",
	"UINT16_C(c) c",
	"UINT32_C(c) c ## U",
	"UINT64_C(c) c ## ULL",
	"INTMAX_C(c) c ## LL",
	"UINTMAX_C(c) c ## ULL",
}

// Define is a command-line macro definition (-DNAME=VALUE).
type Define struct {
	Name  string
	Value string
}

type condFrame struct {
	parentActive bool
	active       bool
	taken        bool
}

type preprocessor struct {
	cfg     Config
	macros  *macroTable
	exp     *expander
	visited map[string]bool
	conds   []condFrame

	files   []string
	missing []string
	out     []token
}

func newPreprocessor(cfg Config) *preprocessor {
	mt := newMacroTable()
	pp := &preprocessor{
		cfg:     cfg,
		macros:  mt,
		exp:     &expander{macros: mt},
		visited: make(map[string]bool),
	}
	for _, d := range targetDefines {
		if m, ok := parseDefine(d, "<built-in>", true); ok {
			mt.define(m)
		}
	}
	for _, d := range cfg.Defines {
		text := d.Name + " " + d.Value
		if d.Value == "" {
			text = d.Name + " 1"
		}
		if m, ok := parseDefine(text, "<command line>", true); ok {
			mt.define(m)
		}
	}
	for _, name := range cfg.Undefines {
		mt.undef(name)
	}
	return pp
}

func (pp *preprocessor) active() bool {
	if len(pp.conds) == 0 {
		return true
	}
	return pp.conds[len(pp.conds)-1].active
}

// includeFile reads and preprocesses one file. A top-level header that
// cannot be read is fatal; nested includes that cannot be found are not.
func (pp *preprocessor) includeFile(path string, depth int) error {
	if depth > MaxIncludeDepth {
		return errors.Newf("%s: #include nested too deeply", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if pp.visited[abs] {
		return nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return errors.Wrapf(ErrCannotOpen, "%s", path)
	}
	pp.visited[abs] = true
	pp.files = append(pp.files, abs)

	condDepth := len(pp.conds)
	if err := pp.processText(string(data), abs, depth); err != nil {
		return err
	}
	// unterminated conditionals do not leak into the next file
	if len(pp.conds) > condDepth {
		pp.conds = pp.conds[:condDepth]
	}
	return nil
}

func (pp *preprocessor) processText(src, file string, depth int) error {
	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		toks := tokenize(strings.Join(pending, "\n"))
		pp.out = append(pp.out, pp.exp.expand(toks)...)
		pending = pending[:0]
	}

	for _, line := range strings.Split(stripComments(src), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if pp.active() && trimmed != "" {
				pending = append(pending, line)
			}
			continue
		}
		flush()
		if err := pp.directive(strings.TrimSpace(trimmed[1:]), file, depth); err != nil {
			return err
		}
	}
	flush()
	return nil
}

func (pp *preprocessor) directive(text, file string, depth int) error {
	i := 0
	for i < len(text) && isIdentChar(text[i]) {
		i++
	}
	name, rest := text[:i], strings.TrimSpace(text[i:])

	switch name {
	case "if":
		parent := pp.active()
		v := parent && pp.evalCondition(rest)
		pp.conds = append(pp.conds, condFrame{parentActive: parent, active: v, taken: v})
		return nil
	case "ifdef", "ifndef":
		parent := pp.active()
		_, defined := pp.macros.lookup(firstWord(rest))
		v := defined == (name == "ifdef")
		pp.conds = append(pp.conds, condFrame{parentActive: parent, active: parent && v, taken: v})
		return nil
	case "elif", "elifdef", "elifndef":
		if len(pp.conds) == 0 {
			return nil
		}
		top := &pp.conds[len(pp.conds)-1]
		if top.taken || !top.parentActive {
			top.active = false
			return nil
		}
		var v bool
		switch name {
		case "elif":
			v = pp.evalCondition(rest)
		default:
			_, defined := pp.macros.lookup(firstWord(rest))
			v = defined == (name == "elifdef")
		}
		top.active, top.taken = v, v
		return nil
	case "else":
		if len(pp.conds) == 0 {
			return nil
		}
		top := &pp.conds[len(pp.conds)-1]
		top.active = top.parentActive && !top.taken
		top.taken = true
		return nil
	case "endif":
		if len(pp.conds) > 0 {
			pp.conds = pp.conds[:len(pp.conds)-1]
		}
		return nil
	}

	if !pp.active() {
		return nil
	}

	switch name {
	case "define":
		if m, ok := parseDefine(rest, file, false); ok {
			pp.macros.define(m)
		}
	case "undef":
		pp.macros.undef(firstWord(rest))
	case "include", "include_next", "import":
		return pp.include(rest, file, depth)
	}
	// #pragma, #error, #warning and #line carry no declarations
	return nil
}

func firstWord(s string) string {
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	return s[:i]
}

func (pp *preprocessor) include(spec, file string, depth int) error {
	if !strings.HasPrefix(spec, "<") && !strings.HasPrefix(spec, "\"") {
		// computed include
		spec = joinTokens(pp.exp.expand(tokenize(spec)))
	}
	var rel string
	quoted := false
	switch {
	case strings.HasPrefix(spec, "\""):
		end := strings.IndexByte(spec[1:], '"')
		if end < 0 {
			return nil
		}
		rel, quoted = spec[1:end+1], true
	case strings.HasPrefix(spec, "<"):
		end := strings.IndexByte(spec, '>')
		if end < 0 {
			return nil
		}
		rel = spec[1:end]
	default:
		return nil
	}

	path, ok := pp.resolve(rel, file, quoted)
	if !ok {
		pp.missing = append(pp.missing, rel)
		return nil
	}
	return pp.includeFile(path, depth+1)
}

// resolve searches the including file's directory (quoted form only), the
// -I roots in order, then <sysroot>/include.
func (pp *preprocessor) resolve(rel, from string, quoted bool) (string, bool) {
	if filepath.IsAbs(rel) {
		_, err := os.Stat(rel)
		return rel, err == nil
	}
	var dirs []string
	if quoted {
		dirs = append(dirs, filepath.Dir(from))
	}
	dirs = append(dirs, pp.cfg.IncludeDirs...)
	if pp.cfg.Sysroot != "" {
		dirs = append(dirs, filepath.Join(pp.cfg.Sysroot, "include"))
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// evalCondition evaluates an #if expression. Expressions that cannot be
// evaluated count as true.
func (pp *preprocessor) evalCondition(expr string) bool {
	toks := tokenize(expr)
	var resolved []token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !t.isIdent("defined") {
			resolved = append(resolved, t)
			continue
		}
		var name string
		switch {
		case i+3 < len(toks) && toks[i+1].is("(") && toks[i+3].is(")"):
			name = toks[i+2].text
			i += 3
		case i+1 < len(toks) && toks[i+1].kind == tokIdent:
			name = toks[i+1].text
			i++
		default:
			continue
		}
		lit := "0"
		if _, ok := pp.macros.lookup(name); ok {
			lit = "1"
		}
		resolved = append(resolved, token{kind: tokNumber, text: lit, space: t.space})
	}

	ev := &evaluator{undefinedIsZero: true}
	v, err := ev.eval(pp.exp.expand(resolved))
	if err != nil {
		return true
	}
	return v.truthy()
}
