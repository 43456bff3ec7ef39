package cparse

import (
	"math"
	"strconv"
	"strings"

	"github.com/teranos/avbindgen/errors"
)

// ErrNotConstant is returned for expressions that are not integer constant
// expressions (floats, pointers, unknown identifiers, ...).
var ErrNotConstant = errors.New("not an integer constant expression")

// value is a 64-bit integer carrying C signedness.
type value struct {
	v        uint64
	unsigned bool
}

func signed(v int64) value { return value{v: uint64(v)} }

func (x value) Int64() int64 { return int64(x.v) }

func (x value) truthy() bool { return x.v != 0 }

func boolValue(b bool) value {
	if b {
		return signed(1)
	}
	return signed(0)
}

// evaluator computes constant expressions with 64-bit wrap-around.
type evaluator struct {
	// ident resolves identifiers that survive macro expansion, typically
	// enumerators; nil resolves nothing
	ident func(name string) (int64, bool)
	// undefinedIsZero gives #if semantics: unknown identifiers are 0
	undefinedIsZero bool
}

func (ev *evaluator) eval(toks []token) (value, error) {
	if len(toks) == 0 {
		return value{}, errors.Wrap(ErrNotConstant, "empty expression")
	}
	p := &exprParser{toks: toks, ev: ev}
	v, err := p.ternary()
	if err != nil {
		return value{}, err
	}
	if p.pos != len(toks) {
		return value{}, errors.Wrapf(ErrNotConstant, "unexpected %q", toks[p.pos].text)
	}
	return v, nil
}

type exprParser struct {
	toks []token
	pos  int
	ev   *evaluator
}

func (p *exprParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) accept(punct string) bool {
	if t, ok := p.peek(); ok && t.is(punct) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) ternary() (value, error) {
	cond, err := p.binary(1)
	if err != nil {
		return value{}, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	a, err := p.ternary()
	if err != nil {
		return value{}, err
	}
	if !p.accept(":") {
		return value{}, errors.Wrap(ErrNotConstant, "missing ':' in conditional")
	}
	b, err := p.ternary()
	if err != nil {
		return value{}, err
	}
	if cond.truthy() {
		return a, nil
	}
	return b, nil
}

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (p *exprParser) binary(minPrec int) (value, error) {
	lhs, err := p.unary()
	if err != nil {
		return value{}, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokPunct {
			return lhs, nil
		}
		prec, isOp := binaryPrec[t.text]
		if !isOp || prec < minPrec {
			return lhs, nil
		}
		p.pos++
		rhs, err := p.binary(prec + 1)
		if err != nil {
			return value{}, err
		}
		lhs, err = applyBinary(t.text, lhs, rhs)
		if err != nil {
			return value{}, err
		}
	}
}

func applyBinary(op string, a, b value) (value, error) {
	uns := a.unsigned || b.unsigned
	switch op {
	case "||":
		return boolValue(a.truthy() || b.truthy()), nil
	case "&&":
		return boolValue(a.truthy() && b.truthy()), nil
	case "==":
		return boolValue(a.v == b.v), nil
	case "!=":
		return boolValue(a.v != b.v), nil
	case "<", ">", "<=", ">=":
		var less, equal bool
		if uns {
			less, equal = a.v < b.v, a.v == b.v
		} else {
			less, equal = int64(a.v) < int64(b.v), a.v == b.v
		}
		switch op {
		case "<":
			return boolValue(less), nil
		case ">":
			return boolValue(!less && !equal), nil
		case "<=":
			return boolValue(less || equal), nil
		default:
			return boolValue(!less), nil
		}
	case "<<":
		if b.v >= 64 {
			return value{v: 0, unsigned: a.unsigned}, nil
		}
		return value{v: a.v << b.v, unsigned: a.unsigned}, nil
	case ">>":
		if b.v >= 64 {
			if !a.unsigned && int64(a.v) < 0 {
				return signed(-1), nil
			}
			return value{v: 0, unsigned: a.unsigned}, nil
		}
		if a.unsigned {
			return value{v: a.v >> b.v, unsigned: true}, nil
		}
		return signed(int64(a.v) >> b.v), nil
	}

	var r uint64
	switch op {
	case "|":
		r = a.v | b.v
	case "^":
		r = a.v ^ b.v
	case "&":
		r = a.v & b.v
	case "+":
		r = a.v + b.v
	case "-":
		r = a.v - b.v
	case "*":
		r = a.v * b.v
	case "/", "%":
		if b.v == 0 {
			return value{}, errors.Wrap(ErrNotConstant, "division by zero")
		}
		if uns {
			if op == "/" {
				r = a.v / b.v
			} else {
				r = a.v % b.v
			}
			break
		}
		x, y := int64(a.v), int64(b.v)
		if x == math.MinInt64 && y == -1 {
			if op == "/" {
				r = uint64(x)
			}
			break
		}
		if op == "/" {
			r = uint64(x / y)
		} else {
			r = uint64(x % y)
		}
	default:
		return value{}, errors.Wrapf(ErrNotConstant, "unsupported operator %q", op)
	}
	return value{v: r, unsigned: uns}, nil
}

func (p *exprParser) unary() (value, error) {
	t, ok := p.peek()
	if !ok {
		return value{}, errors.Wrap(ErrNotConstant, "unexpected end of expression")
	}
	if t.kind == tokPunct {
		switch t.text {
		case "-", "+", "~", "!":
			p.pos++
			x, err := p.unary()
			if err != nil {
				return value{}, err
			}
			switch t.text {
			case "-":
				return value{v: -x.v, unsigned: x.unsigned}, nil
			case "+":
				return x, nil
			case "~":
				return value{v: ^x.v, unsigned: x.unsigned}, nil
			default:
				return boolValue(!x.truthy()), nil
			}
		case "(":
			if width, uns, n, ok := p.castAt(p.pos + 1); ok {
				p.pos += n + 2
				x, err := p.unary()
				if err != nil {
					return value{}, err
				}
				return castTo(x, width, uns), nil
			}
		}
	}
	return p.primary()
}

var integerTypeWords = map[string]bool{
	"int": true, "unsigned": true, "signed": true, "long": true,
	"short": true, "char": true, "const": true, "volatile": true, "_Bool": true,
}

// namedIntegerTypes maps fixed-width names to (width, unsigned). Pointer
// sized names follow the 32-bit wasm target.
var namedIntegerTypes = map[string]struct {
	width    int
	unsigned bool
}{
	"int8_t": {8, false}, "int16_t": {16, false}, "int32_t": {32, false}, "int64_t": {64, false},
	"uint8_t": {8, true}, "uint16_t": {16, true}, "uint32_t": {32, true}, "uint64_t": {64, true},
	"intmax_t": {64, false}, "uintmax_t": {64, true},
	"size_t": {32, true}, "ssize_t": {32, false}, "ptrdiff_t": {32, false},
	"intptr_t": {32, false}, "uintptr_t": {32, true},
}

// castAt recognizes "(type)" at toks[start-1]; n is the token count inside
// the parentheses.
func (p *exprParser) castAt(start int) (width int, unsigned bool, n int, ok bool) {
	var words []string
	i := start
	for ; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.is(")") {
			break
		}
		if t.kind != tokIdent {
			return 0, false, 0, false
		}
		if !integerTypeWords[t.text] {
			if _, named := namedIntegerTypes[t.text]; !named {
				return 0, false, 0, false
			}
		}
		words = append(words, t.text)
	}
	if i >= len(p.toks) || len(words) == 0 {
		return 0, false, 0, false
	}

	width = 32
	longs := 0
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "char":
			width = 8
		case "short":
			width = 16
		case "long":
			longs++
		case "_Bool":
			width = 1
			unsigned = true
		default:
			if nt, named := namedIntegerTypes[w]; named {
				width, unsigned = nt.width, nt.unsigned
			}
		}
	}
	if longs >= 2 {
		width = 64
	}
	return width, unsigned, len(words), true
}

func castTo(x value, width int, unsigned bool) value {
	switch width {
	case 1:
		return value{v: boolValue(x.truthy()).v, unsigned: true}
	case 64:
		return value{v: x.v, unsigned: unsigned}
	}
	mask := uint64(1)<<uint(width) - 1
	v := x.v & mask
	if !unsigned && v&(uint64(1)<<uint(width-1)) != 0 {
		v |= ^mask
	}
	return value{v: v, unsigned: unsigned}
}

func (p *exprParser) primary() (value, error) {
	t, _ := p.peek()
	switch t.kind {
	case tokNumber:
		p.pos++
		return parseIntLiteral(t.text)
	case tokChar:
		p.pos++
		return parseCharLiteral(t.text)
	case tokIdent:
		p.pos++
		if p.ev.ident != nil {
			if v, ok := p.ev.ident(t.text); ok {
				return signed(v), nil
			}
		}
		if !p.ev.undefinedIsZero {
			return value{}, errors.Wrapf(ErrNotConstant, "unknown identifier %s", t.text)
		}
		// __has_include(...) and friends read as 0
		if next, ok := p.peek(); ok && next.is("(") {
			if _, end, ok := collectArgs(p.toks, p.pos); ok {
				p.pos = end + 1
			}
		}
		return signed(0), nil
	case tokPunct:
		if t.is("(") {
			p.pos++
			v, err := p.ternary()
			if err != nil {
				return value{}, err
			}
			if !p.accept(")") {
				return value{}, errors.Wrap(ErrNotConstant, "missing ')'")
			}
			return v, nil
		}
	}
	return value{}, errors.Wrapf(ErrNotConstant, "unexpected %q", t.text)
}

// parseIntLiteral parses a C integer literal. Literals wider than 64 bits
// are an error.
func parseIntLiteral(text string) (value, error) {
	s := text
	unsigned := false
	for len(s) > 0 {
		c := s[len(s)-1]
		if c == 'u' || c == 'U' {
			unsigned = true
		} else if c != 'l' && c != 'L' {
			break
		}
		s = s[:len(s)-1]
	}

	base := 10
	digits := s
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base, digits = 16, s[2:]
		if strings.ContainsAny(digits, ".pP") {
			return value{}, errors.Wrapf(ErrNotConstant, "float literal %s", text)
		}
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base, digits = 2, s[2:]
	case strings.ContainsAny(s, ".eE"):
		return value{}, errors.Wrapf(ErrNotConstant, "float literal %s", text)
	case len(s) > 1 && s[0] == '0':
		base, digits = 8, s[1:]
	}

	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return value{}, errors.Newf("integer literal %s does not fit in 64 bits", text)
		}
		return value{}, errors.Wrapf(ErrNotConstant, "malformed literal %s", text)
	}
	if v > math.MaxInt64 {
		unsigned = true
	}
	return value{v: v, unsigned: unsigned}, nil
}

// parseFloatLiteral parses a C floating literal, including hex floats.
func parseFloatLiteral(text string) (float64, bool) {
	s := strings.TrimRight(text, "fFlL")
	if isHex := strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"); !isHex && !strings.ContainsAny(s, ".eE") {
		return 0, false
	} else if isHex && !strings.ContainsAny(s, "pP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseCharLiteral(text string) (value, error) {
	if i := strings.IndexByte(text, '\''); i > 0 {
		text = text[i:]
	}
	if len(text) < 2 || text[len(text)-1] != '\'' {
		return value{}, errors.Wrapf(ErrNotConstant, "malformed character literal %s", text)
	}
	b, err := decodeEscapes(text[1 : len(text)-1])
	if err != nil || len(b) == 0 {
		return value{}, errors.Wrapf(ErrNotConstant, "malformed character literal %s", text)
	}
	if len(b) == 1 {
		return signed(int64(int8(b[0]))), nil
	}
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return signed(int64(int32(v))), nil
}

// decodeEscapes interprets C escape sequences in the body of a string or
// character literal.
func decodeEscapes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return nil, errors.New("trailing backslash")
		}
		switch e := s[i]; e {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'a':
			out = append(out, 7)
		case 'b':
			out = append(out, 8)
		case 'f':
			out = append(out, 12)
		case 'v':
			out = append(out, 11)
		case '\\', '\'', '"', '?':
			out = append(out, e)
		case 'x':
			j := i + 1
			for j < len(s) && strings.IndexByte("0123456789abcdefABCDEF", s[j]) >= 0 {
				j++
			}
			if j == i+1 {
				return nil, errors.New("empty hex escape")
			}
			v, err := strconv.ParseUint(s[i+1:j], 16, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(v))
			i = j - 1
		default:
			if e < '0' || e > '7' {
				return nil, errors.Newf("unknown escape \\%c", e)
			}
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 16)
			out = append(out, byte(v))
			i = j - 1
		}
	}
	return out, nil
}
