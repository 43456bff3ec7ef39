package cparse

import (
	"strings"
)

type tokKind int

const (
	tokIdent tokKind = iota
	tokNumber
	tokString
	tokChar
	tokPunct
)

type token struct {
	kind tokKind
	text string
	// space is set when whitespace preceded the token; stringizing needs it
	space bool
}

func (t token) is(text string) bool {
	return t.kind == tokPunct && t.text == text
}

func (t token) isIdent(text string) bool {
	return t.kind == tokIdent && t.text == text
}

// punctuators, longest first
var punctuators = []string{
	"...", "<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=", "##",
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// tokenize splits preprocessed source text into tokens. Input must already
// be free of comments and line continuations.
func tokenize(src string) []token {
	var toks []token
	space := false
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			space = true
			i++
			continue
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			// wide and unicode string/char prefixes
			if j < len(src) && (src[j] == '"' || src[j] == '\'') {
				switch src[i:j] {
				case "L", "u", "U", "u8":
					end := scanQuoted(src, j)
					kind := tokString
					if src[j] == '\'' {
						kind = tokChar
					}
					toks = append(toks, token{kind: kind, text: src[j:end], space: space})
					i = end
					space = false
					continue
				}
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], space: space})
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			j := i + 1
			for j < len(src) {
				d := src[j]
				if (d == '+' || d == '-') && strings.ContainsRune("eEpP", rune(src[j-1])) {
					j++
					continue
				}
				if isIdentChar(d) || d == '.' {
					j++
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], space: space})
			i = j
		case c == '"' || c == '\'':
			end := scanQuoted(src, i)
			kind := tokString
			if c == '\'' {
				kind = tokChar
			}
			toks = append(toks, token{kind: kind, text: src[i:end], space: space})
			i = end
		default:
			matched := false
			for _, p := range punctuators {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, token{kind: tokPunct, text: p, space: space})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				toks = append(toks, token{kind: tokPunct, text: string(c), space: space})
				i++
			}
		}
		space = false
	}
	return toks
}

// scanQuoted returns the index just past the closing quote of the literal
// starting at src[start]. An unterminated literal runs to end of line.
func scanQuoted(src string, start int) int {
	q := src[start]
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case q:
			return i + 1
		case '\n':
			return i
		}
		i++
	}
	return len(src)
}

// joinTokens renders tokens back to text, keeping single spaces where the
// source had whitespace.
func joinTokens(toks []token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.space {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.text)
	}
	return sb.String()
}

// stripComments removes C and C++ comments and joins backslash-newline
// continuations. Newlines inside block comments are kept so that line
// structure survives for directive handling.
func stripComments(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\\\n", "")

	var sb strings.Builder
	sb.Grow(len(src))
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			end := scanQuoted(src, i)
			sb.WriteString(src[i:end])
			i = end
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			sb.WriteByte(' ')
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				if src[i] == '\n' {
					sb.WriteByte('\n')
				}
				i++
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}
