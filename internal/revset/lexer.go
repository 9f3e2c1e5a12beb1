package revset

import (
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokComma
	tokUnion        // |
	tokIntersection // &
	tokTilde        // ~
	tokDagRange     // ::
	tokRange        // ..
	tokMinus        // -
	tokPlus         // +
	tokAt           // @
	tokColon        // :
	tokEquals       // =
)

var tokenNames = map[tokenKind]string{
	tokEOF:          "end of expression",
	tokIdent:        "identifier",
	tokString:       "string literal",
	tokLParen:       "'('",
	tokRParen:       "')'",
	tokComma:        "','",
	tokUnion:        "'|'",
	tokIntersection: "'&'",
	tokTilde:        "'~'",
	tokDagRange:     "'::'",
	tokRange:        "'..'",
	tokMinus:        "'-'",
	tokPlus:         "'+'",
	tokAt:           "'@'",
	tokColon:        "':'",
	tokEquals:       "'='",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	// text is the identifier, or the decoded value of a string literal.
	text string
	span Span
}

func tokenize(input string) ([]token, error) {
	if err := checkUTF8(input); err != nil {
		return nil, err
	}
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
			continue
		case c == '"':
			text, end, err := lexDoubleQuoted(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: text, span: Span{i, end}})
			i = end
			continue
		case c == '\'':
			end := strings.IndexByte(input[i+1:], '\'')
			if end < 0 {
				return nil, syntaxErrorf(Span{i, len(input)}, "unterminated string literal")
			}
			end += i + 1
			toks = append(toks, token{kind: tokString, text: input[i+1 : end], span: Span{i, end + 1}})
			i = end + 1
			continue
		case isIdentChar(input, i):
			end := lexIdentifier(input, i)
			toks = append(toks, token{kind: tokIdent, text: input[i:end], span: Span{i, end}})
			i = end
			continue
		}

		kind, width := tokEOF, 1
		switch c {
		case '(':
			kind = tokLParen
		case ')':
			kind = tokRParen
		case ',':
			kind = tokComma
		case '|':
			kind = tokUnion
		case '&':
			kind = tokIntersection
		case '~':
			kind = tokTilde
		case '-':
			kind = tokMinus
		case '+':
			kind = tokPlus
		case '@':
			kind = tokAt
		case '=':
			kind = tokEquals
		case ':':
			kind = tokColon
			if strings.HasPrefix(input[i:], "::") {
				kind, width = tokDagRange, 2
			}
		case '.':
			if strings.HasPrefix(input[i:], "..") {
				kind, width = tokRange, 2
			}
		}
		if kind == tokEOF {
			r, size := utf8.DecodeRuneInString(input[i:])
			return nil, syntaxErrorf(Span{i, i + size}, "unexpected character %q", r)
		}
		toks = append(toks, token{kind: kind, span: Span{i, i + width}})
		i += width
	}
	toks = append(toks, token{kind: tokEOF, span: Span{len(input), len(input)}})
	return toks, nil
}

func checkUTF8(input string) error {
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size == 1 {
			return syntaxErrorf(Span{i, i + 1}, "invalid UTF-8 byte 0x%02x", input[i])
		}
		i += size
	}
	return nil
}

// isIdentChar reports whether input[i] starts an identifier part: an ASCII
// letter or digit, '_', '/', or any non-ASCII character.
func isIdentChar(input string, i int) bool {
	if i >= len(input) {
		return false
	}
	c := input[i]
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '_' || c == '/' || c >= utf8.RuneSelf
}

// lexIdentifier consumes parts joined by '.', '-' or '+'. A separator only
// belongs to the identifier when another part follows it, so "x-" is the
// identifier x followed by the parents operator.
func lexIdentifier(input string, start int) int {
	i := start
	for {
		for isIdentChar(input, i) {
			if input[i] >= utf8.RuneSelf {
				_, size := utf8.DecodeRuneInString(input[i:])
				i += size
				continue
			}
			i++
		}
		if i < len(input) && strings.IndexByte(".-+", input[i]) >= 0 && isIdentChar(input, i+1) {
			i++
			continue
		}
		return i
	}
}

func lexDoubleQuoted(input string, start int) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch c {
		case '"':
			return sb.String(), i + 1, nil
		case '\\':
			if i+1 >= len(input) {
				return "", 0, syntaxErrorf(Span{i, i + 1}, "unterminated escape sequence")
			}
			switch e := input[i+1]; e {
			case '"', '\\':
				sb.WriteByte(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case 'e':
				sb.WriteByte(0x1b)
			default:
				return "", 0, syntaxErrorf(Span{i, i + 2}, "invalid escape sequence \\%c", e)
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, syntaxErrorf(Span{start, len(input)}, "unterminated string literal")
}
