package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI           // <...>, val is the unescaped IRI
	tokPName         // prefix:local, val is the whole name
	tokBlank         // _:label, val is the label
	tokVar           // ?x or $x, val is the name
	tokString        // val is the unescaped string
	tokLang          // @tag, val is the tag
	tokInteger
	tokDecimal
	tokDouble
	tokIdent // bare word: keyword, function name, 'a', true, false
	tokPunct // val is the punctuation
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIRI:
		return "IRI"
	case tokPName:
		return "prefixed name"
	case tokBlank:
		return "blank node"
	case tokVar:
		return "variable"
	case tokString:
		return "string"
	case tokLang:
		return "language tag"
	case tokInteger, tokDecimal, tokDouble:
		return "number"
	case tokIdent:
		return "keyword"
	case tokPunct:
		return "punctuation"
	}
	return "token(" + strconv.Itoa(int(k)) + ")"
}

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return t.kind.String()
	case tokString:
		return strconv.Quote(t.val)
	case tokIRI:
		return "<" + t.val + ">"
	case tokVar:
		return "?" + t.val
	}
	return strconv.Quote(t.val)
}

// is reports whether t is the keyword or punctuation s. Keywords are matched
// case-insensitively.
func (t token) is(s string) bool {
	switch t.kind {
	case tokIdent:
		return strings.EqualFold(t.val, s)
	case tokPunct:
		return t.val == s
	}
	return false
}

// lexError is a lexical error at a byte offset. incomplete is set when more
// input could make the text valid.
type lexError struct {
	pos        int
	msg        string
	incomplete bool
}

func (e *lexError) Error() string { return e.msg }

type lexer struct {
	src string
	pos int
}

func (l *lexer) errorf(pos int, format string, args ...interface{}) error {
	return &lexError{pos: pos, msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *lexer) skipWS() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.pos++
		case '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || r == '-' || r >= '0' && r <= '9' || r == 0xB7
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenize splits the whole query into tokens, ending with tokEOF.
func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipWS()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '<':
		if t, ok := l.iriRef(); ok {
			return t, nil
		}
		if l.peekByte(1) == '=' {
			l.pos += 2
			return token{kind: tokPunct, val: "<=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokPunct, val: "<", pos: start}, nil
	case c == '?' || c == '$':
		l.pos++
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if !isNameStart(r) && !(r >= '0' && r <= '9') {
				break
			}
			l.pos += size
		}
		name := l.src[start+1 : l.pos]
		if name == "" {
			return token{}, l.errorf(start, "empty variable name")
		}
		return token{kind: tokVar, val: name, pos: start}, nil
	case c == '"' || c == '\'':
		s, err := l.str()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, val: s, pos: start}, nil
	case c == '@':
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '-' ||
			l.src[l.pos] >= 'a' && l.src[l.pos] <= 'z' || l.src[l.pos] >= 'A' && l.src[l.pos] <= 'Z') {
			l.pos++
		}
		if l.pos == start+1 {
			return token{}, l.errorf(start, "empty language tag")
		}
		return token{kind: tokLang, val: l.src[start+1 : l.pos], pos: start}, nil
	case c == '_' && l.peekByte(1) == ':':
		l.pos += 2
		label := l.name()
		if label == "" {
			return token{}, l.errorf(start, "empty blank node label")
		}
		return token{kind: tokBlank, val: label, pos: start}, nil
	case isDigit(c), (c == '+' || c == '-' || c == '.') && (isDigit(l.peekByte(1)) || l.peekByte(1) == '.' && isDigit(l.peekByte(2))):
		return l.number()
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	if isNameStart(r) || c == ':' {
		return l.word()
	}
	for _, p := range []string{"&&", "||", "!=", ">=", "^^"} {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return token{kind: tokPunct, val: p, pos: start}, nil
		}
	}
	if strings.ContainsRune("{}()[].;,*=!>", r) {
		l.pos++
		return token{kind: tokPunct, val: string(r), pos: start}, nil
	}
	return token{}, l.errorf(start, "unexpected character %q", r)
}

// iriRef scans an IRIREF. It reports false, consuming nothing, when the
// input at '<' is not an IRI.
func (l *lexer) iriRef() (token, bool) {
	start := l.pos
	var b strings.Builder
	for i := l.pos + 1; i < len(l.src); {
		r, size := utf8.DecodeRuneInString(l.src[i:])
		switch {
		case r == '>':
			l.pos = i + 1
			return token{kind: tokIRI, val: b.String(), pos: start}, true
		case r == '\\' && i+1 < len(l.src) && (l.src[i+1] == 'u' || l.src[i+1] == 'U'):
			n := 4
			if l.src[i+1] == 'U' {
				n = 8
			}
			if i+2+n > len(l.src) {
				return token{}, false
			}
			v, err := strconv.ParseUint(l.src[i+2:i+2+n], 16, 32)
			if err != nil || !utf8.ValidRune(rune(v)) {
				return token{}, false
			}
			b.WriteRune(rune(v))
			i += 2 + n
			continue
		case r <= 0x20 || strings.ContainsRune(`<"{}|^`+"`\\", r):
			return token{}, false
		}
		b.WriteRune(r)
		i += size
	}
	return token{}, false
}

func (l *lexer) name() string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isNameChar(r) {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

// word scans a bare word or a prefixed name. Dots may appear inside a
// prefixed name but never at its end.
func (l *lexer) word() (token, error) {
	start := l.pos
	prefix := l.name()
	if l.pos >= len(l.src) || l.src[l.pos] != ':' {
		return token{kind: tokIdent, val: prefix, pos: start}, nil
	}
	l.pos++
	end := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == '.' {
			l.pos += size
			continue
		}
		if r == '%' && isHexByte(l.peekByte(1)) && isHexByte(l.peekByte(2)) {
			l.pos += 3
			end = l.pos
			continue
		}
		if !isNameChar(r) && r != ':' {
			break
		}
		l.pos += size
		end = l.pos
	}
	l.pos = end
	return token{kind: tokPName, val: l.src[start:end], pos: start}, nil
}

func isHexByte(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func (l *lexer) number() (token, error) {
	start := l.pos
	if c := l.src[l.pos]; c == '+' || c == '-' {
		l.pos++
	}
	digits := func() int {
		n := 0
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
			n++
		}
		return n
	}
	kind := tokInteger
	n := digits()
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		l.pos++
		digits()
		kind = tokDecimal
	}
	if c := l.peekByte(0); (c == 'e' || c == 'E') && (n > 0 || kind == tokDecimal) {
		save := l.pos
		l.pos++
		if c := l.peekByte(0); c == '+' || c == '-' {
			l.pos++
		}
		if digits() == 0 {
			l.pos = save
		} else {
			kind = tokDouble
		}
	}
	if n == 0 && kind == tokInteger {
		return token{}, l.errorf(start, "invalid number")
	}
	return token{kind: kind, val: l.src[start:l.pos], pos: start}, nil
}

func (l *lexer) str() (string, error) {
	start := l.pos
	q := l.src[l.pos]
	long := strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(q), 3))
	if long {
		l.pos += 3
	} else {
		l.pos++
	}
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", &lexError{pos: start, msg: "unterminated string", incomplete: true}
		}
		c := l.src[l.pos]
		switch {
		case long && c == q && l.peekByte(1) == q && l.peekByte(2) == q:
			l.pos += 3
			return b.String(), nil
		case !long && c == q:
			l.pos++
			return b.String(), nil
		case !long && (c == '\n' || c == '\r'):
			return "", l.errorf(l.pos, "line break in string")
		case c == '\\':
			r, err := l.escape()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			continue
		}
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		b.WriteRune(r)
		l.pos += size
	}
}

func (l *lexer) escape() (rune, error) {
	start := l.pos
	c := l.peekByte(1)
	l.pos += 2
	switch c {
	case 't':
		return '\t', nil
	case 'b':
		return '\b', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'f':
		return '\f', nil
	case '"', '\'', '\\':
		return rune(c), nil
	case 'u', 'U':
		n := 4
		if c == 'U' {
			n = 8
		}
		if l.pos+n > len(l.src) {
			return 0, l.errorf(start, "truncated escape")
		}
		v, err := strconv.ParseUint(l.src[l.pos:l.pos+n], 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			return 0, l.errorf(start, "invalid escape")
		}
		l.pos += n
		return rune(v), nil
	}
	return 0, l.errorf(start, "invalid escape")
}
