// Copyright 2024 The Cayley Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package turtle

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cayleygraph/triples/triple"
)

type parser struct {
	src      string
	pos      int
	prefixes map[string]string
	base     string
	scope    *triple.Scope
	out      []triple.Triple
}

func newParser(src, base string, scope *triple.Scope) *parser {
	if scope == nil {
		scope = triple.NewScope()
	}
	return &parser{
		src:      src,
		prefixes: make(map[string]string),
		base:     base,
		scope:    scope,
	}
}

// position converts a byte offset to a 1-based line and column.
func (p *parser) position(off int) (line, col int) {
	if off > len(p.src) {
		off = len(p.src)
	}
	before := p.src[:off]
	line = 1 + strings.Count(before, "\n")
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	return line, 1 + utf8.RuneCountInString(before)
}

func (p *parser) errAt(off int, err error, format string, args ...interface{}) error {
	line, col := p.position(off)
	return &ParseError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return p.errAt(p.pos, nil, format, args...)
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(n int) byte {
	if p.pos+n >= len(p.src) {
		return 0
	}
	return p.src[p.pos+n]
}

func (p *parser) peekRune() (rune, int) {
	if p.eof() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(p.src[p.pos:])
}

func (p *parser) hasPrefix(s string) bool { return strings.HasPrefix(p.src[p.pos:], s) }

func (p *parser) skipWS() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		case '#':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) expect(c byte, what string) error {
	p.skipWS()
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %s, got end of input", what)
		}
		r, _ := p.peekRune()
		return p.errorf("expected %s, got %q", what, r)
	}
	p.pos++
	return nil
}

// keyword reports whether the input continues with kw as a whole word and
// consumes it if so.
func (p *parser) keyword(kw string, fold bool) bool {
	if len(p.src)-p.pos < len(kw) {
		return false
	}
	s := p.src[p.pos : p.pos+len(kw)]
	if fold && !strings.EqualFold(s, kw) || !fold && s != kw {
		return false
	}
	if rest := p.src[p.pos+len(kw):]; rest != "" {
		r, _ := utf8.DecodeRuneInString(rest)
		if isPNChars(r) || r == ':' {
			return false
		}
	}
	p.pos += len(kw)
	return true
}

func (p *parser) parse() ([]triple.Triple, error) {
	if !utf8.ValidString(p.src) {
		off := 0
		for off < len(p.src) {
			r, size := utf8.DecodeRuneInString(p.src[off:])
			if r == utf8.RuneError && size == 1 {
				break
			}
			off += size
		}
		return nil, p.errAt(off, nil, "invalid UTF-8")
	}
	for {
		p.skipWS()
		if p.eof() {
			return p.out, nil
		}
		if err := p.statement(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) statement() error {
	switch {
	case p.keyword("@prefix", false):
		return p.prefixDecl(true)
	case p.keyword("@base", false):
		return p.baseDecl(true)
	case p.keyword("PREFIX", true):
		return p.prefixDecl(false)
	case p.keyword("BASE", true):
		return p.baseDecl(false)
	case p.peek() == '@':
		return p.errorf("unknown directive")
	}
	return p.triples()
}

func (p *parser) prefixDecl(dot bool) error {
	p.skipWS()
	start := p.pos
	name := p.scanPrefix()
	if p.peek() != ':' {
		return p.errAt(start, nil, "expected prefix name followed by ':'")
	}
	p.pos++
	p.skipWS()
	if p.peek() != '<' {
		return p.errorf("expected IRI for prefix %q", name)
	}
	iri, err := p.iriRef()
	if err != nil {
		return err
	}
	p.prefixes[name] = string(iri)
	if dot {
		return p.expect('.', "'.' after @prefix")
	}
	return nil
}

func (p *parser) baseDecl(dot bool) error {
	p.skipWS()
	if p.peek() != '<' {
		return p.errorf("expected base IRI")
	}
	iri, err := p.iriRef()
	if err != nil {
		return err
	}
	p.base = string(iri)
	if dot {
		return p.expect('.', "'.' after @base")
	}
	return nil
}

func (p *parser) triples() error {
	var (
		subj triple.Term
		err  error
	)
	switch p.peek() {
	case '[':
		var empty bool
		subj, empty, err = p.blankNodePropertyList()
		if err != nil {
			return err
		}
		p.skipWS()
		if !empty && p.peek() == '.' {
			p.pos++
			return nil
		}
	case '(':
		subj, err = p.collection()
	default:
		subj, err = p.subject()
	}
	if err != nil {
		return err
	}
	if err := p.predicateObjectList(subj); err != nil {
		return err
	}
	return p.expect('.', "'.' at end of statement")
}

func (p *parser) subject() (triple.Term, error) {
	switch c := p.peek(); {
	case c == '<':
		return p.iriRef()
	case c == '_':
		return p.blankNodeLabel()
	case c == '"' || c == '\'':
		return nil, p.errorf("subject must be an IRI or blank node")
	}
	return p.prefixedName()
}

func (p *parser) predicateObjectList(subj triple.Term) error {
	for {
		p.skipWS()
		pred, err := p.verb()
		if err != nil {
			return err
		}
		if err := p.objectList(subj, pred); err != nil {
			return err
		}
		p.skipWS()
		if p.peek() != ';' {
			return nil
		}
		for p.peek() == ';' {
			p.pos++
			p.skipWS()
		}
		if c := p.peek(); c == '.' || c == ']' || p.eof() {
			return nil
		}
	}
}

func (p *parser) verb() (triple.Term, error) {
	if p.keyword("a", false) {
		return triple.RDFType, nil
	}
	switch p.peek() {
	case '<':
		return p.iriRef()
	case '_', '[':
		return nil, p.errorf("predicate must be an IRI")
	case 0:
		return nil, p.errorf("expected predicate, got end of input")
	}
	return p.prefixedName()
}

func (p *parser) objectList(subj, pred triple.Term) error {
	for {
		p.skipWS()
		start := p.pos
		// Reserve the slot so that the triple precedes the ones nested in
		// its object.
		idx := len(p.out)
		p.out = append(p.out, triple.Triple{})
		obj, err := p.object()
		if err != nil {
			return err
		}
		t := triple.Triple{Subject: subj, Predicate: pred, Object: obj}
		if err := t.Validate(); err != nil {
			return p.errAt(start, err, "invalid triple")
		}
		p.out[idx] = t
		p.skipWS()
		if p.peek() != ',' {
			return nil
		}
		p.pos++
	}
}

func (p *parser) object() (triple.Term, error) {
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("expected object, got end of input")
	case c == '<':
		return p.iriRef()
	case c == '_':
		return p.blankNodeLabel()
	case c == '[':
		b, _, err := p.blankNodePropertyList()
		return b, err
	case c == '(':
		return p.collection()
	case c == '"' || c == '\'':
		return p.literal()
	case c == '+' || c == '-' || (c >= '0' && c <= '9'),
		c == '.' && p.peekAt(1) >= '0' && p.peekAt(1) <= '9':
		return p.numeric()
	case p.keyword("true", false):
		return triple.Literal{Value: "true", Datatype: triple.XSDBoolean}, nil
	case p.keyword("false", false):
		return triple.Literal{Value: "false", Datatype: triple.XSDBoolean}, nil
	}
	return p.prefixedName()
}

func (p *parser) iriRef() (triple.IRI, error) {
	start := p.pos
	p.pos++ // '<'
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errAt(start, nil, "unterminated IRI")
		}
		r, size := p.peekRune()
		switch {
		case r == '>':
			p.pos++
			s, err := p.resolve(b.String())
			if err != nil {
				return "", p.errAt(start, err, "cannot resolve IRI")
			}
			iri, err := triple.NewIRI(s)
			if err != nil {
				return "", p.errAt(start, err, "invalid IRI")
			}
			return iri, nil
		case r == '\\':
			esc := p.pos
			if c := p.peekAt(1); c != 'u' && c != 'U' {
				return "", p.errorf("invalid escape in IRI")
			}
			r, err := p.escape()
			if err != nil {
				return "", err
			}
			if r <= 0x20 || strings.ContainsRune(`<>"{}|^`+"`\\", r) {
				return "", p.errAt(esc, nil, "escaped character %q not allowed in IRI", r)
			}
			b.WriteRune(r)
			continue
		case r <= 0x20 || strings.ContainsRune(`<"{}|^`+"`", r):
			return "", p.errorf("invalid character %q in IRI", r)
		}
		b.WriteRune(r)
		p.pos += size
	}
}

func (p *parser) resolve(ref string) (string, error) {
	if p.base == "" || triple.HasScheme(ref) {
		return ref, nil
	}
	base, err := url.Parse(p.base)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

func isPNCharsBase(r rune) bool {
	return unicode.IsLetter(r)
}

func isPNCharsU(r rune) bool {
	return r == '_' || isPNCharsBase(r)
}

func isPNChars(r rune) bool {
	switch {
	case isPNCharsU(r), r == '-', r >= '0' && r <= '9', r == 0xB7:
		return true
	case r >= 0x300 && r <= 0x36F, r >= 0x203F && r <= 0x2040:
		return true
	}
	return false
}

// scanPrefix consumes a PN_PREFIX, possibly empty.
func (p *parser) scanPrefix() string {
	start := p.pos
	r, size := p.peekRune()
	if size == 0 || !isPNCharsBase(r) {
		return ""
	}
	p.pos += size
	end := p.pos
	for !p.eof() {
		r, size := p.peekRune()
		if r == '.' {
			p.pos += size
			continue
		}
		if !isPNChars(r) {
			break
		}
		p.pos += size
		end = p.pos
	}
	// A prefix never ends with a dot.
	p.pos = end
	return p.src[start:end]
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// scanLocal consumes a PN_LOCAL, possibly empty, and returns it unescaped.
func (p *parser) scanLocal() (string, error) {
	var (
		b    strings.Builder
		dots int
		end  = p.pos
	)
	for first := true; !p.eof(); first = false {
		r, size := p.peekRune()
		switch {
		case r == '.' && !first:
			dots++
			p.pos += size
			continue
		case r == '%':
			if !isHex(p.peekAt(1)) || !isHex(p.peekAt(2)) {
				return "", p.errorf("invalid percent escape in local name")
			}
			size = 3
		case r == '\\':
			c := p.peekAt(1)
			if c == 0 || !strings.ContainsRune("_~.-!$&'()*+,;=/?#@%", rune(c)) {
				return "", p.errorf("invalid escape in local name")
			}
			b.WriteString(strings.Repeat(".", dots))
			dots = 0
			b.WriteByte(c)
			p.pos += 2
			end = p.pos
			continue
		case r == ':', isPNCharsU(r), r >= '0' && r <= '9':
		case !first && isPNChars(r):
		default:
			p.pos = end
			return b.String(), nil
		}
		b.WriteString(strings.Repeat(".", dots))
		dots = 0
		b.WriteString(p.src[p.pos : p.pos+size])
		p.pos += size
		end = p.pos
	}
	p.pos = end
	return b.String(), nil
}

func (p *parser) prefixedName() (triple.IRI, error) {
	start := p.pos
	name := p.scanPrefix()
	if p.peek() != ':' {
		p.pos = start
		if p.eof() {
			return "", p.errorf("unexpected end of input")
		}
		r, _ := p.peekRune()
		return "", p.errorf("unexpected %q", r)
	}
	p.pos++
	local, err := p.scanLocal()
	if err != nil {
		return "", err
	}
	ns, ok := p.prefixes[name]
	if !ok {
		return "", p.errAt(start, ErrUnknownPrefix, "prefix %q is not declared", name)
	}
	iri, err := triple.NewIRI(ns + local)
	if err != nil {
		return "", p.errAt(start, err, "invalid IRI")
	}
	return iri, nil
}

func (p *parser) blankNodeLabel() (triple.BNode, error) {
	start := p.pos
	if !p.hasPrefix("_:") {
		return triple.BNode{}, p.errorf("expected blank node label")
	}
	p.pos += 2
	r, size := p.peekRune()
	if size == 0 || !(isPNCharsU(r) || r >= '0' && r <= '9') {
		return triple.BNode{}, p.errAt(start, nil, "empty blank node label")
	}
	p.pos += size
	end := p.pos
	for !p.eof() {
		r, size := p.peekRune()
		if r == '.' {
			p.pos += size
			continue
		}
		if !isPNChars(r) {
			break
		}
		p.pos += size
		end = p.pos
	}
	p.pos = end
	return p.scope.BNode(p.src[start+2 : end]), nil
}

func (p *parser) blankNodePropertyList() (triple.BNode, bool, error) {
	p.pos++ // '['
	p.skipWS()
	b := p.scope.Fresh()
	if p.peek() == ']' {
		p.pos++
		return b, true, nil
	}
	if err := p.predicateObjectList(b); err != nil {
		return triple.BNode{}, false, err
	}
	if err := p.expect(']', "']'"); err != nil {
		return triple.BNode{}, false, err
	}
	return b, false, nil
}

func (p *parser) collection() (triple.Term, error) {
	start := p.pos
	p.pos++ // '('
	var head, prev triple.Term
	for {
		p.skipWS()
		if p.eof() {
			return nil, p.errAt(start, nil, "unterminated collection")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		node := p.scope.Fresh()
		if prev == nil {
			head = node
		} else {
			p.out = append(p.out, triple.Triple{Subject: prev, Predicate: triple.RDFRest, Object: node})
		}
		idx := len(p.out)
		p.out = append(p.out, triple.Triple{})
		obj, err := p.object()
		if err != nil {
			return nil, err
		}
		p.out[idx] = triple.Triple{Subject: node, Predicate: triple.RDFFirst, Object: obj}
		prev = node
	}
	if head == nil {
		return triple.RDFNil, nil
	}
	p.out = append(p.out, triple.Triple{Subject: prev, Predicate: triple.RDFRest, Object: triple.RDFNil})
	return head, nil
}

func (p *parser) literal() (triple.Term, error) {
	start := p.pos
	s, err := p.quotedString()
	if err != nil {
		return nil, err
	}
	switch {
	case p.peek() == '@':
		p.pos++
		ls := p.pos
		for !p.eof() {
			c := p.src[p.pos]
			if c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
				p.pos++
				continue
			}
			break
		}
		l, err := triple.NewLangLiteral(s, p.src[ls:p.pos])
		if err != nil {
			return nil, p.errAt(ls, err, "invalid language tag")
		}
		return l, nil
	case p.hasPrefix("^^"):
		p.pos += 2
		var (
			dt  triple.IRI
			err error
		)
		if p.peek() == '<' {
			dt, err = p.iriRef()
		} else {
			dt, err = p.prefixedName()
		}
		if err != nil {
			return nil, err
		}
		l, err := triple.NewTypedLiteral(s, dt)
		if err != nil {
			return nil, p.errAt(start, err, "invalid literal")
		}
		return l, nil
	}
	return triple.NewLiteral(s), nil
}

func (p *parser) quotedString() (string, error) {
	start := p.pos
	q := p.src[p.pos]
	long := p.hasPrefix(strings.Repeat(string(q), 3))
	if long {
		p.pos += 3
	} else {
		p.pos++
	}
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errAt(start, nil, "unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case long && c == q && p.peekAt(1) == q && p.peekAt(2) == q:
			p.pos += 3
			return b.String(), nil
		case !long && c == q:
			p.pos++
			return b.String(), nil
		case !long && (c == '\n' || c == '\r'):
			return "", p.errorf("line break in string")
		case c == '\\':
			r, err := p.escape()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			continue
		}
		r, size := p.peekRune()
		b.WriteRune(r)
		p.pos += size
	}
}

// escape decodes the escape sequence at the cursor.
func (p *parser) escape() (rune, error) {
	start := p.pos
	p.pos++ // '\'
	c := p.peek()
	p.pos++
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
		if len(p.src)-p.pos < n {
			return 0, p.errAt(start, nil, "truncated escape")
		}
		v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
		if err != nil {
			return 0, p.errAt(start, nil, "invalid escape %q", p.src[start:p.pos+n])
		}
		p.pos += n
		r := rune(v)
		if !utf8.ValidRune(r) {
			return 0, p.errAt(start, nil, "escape %q is not a valid code point", p.src[start:p.pos])
		}
		return r, nil
	}
	return 0, p.errAt(start, nil, "invalid escape")
}

func (p *parser) digits() int {
	n := 0
	for c := p.peek(); c >= '0' && c <= '9'; c = p.peek() {
		p.pos++
		n++
	}
	return n
}

func (p *parser) numeric() (triple.Term, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	dt := triple.XSDInteger
	n := p.digits()
	if p.peek() == '.' && p.peekAt(1) >= '0' && p.peekAt(1) <= '9' {
		p.pos++
		p.digits()
		dt = triple.XSDDecimal
	}
	if c := p.peek(); (c == 'e' || c == 'E') && (n > 0 || dt == triple.XSDDecimal) {
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if p.digits() == 0 {
			return nil, p.errAt(start, nil, "invalid double literal")
		}
		dt = triple.XSDDouble
	}
	if n == 0 && dt == triple.XSDInteger {
		p.pos = start
		return nil, p.errorf("invalid number")
	}
	return triple.Literal{Value: p.src[start:p.pos], Datatype: dt}, nil
}
