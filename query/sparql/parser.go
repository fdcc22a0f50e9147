package sparql

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cayleygraph/triples/query"
	"github.com/cayleygraph/triples/triple"
)

// Options configure parsing.
type Options struct {
	// Prefixes are available without a PREFIX declaration. The query may
	// override them.
	Prefixes map[string]string
	// Base resolves relative IRIs until the query declares BASE.
	Base string
}

// Parse parses a SPARQL query.
//
// Incomplete input, such as an unclosed group, is reported as a *ParseError
// matching query.ErrParseMore.
func Parse(text string) (*Query, error) {
	return ParseWith(text, nil)
}

// ParseWith parses a SPARQL query with the given options.
func ParseWith(text string, opts *Options) (*Query, error) {
	p := &parser{
		src:      text,
		prefixes: make(map[string]string),
		q: &Query{
			vars:  make(map[string]int),
			limit: -1,
		},
	}
	if opts != nil {
		for k, v := range opts.Prefixes {
			p.prefixes[k] = v
		}
		p.base = opts.Base
	}
	toks, err := tokenize(text)
	if err != nil {
		var le *lexError
		if errors.As(err, &le) {
			pe := p.newError(le.pos, nil, "%s", le.msg)
			if le.incomplete {
				pe.Err = query.ErrParseMore
			}
			return nil, pe
		}
		return nil, err
	}
	p.toks = toks
	if err := p.parseQuery(); err != nil {
		return nil, err
	}
	return p.q, nil
}

type parser struct {
	src      string
	toks     []token
	i        int
	prefixes map[string]string
	base     string
	q        *Query
	star     bool
	anon     int
}

func (p *parser) newError(off int, err error, format string, args ...interface{}) *ParseError {
	if off > len(p.src) {
		off = len(p.src)
	}
	before := p.src[:off]
	line := 1 + strings.Count(before, "\n")
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	return &ParseError{
		Line:   line,
		Column: 1 + utf8.RuneCountInString(before),
		Msg:    fmt.Sprintf(format, args...),
		Err:    err,
	}
}

// errorf reports an error at t. Running out of input means the query may
// still be completed.
func (p *parser) errorf(t token, format string, args ...interface{}) error {
	var err error
	if t.kind == tokEOF {
		err = query.ErrParseMore
	}
	return p.newError(t.pos, err, format, args...)
}

func (p *parser) unsupported(t token, format string, args ...interface{}) error {
	return p.newError(t.pos, ErrUnsupported, format, args...)
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(s string) (token, error) {
	t := p.next()
	if !t.is(s) {
		return t, p.errorf(t, "expected %q, got %v", s, t)
	}
	return t, nil
}

// variable returns the slot of the named variable, allocating it.
func (p *parser) variable(name string) int {
	if s, ok := p.q.vars[name]; ok {
		return s
	}
	s := len(p.q.names)
	p.q.vars[name] = s
	p.q.names = append(p.q.names, name)
	return s
}

// patternVariable is like variable, recording the name as visible to
// SELECT *.
func (p *parser) patternVariable(name string) int {
	_, seen := p.q.vars[name]
	s := p.variable(name)
	if !seen || !p.isVisible(name) {
		p.q.visible = append(p.q.visible, name)
	}
	return s
}

func (p *parser) isVisible(name string) bool {
	for _, v := range p.q.visible {
		if v == name {
			return true
		}
	}
	return false
}

// hidden returns a slot for a blank node in a pattern. Blank nodes act as
// variables that cannot be projected.
func (p *parser) hidden(label string) int {
	return p.variable("_:" + label)
}

func (p *parser) parseQuery() error {
	if p.peek().kind == tokEOF {
		return p.newError(0, nil, "empty query")
	}
	if err := p.prologue(); err != nil {
		return err
	}
	t := p.next()
	switch {
	case t.is("SELECT"):
		p.q.form = Select
		if err := p.selectClause(); err != nil {
			return err
		}
	case t.is("ASK"):
		p.q.form = Ask
	case t.is("CONSTRUCT"), t.is("DESCRIBE"):
		return p.unsupported(t, "%s queries", strings.ToUpper(t.val))
	default:
		return p.errorf(t, "expected SELECT or ASK, got %v", t)
	}
	if t := p.peek(); t.is("FROM") {
		return p.unsupported(t, "dataset clauses")
	}
	if p.peek().is("WHERE") {
		p.next()
	}
	g, err := p.groupGraphPattern()
	if err != nil {
		return err
	}
	p.q.where = g
	if err := p.solutionModifiers(); err != nil {
		return err
	}
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected %v after query", t)
	}
	return p.finishProjection()
}

func (p *parser) prologue() error {
	for {
		t := p.peek()
		switch {
		case t.is("PREFIX"):
			p.next()
			name := p.next()
			if name.kind != tokPName || !strings.HasSuffix(name.val, ":") {
				return p.errorf(name, "expected prefix name, got %v", name)
			}
			iri := p.next()
			if iri.kind != tokIRI {
				return p.errorf(iri, "expected IRI, got %v", iri)
			}
			v, err := p.resolve(iri)
			if err != nil {
				return err
			}
			p.prefixes[strings.TrimSuffix(name.val, ":")] = string(v)
		case t.is("BASE"):
			p.next()
			iri := p.next()
			if iri.kind != tokIRI {
				return p.errorf(iri, "expected IRI, got %v", iri)
			}
			v, err := p.resolve(iri)
			if err != nil {
				return err
			}
			p.base = string(v)
		default:
			return nil
		}
	}
}

func (p *parser) selectClause() error {
	if t := p.peek(); t.is("DISTINCT") || t.is("REDUCED") {
		p.next()
		p.q.distinct = t.is("DISTINCT")
	}
	if p.peek().is("*") {
		p.next()
		p.star = true
		return nil
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokVar:
			p.next()
			p.q.proj = append(p.q.proj, projection{name: t.val, slot: p.variable(t.val)})
			continue
		case t.is("("):
			if err := p.aggregate(); err != nil {
				return err
			}
			continue
		}
		if len(p.q.proj) == 0 {
			return p.errorf(t, "expected variables or '*', got %v", t)
		}
		return nil
	}
}

// aggregate parses (COUNT([DISTINCT] * | ?v) AS ?name).
func (p *parser) aggregate() error {
	p.next() // (
	t := p.next()
	if !t.is("COUNT") {
		if t.kind == tokEOF {
			return p.errorf(t, "expected COUNT")
		}
		return p.unsupported(t, "projection expression %v", t)
	}
	if _, err := p.expect("("); err != nil {
		return err
	}
	agg := &countAgg{slot: -1}
	if p.peek().is("DISTINCT") {
		p.next()
		agg.distinct = true
	}
	switch t := p.next(); {
	case t.is("*"):
	case t.kind == tokVar:
		agg.slot = p.variable(t.val)
	default:
		return p.errorf(t, "expected '*' or variable in COUNT, got %v", t)
	}
	if _, err := p.expect(")"); err != nil {
		return err
	}
	if _, err := p.expect("AS"); err != nil {
		return err
	}
	v := p.next()
	if v.kind != tokVar {
		return p.errorf(v, "expected variable after AS, got %v", v)
	}
	if _, err := p.expect(")"); err != nil {
		return err
	}
	p.q.proj = append(p.q.proj, projection{name: v.val, slot: p.variable(v.val), count: agg})
	return nil
}

func (p *parser) finishProjection() error {
	if p.star {
		for _, name := range p.q.visible {
			p.q.proj = append(p.q.proj, projection{name: name, slot: p.q.vars[name]})
		}
		return nil
	}
	counts := 0
	for _, pr := range p.q.proj {
		if pr.count != nil {
			counts++
			if p.isVisible(pr.name) {
				return p.newError(0, nil, "COUNT alias ?%s is already used in the pattern", pr.name)
			}
		}
	}
	if counts > 0 && counts < len(p.q.proj) {
		return p.newError(0, ErrUnsupported, "mixing COUNT with plain variables requires GROUP BY")
	}
	return nil
}

func (p *parser) groupGraphPattern() (*group, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	g := &group{}
	for {
		t := p.peek()
		switch {
		case t.is("}"):
			p.next()
			return g, nil
		case t.kind == tokEOF:
			return nil, p.errorf(t, "expected '}'")
		case t.is("{"):
			sub, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			if !p.peek().is("UNION") {
				g.elems = append(g.elems, sub)
				continue
			}
			u := union{branches: []*group{sub}}
			for p.peek().is("UNION") {
				p.next()
				b, err := p.groupGraphPattern()
				if err != nil {
					return nil, err
				}
				u.branches = append(u.branches, b)
			}
			g.elems = append(g.elems, u)
		case t.is("OPTIONAL"):
			p.next()
			sub, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			g.elems = append(g.elems, optional{g: sub})
		case t.is("FILTER"):
			p.next()
			e, err := p.constraint()
			if err != nil {
				return nil, err
			}
			g.filters = append(g.filters, e)
		case t.is("."):
			p.next()
		case t.is("MINUS"), t.is("BIND"), t.is("VALUES"), t.is("GRAPH"), t.is("SERVICE"):
			return nil, p.unsupported(t, "%s", strings.ToUpper(t.val))
		case t.is("SELECT"):
			return nil, p.unsupported(t, "subqueries")
		default:
			if err := p.triplesSameSubject(g); err != nil {
				return nil, err
			}
			if t := p.peek(); startsTerm(t) {
				return nil, p.errorf(t, "expected '.' before %v", t)
			}
		}
	}
}

func startsTerm(t token) bool {
	switch t.kind {
	case tokVar, tokIRI, tokPName, tokBlank, tokString, tokInteger, tokDecimal, tokDouble:
		return true
	}
	return t.is("[")
}

func (p *parser) triplesSameSubject(g *group) error {
	t := p.peek()
	if t.is("[") {
		s, err := p.blankNodePropertyList(g)
		if err != nil {
			return err
		}
		// [ p o ] alone is a complete statement.
		if n := p.peek(); n.is(".") || n.is("}") {
			return nil
		}
		return p.propertyList(g, s)
	}
	s, err := p.term()
	if err != nil {
		return err
	}
	return p.propertyList(g, s)
}

func (p *parser) blankNodePropertyList(g *group) (slot, error) {
	p.next() // [
	p.anon++
	// No label or variable name can start with '['.
	s := slot{v: p.variable("[]" + strconv.Itoa(p.anon))}
	if p.peek().is("]") {
		p.next()
		return s, nil
	}
	if err := p.propertyList(g, s); err != nil {
		return slot{}, err
	}
	if _, err := p.expect("]"); err != nil {
		return slot{}, err
	}
	return s, nil
}

func (p *parser) propertyList(g *group, subj slot) error {
	for {
		pred, err := p.verb()
		if err != nil {
			return err
		}
		for {
			var obj slot
			if p.peek().is("[") {
				obj, err = p.blankNodePropertyList(g)
			} else {
				obj, err = p.term()
			}
			if err != nil {
				return err
			}
			g.elems = append(g.elems, triplePattern{s: subj, p: pred, o: obj})
			if !p.peek().is(",") {
				break
			}
			p.next()
		}
		if !p.peek().is(";") {
			return nil
		}
		for p.peek().is(";") {
			p.next()
		}
		if t := p.peek(); t.is(".") || t.is("}") || t.is("]") {
			return nil
		}
	}
}

func (p *parser) verb() (slot, error) {
	t := p.peek()
	if t.kind == tokIdent && t.val == "a" {
		p.next()
		return slot{v: -1, term: triple.RDFType}, nil
	}
	switch t.kind {
	case tokVar, tokIRI, tokPName:
		return p.term()
	}
	return slot{}, p.errorf(t, "expected predicate, got %v", t)
}

// term parses a variable, blank node or constant in a triple pattern.
func (p *parser) term() (slot, error) {
	t := p.peek()
	switch t.kind {
	case tokVar:
		p.next()
		return slot{v: p.patternVariable(t.val)}, nil
	case tokBlank:
		p.next()
		return slot{v: p.hidden(t.val)}, nil
	}
	if t.is("(") {
		return slot{}, p.unsupported(t, "collections in patterns")
	}
	c, err := p.constant()
	if err != nil {
		return slot{}, err
	}
	return slot{v: -1, term: c}, nil
}

func (p *parser) resolve(t token) (triple.IRI, error) {
	s := t.val
	if p.base != "" && !triple.HasScheme(s) {
		base, err := url.Parse(p.base)
		if err == nil {
			var ref *url.URL
			if ref, err = url.Parse(s); err == nil {
				s = base.ResolveReference(ref).String()
			}
		}
		if err != nil {
			return "", p.errorf(t, "cannot resolve IRI %v: %v", t, err)
		}
	}
	iri, err := triple.NewIRI(s)
	if err != nil {
		return "", p.newError(t.pos, err, "invalid IRI")
	}
	return iri, nil
}

func (p *parser) iri() (triple.IRI, error) {
	t := p.next()
	switch t.kind {
	case tokIRI:
		return p.resolve(t)
	case tokPName:
		i := strings.IndexByte(t.val, ':')
		prefix, local := t.val[:i], t.val[i+1:]
		ns, ok := p.prefixes[prefix]
		if !ok {
			return "", p.newError(t.pos, nil, "prefix %q is not declared", prefix)
		}
		iri, err := triple.NewIRI(ns + unescapeLocal(local))
		if err != nil {
			return "", p.newError(t.pos, err, "invalid IRI")
		}
		return iri, nil
	}
	return "", p.errorf(t, "expected IRI, got %v", t)
}

func unescapeLocal(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// constant parses an IRI or a literal.
func (p *parser) constant() (triple.Term, error) {
	t := p.peek()
	switch t.kind {
	case tokIRI, tokPName:
		return p.iri()
	case tokString:
		p.next()
		switch n := p.peek(); {
		case n.kind == tokLang:
			p.next()
			l, err := triple.NewLangLiteral(t.val, n.val)
			if err != nil {
				return nil, p.newError(n.pos, err, "invalid language tag")
			}
			return l, nil
		case n.is("^^"):
			p.next()
			dt, err := p.iri()
			if err != nil {
				return nil, err
			}
			l, err := triple.NewTypedLiteral(t.val, dt)
			if err != nil {
				return nil, p.newError(t.pos, err, "invalid literal")
			}
			return l, nil
		}
		return triple.NewLiteral(t.val), nil
	case tokInteger:
		p.next()
		return triple.Literal{Value: t.val, Datatype: triple.XSDInteger}, nil
	case tokDecimal:
		p.next()
		return triple.Literal{Value: t.val, Datatype: triple.XSDDecimal}, nil
	case tokDouble:
		p.next()
		return triple.Literal{Value: t.val, Datatype: triple.XSDDouble}, nil
	case tokIdent:
		if t.is("true") || t.is("false") {
			p.next()
			return triple.Literal{Value: strings.ToLower(t.val), Datatype: triple.XSDBoolean}, nil
		}
	}
	return nil, p.errorf(t, "expected term, got %v", t)
}

func (p *parser) solutionModifiers() error {
	if t := p.peek(); t.is("GROUP") || t.is("HAVING") {
		return p.unsupported(t, "%s", strings.ToUpper(t.val))
	}
	if p.peek().is("ORDER") {
		p.next()
		if _, err := p.expect("BY"); err != nil {
			return err
		}
		for {
			c, ok, err := p.orderCondition()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			p.q.order = append(p.q.order, c)
		}
		if len(p.q.order) == 0 {
			t := p.peek()
			return p.errorf(t, "expected ORDER BY condition, got %v", t)
		}
	}
	for i := 0; i < 2; i++ {
		t := p.peek()
		var dst *int
		switch {
		case t.is("LIMIT"):
			dst = &p.q.limit
		case t.is("OFFSET"):
			dst = &p.q.offset
		default:
			return nil
		}
		p.next()
		n := p.next()
		if n.kind != tokInteger {
			return p.errorf(n, "expected non-negative integer after %s, got %v", strings.ToUpper(t.val), n)
		}
		v, err := strconv.Atoi(n.val)
		if err != nil || v < 0 {
			return p.newError(n.pos, nil, "invalid %s %s", strings.ToUpper(t.val), n.val)
		}
		*dst = v
	}
	return nil
}

func (p *parser) orderCondition() (orderCond, bool, error) {
	t := p.peek()
	switch {
	case t.is("ASC"), t.is("DESC"):
		p.next()
		if _, err := p.expect("("); err != nil {
			return orderCond{}, false, err
		}
		e, err := p.expr()
		if err != nil {
			return orderCond{}, false, err
		}
		if _, err := p.expect(")"); err != nil {
			return orderCond{}, false, err
		}
		return orderCond{desc: t.is("DESC"), e: e}, true, nil
	case t.kind == tokVar:
		p.next()
		return orderCond{e: varExpr{slot: p.variable(t.val), name: t.val}}, true, nil
	case t.is("("):
		p.next()
		e, err := p.expr()
		if err != nil {
			return orderCond{}, false, err
		}
		if _, err := p.expect(")"); err != nil {
			return orderCond{}, false, err
		}
		return orderCond{e: e}, true, nil
	case t.kind == tokIdent && !t.is("LIMIT") && !t.is("OFFSET"):
		e, err := p.call()
		return orderCond{e: e}, err == nil, err
	}
	return orderCond{}, false, nil
}

// constraint parses the argument of FILTER.
func (p *parser) constraint() (expr, error) {
	t := p.peek()
	switch {
	case t.is("("):
		p.next()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.kind == tokIdent:
		return p.call()
	}
	return nil, p.errorf(t, "expected '(' or function call after FILTER, got %v", t)
}

func (p *parser) expr() (expr, error) {
	l, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().is("||") {
		p.next()
		r, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		l = orExpr{l: l, r: r}
	}
	return l, nil
}

func (p *parser) andExpr() (expr, error) {
	l, err := p.relExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().is("&&") {
		p.next()
		r, err := p.relExpr()
		if err != nil {
			return nil, err
		}
		l = andExpr{l: l, r: r}
	}
	return l, nil
}

func (p *parser) relExpr() (expr, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokPunct {
		return l, nil
	}
	switch t.val {
	case "=", "!=", "<", ">", "<=", ">=":
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		return cmpExpr{op: t.val, l: l, r: r}, nil
	}
	return l, nil
}

func (p *parser) unary() (expr, error) {
	if p.peek().is("!") {
		p.next()
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notExpr{e: e}, nil
	}
	return p.primary()
}

func (p *parser) primary() (expr, error) {
	t := p.peek()
	switch {
	case t.is("("):
		p.next()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.kind == tokVar:
		p.next()
		return varExpr{slot: p.variable(t.val), name: t.val}, nil
	case t.kind == tokIdent && !t.is("true") && !t.is("false"):
		return p.call()
	case t.kind == tokIRI || t.kind == tokPName:
		if p.peekAt(1).is("(") {
			return nil, p.unsupported(t, "extension function %v", t)
		}
	case t.is("+"), t.is("-"), t.is("*"):
		return nil, p.unsupported(t, "arithmetic")
	}
	c, err := p.constant()
	if err != nil {
		return nil, err
	}
	return constExpr{t: c}, nil
}

// call parses a builtin function call.
func (p *parser) call() (expr, error) {
	t := p.next()
	name := strings.ToUpper(t.val)
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	switch name {
	case "BOUND":
		v := p.next()
		if v.kind != tokVar {
			return nil, p.errorf(v, "BOUND expects a variable, got %v", v)
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return boundExpr{slot: p.variable(v.val)}, nil
	case "REGEX":
		args, err := p.args(t, 2, 3)
		if err != nil {
			return nil, err
		}
		e := regexExpr{text: args[0], pattern: args[1]}
		if len(args) == 3 {
			e.flags = args[2]
		}
		if err := p.precompile(t, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	b, ok := builtins[name]
	if !ok {
		return nil, p.unsupported(t, "function %s", name)
	}
	args, err := p.args(t, b.arity, b.arity)
	if err != nil {
		return nil, err
	}
	return callExpr{name: name, args: args, fn: b.fn}, nil
}

// args parses the arguments of a call after its opening parenthesis.
func (p *parser) args(fn token, min, max int) ([]expr, error) {
	var args []expr
	if !p.peek().is(")") {
		for {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if !p.peek().is(",") {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if len(args) < min || len(args) > max {
		return nil, p.newError(fn.pos, nil, "%s expects %d arguments, got %d", strings.ToUpper(fn.val), min, len(args))
	}
	return args, nil
}

func (p *parser) precompile(fn token, e *regexExpr) error {
	pat, ok := e.pattern.(constExpr)
	if !ok {
		return nil
	}
	ps, ok := simpleString(pat.t)
	if !ok {
		return p.newError(fn.pos, nil, "REGEX pattern must be a simple literal")
	}
	fs := ""
	if e.flags != nil {
		f, ok := e.flags.(constExpr)
		if !ok {
			return nil
		}
		if fs, ok = simpleString(f.t); !ok {
			return p.newError(fn.pos, nil, "REGEX flags must be a simple literal")
		}
	}
	re, err := compileRegex(ps, fs)
	if err != nil {
		return p.newError(fn.pos, err, "invalid regular expression")
	}
	e.re = re
	return nil
}
