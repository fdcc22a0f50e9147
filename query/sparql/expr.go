package sparql

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cayleygraph/triples/triple"
)

// binding holds one term per query variable; nil is unbound.
type binding []triple.Term

func (b binding) clone() binding {
	c := make(binding, len(b))
	copy(c, b)
	return c
}

// Evaluation errors. A FILTER whose expression fails is false.
var (
	errUnbound = errors.New("unbound variable")
	errType    = errors.New("type error")
)

type expr interface {
	eval(b binding) (triple.Term, error)
}

var (
	trueTerm  = triple.Literal{Value: "true", Datatype: triple.XSDBoolean}
	falseTerm = triple.Literal{Value: "false", Datatype: triple.XSDBoolean}
)

func boolTerm(v bool) triple.Term {
	if v {
		return trueTerm
	}
	return falseTerm
}

type varExpr struct {
	slot int
	name string
}

func (e varExpr) eval(b binding) (triple.Term, error) {
	if t := b[e.slot]; t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("?%s: %w", e.name, errUnbound)
}

type constExpr struct{ t triple.Term }

func (e constExpr) eval(binding) (triple.Term, error) { return e.t, nil }

type notExpr struct{ e expr }

func (e notExpr) eval(b binding) (triple.Term, error) {
	v, err := ebvOf(e.e, b)
	if err != nil {
		return nil, err
	}
	return boolTerm(!v), nil
}

// andExpr and orExpr follow the SPARQL truth tables: an error on one side is
// masked when the other side decides the result.
type andExpr struct{ l, r expr }

func (e andExpr) eval(b binding) (triple.Term, error) {
	l, lerr := ebvOf(e.l, b)
	if lerr == nil && !l {
		return falseTerm, nil
	}
	r, rerr := ebvOf(e.r, b)
	switch {
	case rerr == nil && !r:
		return falseTerm, nil
	case lerr != nil:
		return nil, lerr
	case rerr != nil:
		return nil, rerr
	}
	return trueTerm, nil
}

type orExpr struct{ l, r expr }

func (e orExpr) eval(b binding) (triple.Term, error) {
	l, lerr := ebvOf(e.l, b)
	if lerr == nil && l {
		return trueTerm, nil
	}
	r, rerr := ebvOf(e.r, b)
	switch {
	case rerr == nil && r:
		return trueTerm, nil
	case lerr != nil:
		return nil, lerr
	case rerr != nil:
		return nil, rerr
	}
	return falseTerm, nil
}

type cmpExpr struct {
	op   string
	l, r expr
}

func (e cmpExpr) eval(b binding) (triple.Term, error) {
	l, err := e.l.eval(b)
	if err != nil {
		return nil, err
	}
	r, err := e.r.eval(b)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "=":
		eq, err := equal(l, r)
		return boolTerm(eq), err
	case "!=":
		eq, err := equal(l, r)
		return boolTerm(!eq), err
	}
	c, err := compare(l, r)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "<":
		return boolTerm(c < 0), nil
	case ">":
		return boolTerm(c > 0), nil
	case "<=":
		return boolTerm(c <= 0), nil
	case ">=":
		return boolTerm(c >= 0), nil
	}
	return nil, fmt.Errorf("operator %q: %w", e.op, errType)
}

type boundExpr struct{ slot int }

func (e boundExpr) eval(b binding) (triple.Term, error) {
	return boolTerm(b[e.slot] != nil), nil
}

// callExpr is a builtin function with evaluated arguments.
type callExpr struct {
	name string
	args []expr
	fn   func(args []triple.Term) (triple.Term, error)
}

func (e callExpr) eval(b binding) (triple.Term, error) {
	args := make([]triple.Term, len(e.args))
	for i, a := range e.args {
		v, err := a.eval(b)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return e.fn(args)
}

// builtins maps upper-cased function names to their arity and
// implementation. BOUND and REGEX are handled by the parser.
var builtins = map[string]struct {
	arity int
	fn    func(args []triple.Term) (triple.Term, error)
}{
	"ISIRI":     {1, func(a []triple.Term) (triple.Term, error) { return boolTerm(a[0].Kind() == triple.KindIRI), nil }},
	"ISURI":     {1, func(a []triple.Term) (triple.Term, error) { return boolTerm(a[0].Kind() == triple.KindIRI), nil }},
	"ISBLANK":   {1, func(a []triple.Term) (triple.Term, error) { return boolTerm(a[0].Kind() == triple.KindBNode), nil }},
	"ISLITERAL": {1, func(a []triple.Term) (triple.Term, error) { return boolTerm(a[0].Kind() == triple.KindLiteral), nil }},
	"ISNUMERIC": {1, func(a []triple.Term) (triple.Term, error) { _, ok := numeric(a[0]); return boolTerm(ok), nil }},
	"SAMETERM":  {2, func(a []triple.Term) (triple.Term, error) { return boolTerm(a[0] == a[1]), nil }},
	"STR": {1, func(a []triple.Term) (triple.Term, error) {
		switch t := a[0].(type) {
		case triple.IRI:
			return triple.NewLiteral(string(t)), nil
		case triple.Literal:
			return triple.NewLiteral(t.Value), nil
		}
		return nil, fmt.Errorf("STR of %v: %w", a[0], errType)
	}},
	"LANG": {1, func(a []triple.Term) (triple.Term, error) {
		if l, ok := a[0].(triple.Literal); ok {
			return triple.NewLiteral(l.Lang), nil
		}
		return nil, fmt.Errorf("LANG of %v: %w", a[0], errType)
	}},
	"DATATYPE": {1, func(a []triple.Term) (triple.Term, error) {
		if l, ok := a[0].(triple.Literal); ok {
			return l.Type(), nil
		}
		return nil, fmt.Errorf("DATATYPE of %v: %w", a[0], errType)
	}},
	"LANGMATCHES": {2, func(a []triple.Term) (triple.Term, error) {
		tag, ok1 := simpleString(a[0])
		rng, ok2 := simpleString(a[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("LANGMATCHES: %w", errType)
		}
		if rng == "*" {
			return boolTerm(tag != ""), nil
		}
		tag, rng = strings.ToLower(tag), strings.ToLower(rng)
		return boolTerm(tag == rng || strings.HasPrefix(tag, rng+"-")), nil
	}},
}

type regexExpr struct {
	text, pattern, flags expr
	// re is set when pattern and flags are constants.
	re *regexp.Regexp
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	for _, f := range flags {
		if !strings.ContainsRune("ims", f) {
			return nil, fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func (e regexExpr) eval(b binding) (triple.Term, error) {
	t, err := e.text.eval(b)
	if err != nil {
		return nil, err
	}
	l, ok := t.(triple.Literal)
	if !ok || l.Datatype != "" {
		return nil, fmt.Errorf("REGEX of %v: %w", t, errType)
	}
	re := e.re
	if re == nil {
		p, err := e.pattern.eval(b)
		if err != nil {
			return nil, err
		}
		ps, ok := simpleString(p)
		if !ok {
			return nil, fmt.Errorf("REGEX pattern %v: %w", p, errType)
		}
		fs := ""
		if e.flags != nil {
			f, err := e.flags.eval(b)
			if err != nil {
				return nil, err
			}
			if fs, ok = simpleString(f); !ok {
				return nil, fmt.Errorf("REGEX flags %v: %w", f, errType)
			}
		}
		if re, err = compileRegex(ps, fs); err != nil {
			return nil, err
		}
	}
	return boolTerm(re.MatchString(l.Value)), nil
}

func simpleString(t triple.Term) (string, bool) {
	l, ok := t.(triple.Literal)
	if !ok || !l.IsSimple() {
		return "", false
	}
	return l.Value, true
}

var numericTypes = map[triple.IRI]bool{
	triple.XSDInteger: true,
	triple.XSDDecimal: true,
	triple.XSDDouble:  true,
	triple.XSDFloat:   true,
	triple.XSDLong:    true,
	triple.XSDInt:     true,

	triple.XSDNamespace + "short":              true,
	triple.XSDNamespace + "byte":               true,
	triple.XSDNamespace + "nonNegativeInteger": true,
	triple.XSDNamespace + "positiveInteger":    true,
	triple.XSDNamespace + "nonPositiveInteger": true,
	triple.XSDNamespace + "negativeInteger":    true,
	triple.XSDNamespace + "unsignedLong":       true,
	triple.XSDNamespace + "unsignedInt":        true,
	triple.XSDNamespace + "unsignedShort":      true,
	triple.XSDNamespace + "unsignedByte":       true,
}

// numeric returns the value of a numeric literal.
func numeric(t triple.Term) (float64, bool) {
	l, ok := t.(triple.Literal)
	if !ok || !numericTypes[l.Datatype] {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(l.Value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ebv computes the effective boolean value of a term.
func ebv(t triple.Term) (bool, error) {
	l, ok := t.(triple.Literal)
	if !ok {
		return false, fmt.Errorf("boolean value of %v: %w", t, errType)
	}
	switch {
	case l.Datatype == triple.XSDBoolean:
		return l.Value == "true" || l.Value == "1", nil
	case numericTypes[l.Datatype]:
		v, ok := numeric(l)
		return ok && v != 0 && !math.IsNaN(v), nil
	case l.IsSimple():
		return l.Value != "", nil
	}
	return false, fmt.Errorf("boolean value of %v: %w", t, errType)
}

func ebvOf(e expr, b binding) (bool, error) {
	t, err := e.eval(b)
	if err != nil {
		return false, err
	}
	return ebv(t)
}

// equal implements the = operator.
func equal(l, r triple.Term) (bool, error) {
	if lv, ok := numeric(l); ok {
		if rv, ok := numeric(r); ok {
			return lv == rv, nil
		}
	}
	return l == r, nil
}

// compare orders two terms for the relational operators.
func compare(l, r triple.Term) (int, error) {
	if lv, ok := numeric(l); ok {
		if rv, ok := numeric(r); ok {
			return cmpFloat(lv, rv), nil
		}
	}
	ll, ok1 := l.(triple.Literal)
	rl, ok2 := r.(triple.Literal)
	if ok1 && ok2 && ll.Lang == "" && rl.Lang == "" && ll.Datatype == rl.Datatype {
		switch ll.Datatype {
		case "", triple.XSDDateTime:
			return strings.Compare(ll.Value, rl.Value), nil
		case triple.XSDBoolean:
			lb, _ := ebv(ll)
			rb, _ := ebv(rl)
			return cmpBool(lb, rb), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %v and %v: %w", l, r, errType)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// orderTerms is the total order used by ORDER BY: unbound, blank nodes,
// IRIs, then literals.
func orderTerms(a, b triple.Term) int {
	rank := func(t triple.Term) int {
		if t == nil {
			return 0
		}
		switch t.Kind() {
		case triple.KindBNode:
			return 1
		case triple.KindIRI:
			return 2
		}
		return 3
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		return 0
	case 1:
		x, y := a.(triple.BNode), b.(triple.BNode)
		switch {
		case x.ID() < y.ID():
			return -1
		case x.ID() > y.ID():
			return 1
		}
		return 0
	case 2:
		return strings.Compare(string(a.(triple.IRI)), string(b.(triple.IRI)))
	}
	if c, err := compare(a, b); err == nil {
		return c
	}
	la, lb := a.(triple.Literal), b.(triple.Literal)
	if c := strings.Compare(la.Value, lb.Value); c != 0 {
		return c
	}
	if c := strings.Compare(string(la.Type()), string(lb.Type())); c != 0 {
		return c
	}
	return strings.Compare(la.Lang, lb.Lang)
}
