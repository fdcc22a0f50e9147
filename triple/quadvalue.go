package triple

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cayleygraph/quad"
)

// ErrNamedGraph is returned when converting a quad that is not in the default graph.
var ErrNamedGraph = errors.New("named graphs are not supported")

// ToValue converts a term to its cayley quad value.
func ToValue(t Term) quad.Value {
	switch t := t.(type) {
	case IRI:
		return quad.IRI(t)
	case BNode:
		// Handles are unique per process, labels are not.
		return quad.BNode("b" + strconv.FormatUint(t.id, 10))
	case Literal:
		switch {
		case t.Lang != "":
			return quad.LangString{Value: quad.String(t.Value), Lang: t.Lang}
		case t.Datatype != "":
			return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}
		}
		return quad.String(t.Value)
	}
	return nil
}

// FromValue converts a cayley quad value to a term. Blank nodes are resolved
// in scope.
func FromValue(v quad.Value, scope *Scope) (Term, error) {
	switch v := v.(type) {
	case nil:
		return nil, invalid(0, "", "nil value")
	case quad.IRI:
		return NewIRI(string(v.Full()))
	case quad.BNode:
		if v == "" {
			return scope.Fresh(), nil
		}
		return scope.BNode(string(v)), nil
	case quad.String:
		return NewLiteral(string(v)), nil
	case quad.LangString:
		return NewLangLiteral(string(v.Value), v.Lang)
	case quad.TypedString:
		return NewTypedLiteral(string(v.Value), IRI(v.Type.Full()))
	case quad.Int:
		return Literal{Value: strconv.FormatInt(int64(v), 10), Datatype: XSDInteger}, nil
	case quad.Float:
		return Literal{Value: strconv.FormatFloat(float64(v), 'E', -1, 64), Datatype: XSDDouble}, nil
	case quad.Bool:
		return Literal{Value: strconv.FormatBool(bool(v)), Datatype: XSDBoolean}, nil
	case quad.Time:
		return Literal{Value: time.Time(v).Format(time.RFC3339Nano), Datatype: XSDDateTime}, nil
	}
	return nil, invalid(0, v.String(), fmt.Sprintf("unsupported quad value %T", v))
}

// ToQuad converts a triple to a cayley quad in the default graph.
func ToQuad(t Triple) quad.Quad {
	return quad.Quad{
		Subject:   ToValue(t.Subject),
		Predicate: ToValue(t.Predicate),
		Object:    ToValue(t.Object),
	}
}

// FromQuad converts a cayley quad to a validated triple.
func FromQuad(q quad.Quad, scope *Scope) (Triple, error) {
	if q.Label != nil {
		return Triple{}, fmt.Errorf("%v: %w", q.Label, ErrNamedGraph)
	}
	var (
		t   Triple
		err error
	)
	if t.Subject, err = FromValue(q.Subject, scope); err != nil {
		return Triple{}, fmt.Errorf("subject: %w", err)
	}
	if t.Predicate, err = FromValue(q.Predicate, scope); err != nil {
		return Triple{}, fmt.Errorf("predicate: %w", err)
	}
	if t.Object, err = FromValue(q.Object, scope); err != nil {
		return Triple{}, fmt.Errorf("object: %w", err)
	}
	return t, t.Validate()
}
