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

// Package triple defines RDF terms and triples.
//
// Terms are plain comparable values: two terms are the same RDF term exactly
// when they compare equal with ==, so they can be used directly as map keys.
// All terms entering the system go through the validating constructors in
// this package; there is no best-effort coercion from strings.
package triple

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind is the kind of an RDF term.
type Kind byte

const (
	KindIRI Kind = iota + 1
	KindBNode
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBNode:
		return "bnode"
	case KindLiteral:
		return "literal"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Term is an RDF term: an IRI, a blank node or a literal.
type Term interface {
	// String returns the term in N-Triples notation.
	String() string
	Kind() Kind
	isTerm()
}

// ErrInvalidTerm is matched by every term validation error.
var ErrInvalidTerm = errors.New("invalid term")

// InvalidTermError describes a term that failed validation.
type InvalidTermError struct {
	Kind   Kind
	Value  string
	Reason string
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Value, e.Reason)
}

func (e *InvalidTermError) Is(target error) bool { return target == ErrInvalidTerm }

func invalid(k Kind, v, reason string) error {
	return &InvalidTermError{Kind: k, Value: v, Reason: reason}
}

// IRI is an RDF Internationalized Resource Identifier (ex: <name>).
type IRI string

// NewIRI validates s and returns it as an IRI.
func NewIRI(s string) (IRI, error) {
	if err := ValidateIRI(s); err != nil {
		return "", err
	}
	return IRI(s), nil
}

// MustIRI is like NewIRI but panics on invalid input. It is meant for constants.
func MustIRI(s string) IRI {
	iri, err := NewIRI(s)
	if err != nil {
		panic(err)
	}
	return iri
}

// ValidateIRI checks that s is an absolute IRI that can be written as a
// Turtle/N-Triples IRIREF.
func ValidateIRI(s string) error {
	if s == "" {
		return invalid(KindIRI, s, "empty")
	}
	if !utf8.ValidString(s) {
		return invalid(KindIRI, s, "not valid UTF-8")
	}
	if !HasScheme(s) {
		return invalid(KindIRI, s, "relative reference, a scheme is required")
	}
	for _, r := range s {
		if r <= 0x20 || (r >= 0x7f && r <= 0x9f) {
			return invalid(KindIRI, s, fmt.Sprintf("contains control or whitespace character %U", r))
		}
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
			return invalid(KindIRI, s, fmt.Sprintf("contains disallowed character %q", r))
		}
	}
	return nil
}

// HasScheme reports whether s starts with a URI scheme followed by ':'.
func HasScheme(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		case i > 0 && r == ':':
			return true
		default:
			return false
		}
	}
	return false
}

func (s IRI) String() string { return `<` + string(s) + `>` }
func (IRI) Kind() Kind        { return KindIRI }
func (IRI) isTerm()           {}

// Literal is an RDF literal. Datatype and Lang are mutually exclusive; a
// literal without either is a simple literal (xsd:string).
type Literal struct {
	Value    string
	Datatype IRI
	Lang     string
}

// NewLiteral returns a simple literal.
func NewLiteral(v string) Literal {
	return Literal{Value: v}
}

// NewTypedLiteral returns a literal with the given datatype. A datatype of
// xsd:string yields the equivalent simple literal.
func NewTypedLiteral(v string, datatype IRI) (Literal, error) {
	if err := ValidateIRI(string(datatype)); err != nil {
		return Literal{}, invalid(KindLiteral, v, "bad datatype: "+err.Error())
	}
	switch datatype {
	case XSDString:
		return Literal{Value: v}, nil
	case RDFLangString:
		return Literal{}, invalid(KindLiteral, v, "rdf:langString requires a language tag")
	}
	return Literal{Value: v, Datatype: datatype}, nil
}

// NewLangLiteral returns a language-tagged literal. The tag is normalized to
// lower case.
func NewLangLiteral(v, lang string) (Literal, error) {
	if !validLang(lang) {
		return Literal{}, invalid(KindLiteral, v, fmt.Sprintf("bad language tag %q", lang))
	}
	return Literal{Value: v, Lang: strings.ToLower(lang)}, nil
}

func validLang(lang string) bool {
	if lang == "" {
		return false
	}
	for i, part := range strings.Split(lang, "-") {
		if part == "" {
			return false
		}
		for _, r := range part {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case i > 0 && r >= '0' && r <= '9':
			default:
				return false
			}
		}
	}
	return true
}

func (l Literal) validate() error {
	if l.Lang != "" && l.Datatype != "" {
		return invalid(KindLiteral, l.Value, "both datatype and language set")
	}
	if l.Lang != "" && !validLang(l.Lang) {
		return invalid(KindLiteral, l.Value, fmt.Sprintf("bad language tag %q", l.Lang))
	}
	if l.Lang != strings.ToLower(l.Lang) {
		return invalid(KindLiteral, l.Value, fmt.Sprintf("language tag %q is not lower case", l.Lang))
	}
	if l.Datatype != "" {
		if err := ValidateIRI(string(l.Datatype)); err != nil {
			return invalid(KindLiteral, l.Value, "bad datatype: "+err.Error())
		}
		if l.Datatype == XSDString {
			return invalid(KindLiteral, l.Value, "xsd:string must be a simple literal")
		}
	}
	if !utf8.ValidString(l.Value) {
		return invalid(KindLiteral, l.Value, "not valid UTF-8")
	}
	return nil
}

// Type returns the datatype of the literal, including the implicit
// xsd:string and rdf:langString types.
func (l Literal) Type() IRI {
	switch {
	case l.Lang != "":
		return RDFLangString
	case l.Datatype != "":
		return l.Datatype
	}
	return XSDString
}

// IsSimple reports whether l has neither a datatype nor a language.
func (l Literal) IsSimple() bool { return l.Lang == "" && l.Datatype == "" }

func (l Literal) String() string {
	s := Quote(l.Value)
	switch {
	case l.Lang != "":
		s += "@" + l.Lang
	case l.Datatype != "":
		s += "^^" + l.Datatype.String()
	}
	return s
}
func (Literal) Kind() Kind { return KindLiteral }
func (Literal) isTerm()    {}

// Quote returns s as a double-quoted string with Turtle escapes applied.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Validate checks that t is a structurally valid term.
func Validate(t Term) error {
	switch t := t.(type) {
	case nil:
		return invalid(0, "", "nil term")
	case IRI:
		return ValidateIRI(string(t))
	case BNode:
		if t.id == 0 {
			return invalid(KindBNode, t.label, "not allocated by a scope")
		}
		return nil
	case Literal:
		return t.validate()
	}
	return invalid(0, fmt.Sprint(t), fmt.Sprintf("unsupported term type %T", t))
}
