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

package triple

import (
	"fmt"

	"github.com/cayleygraph/quad/voc/rdf"
)

// XSD namespace and the datatypes the codecs and the query engine know about.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	XSDString   = IRI(XSDNamespace + "string")
	XSDBoolean  = IRI(XSDNamespace + "boolean")
	XSDInteger  = IRI(XSDNamespace + "integer")
	XSDDecimal  = IRI(XSDNamespace + "decimal")
	XSDDouble   = IRI(XSDNamespace + "double")
	XSDFloat    = IRI(XSDNamespace + "float")
	XSDLong     = IRI(XSDNamespace + "long")
	XSDInt      = IRI(XSDNamespace + "int")
	XSDDateTime = IRI(XSDNamespace + "dateTime")
)

// RDF vocabulary terms used by the Turtle syntax.
const (
	RDFType       = IRI(rdf.NS + "type")
	RDFFirst      = IRI(rdf.NS + "first")
	RDFRest       = IRI(rdf.NS + "rest")
	RDFNil        = IRI(rdf.NS + "nil")
	RDFLangString = IRI(rdf.NS + "langString")
)

// Direction specifies a position in a triple.
type Direction byte

// List of the valid directions of a triple.
const (
	Any Direction = iota
	Subject
	Predicate
	Object
)

// Directions lists the three positions of a triple in order.
var Directions = []Direction{Subject, Predicate, Object}

func (d Direction) String() string {
	switch d {
	case Any:
		return "any"
	case Subject:
		return "subject"
	case Predicate:
		return "predicate"
	case Object:
		return "object"
	default:
		return fmt.Sprint("illegal direction:", byte(d))
	}
}

// Triple is an RDF statement in the default graph.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple validates the terms and their positions and returns the triple.
func NewTriple(s, p, o Term) (Triple, error) {
	t := Triple{Subject: s, Predicate: p, Object: o}
	if err := t.Validate(); err != nil {
		return Triple{}, err
	}
	return t, nil
}

// Validate checks every term and that subject and predicate have allowed kinds.
func (t Triple) Validate() error {
	for _, d := range Directions {
		if err := Validate(t.Get(d)); err != nil {
			return fmt.Errorf("%v: %w", d, err)
		}
	}
	if k := t.Subject.Kind(); k != KindIRI && k != KindBNode {
		return fmt.Errorf("subject: %w", invalid(k, t.Subject.String(), "subject must be an IRI or blank node"))
	}
	if k := t.Predicate.Kind(); k != KindIRI {
		return fmt.Errorf("predicate: %w", invalid(k, t.Predicate.String(), "predicate must be an IRI"))
	}
	return nil
}

// Get returns the term at direction d.
func (t Triple) Get(d Direction) Term {
	switch d {
	case Subject:
		return t.Subject
	case Predicate:
		return t.Predicate
	case Object:
		return t.Object
	default:
		panic(d.String())
	}
}

// String prints the triple in N-Triples format.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}
