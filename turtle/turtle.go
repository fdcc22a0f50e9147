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

// Package turtle implements the RDF 1.1 Turtle format.
//
// Parsing is all-or-nothing: the first malformed statement aborts the parse
// and no triples are returned. Blank node labels are scoped to a single
// document unless a shared triple.Scope is supplied.
//
// Importing the package registers a "turtle" quad.Format.
package turtle

import (
	"errors"
	"fmt"
	"io"

	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/triple"
)

// ErrUnknownPrefix is matched by parse errors caused by an undeclared prefix.
var ErrUnknownPrefix = errors.New("unknown prefix")

// ParseError is a syntax or term error at a given position of the input.
// Line and Column are 1-based; columns count runes.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	s := fmt.Sprintf("turtle: line %d, column %d: %s", e.Line, e.Column, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is the result of decoding a Turtle document.
type Document struct {
	Triples []triple.Triple
	// Prefixes declared in the document, by prefix name.
	Prefixes map[string]string
	// Base in effect at the end of the document.
	Base string
}

// Decoder reads a Turtle document from an input stream.
type Decoder struct {
	r     io.Reader
	base  string
	scope *triple.Scope
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// SetBase sets the IRI that relative references are resolved against until
// the document declares its own base.
func (d *Decoder) SetBase(base string) {
	d.base = base
}

// SetScope makes the decoder allocate blank nodes from s. By default every
// call to Decode uses a fresh scope.
func (d *Decoder) SetScope(s *triple.Scope) {
	d.scope = s
}

// Decode reads the whole input and parses it.
func (d *Decoder) Decode() (*Document, error) {
	data, err := io.ReadAll(d.r)
	if err != nil {
		return nil, err
	}
	p := newParser(string(data), d.base, d.scope)
	ts, err := p.parse()
	if err != nil {
		return nil, err
	}
	if clog.V(2) {
		clog.Infof("turtle: parsed %d triples, %d prefixes", len(ts), len(p.prefixes))
	}
	return &Document{Triples: ts, Prefixes: p.prefixes, Base: p.base}, nil
}

// Parse parses a Turtle document.
func Parse(text string) ([]triple.Triple, error) {
	return newParser(text, "", nil).parse()
}

// Decode reads and parses a Turtle document from r.
func Decode(r io.Reader) ([]triple.Triple, error) {
	doc, err := NewDecoder(r).Decode()
	if err != nil {
		return nil, err
	}
	return doc.Triples, nil
}
