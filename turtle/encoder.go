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
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cayleygraph/triples/triple"
)

// Options control the output of Encode.
type Options struct {
	// Prefixes are declared at the top of the document and used to
	// abbreviate IRIs.
	Prefixes map[string]string
}

// Encode writes triples to w as a Turtle document.
func Encode(w io.Writer, ts []triple.Triple, opts *Options) error {
	enc := NewEncoder(w)
	if opts != nil {
		enc.SetPrefixes(opts.Prefixes)
	}
	return enc.Encode(ts)
}

// Encoder serializes triples as Turtle.
//
// Output is deterministic: statements are grouped by subject in order of
// first appearance, predicates in order of first appearance within the
// subject, and blank nodes are relabeled _:b0, _:b1, ... as they are
// written.
type Encoder struct {
	w        io.Writer
	prefixes map[string]string
	names    []string
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// SetPrefixes sets the prefix declarations of the output.
func (e *Encoder) SetPrefixes(prefixes map[string]string) {
	e.prefixes = prefixes
	e.names = e.names[:0]
	for name := range prefixes {
		e.names = append(e.names, name)
	}
	sort.Strings(e.names)
}

type subjectGroup struct {
	preds []triple.Term
	objs  map[triple.Term][]triple.Term
}

type termWriter struct {
	*bufio.Writer
	enc    *Encoder
	labels map[triple.BNode]string
}

// Encode validates all triples, then writes them as a single document.
func (e *Encoder) Encode(ts []triple.Triple) error {
	for _, name := range e.names {
		if !validPrefixName(name) {
			return fmt.Errorf("turtle: invalid prefix name %q", name)
		}
		if err := triple.ValidateIRI(e.prefixes[name]); err != nil {
			return fmt.Errorf("turtle: prefix %q: %w", name, err)
		}
	}
	var (
		order  []triple.Term
		groups = make(map[triple.Term]*subjectGroup)
	)
	for _, t := range ts {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("turtle: cannot encode triple: %w", err)
		}
		g, ok := groups[t.Subject]
		if !ok {
			g = &subjectGroup{objs: make(map[triple.Term][]triple.Term)}
			groups[t.Subject] = g
			order = append(order, t.Subject)
		}
		objs, ok := g.objs[t.Predicate]
		if !ok {
			g.preds = append(g.preds, t.Predicate)
		}
		g.objs[t.Predicate] = append(objs, t.Object)
	}

	tw := &termWriter{
		Writer: bufio.NewWriter(e.w),
		enc:    e,
		labels: make(map[triple.BNode]string),
	}
	for _, name := range e.names {
		fmt.Fprintf(tw, "@prefix %s: %s .\n", name, triple.IRI(e.prefixes[name]))
	}
	for i, s := range order {
		if i > 0 || len(e.names) > 0 {
			tw.WriteByte('\n')
		}
		g := groups[s]
		tw.term(s)
		for j, p := range g.preds {
			if j == 0 {
				tw.WriteByte(' ')
			} else {
				tw.WriteString(" ;\n    ")
			}
			if p == triple.RDFType {
				tw.WriteByte('a')
			} else {
				tw.term(p)
			}
			for k, o := range g.objs[p] {
				if k == 0 {
					tw.WriteByte(' ')
				} else {
					tw.WriteString(", ")
				}
				tw.term(o)
			}
		}
		tw.WriteString(" .\n")
	}
	return tw.Flush()
}

var (
	integerLex = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalLex = regexp.MustCompile(`^[+-]?[0-9]*\.[0-9]+$`)
	doubleLex  = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]+)?|\.[0-9]+)[eE][+-]?[0-9]+$`)
)

func (tw *termWriter) term(t triple.Term) {
	switch t := t.(type) {
	case triple.IRI:
		tw.WriteString(tw.enc.abbreviate(t))
	case triple.BNode:
		l, ok := tw.labels[t]
		if !ok {
			l = "b" + strconv.Itoa(len(tw.labels))
			tw.labels[t] = l
		}
		tw.WriteString("_:" + l)
	case triple.Literal:
		switch {
		case t.Datatype == triple.XSDInteger && integerLex.MatchString(t.Value),
			t.Datatype == triple.XSDDecimal && decimalLex.MatchString(t.Value),
			t.Datatype == triple.XSDDouble && doubleLex.MatchString(t.Value),
			t.Datatype == triple.XSDBoolean && (t.Value == "true" || t.Value == "false"):
			tw.WriteString(t.Value)
			return
		}
		tw.WriteString(triple.Quote(t.Value))
		switch {
		case t.Lang != "":
			tw.WriteString("@" + t.Lang)
		case t.Datatype != "":
			tw.WriteString("^^" + tw.enc.abbreviate(t.Datatype))
		}
	}
}

// abbreviate returns iri as a prefixed name when one of the declared
// namespaces yields a safe local part, and as <iri> otherwise.
func (e *Encoder) abbreviate(iri triple.IRI) string {
	best, bestNS := "", ""
	found := false
	for _, name := range e.names {
		ns := e.prefixes[name]
		if ns == "" || len(ns) <= len(bestNS) || !strings.HasPrefix(string(iri), ns) {
			continue
		}
		if !safeLocal(string(iri)[len(ns):]) {
			continue
		}
		best, bestNS, found = name, ns, true
	}
	if !found {
		return iri.String()
	}
	return best + ":" + string(iri)[len(bestNS):]
}

func validPrefixName(name string) bool {
	for i, r := range name {
		switch {
		case i == 0 && !isPNCharsBase(r):
			return false
		case r == '.' && i == len(name)-1:
			return false
		case r != '.' && !isPNChars(r):
			return false
		}
	}
	return true
}

// safeLocal reports whether s can be written as a local name without escapes.
func safeLocal(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= '0' && r <= '9', isPNCharsBase(r):
		case i > 0 && r == '-':
		case i > 0 && r == '.' && i+utf8.RuneLen(r) < len(s):
		default:
			return false
		}
	}
	return true
}
