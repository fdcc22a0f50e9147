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

// Package triples provides a small in-memory RDF graph that can be loaded
// from Turtle, written back as Turtle and queried with SPARQL.
package triples

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/graph/memstore"
	"github.com/cayleygraph/triples/query"
	"github.com/cayleygraph/triples/query/sparql"
	"github.com/cayleygraph/triples/triple"
	"github.com/cayleygraph/triples/turtle"
)

// Graph is an RDF graph with the prefixes declared by the documents loaded
// into it. It is not safe for concurrent use.
type Graph struct {
	st       *memstore.Store
	prefixes map[string]string
	// scope resolves "_:label" subjects given to InsertTriple.
	scope *triple.Scope
	sess  *sparql.Session
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	g := &Graph{
		st:       memstore.New(),
		prefixes: make(map[string]string),
		scope:    triple.NewScope(),
	}
	g.sess = sparql.NewSession(g.st)
	return g
}

// Store returns the underlying triple store.
func (g *Graph) Store() *memstore.Store { return g.st }

// Len returns the number of triples in the graph.
func (g *Graph) Len() int { return g.st.Len() }

// IsEmpty reports whether the graph holds no triples.
func (g *Graph) IsEmpty() bool { return g.st.IsEmpty() }

// Prefixes returns a copy of the prefixes declared by loaded documents.
func (g *Graph) Prefixes() map[string]string {
	out := make(map[string]string, len(g.prefixes))
	for k, v := range g.prefixes {
		out[k] = v
	}
	return out
}

// AddPrefixes merges prefixes into the graph, renaming names that are
// already bound to another namespace.
func (g *Graph) AddPrefixes(prefixes map[string]string) {
	renamed := turtle.MergePrefixes(g.prefixes, prefixes)
	for from, to := range renamed {
		clog.Warningf("prefix %q renamed to %q", from, to)
	}
}

// InsertTriple adds a triple given as strings. The subject is an IRI, or a
// blank node when written as "_:label"; the predicate is an IRI. The object
// is a simple literal when objectIsLiteral is set and an IRI otherwise.
func (g *Graph) InsertTriple(subject, predicate, object string, objectIsLiteral bool) error {
	var (
		t   triple.Triple
		err error
	)
	if strings.HasPrefix(subject, "_:") && len(subject) > 2 {
		t.Subject = g.scope.BNode(subject[2:])
	} else if t.Subject, err = triple.NewIRI(subject); err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if t.Predicate, err = triple.NewIRI(predicate); err != nil {
		return fmt.Errorf("predicate: %w", err)
	}
	if objectIsLiteral {
		t.Object = triple.NewLiteral(object)
	} else if t.Object, err = triple.NewIRI(object); err != nil {
		return fmt.Errorf("object: %w", err)
	}
	return g.st.Insert(t)
}

// AddTriple adds t. Adding a triple that is already present is not an error.
func (g *Graph) AddTriple(t triple.Triple) error {
	return g.st.Insert(t)
}

// DeleteTriple removes t and reports whether it was present.
func (g *Graph) DeleteTriple(t triple.Triple) (bool, error) {
	return g.st.Delete(t)
}

// LoadTurtle parses a Turtle document and adds its triples. Nothing is added
// when the document fails to parse. Every document gets its own blank node
// scope.
func (g *Graph) LoadTurtle(r io.Reader) error {
	doc, err := turtle.NewDecoder(r).Decode()
	if err != nil {
		return err
	}
	if _, err := g.st.InsertAll(doc.Triples); err != nil {
		return err
	}
	g.AddPrefixes(doc.Prefixes)
	return nil
}

// WriteTurtle writes the graph as Turtle using the known prefixes.
func (g *Graph) WriteTurtle(w io.Writer) error {
	return turtle.Encode(w, g.st.Triples(), &turtle.Options{Prefixes: g.prefixes})
}

// Query runs a SPARQL query. Prefixes declared by loaded documents can be
// used without a PREFIX declaration.
func (g *Graph) Query(ctx context.Context, text string) (*query.Results, error) {
	g.sess.SetPrefixes(g.Prefixes())
	return g.sess.Execute(ctx, text)
}

// prefixReader is implemented by quad readers that know the prefixes of
// their input, such as the Turtle reader.
type prefixReader interface {
	Prefixes() (map[string]string, error)
}

// ReadFrom adds all quads from qr. Quads in a named graph are rejected.
// Nothing is added when reading fails.
func (g *Graph) ReadFrom(qr quad.Reader) (int, error) {
	scope := triple.NewScope()
	var ts []triple.Triple
	for {
		q, err := qr.ReadQuad()
		if err == io.EOF {
			break
		} else if err != nil {
			return 0, err
		}
		t, err := triple.FromQuad(q, scope)
		if err != nil {
			return 0, fmt.Errorf("quad %d: %w", len(ts)+1, err)
		}
		ts = append(ts, t)
	}
	if pr, ok := qr.(prefixReader); ok {
		prefixes, err := pr.Prefixes()
		if err != nil {
			return 0, err
		}
		g.AddPrefixes(prefixes)
	}
	return g.st.InsertAll(ts)
}

// QuadReader returns a reader over a snapshot of the graph.
func (g *Graph) QuadReader() quad.Reader {
	ts := g.st.Triples()
	qs := make([]quad.Quad, len(ts))
	for i, t := range ts {
		qs[i] = triple.ToQuad(t)
	}
	return quad.NewReader(qs)
}
