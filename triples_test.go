package triples_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
	"github.com/stretchr/testify/require"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/query"
	"github.com/cayleygraph/triples/triple"
	"github.com/cayleygraph/triples/turtle"
)

const doc = `@prefix ex: <http://example.org/> .

ex:alice ex:knows ex:bob ;
    ex:name "Alice" .
`

func TestInsertTriple(t *testing.T) {
	g := triples.NewGraph()
	require.True(t, g.IsEmpty())

	require.NoError(t, g.InsertTriple("http://example.org/a", "http://example.org/p", "x", true))
	require.NoError(t, g.InsertTriple("http://example.org/a", "http://example.org/p", "x", true))
	require.NoError(t, g.InsertTriple("_:n", "http://example.org/p", "http://example.org/b", false))
	require.NoError(t, g.InsertTriple("_:n", "http://example.org/q", "y", true))
	require.Equal(t, 3, g.Len())
	require.Len(t, g.Store().Subjects(), 2)

	err := g.InsertTriple("not an iri", "http://example.org/p", "x", true)
	require.True(t, errors.Is(err, triple.ErrInvalidTerm), "%v", err)
	err = g.InsertTriple("http://example.org/a", "http://example.org/p", "bad iri", false)
	require.True(t, errors.Is(err, triple.ErrInvalidTerm), "%v", err)
	err = g.InsertTriple("row1", "name", "x", true)
	require.True(t, errors.Is(err, triple.ErrInvalidTerm), "%v", err)
	err = g.InsertTriple("http://example.org/a", "http://example.org/p", "b", false)
	require.True(t, errors.Is(err, triple.ErrInvalidTerm), "%v", err)
	require.Equal(t, 3, g.Len())
}

func TestLoadAndWriteTurtle(t *testing.T) {
	g := triples.NewGraph()
	require.NoError(t, g.LoadTurtle(strings.NewReader(doc)))
	require.Equal(t, 2, g.Len())
	require.Equal(t, map[string]string{"ex": "http://example.org/"}, g.Prefixes())

	var buf bytes.Buffer
	require.NoError(t, g.WriteTurtle(&buf))
	require.Equal(t, doc, buf.String())
}

func TestLoadTurtleFailFast(t *testing.T) {
	g := triples.NewGraph()
	err := g.LoadTurtle(strings.NewReader(doc + "ex:bob ex:knows ex:carol\nex:carol ex:knows ex:dave ."))
	var pe *turtle.ParseError
	require.True(t, errors.As(err, &pe), "%v", err)
	require.Equal(t, 6, pe.Line)
	require.True(t, g.IsEmpty())

	err = g.LoadTurtle(strings.NewReader(`foo:a foo:b foo:c .`))
	require.True(t, errors.Is(err, turtle.ErrUnknownPrefix), "%v", err)
	require.True(t, g.IsEmpty())
}

func TestQuery(t *testing.T) {
	g := triples.NewGraph()
	require.NoError(t, g.LoadTurtle(strings.NewReader(doc)))

	// Prefixes of loaded documents need no declaration.
	res, err := g.Query(context.Background(), `SELECT ?n WHERE { ?p ex:name ?n }`)
	require.NoError(t, err)
	require.Equal(t, query.Solutions, res.Kind)
	require.Equal(t, []map[string]triple.Term{{"n": triple.NewLiteral("Alice")}}, res.Bindings())

	res, err = g.Query(context.Background(), `ASK { ex:bob ?p ?o }`)
	require.NoError(t, err)
	require.Equal(t, query.Boolean, res.Kind)
	require.False(t, res.Boolean)
}

func TestAddDeleteTriple(t *testing.T) {
	g := triples.NewGraph()
	tr := triple.Triple{
		Subject:   triple.IRI("http://example.org/a"),
		Predicate: triple.IRI("http://example.org/p"),
		Object:    triple.NewLiteral("v"),
	}
	require.NoError(t, g.AddTriple(tr))
	require.Equal(t, 1, g.Len())
	ok, err := g.DeleteTriple(tr)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = g.DeleteTriple(tr)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, g.IsEmpty())
}

func TestQuadInterop(t *testing.T) {
	g := triples.NewGraph()
	require.NoError(t, g.LoadTurtle(strings.NewReader(doc)))

	var buf bytes.Buffer
	w := nquads.NewWriter(&buf)
	_, err := quad.Copy(w, g.QuadReader())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Contains(t, buf.String(), `<http://example.org/alice> <http://example.org/name> "Alice" .`)

	g2 := triples.NewGraph()
	n, err := g2.ReadFrom(nquads.NewReader(&buf, false))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, g.Store().Triples(), g2.Store().Triples())

	g3 := triples.NewGraph()
	_, err = g3.ReadFrom(turtle.NewReader(strings.NewReader(doc)))
	require.NoError(t, err)
	require.Equal(t, g.Prefixes(), g3.Prefixes())

	named := quad.NewReader([]quad.Quad{quad.MakeIRI("http://example.org/a", "http://example.org/p", "http://example.org/b", "http://example.org/g")})
	_, err = triples.NewGraph().ReadFrom(named)
	require.ErrorIs(t, err, triple.ErrNamedGraph)
}
