package sparql_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayleygraph/triples/graph/memstore"
	"github.com/cayleygraph/triples/query"
	"github.com/cayleygraph/triples/query/sparql"
	"github.com/cayleygraph/triples/triple"
	"github.com/cayleygraph/triples/turtle"
)

const data = `
@prefix ex: <http://example.org/> .
ex:alice ex:name "Alice" ; ex:age 30 ; ex:knows ex:bob, ex:carol .
ex:bob ex:name "Bob" ; ex:age 25 ; ex:knows ex:carol .
ex:carol ex:name "Carol"@en .
ex:dave ex:age 41 .
`

const prologue = "PREFIX ex: <http://example.org/>\n"

func iri(local string) triple.Term { return triple.IRI("http://example.org/" + local) }

func lit(s string) triple.Term { return triple.NewLiteral(s) }

func integer(s string) triple.Term {
	return triple.Literal{Value: s, Datatype: triple.XSDInteger}
}

func newStore(t testing.TB) *memstore.Store {
	ts, err := turtle.Parse(data)
	require.NoError(t, err)
	st := memstore.New()
	_, err = st.InsertAll(ts)
	require.NoError(t, err)
	return st
}

func run(t testing.TB, st *memstore.Store, q string) *query.Results {
	res, err := sparql.NewSession(st).Execute(context.Background(), prologue+q)
	require.NoError(t, err, q)
	return res
}

func column(res *query.Results, name string) []triple.Term {
	for i, v := range res.Vars {
		if v != name {
			continue
		}
		out := make([]triple.Term, 0, len(res.Rows))
		for _, row := range res.Rows {
			out = append(out, row[i])
		}
		return out
	}
	return nil
}

var selectCases = []struct {
	name  string
	query string
	col   string
	// expect is compared as a multiset unless ordered is set.
	expect  []triple.Term
	ordered bool
}{
	{
		name:   "basic pattern",
		query:  `SELECT ?n WHERE { ?p ex:name ?n }`,
		col:    "n",
		expect: []triple.Term{lit("Alice"), lit("Bob"), triple.Literal{Value: "Carol", Lang: "en"}},
	},
	{
		name:   "join",
		query:  `SELECT ?n WHERE { ex:alice ex:knows ?f . ?f ex:name ?n }`,
		col:    "n",
		expect: []triple.Term{lit("Bob"), triple.Literal{Value: "Carol", Lang: "en"}},
	},
	{
		name:   "optional keeps unmatched rows",
		query:  `SELECT ?p ?a WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } }`,
		col:    "a",
		expect: []triple.Term{integer("30"), integer("25"), nil},
	},
	{
		name:   "numeric filter",
		query:  `SELECT ?p WHERE { ?p ex:age ?a FILTER(?a > 26) }`,
		col:    "p",
		expect: []triple.Term{iri("alice"), iri("dave")},
	},
	{
		name:   "filter on unbound is false",
		query:  `SELECT ?p WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } FILTER(?a < 100) }`,
		col:    "p",
		expect: []triple.Term{iri("alice"), iri("bob")},
	},
	{
		name:   "bound",
		query:  `SELECT ?p WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } FILTER(!BOUND(?a)) }`,
		col:    "p",
		expect: []triple.Term{iri("carol")},
	},
	{
		name:   "or masks errors",
		query:  `SELECT ?p WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } FILTER(?a > 26 || ?n = "Bob") }`,
		col:    "p",
		expect: []triple.Term{iri("alice"), iri("bob")},
	},
	{
		name:   "union",
		query:  `SELECT ?x WHERE { { ?x ex:knows ex:bob } UNION { ?x ex:knows ex:carol } }`,
		col:    "x",
		expect: []triple.Term{iri("alice"), iri("alice"), iri("bob")},
	},
	{
		name:   "nested filter sees only its group",
		query:  `SELECT ?p WHERE { ?p ex:age ?a { FILTER(?a = 30) } }`,
		col:    "p",
		expect: []triple.Term{},
	},
	{
		name:   "filtered union branch joins outer pattern",
		query:  `SELECT ?p WHERE { ?p ex:age ?a { ?p ex:name ?n FILTER(?n = "Bob") } UNION { ?p ex:knows ex:bob } }`,
		col:    "p",
		expect: []triple.Term{iri("bob"), iri("alice")},
	},
	{
		name:   "nested filter on outer variable",
		query:  `SELECT ?p WHERE { ?p ex:age ?a { ?p ex:name ?n FILTER(?a > 26) } }`,
		col:    "p",
		expect: []triple.Term{},
	},
	{
		name:   "distinct",
		query:  `SELECT DISTINCT ?x WHERE { ?x ex:knows ?y }`,
		col:    "x",
		expect: []triple.Term{iri("alice"), iri("bob")},
	},
	{
		name:    "order by desc",
		query:   `SELECT ?a WHERE { ?p ex:age ?a } ORDER BY DESC(?a)`,
		col:     "a",
		expect:  []triple.Term{integer("41"), integer("30"), integer("25")},
		ordered: true,
	},
	{
		name:    "order with limit and offset",
		query:   `SELECT ?a WHERE { ?p ex:age ?a } ORDER BY ?a LIMIT 2 OFFSET 1`,
		col:     "a",
		expect:  []triple.Term{integer("30"), integer("41")},
		ordered: true,
	},
	{
		name:    "order puts unbound first",
		query:   `SELECT ?p WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } } ORDER BY ?a`,
		col:     "p",
		expect:  []triple.Term{iri("carol"), iri("bob"), iri("alice")},
		ordered: true,
	},
	{
		name:   "regex",
		query:  `SELECT ?n WHERE { ?p ex:name ?n FILTER regex(?n, "^a", "i") }`,
		col:    "n",
		expect: []triple.Term{lit("Alice")},
	},
	{
		name:   "lang",
		query:  `SELECT ?p WHERE { ?p ex:name ?n FILTER(lang(?n) = "en") }`,
		col:    "p",
		expect: []triple.Term{iri("carol")},
	},
	{
		name:   "str of iri",
		query:  `SELECT ?p WHERE { ?p ex:knows ?f FILTER(str(?f) = "http://example.org/bob") }`,
		col:    "p",
		expect: []triple.Term{iri("alice")},
	},
	{
		name:   "rdf type shorthand",
		query:  `SELECT ?s WHERE { ?s a ex:Person }`,
		col:    "s",
		expect: []triple.Term{},
	},
	{
		name:   "anonymous blank node",
		query:  `SELECT ?n WHERE { [] ex:name ?n FILTER isLiteral(?n) }`,
		col:    "n",
		expect: []triple.Term{lit("Alice"), lit("Bob"), triple.Literal{Value: "Carol", Lang: "en"}},
	},
	{
		name:   "anonymous node is not a labelled one",
		query:  `SELECT ?n WHERE { [] ex:name ?n . _:anon1 ex:age 41 }`,
		col:    "n",
		expect: []triple.Term{lit("Alice"), lit("Bob"), triple.Literal{Value: "Carol", Lang: "en"}},
	},
	{
		name:   "nested property list",
		query:  `SELECT ?s WHERE { ?s ex:knows [ ex:name "Bob" ] }`,
		col:    "s",
		expect: []triple.Term{iri("alice")},
	},
	{
		name:   "repeated variable",
		query:  `SELECT ?x WHERE { ?x ex:knows ?x }`,
		col:    "x",
		expect: []triple.Term{},
	},
	{
		name:   "typed literal constant",
		query:  `SELECT ?p WHERE { ?p ex:age "25"^^<http://www.w3.org/2001/XMLSchema#integer> }`,
		col:    "p",
		expect: []triple.Term{iri("bob")},
	},
}

func TestSelect(t *testing.T) {
	st := newStore(t)
	for _, c := range selectCases {
		t.Run(c.name, func(t *testing.T) {
			res := run(t, st, c.query)
			require.Equal(t, query.Solutions, res.Kind)
			got := column(res, c.col)
			require.NotNil(t, got, "missing column %q in %v", c.col, res.Vars)
			if c.ordered {
				require.Equal(t, c.expect, got)
			} else {
				require.ElementsMatch(t, c.expect, got)
			}
		})
	}
}

func TestSelectStar(t *testing.T) {
	st := newStore(t)
	res := run(t, st, `SELECT * WHERE { ?s ex:knows [ ex:name ?n ] }`)
	require.Equal(t, []string{"s", "n"}, res.Vars)
	require.Len(t, res.Rows, 3)

	res = run(t, st, `SELECT * WHERE { }`)
	require.Empty(t, res.Vars)
	require.Len(t, res.Rows, 1)
}

func TestLimitOffsetPages(t *testing.T) {
	st := newStore(t)
	all := run(t, st, `SELECT ?s ?p ?o WHERE { ?s ?p ?o }`)
	require.Len(t, all.Rows, st.Len())

	var paged [][]triple.Term
	for off := 0; off < st.Len(); off += 2 {
		res := run(t, st, `SELECT ?s ?p ?o WHERE { ?s ?p ?o } LIMIT 2 OFFSET `+strconv.Itoa(off))
		require.LessOrEqual(t, len(res.Rows), 2)
		paged = append(paged, res.Rows...)
	}
	require.ElementsMatch(t, all.Rows, paged)

	// Repeating a query over an unchanged store gives the same rows.
	again := run(t, st, `SELECT ?s ?p ?o WHERE { ?s ?p ?o }`)
	require.Equal(t, all.Rows, again.Rows)

	res := run(t, st, `SELECT ?s WHERE { ?s ?p ?o } LIMIT 0`)
	require.Empty(t, res.Rows)
	res = run(t, st, `SELECT ?s WHERE { ?s ?p ?o } OFFSET 100`)
	require.Empty(t, res.Rows)
}

func TestCount(t *testing.T) {
	st := newStore(t)
	cases := []struct {
		query  string
		expect string
	}{
		{`SELECT (COUNT(*) AS ?c) WHERE { ?s ?p ?o }`, "9"},
		{`SELECT (COUNT(DISTINCT ?s) AS ?c) WHERE { ?s ex:knows ?o }`, "2"},
		{`SELECT (COUNT(?a) AS ?c) WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } }`, "2"},
		{`SELECT (COUNT(*) AS ?c) WHERE { ?s ex:missing ?o }`, "0"},
	}
	for _, c := range cases {
		res := run(t, st, c.query)
		require.Equal(t, []string{"c"}, res.Vars)
		require.Equal(t, [][]triple.Term{{integer(c.expect)}}, res.Rows, c.query)
	}
}

func TestAsk(t *testing.T) {
	st := newStore(t)
	res := run(t, st, `ASK { ex:alice ex:knows ex:bob }`)
	require.Equal(t, query.Boolean, res.Kind)
	require.True(t, res.Boolean)

	res = run(t, st, `ASK WHERE { ex:bob ex:knows ex:alice }`)
	require.False(t, res.Boolean)

	res = run(t, st, `ASK { ?p ex:age ?a FILTER(?a >= 41) }`)
	require.True(t, res.Boolean)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name        string
		query       string
		more        bool
		unsupported bool
	}{
		{name: "empty", query: ""},
		{name: "unclosed group", query: "SELECT ?x WHERE { ?x ?p", more: true},
		{name: "unclosed string", query: `SELECT ?x WHERE { ?x ?p "abc`, more: true},
		{name: "missing projection", query: "SELECT WHERE { ?s ?p ?o }"},
		{name: "unknown prefix", query: "SELECT ?s WHERE { ?s foo:bar ?o }"},
		{name: "missing dot", query: "SELECT ?s WHERE { ?s ?p ?o ?s ?p ?o }"},
		{name: "trailing garbage", query: "ASK { } }"},
		{name: "construct", query: "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }", unsupported: true},
		{name: "describe", query: "DESCRIBE ?s", unsupported: true},
		{name: "group by", query: "SELECT ?s WHERE { ?s ?p ?o } GROUP BY ?s", unsupported: true},
		{name: "minus", query: "SELECT ?s WHERE { ?s ?p ?o MINUS { ?s ?p ?o } }", unsupported: true},
		{name: "mixed count", query: "SELECT ?s (COUNT(*) AS ?c) WHERE { ?s ?p ?o }", unsupported: true},
		{name: "bad regex", query: `SELECT ?s WHERE { ?s ?p ?o FILTER regex(?o, "(") }`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := sparql.Parse(c.query)
			require.Error(t, err)
			var pe *sparql.ParseError
			require.True(t, errors.As(err, &pe), "%T: %v", err, err)
			assert.Equal(t, c.more, errors.Is(err, query.ErrParseMore), "%v", err)
			assert.Equal(t, c.unsupported, errors.Is(err, sparql.ErrUnsupported), "%v", err)
		})
	}
}

func TestRelativeIRI(t *testing.T) {
	_, err := sparql.Parse("SELECT ?s WHERE { ?s <p> ?o }")
	var pe *sparql.ParseError
	require.True(t, errors.As(err, &pe), "%T: %v", err, err)
	require.True(t, errors.Is(err, triple.ErrInvalidTerm), "%v", err)

	_, err = sparql.ParseWith("SELECT ?s WHERE { ?s <p> ?o }", &sparql.Options{Base: "http://example.org/"})
	require.NoError(t, err)
}

func TestParseErrorPosition(t *testing.T) {
	_, err := sparql.Parse("SELECT ?s\nWHERE { ?s ?p ?o\n  , }")
	var pe *sparql.ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, 3, pe.Line)
	require.Equal(t, 5, pe.Column)
}

func TestDefaultPrefixes(t *testing.T) {
	st := newStore(t)
	q, err := sparql.ParseWith(`SELECT ?n WHERE { ex:bob ex:name ?n }`, &sparql.Options{
		Prefixes: map[string]string{"ex": "http://example.org/"},
	})
	require.NoError(t, err)
	require.Equal(t, sparql.Select, q.Form())
	require.Equal(t, []string{"n"}, q.Vars())
	res, err := q.Execute(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, [][]triple.Term{{lit("Bob")}}, res.Rows)

	s := sparql.NewSession(st)
	s.SetBase("http://example.org/")
	res, err = s.Execute(context.Background(), `ASK { <alice> <knows> <bob> }`)
	require.NoError(t, err)
	require.True(t, res.Boolean)
}

func TestCancel(t *testing.T) {
	st := newStore(t)
	q, err := sparql.Parse(prologue + `SELECT * WHERE { ?a ?p ?b . ?b ?q ?c }`)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Execute(ctx, st)
	require.Error(t, err)
	var ee *sparql.ExecError
	require.True(t, errors.As(err, &ee))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSessionPrefixChange(t *testing.T) {
	s := sparql.NewSession(newStore(t))
	const q = `ASK { ex:alice ex:name ?n }`

	s.SetPrefixes(map[string]string{"ex": "http://example.org/"})
	res, err := s.Execute(context.Background(), q)
	require.NoError(t, err)
	require.True(t, res.Boolean)
	res, err = s.Execute(context.Background(), q)
	require.NoError(t, err)
	require.True(t, res.Boolean)

	// A cached query must not outlive the prefixes it was parsed with.
	s.SetPrefixes(map[string]string{"ex": "http://other.org/"})
	res, err = s.Execute(context.Background(), q)
	require.NoError(t, err)
	require.False(t, res.Boolean)

	s.SetPrefixes(nil)
	_, err = s.Execute(context.Background(), q)
	require.Error(t, err)
}
