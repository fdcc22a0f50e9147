package sparql

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/cayleygraph/triples/graph/memstore"
	"github.com/cayleygraph/triples/triple"
)

func TestEffectiveBooleanValue(t *testing.T) {
	cases := []struct {
		term   triple.Term
		expect bool
		err    bool
	}{
		{term: trueTerm, expect: true},
		{term: falseTerm, expect: false},
		{term: triple.NewLiteral(""), expect: false},
		{term: triple.NewLiteral("x"), expect: true},
		{term: triple.Literal{Value: "0", Datatype: triple.XSDInteger}, expect: false},
		{term: triple.Literal{Value: "0.5", Datatype: triple.XSDDecimal}, expect: true},
		{term: triple.Literal{Value: "NaN", Datatype: triple.XSDDouble}, expect: false},
		{term: triple.Literal{Value: "x", Lang: "en"}, err: true},
		{term: triple.IRI("http://example.org/"), err: true},
	}
	for _, c := range cases {
		v, err := ebv(c.term)
		if c.err {
			require.Error(t, err, "%v", c.term)
			continue
		}
		require.NoError(t, err, "%v", c.term)
		require.Equal(t, c.expect, v, "%v", c.term)
	}
}

func TestCompare(t *testing.T) {
	one := triple.Literal{Value: "1", Datatype: triple.XSDInteger}
	onePointZero := triple.Literal{Value: "1.0", Datatype: triple.XSDDouble}

	eq, err := equal(one, onePointZero)
	require.NoError(t, err)
	require.True(t, eq)

	c, err := compare(triple.NewLiteral("a"), triple.NewLiteral("b"))
	require.NoError(t, err)
	require.Equal(t, -1, c)

	_, err = compare(one, triple.NewLiteral("1"))
	require.ErrorIs(t, err, errType)
}

func TestOrderTerms(t *testing.T) {
	scope := triple.NewScope()
	terms := []triple.Term{
		nil,
		scope.BNode("x"),
		triple.IRI("http://example.org/a"),
		triple.IRI("http://example.org/b"),
		triple.Literal{Value: "2", Datatype: triple.XSDInteger},
		triple.Literal{Value: "10", Datatype: triple.XSDInteger},
	}
	for i := range terms {
		for j := range terms {
			c := orderTerms(terms[i], terms[j])
			switch {
			case i < j:
				require.Negative(t, c, "%v < %v", terms[i], terms[j])
			case i > j:
				require.Positive(t, c, "%v > %v", terms[i], terms[j])
			default:
				require.Zero(t, c)
			}
		}
	}
}

func TestQueryMetrics(t *testing.T) {
	q, err := Parse(`ASK { }`)
	require.NoError(t, err)
	before := testutil.ToFloat64(mQueries.WithLabelValues("ask"))
	res, err := q.Execute(context.Background(), memstore.New())
	require.NoError(t, err)
	require.True(t, res.Boolean)
	require.Equal(t, before+1, testutil.ToFloat64(mQueries.WithLabelValues("ask")))
}
