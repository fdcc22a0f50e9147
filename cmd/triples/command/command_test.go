package command

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/turtle"
	"github.com/cayleygraph/triples/version"
)

const people = `@prefix ex: <http://example.org/> .

ex:alice a ex:Person ;
    ex:name "Alice" ;
    ex:age 30 .

ex:bob a ex:Person ;
    ex:name "Bob" .
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	var out, errw bytes.Buffer
	root := NewRootCmd()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errw)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errw.String(), err
}

func writeFile(t *testing.T, name, data string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCSV2TTL(t *testing.T) {
	out, _, err := run(t, "id,name,home town\nalice,Alice,Paris\nbob,Bob,\n",
		"csv2ttl", "-s", "0", "-b", "http://ex.org/")
	require.NoError(t, err)
	golden(t).Assert(t, "csv2ttl", []byte(out))
}

func TestCSV2TTLConfigBase(t *testing.T) {
	t.Setenv("TRIPLES_CSV_BASE", "urn:x:")
	out, _, err := run(t, "id,name\na,A\n", "csv2ttl", "-s", "0")
	require.NoError(t, err)
	require.Equal(t, "<urn:x:a> <urn:x:name> \"A\" .\n", out)

	// A flag wins over the environment.
	out, _, err = run(t, "id,name\na,A\n", "csv2ttl", "-s", "0", "--base", "http://ex.org/")
	require.NoError(t, err)
	require.Equal(t, "<http://ex.org/a> <http://ex.org/name> \"A\" .\n", out)
}

func TestCSV2TTLErrors(t *testing.T) {
	_, _, err := run(t, "a,b\n1,2\n", "csv2ttl", "-s", "3")
	require.Error(t, err)

	_, _, err = run(t, "a,b\n1,2,3\n", "csv2ttl")
	require.Error(t, err)

	out, _, err := run(t, "id,name\nrow1,x\n", "csv2ttl", "-s", "0", "-b", "foo")
	require.Error(t, err)
	require.Contains(t, err.Error(), "relative")
	require.Empty(t, out)
}

func TestMerge(t *testing.T) {
	a := writeFile(t, "a.ttl", "@prefix ex: <http://example.org/> .\nex:a ex:p _:n .\n_:n ex:q \"1\" .\n")
	b := writeFile(t, "b.ttl", "@prefix ex: <http://other.org/> .\nex:c ex:p _:n .\n")

	out, _, err := run(t, "", "merge", a, b)
	require.NoError(t, err)
	require.Contains(t, out, "@prefix ex: <http://example.org/> .")
	require.Contains(t, out, "@prefix ex1: <http://other.org/> .")

	doc, err := turtle.NewDecoder(strings.NewReader(out)).Decode()
	require.NoError(t, err)
	require.Len(t, doc.Triples, 3)
	// _:n of both files are different nodes.
	g := triples.NewGraph()
	require.NoError(t, g.LoadTurtle(strings.NewReader(out)))
	require.Len(t, g.Store().Subjects(), 3)
}

func TestMergeStdin(t *testing.T) {
	out, _, err := run(t, people, "merge")
	require.NoError(t, err)
	require.Equal(t, people, out)

	nq := writeFile(t, "extra.nq", "<http://example.org/carol> <http://example.org/name> \"Carol\" .\n")
	out, _, err = run(t, people, "merge", "-i", "-", nq)
	require.NoError(t, err)
	require.Contains(t, out, "ex:carol ex:name \"Carol\" .")
}

func TestMergeFailFast(t *testing.T) {
	bad := writeFile(t, "bad.ttl", "@prefix ex: <http://example.org/> .\nex:a ex:p .\n")
	out, _, err := run(t, "", "merge", writeFile(t, "ok.ttl", people), bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.ttl")
	require.Empty(t, out)
}

func TestQuery(t *testing.T) {
	const q = `PREFIX ex: <http://example.org/>
SELECT ?p ?name ?age WHERE {
  ?p a ex:Person ; ex:name ?name .
  OPTIONAL { ?p ex:age ?age }
} ORDER BY ?name`
	for _, f := range []string{"table", "csv", "json"} {
		t.Run(f, func(t *testing.T) {
			out, _, err := run(t, people, "query", "-q", q, "-f", f)
			require.NoError(t, err)
			golden(t).Assert(t, "query_"+f, []byte(out))
		})
	}
}

func TestQueryAsk(t *testing.T) {
	out, _, err := run(t, people, "query", "-q", `ASK { ?s <http://example.org/name> "Bob" }`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	// Document prefixes need no declaration.
	out, _, err = run(t, people, "query", `ASK { ex:bob ex:age ?a }`)
	require.NoError(t, err)
	require.Equal(t, "false\n", out)
}

func TestQueryInputFile(t *testing.T) {
	path := writeFile(t, "people.ttl", people)
	out, _, err := run(t, "", "query", "-i", path, "-f", "csv", "-q", `SELECT ?n WHERE { ex:alice ex:name ?n }`)
	require.NoError(t, err)
	require.Equal(t, "n\nAlice\n", out)
}

func TestQueryConfigFormat(t *testing.T) {
	t.Setenv("TRIPLES_QUERY_FORMAT", "csv")
	out, _, err := run(t, people, "query", "-q", `SELECT ?n WHERE { ex:bob ex:name ?n }`)
	require.NoError(t, err)
	require.Equal(t, "n\nBob\n", out)

	cfg := writeFile(t, "triples.yml", "query:\n  format: json\n")
	out, _, err = run(t, people, "--config", cfg, "query", "-q", `SELECT ?n WHERE { ex:bob ex:name ?n }`)
	require.NoError(t, err)
	// The environment wins over the config file.
	require.Equal(t, "n\nBob\n", out)
}

func TestQueryErrors(t *testing.T) {
	cases := []struct {
		name  string
		stdin string
		args  []string
		msg   string
	}{
		{"no query", people, []string{"query"}, "a query must be given"},
		{"bad format", people, []string{"query", "-q", "ASK {}", "-f", "xml"}, "unknown output format"},
		{"bad turtle", "ex:a ex:b", []string{"query", "-q", "ASK {}"}, "stdin"},
		{"bad query", people, []string{"query", "-q", "SELECT WHERE {"}, "query"},
		{"unsupported", people, []string{"query", "-q", "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }"}, "CONSTRUCT"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, _, err := run(t, c.stdin, c.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), c.msg)
			require.Empty(t, out)
		})
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, "people.ttl", people)
	nq := filepath.Join(dir, "people.nq.gz")

	_, errw, err := run(t, "", "convert", in, nq)
	require.NoError(t, err)
	require.Contains(t, errw, "5 triples were written")

	out, _, err := run(t, "", "convert", "-i", nq, "--dump_format", "nquads", "-o", "-")
	require.NoError(t, err)
	require.Contains(t, out, `<http://example.org/alice> <http://example.org/name> "Alice" .`)
	require.Contains(t, out, `<http://example.org/alice> <http://example.org/age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .`)

	// Prefixes are lost in N-Quads, so the round trip spells IRIs out.
	out, _, err = run(t, "", "convert", nq, "-")
	require.NoError(t, err)
	g := triples.NewGraph()
	require.NoError(t, g.LoadTurtle(strings.NewReader(out)))
	require.Equal(t, 5, g.Len())

	_, _, err = run(t, "", "convert", in)
	require.Error(t, err)
	_, _, err = run(t, "", "convert", in, filepath.Join(dir, "out.ttl"), "--dump_format", "nope")
	require.Error(t, err)
}

func TestReplLoadsStdin(t *testing.T) {
	defer func(f func() bool) { stdinIsTerminal = f }(stdinIsTerminal)
	stdinIsTerminal = func() bool { return false }

	viper.Reset()
	root := NewRootCmd()
	var errw bytes.Buffer
	root.SetIn(strings.NewReader(people))
	root.SetErr(&errw)
	cmd, _, err := root.Find([]string{"repl"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(nil))

	g, err := replGraph(cmd)
	require.NoError(t, err)
	require.Equal(t, 5, g.Len())
	require.Equal(t, "Loaded 5 triples\n", errw.String())

	stdinIsTerminal = func() bool { return true }
	errw.Reset()
	g, err = replGraph(cmd)
	require.NoError(t, err)
	require.True(t, g.IsEmpty())
	require.Contains(t, errw.String(), "empty graph")
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	require.Equal(t, version.String()+"\n", out)
	require.Contains(t, out, version.Version)
}
