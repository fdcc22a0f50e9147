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

package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
)

var testSplitLines = []struct {
	line              string
	expectedCommand   string
	expectedArguments string
}{
	{
		line:              ":a arg1 arg2 arg3 .",
		expectedCommand:   ":a",
		expectedArguments: " arg1 arg2 arg3 .",
	},
	{
		line:              ":debug t",
		expectedCommand:   ":debug",
		expectedArguments: " t",
	},
	{
		line: "",
	},
	{
		line:              ".count",
		expectedCommand:   ".count",
		expectedArguments: "",
	},
	{
		line:              `  :a  ex:s  ex:p  "object with spaces"  . `,
		expectedCommand:   ":a",
		expectedArguments: `  ex:s  ex:p  "object with spaces"  .`,
	},
}

func TestSplitLines(t *testing.T) {
	for _, c := range testSplitLines {
		command, arguments := splitLine(c.line)
		require.Equal(t, c.expectedCommand, command, c.line)
		require.Equal(t, c.expectedArguments, arguments, c.line)
	}
}

const data = `@prefix ex: <http://example.org/> .
ex:alice ex:knows ex:bob .
`

func newREPL(t *testing.T) (*REPL, *bytes.Buffer, *bytes.Buffer) {
	g := triples.NewGraph()
	require.NoError(t, g.LoadTurtle(strings.NewReader(data)))
	var out, errw bytes.Buffer
	return New(g, Config{Out: &out, Err: &errw}), &out, &errw
}

func TestCommands(t *testing.T) {
	r, out, errw := newREPL(t)
	ctx := context.Background()

	require.True(t, r.Handle(ctx, ".count"))
	require.Equal(t, "1 triples\n", out.String())
	out.Reset()

	require.True(t, r.Handle(ctx, ".prefixes"))
	require.Equal(t, "ex: <http://example.org/>\n", out.String())
	out.Reset()

	require.True(t, r.Handle(ctx, ".help"))
	require.Contains(t, out.String(), ".prefixes")
	out.Reset()

	require.True(t, r.Handle(ctx, ".stats"))
	require.Contains(t, out.String(), "triples_store_inserted_total")
	out.Reset()

	require.True(t, r.Handle(ctx, ".nope"))
	require.Contains(t, errw.String(), "Unknown command")

	require.True(t, r.Handle(ctx, "   "))
	require.True(t, r.Handle(ctx, "# comment"))
	require.False(t, r.Handle(ctx, ".exit"))
	require.False(t, r.Handle(ctx, ".quit"))
}

func TestEdit(t *testing.T) {
	r, out, errw := newREPL(t)
	ctx := context.Background()

	require.True(t, r.Handle(ctx, `:a ex:bob ex:knows ex:carol ; ex:name "Bob"`))
	require.Equal(t, "Added 2 triples\n", out.String())
	require.Equal(t, 3, r.g.Len())
	out.Reset()

	require.True(t, r.Handle(ctx, `:d ex:alice ex:knows ex:bob .`))
	require.Equal(t, "Deleted 1 triples\n", out.String())
	require.Equal(t, 2, r.g.Len())

	require.True(t, r.Handle(ctx, `:a ex:bob ex:knows`))
	require.Contains(t, errw.String(), "not a valid statement")
	require.Equal(t, 2, r.g.Len())
}

func TestQuery(t *testing.T) {
	r, out, errw := newREPL(t)
	ctx := context.Background()

	require.True(t, r.Handle(ctx, "SELECT ?o WHERE { ex:alice ex:knows ?o }"))
	require.Equal(t, "o"+strings.Repeat(" ", 21)+"\n"+
		strings.Repeat("-", 22)+"\n"+
		"http://example.org/bob\n"+
		"-----------\n1 result\n", out.String())
	require.Contains(t, errw.String(), "Elapsed time")
	out.Reset()

	require.True(t, r.Handle(ctx, "ASK { ex:bob ex:knows ?x }"))
	require.Equal(t, "false\n", out.String())
}

func TestMultiLineQuery(t *testing.T) {
	r, out, errw := newREPL(t)
	ctx := context.Background()

	require.True(t, r.Handle(ctx, "SELECT ?o"))
	require.True(t, r.Pending())
	require.Equal(t, ps2, r.Prompt())
	require.True(t, r.Handle(ctx, "WHERE {"))
	// Commands are not interpreted inside a query.
	require.True(t, r.Handle(ctx, "  ex:alice ex:knows ?o"))
	require.True(t, r.Handle(ctx, "}"))
	require.False(t, r.Pending())
	require.Equal(t, ps1, r.Prompt())
	require.Contains(t, out.String(), "http://example.org/bob")
	require.NotContains(t, errw.String(), "Query error")

	require.True(t, r.Handle(ctx, "SELECT WHERE { }"))
	require.False(t, r.Pending())
	require.Contains(t, errw.String(), "Query error")
}

func TestDebug(t *testing.T) {
	r, out, errw := newREPL(t)
	ctx := context.Background()
	defer clog.SetV(0)

	require.True(t, r.Handle(ctx, ":debug t"))
	require.Equal(t, "Debug set to true\n", out.String())
	require.True(t, clog.V(2))
	out.Reset()

	require.True(t, r.Handle(ctx, ":debug false"))
	require.Equal(t, "Debug set to false\n", out.String())
	require.False(t, clog.V(1))

	require.True(t, r.Handle(ctx, ":debug maybe"))
	require.Contains(t, errw.String(), "cannot parse")
}
