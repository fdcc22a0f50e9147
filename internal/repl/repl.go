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

// Package repl implements an interactive SPARQL shell over a graph.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cayleygraph/triples"
	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/internal/format"
	"github.com/cayleygraph/triples/query"
	"github.com/cayleygraph/triples/triple"
	"github.com/cayleygraph/triples/turtle"
)

const (
	ps1 = "triples> "
	ps2 = "...      "
)

const helpText = `Commands:
  .help          Show this help
  .prefixes      Show defined prefixes
  .count         Show triple count
  .stats         Show store and query counters
  .exit, .quit   Exit the REPL
  :a <triples>   Add triples written as one Turtle statement
  :d <triples>   Delete triples written as one Turtle statement
  :debug t|f     Toggle debug logging

Any other input is treated as a SPARQL query. A query that is not complete
continues on the next line.

Example queries:
  SELECT * WHERE { ?s ?p ?o } LIMIT 10
  SELECT ?s WHERE { ?s a <http://example.org/Person> }
`

// Config configures a REPL.
type Config struct {
	// History is the file the line history is read from and saved to. No
	// history is kept when empty.
	History string
	// Timeout bounds the execution of every query when positive.
	Timeout time.Duration
	// Out receives results, Err receives messages. They default to the
	// standard streams.
	Out, Err io.Writer
}

// REPL interprets input lines against a graph.
type REPL struct {
	g       *triples.Graph
	out     io.Writer
	errw    io.Writer
	timeout time.Duration
	// code is a query waiting for more input.
	code string
}

func New(g *triples.Graph, cfg Config) *REPL {
	r := &REPL{g: g, out: cfg.Out, errw: cfg.Err, timeout: cfg.Timeout}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.errw == nil {
		r.errw = os.Stderr
	}
	return r
}

// Prompt returns the prompt for the next line.
func (r *REPL) Prompt() string {
	if r.code == "" {
		return ps1
	}
	return ps2
}

// Pending reports whether a query is waiting for more input.
func (r *REPL) Pending() bool { return r.code != "" }

// Reset drops a query waiting for more input.
func (r *REPL) Reset() { r.code = "" }

// Handle interprets one line of input. It reports false when the session
// should end.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if r.code == "" && (line == "" || line[0] == '#') {
		return true
	}
	if r.code == "" {
		cmd, args := splitLine(line)
		switch cmd {
		case ".help":
			fmt.Fprint(r.out, helpText)
			return true
		case ".exit", ".quit":
			return false
		case ".count":
			fmt.Fprintf(r.out, "%d triples\n", r.g.Len())
			return true
		case ".prefixes":
			r.prefixes()
			return true
		case ".stats":
			if err := r.stats(); err != nil {
				fmt.Fprintln(r.errw, "Error:", err)
			}
			return true
		case ":debug":
			r.debug(strings.TrimSpace(args))
			return true
		case ":a", ":d":
			if err := r.edit(cmd == ":a", args); err != nil {
				fmt.Fprintln(r.errw, "Error:", err)
			}
			return true
		}
		if cmd[0] == '.' || cmd[0] == ':' {
			fmt.Fprintf(r.errw, "Unknown command: %q (try .help)\n", cmd)
			return true
		}
	}

	r.code += line + "\n"
	err := r.run(ctx, r.code)
	if errors.Is(err, query.ErrParseMore) {
		return true
	}
	r.code = ""
	if err != nil {
		fmt.Fprintln(r.errw, "Query error:", err)
	}
	return true
}

func (r *REPL) run(ctx context.Context, text string) error {
	if r.timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := r.g.Query(ctx, text)
	if err != nil {
		return err
	}
	if err := format.Write(r.out, res, format.Table); err != nil {
		return err
	}
	if res.Kind == query.Solutions && res.Len() > 0 {
		results := "result"
		if res.Len() > 1 {
			results += "s"
		}
		fmt.Fprintf(r.out, "-----------\n%d %s\n", res.Len(), results)
	}
	fmt.Fprintf(r.errw, "Elapsed time: %g ms\n", float64(time.Since(start))/float64(time.Millisecond))
	return nil
}

func (r *REPL) prefixes() {
	ps := r.g.Prefixes()
	if len(ps) == 0 {
		fmt.Fprintln(r.out, "(no prefixes)")
		return
	}
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(r.out, "%s: %v\n", name, triple.IRI(ps[name]))
	}
}

// stats prints the counters registered by the store and the query engine.
func (r *REPL) stats() error {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "triples_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if lp := m.GetLabel(); len(lp) > 0 {
				labels := make([]string, len(lp))
				for i, l := range lp {
					labels[i] = l.GetName() + "=" + strconv.Quote(l.GetValue())
				}
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.Counter != nil:
				fmt.Fprintf(r.out, "%s %g\n", name, m.GetCounter().GetValue())
			case m.Histogram != nil:
				h := m.GetHistogram()
				fmt.Fprintf(r.out, "%s count=%d sum=%gs\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

func (r *REPL) debug(arg string) {
	var on bool
	switch arg {
	case "t":
		on = true
	case "f":
	default:
		var err error
		on, err = strconv.ParseBool(arg)
		if err != nil {
			fmt.Fprintf(r.errw, "Error: cannot parse %q as a valid boolean - acceptable values: 't'|'true' or 'f'|'false'\n", arg)
			return
		}
	}
	if on {
		clog.SetV(2)
	} else {
		clog.SetV(0)
	}
	fmt.Fprintf(r.out, "Debug set to %t\n", on)
}

// edit adds or deletes the triples of one Turtle statement. The prefixes of
// the graph are in scope.
func (r *REPL) edit(add bool, stmt string) error {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return errors.New("missing triples")
	}
	if !strings.HasSuffix(stmt, ".") {
		stmt += " ."
	}
	var b strings.Builder
	for name, ns := range r.g.Prefixes() {
		fmt.Fprintf(&b, "@prefix %s: %v .\n", name, triple.IRI(ns))
	}
	b.WriteString(stmt)
	ts, err := turtle.Parse(b.String())
	if err != nil {
		return fmt.Errorf("not a valid statement: %w", err)
	}
	n := 0
	for _, t := range ts {
		if add {
			before := r.g.Len()
			if err := r.g.AddTriple(t); err != nil {
				return err
			}
			n += r.g.Len() - before
			continue
		}
		ok, err := r.g.DeleteTriple(t)
		if err != nil {
			return err
		}
		if ok {
			n++
		}
	}
	verb := "Added"
	if !add {
		verb = "Deleted"
	}
	fmt.Fprintf(r.out, "%s %d triples\n", verb, n)
	return nil
}

// splitLine splits a line into a command and its arguments,
// e.g. ":a b c d ." becomes ":a" and " b c d .".
func splitLine(line string) (string, string) {
	var command, arguments string

	line = strings.TrimSpace(line)
	if len(line) > 0 {
		command = strings.Fields(line)[0]
		if len(line) > len(command) {
			arguments = line[len(command):]
		}
	}
	return command, arguments
}

// Run reads lines from the terminal until .exit, end of input or an
// interrupt at an empty prompt.
func Run(ctx context.Context, g *triples.Graph, cfg Config) error {
	r := New(g, cfg)
	term := liner.NewLiner()
	term.SetCtrlCAborts(true)
	if cfg.History != "" {
		if err := readHistory(term, cfg.History); os.IsNotExist(err) {
			clog.Infof("creating new history file: %q", cfg.History)
		} else if err != nil {
			clog.Warningf("could not read history: %v", err)
		}
	}
	defer func() {
		if cfg.History != "" {
			if err := writeHistory(term, cfg.History); err != nil {
				clog.Warningf("%v", err)
			}
		}
		term.Close()
	}()

	fmt.Fprintln(r.errw, "Type .help for commands, .exit to quit")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line, err := term.Prompt(r.Prompt())
		switch {
		case err == liner.ErrPromptAborted:
			if r.Pending() {
				r.Reset()
				continue
			}
			return nil
		case err == io.EOF:
			fmt.Fprintln(r.out)
			return nil
		case err != nil:
			return err
		}
		if strings.TrimSpace(line) != "" {
			term.AppendHistory(line)
		}
		if !r.Handle(ctx, line) {
			return nil
		}
	}
}

func readHistory(term *liner.State, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = term.ReadHistory(f)
	return err
}

func writeHistory(term *liner.State, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not open %q to write history: %w", path, err)
	}
	defer f.Close()
	if _, err := term.WriteHistory(f); err != nil {
		return fmt.Errorf("could not write history to %q: %w", path, err)
	}
	return nil
}
