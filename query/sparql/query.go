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

// Package sparql implements a subset of SPARQL 1.1: SELECT and ASK queries
// over basic graph patterns with OPTIONAL, UNION, FILTER, DISTINCT,
// ORDER BY, LIMIT, OFFSET and COUNT.
//
// Patterns of a group are joined left to right with nested loops: each
// pattern is matched against the store with the bindings accumulated so far
// substituted in. Without ORDER BY, rows come out in the order of the store
// enumeration, which is stable for an unmodified store but otherwise
// unspecified.
package sparql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cayleygraph/triples/triple"
)

// ErrUnsupported is matched by errors for valid SPARQL that this engine does
// not implement.
var ErrUnsupported = errors.New("unsupported")

// ParseError is a syntax error in a query. Line and Column are 1-based.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	s := fmt.Sprintf("sparql: line %d, column %d: %s", e.Line, e.Column, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExecError is a failure while evaluating a parsed query.
type ExecError struct {
	Msg string
	Err error
}

func (e *ExecError) Error() string {
	if e.Err == nil {
		return "sparql: " + e.Msg
	}
	return "sparql: " + e.Msg + ": " + e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

// Form is the query form.
type Form int

const (
	Select Form = iota
	Ask
)

func (f Form) String() string {
	switch f {
	case Select:
		return "select"
	case Ask:
		return "ask"
	}
	return fmt.Sprintf("form(%d)", int(f))
}

// Query is a parsed query. It holds no reference to a store and can be
// executed any number of times.
type Query struct {
	form     Form
	distinct bool
	proj     []projection
	where    *group
	order    []orderCond
	limit    int // -1 for no limit
	offset   int

	// vars maps every variable to its slot in a binding.
	vars    map[string]int
	names   []string
	visible []string // pattern variables in order of first appearance
}

// Form returns the query form.
func (q *Query) Form() Form { return q.form }

// Vars returns the names of the result columns.
func (q *Query) Vars() []string {
	out := make([]string, len(q.proj))
	for i, p := range q.proj {
		out[i] = p.name
	}
	return out
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(q.form.String()))
	if q.distinct {
		b.WriteString(" DISTINCT")
	}
	for _, p := range q.proj {
		b.WriteString(" ?" + p.name)
	}
	fmt.Fprintf(&b, " %v", q.where)
	if q.limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	if q.offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.offset)
	}
	return b.String()
}

// projection is a result column. count is set for (COUNT(...) AS ?name).
type projection struct {
	name  string
	slot  int
	count *countAgg
}

type countAgg struct {
	distinct bool
	slot     int // -1 for COUNT(*)
}

type orderCond struct {
	desc bool
	e    expr
}

// slot is a triple pattern position: a variable slot or a constant term.
type slot struct {
	v    int // variable slot, -1 for a constant
	term triple.Term
}

func (s slot) isVar() bool { return s.v >= 0 }

type triplePattern struct {
	s, p, o slot
}

// element is a member of a group graph pattern.
type element interface {
	isElement()
}

func (triplePattern) isElement() {}
func (*group) isElement()        {}
func (optional) isElement()      {}
func (union) isElement()         {}

type optional struct{ g *group }

type union struct{ branches []*group }

// group is a { ... } block. Filters apply to the solutions of the whole
// group.
type group struct {
	elems   []element
	filters []expr
}

// filtered reports whether g or any group nested in it has a FILTER.
func (g *group) filtered() bool {
	if len(g.filters) > 0 {
		return true
	}
	for _, el := range g.elems {
		switch el := el.(type) {
		case *group:
			if el.filtered() {
				return true
			}
		case optional:
			if el.g.filtered() {
				return true
			}
		case union:
			for _, br := range el.branches {
				if br.filtered() {
					return true
				}
			}
		}
	}
	return false
}

func (g *group) String() string {
	return fmt.Sprintf("{%d elements, %d filters}", len(g.elems), len(g.filters))
}
