package query

import (
	"fmt"

	"github.com/cayleygraph/triples/triple"
)

// Kind is the shape of a query result.
type Kind int

const (
	// Solutions is a table of variable bindings.
	Solutions Kind = iota
	// Boolean is the answer to an ASK query.
	Boolean
	// Graph is a set of constructed triples. No query form produces it yet.
	Graph
)

func (k Kind) String() string {
	switch k {
	case Solutions:
		return "solutions"
	case Boolean:
		return "boolean"
	case Graph:
		return "graph"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Results holds the outcome of a query.
type Results struct {
	Kind Kind
	// Vars names the columns of Rows, without the leading '?'.
	Vars []string
	// Rows hold one term per variable; unbound cells are nil.
	Rows    [][]triple.Term
	Boolean bool
}

// Len returns the number of rows.
func (r *Results) Len() int { return len(r.Rows) }

// Bindings returns the rows as maps holding only bound variables.
func (r *Results) Bindings() []map[string]triple.Term {
	out := make([]map[string]triple.Term, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]triple.Term, len(row))
		for i, t := range row {
			if t != nil {
				m[r.Vars[i]] = t
			}
		}
		out = append(out, m)
	}
	return out
}
