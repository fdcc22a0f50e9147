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

package sparql

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/graph/memstore"
	"github.com/cayleygraph/triples/query"
	"github.com/cayleygraph/triples/triple"
)

// solutions is a stream of bindings. Binding is valid until the next call to
// Next.
type solutions interface {
	Next() bool
	Binding() binding
	Close() error
}

// exec carries the state shared by the operators of one execution.
type exec struct {
	ctx   context.Context
	store *memstore.Store
	err   error
}

// ok reports whether evaluation may continue, recording cancellation.
func (ex *exec) ok() bool {
	if ex.err != nil {
		return false
	}
	if err := ex.ctx.Err(); err != nil {
		ex.err = &ExecError{Msg: "query interrupted", Err: err}
		return false
	}
	return true
}

// single yields one binding.
type single struct {
	b    binding
	done bool
}

func (s *single) Next() bool {
	if s.done {
		return false
	}
	s.done = true
	return true
}

func (s *single) Binding() binding { return s.b }
func (s *single) Close() error     { return nil }

// flatMap replaces every input binding with the stream fn returns for it.
type flatMap struct {
	ex  *exec
	in  solutions
	fn  func(b binding) solutions
	cur solutions
}

func (f *flatMap) Next() bool {
	for f.ex.ok() {
		if f.cur != nil {
			if f.cur.Next() {
				return true
			}
			f.cur.Close()
			f.cur = nil
		}
		if !f.in.Next() {
			return false
		}
		f.cur = f.fn(f.in.Binding())
	}
	return false
}

func (f *flatMap) Binding() binding { return f.cur.Binding() }

func (f *flatMap) Close() error {
	if f.cur != nil {
		f.cur.Close()
	}
	return f.in.Close()
}

// match extends one binding with the triples matching a pattern.
type match struct {
	ex  *exec
	pat triplePattern
	in  binding
	it  *memstore.Iterator
	out binding
}

func (ex *exec) match(pat triplePattern, in binding) *match {
	resolve := func(s slot) triple.Term {
		if s.isVar() {
			return in[s.v]
		}
		return s.term
	}
	it := ex.store.Match(resolve(pat.s), resolve(pat.p), resolve(pat.o))
	return &match{ex: ex, pat: pat, in: in, it: it}
}

func (m *match) Next() bool {
	for m.ex.ok() && m.it.Next() {
		t := m.it.Triple()
		out := m.in.clone()
		if bindSlot(out, m.pat.s, t.Subject) &&
			bindSlot(out, m.pat.p, t.Predicate) &&
			bindSlot(out, m.pat.o, t.Object) {
			m.out = out
			return true
		}
	}
	return false
}

// bindSlot binds a variable slot to t. It fails when the variable already
// holds a different term, which happens when a variable repeats in a pattern.
func bindSlot(b binding, s slot, t triple.Term) bool {
	if !s.isVar() {
		return true
	}
	if cur := b[s.v]; cur != nil {
		return cur == t
	}
	b[s.v] = t
	return true
}

func (m *match) Binding() binding { return m.out }
func (m *match) Close() error     { return m.it.Close() }

// leftJoin yields the solutions of an optional group for one binding, or the
// binding itself when the group has none.
type leftJoin struct {
	sub      solutions
	in       binding
	matched  bool
	fallback bool
}

func (l *leftJoin) Next() bool {
	if l.fallback {
		return false
	}
	if l.sub.Next() {
		l.matched = true
		return true
	}
	if l.matched {
		return false
	}
	l.fallback = true
	return true
}

func (l *leftJoin) Binding() binding {
	if l.fallback {
		return l.in
	}
	return l.sub.Binding()
}

func (l *leftJoin) Close() error { return l.sub.Close() }

// join merges the solutions of sub with in, dropping incompatible ones.
type join struct {
	sub solutions
	in  binding
	out binding
}

func (j *join) Next() bool {
	for j.sub.Next() {
		if out, ok := merge(j.in, j.sub.Binding()); ok {
			j.out = out
			return true
		}
	}
	return false
}

func (j *join) Binding() binding { return j.out }
func (j *join) Close() error     { return j.sub.Close() }

// merge returns the union of two bindings, or false when they bind a
// variable to different terms.
func merge(a, b binding) (binding, bool) {
	out := a.clone()
	for i, t := range b {
		if t == nil {
			continue
		}
		if cur := out[i]; cur != nil && cur != t {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

// concat yields the streams one after another.
type concat struct {
	parts []func() solutions
	cur   solutions
}

func (c *concat) Next() bool {
	for {
		if c.cur != nil {
			if c.cur.Next() {
				return true
			}
			c.cur.Close()
			c.cur = nil
		}
		if len(c.parts) == 0 {
			return false
		}
		c.cur = c.parts[0]()
		c.parts = c.parts[1:]
	}
}

func (c *concat) Binding() binding { return c.cur.Binding() }

func (c *concat) Close() error {
	if c.cur != nil {
		return c.cur.Close()
	}
	return nil
}

// filter drops bindings for which any expression is not true. Evaluation
// errors count as false.
type filter struct {
	in    solutions
	exprs []expr
}

func (f *filter) Next() bool {
next:
	for f.in.Next() {
		b := f.in.Binding()
		for _, e := range f.exprs {
			if v, err := ebvOf(e, b); err != nil || !v {
				continue next
			}
		}
		return true
	}
	return false
}

func (f *filter) Binding() binding { return f.in.Binding() }
func (f *filter) Close() error     { return f.in.Close() }

// group evaluates g with the bindings of seed already in place.
func (ex *exec) group(g *group, seed binding) solutions {
	var s solutions = &single{b: seed}
	for _, el := range g.elems {
		s = &flatMap{ex: ex, in: s, fn: ex.element(el)}
	}
	if len(g.filters) > 0 {
		s = &filter{in: s, exprs: g.filters}
	}
	return s
}

// nested evaluates a group or union branch joined with b. A group with
// filters is evaluated on its own first, so the filters only see the
// variables bound inside it. OPTIONAL groups stay seeded: their filters
// are part of the left join condition.
func (ex *exec) nested(g *group, b binding) solutions {
	if !g.filtered() {
		return ex.group(g, b)
	}
	return &join{sub: ex.group(g, make(binding, len(b))), in: b}
}

func (ex *exec) element(el element) func(binding) solutions {
	switch el := el.(type) {
	case triplePattern:
		return func(b binding) solutions { return ex.match(el, b) }
	case *group:
		return func(b binding) solutions { return ex.nested(el, b) }
	case optional:
		return func(b binding) solutions {
			return &leftJoin{sub: ex.group(el.g, b), in: b}
		}
	case union:
		return func(b binding) solutions {
			c := &concat{}
			for _, br := range el.branches {
				br := br
				c.parts = append(c.parts, func() solutions { return ex.nested(br, b) })
			}
			return c
		}
	}
	panic("sparql: unknown pattern element")
}

// Execute runs the query against st.
//
// Without ORDER BY, rows are produced lazily and evaluation stops once
// LIMIT rows are collected. ASK stops at the first solution.
func (q *Query) Execute(ctx context.Context, st *memstore.Store) (*query.Results, error) {
	start := time.Now()
	mQueries.WithLabelValues(q.form.String()).Inc()
	defer func() {
		mQueryTime.Observe(time.Since(start).Seconds())
	}()
	if clog.V(2) {
		clog.Infof("sparql: executing %v", q)
	}

	ex := &exec{ctx: ctx, store: st}
	sols := ex.group(q.where, make(binding, len(q.names)))
	defer sols.Close()

	var res *query.Results
	switch {
	case q.form == Ask:
		res = &query.Results{Kind: query.Boolean, Boolean: sols.Next()}
	case q.isCount():
		res = q.count(ex, sols)
	default:
		res = q.rows(ex, sols)
	}
	if ex.err != nil {
		return nil, ex.err
	}
	if clog.V(2) {
		clog.Infof("sparql: %d rows in %v", res.Len(), time.Since(start))
	}
	return res, nil
}

func (q *Query) isCount() bool {
	return len(q.proj) > 0 && q.proj[0].count != nil
}

func (q *Query) project(b binding) []triple.Term {
	row := make([]triple.Term, len(q.proj))
	for i, p := range q.proj {
		row[i] = b[p.slot]
	}
	return row
}

func (q *Query) rows(ex *exec, sols solutions) *query.Results {
	res := &query.Results{Kind: query.Solutions, Vars: q.Vars(), Rows: [][]triple.Term{}}
	if q.limit == 0 {
		return res
	}
	var seen map[string]struct{}
	if q.distinct {
		seen = make(map[string]struct{})
	}
	skip := q.offset
	emit := func(row []triple.Term) bool {
		if seen != nil {
			k := rowKey(row)
			if _, ok := seen[k]; ok {
				return true
			}
			seen[k] = struct{}{}
		}
		if skip > 0 {
			skip--
			return true
		}
		res.Rows = append(res.Rows, row)
		return q.limit < 0 || len(res.Rows) < q.limit
	}

	if len(q.order) == 0 {
		for sols.Next() {
			if !emit(q.project(sols.Binding())) {
				break
			}
		}
		return res
	}

	type keyed struct {
		keys []triple.Term
		b    binding
	}
	var all []keyed
	for sols.Next() {
		b := sols.Binding()
		k := keyed{keys: make([]triple.Term, len(q.order)), b: b}
		for i, o := range q.order {
			// Errors sort like unbound values.
			k.keys[i], _ = o.e.eval(b)
		}
		all = append(all, k)
	}
	if ex.err != nil {
		return res
	}
	sort.SliceStable(all, func(i, j int) bool {
		for n, o := range q.order {
			c := orderTerms(all[i].keys[n], all[j].keys[n])
			if c == 0 {
				continue
			}
			if o.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	for _, k := range all {
		if !emit(q.project(k.b)) {
			break
		}
	}
	return res
}

// count evaluates a projection made only of COUNT aggregates. The whole
// solution sequence forms one group, so there is exactly one row before
// OFFSET and LIMIT.
func (q *Query) count(ex *exec, sols solutions) *query.Results {
	type counter struct {
		n    int
		seen map[string]struct{}
	}
	cs := make([]counter, len(q.proj))
	for i, p := range q.proj {
		if p.count.distinct {
			cs[i].seen = make(map[string]struct{})
		}
	}
	visible := make([]int, len(q.visible))
	for i, name := range q.visible {
		visible[i] = q.vars[name]
	}
	for sols.Next() {
		b := sols.Binding()
		for i, p := range q.proj {
			var key string
			if p.count.slot < 0 {
				if cs[i].seen != nil {
					row := make([]triple.Term, len(visible))
					for j, v := range visible {
						row[j] = b[v]
					}
					key = rowKey(row)
				}
			} else {
				t := b[p.count.slot]
				if t == nil {
					continue
				}
				if cs[i].seen != nil {
					key = rowKey([]triple.Term{t})
				}
			}
			if cs[i].seen != nil {
				if _, ok := cs[i].seen[key]; ok {
					continue
				}
				cs[i].seen[key] = struct{}{}
			}
			cs[i].n++
		}
	}
	res := &query.Results{Kind: query.Solutions, Vars: q.Vars(), Rows: [][]triple.Term{}}
	if q.offset > 0 || q.limit == 0 {
		return res
	}
	row := make([]triple.Term, len(cs))
	for i, c := range cs {
		row[i] = triple.Literal{Value: strconv.Itoa(c.n), Datatype: triple.XSDInteger}
	}
	res.Rows = append(res.Rows, row)
	return res
}

// rowKey returns a string identifying a row of terms.
func rowKey(row []triple.Term) string {
	var b strings.Builder
	for _, t := range row {
		switch t := t.(type) {
		case nil:
			b.WriteString("\x00")
		case triple.BNode:
			// Labels are not unique across scopes.
			b.WriteString("_:#" + strconv.FormatUint(t.ID(), 10))
		default:
			b.WriteString(t.String())
		}
		b.WriteByte('\x01')
	}
	return b.String()
}
