package sparql

import (
	"context"

	"github.com/cayleygraph/triples/graph/memstore"
	"github.com/cayleygraph/triples/internal/lru"
	"github.com/cayleygraph/triples/query"
)

var _ query.Session = (*Session)(nil)

// cacheSize is the number of parsed queries a session keeps.
const cacheSize = 64

// Session runs SPARQL queries against a store. Parsed queries are cached
// by their text until the prefixes or the base change.
type Session struct {
	st    *memstore.Store
	opts  Options
	cache *lru.Cache[*Query]
}

func NewSession(st *memstore.Store) *Session {
	return &Session{st: st, cache: lru.New[*Query](cacheSize)}
}

// SetPrefixes sets the prefixes available to queries without a PREFIX
// declaration.
func (s *Session) SetPrefixes(prefixes map[string]string) {
	if samePrefixes(s.opts.Prefixes, prefixes) {
		return
	}
	s.opts.Prefixes = prefixes
	s.cache.Purge()
}

// SetBase sets the base IRI for relative IRIs in queries.
func (s *Session) SetBase(base string) {
	if s.opts.Base == base {
		return
	}
	s.opts.Base = base
	s.cache.Purge()
}

func (s *Session) Execute(ctx context.Context, text string) (*query.Results, error) {
	q, ok := s.cache.Get(text)
	if !ok {
		var err error
		q, err = ParseWith(text, &s.opts)
		if err != nil {
			return nil, err
		}
		s.cache.Put(text, q)
	}
	return q.Execute(ctx, s.st)
}

func samePrefixes(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
