// Copyright 2014 The Cayley Authors. All rights reserved.
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

// Package memstore is an indexed, duplicate-free, in-memory triple store.
//
// Terms are interned to integer ids. Triples are appended to a log and
// indexed by subject, predicate and object id; each index entry is an
// ordered posting list of log positions, so every enumeration of the store
// yields triples in insertion order.
//
// A Store is not safe for concurrent use.
package memstore

import (
	"github.com/emirpasic/gods/trees/btree"
	"github.com/emirpasic/gods/utils"

	"github.com/cayleygraph/triples/clog"
	"github.com/cayleygraph/triples/triple"
)

const treeOrder = 16

func newTree() *btree.Tree {
	return btree.NewWith(treeOrder, utils.Int64Comparator)
}

type directionIndex struct {
	index [3]map[int64]*btree.Tree
}

func newDirectionIndex() directionIndex {
	return directionIndex{[...]map[int64]*btree.Tree{
		triple.Subject - 1:   make(map[int64]*btree.Tree),
		triple.Predicate - 1: make(map[int64]*btree.Tree),
		triple.Object - 1:    make(map[int64]*btree.Tree),
	}}
}

func (di directionIndex) Tree(d triple.Direction, id int64) *btree.Tree {
	if d < triple.Subject || d > triple.Object {
		panic("illegal direction")
	}
	tree, ok := di.index[d-1][id]
	if !ok {
		tree = newTree()
		di.index[d-1][id] = tree
	}
	return tree
}

func (di directionIndex) Get(d triple.Direction, id int64) (*btree.Tree, bool) {
	if d < triple.Subject || d > triple.Object {
		panic("illegal direction")
	}
	tree, ok := di.index[d-1][id]
	return tree, ok
}

func (di directionIndex) remove(d triple.Direction, id, tid int64) {
	tree, ok := di.Get(d, id)
	if !ok {
		return
	}
	tree.Remove(tid)
	if tree.Empty() {
		delete(di.index[d-1], id)
	}
}

type logEntry struct {
	Triple  triple.Triple
	Key     [3]int64
	Deleted bool
}

// Store is an in-memory triple store.
type Store struct {
	nextID int64
	ids    map[triple.Term]int64
	terms  map[int64]triple.Term
	log    []logEntry
	exact  map[[3]int64]int64
	index  directionIndex
	size   int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		ids:   make(map[triple.Term]int64),
		terms: make(map[int64]triple.Term),

		// Sentinel null entry so triple ids start at 1
		log: make([]logEntry, 1, 200),

		exact:  make(map[[3]int64]int64),
		index:  newDirectionIndex(),
		nextID: 1,
	}
}

func (s *Store) intern(t triple.Term) int64 {
	if id, ok := s.ids[t]; ok {
		return id
	}
	id := s.nextID
	s.ids[t] = id
	s.terms[id] = t
	s.nextID++
	return id
}

// lookup resolves the ids of an existing triple without interning anything.
func (s *Store) lookup(t triple.Triple) ([3]int64, bool) {
	var key [3]int64
	for i, d := range triple.Directions {
		id, ok := s.ids[t.Get(d)]
		// If we've never heard about a term, the triple can't exist.
		if !ok {
			return key, false
		}
		key[i] = id
	}
	return key, true
}

// Insert adds t to the store. Inserting a triple that is already present is
// a no-op. Invalid triples are rejected with an error matching
// triple.ErrInvalidTerm.
func (s *Store) Insert(t triple.Triple) error {
	_, err := s.add(t)
	return err
}

func (s *Store) add(t triple.Triple) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	var key [3]int64
	for i, d := range triple.Directions {
		key[i] = s.intern(t.Get(d))
	}
	if _, exists := s.exact[key]; exists {
		mDuplicates.Inc()
		return false, nil
	}
	tid := int64(len(s.log))
	s.log = append(s.log, logEntry{Triple: t, Key: key})
	s.exact[key] = tid
	for i, d := range triple.Directions {
		s.index.Tree(d, key[i]).Put(tid, struct{}{})
	}
	s.size++
	mInserted.Inc()
	if clog.V(2) {
		clog.Infof("memstore: add %d: %v", tid, t)
	}
	return true, nil
}

// InsertAll inserts triples in order and returns how many of them were new.
// It stops at the first invalid triple; triples inserted before it stay.
func (s *Store) InsertAll(ts []triple.Triple) (int, error) {
	n := 0
	for _, t := range ts {
		added, err := s.add(t)
		if err != nil {
			return n, err
		}
		if added {
			n++
		}
	}
	return n, nil
}

// Delete removes t from the store and reports whether it was present.
func (s *Store) Delete(t triple.Triple) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	key, ok := s.lookup(t)
	if !ok {
		return false, nil
	}
	tid, ok := s.exact[key]
	if !ok {
		return false, nil
	}
	s.log[tid].Deleted = true
	delete(s.exact, key)
	for i, d := range triple.Directions {
		s.index.remove(d, key[i], tid)
	}
	s.size--
	mDeleted.Inc()
	if clog.V(2) {
		clog.Infof("memstore: delete %d: %v", tid, t)
	}
	return true, nil
}

// Contains reports whether t is in the store.
func (s *Store) Contains(t triple.Triple) bool {
	key, ok := s.lookup(t)
	if !ok {
		return false
	}
	_, ok = s.exact[key]
	return ok
}

// Len returns the number of distinct triples in the store.
func (s *Store) Len() int { return s.size }

// IsEmpty reports whether the store holds no triples.
func (s *Store) IsEmpty() bool { return s.size == 0 }

// Triples returns all triples in insertion order.
func (s *Store) Triples() []triple.Triple {
	out := make([]triple.Triple, 0, s.size)
	it := s.Match(nil, nil, nil)
	defer it.Close()
	for it.Next() {
		out = append(out, it.Triple())
	}
	return out
}

// Subjects returns the distinct subjects in order of first appearance.
func (s *Store) Subjects() []triple.Term {
	seen := make(map[int64]struct{})
	var out []triple.Term
	for _, e := range s.log[1:] {
		if e.Deleted {
			continue
		}
		if _, ok := seen[e.Key[0]]; ok {
			continue
		}
		seen[e.Key[0]] = struct{}{}
		out = append(out, e.Triple.Subject)
	}
	return out
}

// Match returns an iterator over the triples matching the pattern. A nil
// term is a wildcard.
//
// The iterator reflects the store at the time it is advanced; the store must
// not be modified while an iterator is in use.
func (s *Store) Match(subject, predicate, object triple.Term) *Iterator {
	it := &Iterator{qs: s}
	var (
		min  = -1
		tree *btree.Tree
	)
	for i, t := range [3]triple.Term{subject, predicate, object} {
		if t == nil {
			continue
		}
		id, ok := s.ids[t]
		if !ok {
			it.empty = true
			return it
		}
		index, ok := s.index.Get(triple.Directions[i], id)
		if !ok {
			// Interned, but no live triple uses it in this position.
			it.empty = true
			return it
		}
		it.pattern[i] = id
		if l := index.Size(); min < 0 || l < min {
			min, tree = l, index
		}
	}
	if tree != nil {
		it.tree = tree
		it.iter = tree.Iterator()
	}
	return it
}

// DebugPrint logs the content of the log at verbosity 2.
func (s *Store) DebugPrint() {
	if !clog.V(2) {
		return
	}
	for i, e := range s.log {
		if i == 0 {
			continue
		}
		clog.Infof("%d: %v deleted=%v", i, e.Triple, e.Deleted)
	}
}
