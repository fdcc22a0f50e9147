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

package memstore

import (
	"fmt"

	"github.com/emirpasic/gods/trees/btree"

	"github.com/cayleygraph/triples/triple"
)

// Iterator is a lazy, restartable sequence of triples matching a pattern.
//
//	it := st.Match(nil, rdfType, nil)
//	defer it.Close()
//	for it.Next() {
//		t := it.Triple()
//		...
//	}
type Iterator struct {
	qs      *Store
	pattern [3]int64 // 0 is a wildcard

	// Posting list of the most selective bound position, nil for a full scan.
	tree *btree.Tree
	iter btree.Iterator

	pos   int
	cur   triple.Triple
	empty bool
	done  bool
}

// Next advances the iterator and reports whether a triple is available.
func (it *Iterator) Next() bool {
	if it.empty || it.done {
		return false
	}
	for {
		var tid int64
		if it.tree != nil {
			if !it.iter.Next() {
				it.finish()
				return false
			}
			tid = it.iter.Key().(int64)
		} else {
			it.pos++
			if it.pos >= len(it.qs.log) {
				it.finish()
				return false
			}
			tid = int64(it.pos)
		}
		e := &it.qs.log[tid]
		if e.Deleted || !it.matches(e.Key) {
			continue
		}
		it.cur = e.Triple
		return true
	}
}

func (it *Iterator) finish() {
	it.done = true
	it.cur = triple.Triple{}
}

func (it *Iterator) matches(key [3]int64) bool {
	for i, id := range it.pattern {
		if id != 0 && key[i] != id {
			return false
		}
	}
	return true
}

// Triple returns the current triple. It is the zero value before the first
// call to Next and after the iterator is exhausted.
func (it *Iterator) Triple() triple.Triple { return it.cur }

// Reset rewinds the iterator to the start of the sequence.
func (it *Iterator) Reset() {
	if it.tree != nil {
		it.iter.Begin()
	}
	it.pos = 0
	it.done = false
	it.cur = triple.Triple{}
}

// Close releases the iterator. Next always returns false afterwards.
func (it *Iterator) Close() error {
	it.empty = true
	it.tree = nil
	it.cur = triple.Triple{}
	return nil
}

// Size returns an upper bound of the number of results.
func (it *Iterator) Size() int {
	switch {
	case it.empty:
		return 0
	case it.tree != nil:
		return it.tree.Size()
	}
	return it.qs.Len()
}

func (it *Iterator) String() string {
	if it.tree == nil {
		return fmt.Sprintf("MemStoreAll(%v)", it.pattern)
	}
	return fmt.Sprintf("MemStore(%v, size=%d)", it.pattern, it.tree.Size())
}
