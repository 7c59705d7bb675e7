// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package btreejoin

import (
	"github.com/google/btree"

	"github.com/matrixorigin/radixjoin/pkg/container/types"
)

const btreeDegree = 32

// item orders by (key, seq); the insertion sequence keeps duplicate keys
// as distinct tree entries.
type item struct {
	key     types.Key
	seq     uint64
	payload types.Payload
}

func (a item) Less(b btree.Item) bool {
	o := b.(item)
	if a.key != o.key {
		return a.key < o.key
	}
	return a.seq < o.seq
}

// multimap is an ordered multimap over a B-tree. Inserts are not safe for
// concurrent use; lookups are.
type multimap struct {
	tree *btree.BTree
	seq  uint64
}

func newMultimap() *multimap {
	return &multimap{tree: btree.New(btreeDegree)}
}

func (m *multimap) Insert(k types.Key, v types.Payload) {
	m.seq++
	m.tree.ReplaceOrInsert(item{key: k, seq: m.seq, payload: v})
}

// Count returns the number of entries stored under k.
func (m *multimap) Count(k types.Key) int {
	n := 0
	m.tree.AscendGreaterOrEqual(item{key: k}, func(i btree.Item) bool {
		if i.(item).key != k {
			return false
		}
		n++
		return true
	})
	return n
}

// Ascend visits every (key, payload) under k in insertion order.
func (m *multimap) Ascend(k types.Key, fn func(types.Payload) bool) {
	m.tree.AscendGreaterOrEqual(item{key: k}, func(i btree.Item) bool {
		it := i.(item)
		if it.key != k {
			return false
		}
		return fn(it.payload)
	})
}

func (m *multimap) Len() int {
	return m.tree.Len()
}
