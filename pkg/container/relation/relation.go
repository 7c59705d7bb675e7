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

// Package relation holds the flat tuple arrays the join operators run over.
//
// A Relation is either owned (its buffer was allocated through an mpool and
// must be freed by the same owner) or a view into another relation's buffer.
// Views carry a logical tuple count and the remaining physical extent of the
// backing buffer, so partitioned sub-ranges can scatter into padding slack
// past their logical end. Views never outlive their backing storage.
package relation

import (
	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/container/types"
)

// TupleSize is the byte width of one tuple.
const TupleSize = 16

type Tuple struct {
	Key     types.Key
	Payload types.Payload
}

type Relation struct {
	// Tuples is the physical buffer. Its length may exceed NumTuples when
	// the relation was allocated with partitioning padding or is a view
	// whose backing buffer extends past the logical range.
	Tuples []Tuple

	// NumTuples is the logical tuple count.
	NumTuples int64
}

// New allocates an owned relation of n tuples accounted against mp.
func New(mp *mpool.MPool, n int64) (*Relation, error) {
	return NewPadded(mp, n, 0)
}

// NewPadded allocates an owned relation holding n logical tuples with
// padTuples extra physical slots for partitioning padding.
func NewPadded(mp *mpool.MPool, n, padTuples int64) (*Relation, error) {
	if err := mp.Alloc((n + padTuples) * TupleSize); err != nil {
		return nil, err
	}
	return &Relation{
		Tuples:    make([]Tuple, n+padTuples),
		NumTuples: n,
	}, nil
}

// Free returns the buffer's bytes to mp. Only the owner may call it.
func (r *Relation) Free(mp *mpool.MPool) {
	if r.Tuples == nil {
		return
	}
	mp.Free(int64(len(r.Tuples)) * TupleSize)
	r.Tuples = nil
	r.NumTuples = 0
}

// Slice returns a view of n logical tuples starting at off. The view keeps
// the rest of the physical buffer so scatters may run into padding slack.
func (r Relation) Slice(off, n int64) Relation {
	return Relation{Tuples: r.Tuples[off:], NumTuples: n}
}
