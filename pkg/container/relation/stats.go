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

package relation

import (
	"encoding/binary"

	hll "github.com/axiomhq/hyperloglog"

	"github.com/matrixorigin/radixjoin/pkg/container/types"
)

// Stats summarizes a relation's key distribution. DistinctKeys is a
// hyperloglog estimate, not an exact count.
type Stats struct {
	NumTuples    int64
	DistinctKeys uint64
	MinKey       types.Key
	MaxKey       types.Key
}

func (r *Relation) Stats() Stats {
	st := Stats{NumTuples: r.NumTuples}
	if r.NumTuples == 0 {
		return st
	}
	sk := hll.New16()
	var buf [8]byte
	st.MinKey = r.Tuples[0].Key
	st.MaxKey = r.Tuples[0].Key
	for i := int64(0); i < r.NumTuples; i++ {
		k := r.Tuples[i].Key
		if k < st.MinKey {
			st.MinKey = k
		}
		if k > st.MaxKey {
			st.MaxKey = k
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		sk.Insert(buf[:])
	}
	st.DistinctKeys = sk.Estimate()
	return st
}
