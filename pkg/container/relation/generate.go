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
	"math/rand"

	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/container/types"
)

// NewRandom builds a relation of n tuples with keys uniform over
// [0, maxKey) drawn from the given seed. Payloads are row ids.
func NewRandom(mp *mpool.MPool, n int64, maxKey uint64, seed int64) (*Relation, error) {
	r, err := New(mp, n)
	if err != nil {
		return nil, err
	}
	rnd := rand.New(rand.NewSource(seed))
	for i := int64(0); i < n; i++ {
		r.Tuples[i] = Tuple{
			Key:     types.Key(rnd.Uint64() % maxKey),
			Payload: types.Payload(i),
		}
	}
	return r, nil
}

// NewSequential builds a relation with key i and payload i for i in [0, n).
func NewSequential(mp *mpool.MPool, n int64) (*Relation, error) {
	r, err := New(mp, n)
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < n; i++ {
		r.Tuples[i] = Tuple{Key: types.Key(i), Payload: types.Payload(i)}
	}
	return r, nil
}
