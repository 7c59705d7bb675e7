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

package radix

import (
	"github.com/matrixorigin/radixjoin/pkg/common/util"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
)

// SubJoin evaluates one cluster pair and returns its match count. relR and
// relS are cluster-local views of the partitioned relations; tmpR is a
// scratch view over the back-buffer for algorithms that reorder their
// input (the chained-array sub-join ignores it). A non-nil out receives
// materialized matches.
type SubJoin func(relR, relS, tmpR relation.Relation, out *join.List) int64

// BucketChaining is the chained-array sub-join under the default radix
// bits. The registered framework variant runs it; the serial and parallel
// drivers run the same algorithm bound to their own radix bits through
// chainedSubJoin.
func BucketChaining(relR, relS, tmpR relation.Relation, out *join.List) int64 {
	return bucketChainingJoin(relR, relS, out, NumRadixBits)
}

// chainedSubJoin binds the chained-array sub-join to a partitioning depth.
func chainedSubJoin(radixBits int) SubJoin {
	return func(relR, relS, tmpR relation.Relation, out *join.List) int64 {
		return bucketChainingJoin(relR, relS, out, radixBits)
	}
}

// bucketChainingJoin builds a chained-array hash index over relR and
// probes it with relS. The index is two dense arrays: bucket[idx] holds
// the 1-based position of the chain head, next[i] the 1-based position of
// the follower of tuple i; zero terminates. Both sides already share the
// low radixBits key bits, so the index hashes on the bits above them.
func bucketChainingJoin(relR, relS relation.Relation, out *join.List, radixBits int) int64 {
	numR := relR.NumTuples
	if numR == 0 {
		return 0
	}

	n := util.NextPowerOfTwo(uint64(numR))
	mask := (n - 1) << uint(radixBits)

	next := make([]int32, numR)
	bucket := make([]int32, n)

	for i := int64(0); i < numR; i++ {
		idx := hashBitModulo(uint64(relR.Tuples[i].Key), mask, uint(radixBits))
		next[i] = bucket[idx]
		bucket[idx] = int32(i) + 1 // chain positions start from 1
	}

	var matches int64
	numS := relS.NumTuples
	for i := int64(0); i < numS; i++ {
		s := relS.Tuples[i]
		idx := hashBitModulo(uint64(s.Key), mask, uint(radixBits))
		for hit := bucket[idx]; hit > 0; hit = next[hit-1] {
			if s.Key == relR.Tuples[hit-1].Key {
				matches++
				if out != nil {
					out.Emit(s.Key, relR.Tuples[hit-1].Payload, s.Payload)
				}
			}
		}
	}
	return matches
}
