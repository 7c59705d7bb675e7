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
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
)

// radixClusterNoPadding scatters in's tuples into out grouped by the
// bits-wide key field starting at bitOffset. Clusters are contiguous with
// no padding in between; out needs physical room for in.NumTuples.
func radixClusterNoPadding(out, in *relation.Relation, bitOffset, bits uint) {
	fanOut := int64(1) << bits
	mask := (uint64(fanOut) - 1) << bitOffset
	ntuples := in.NumTuples

	tuplesPerCluster := make([]int64, fanOut)
	for i := int64(0); i < ntuples; i++ {
		idx := hashBitModulo(uint64(in.Tuples[i].Key), mask, bitOffset)
		tuplesPerCluster[idx]++
	}

	dst := make([]int64, fanOut)
	var offset int64
	for i := int64(0); i < fanOut; i++ {
		dst[i] = offset
		offset += tuplesPerCluster[i]
	}

	for i := int64(0); i < ntuples; i++ {
		idx := hashBitModulo(uint64(in.Tuples[i].Key), mask, bitOffset)
		out.Tuples[dst[idx]] = in.Tuples[i]
		dst[idx]++
	}
}

// radixClusterPadded is the padded serial variant: cluster i starts at
// offset + i*SmallPaddingTuples so consecutive clusters do not share L1
// sets during the scatter. hist (fanout entries) receives the per-cluster
// counts; out's physical extent must cover the padded layout.
func radixClusterPadded(out, in relation.Relation, hist []int64, bitOffset, bits uint) {
	fanOut := int64(1) << bits
	mask := (uint64(fanOut) - 1) << bitOffset

	for i := int64(0); i < in.NumTuples; i++ {
		idx := hashBitModulo(uint64(in.Tuples[i].Key), mask, bitOffset)
		hist[idx]++
	}

	dst := make([]int64, fanOut)
	var offset int64
	for i := int64(0); i < fanOut; i++ {
		dst[i] = offset + i*SmallPaddingTuples
		offset += hist[i]
	}

	for i := int64(0); i < in.NumTuples; i++ {
		idx := hashBitModulo(uint64(in.Tuples[i].Key), mask, bitOffset)
		out.Tuples[dst[idx]] = in.Tuples[i]
		dst[idx]++
	}
}
