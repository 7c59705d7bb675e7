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
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
)

func sortedKeys(r *relation.Relation) []uint64 {
	keys := make([]uint64, r.NumTuples)
	for i := int64(0); i < r.NumTuples; i++ {
		keys[i] = uint64(r.Tuples[i].Key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// TestClusterConservation checks that partitioning neither loses nor
// duplicates tuples and that every cluster is a contiguous run of tuples
// agreeing on the partitioned bits.
func TestClusterConservation(t *testing.T) {
	const bits = 6
	mp := mpool.New("test", mpool.NoFixed)
	in, err := relation.NewRandom(mp, 10000, 1<<16, 99)
	require.NoError(t, err)
	out, err := relation.New(mp, in.NumTuples)
	require.NoError(t, err)

	radixClusterNoPadding(out, in, 0, bits)

	require.Equal(t, sortedKeys(in), sortedKeys(out))

	// cluster ids must be non-decreasing over the output
	mask := uint64(1<<bits) - 1
	prev := uint64(0)
	for i := int64(0); i < out.NumTuples; i++ {
		idx := uint64(out.Tuples[i].Key) & mask
		require.GreaterOrEqual(t, idx, prev)
		prev = idx
	}

	in.Free(mp)
	out.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

// TestClusterZeroBits: a zero-depth pass has a single cluster holding the
// input unchanged.
func TestClusterZeroBits(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	in, err := relation.NewRandom(mp, 1024, 1<<20, 3)
	require.NoError(t, err)
	out, err := relation.New(mp, in.NumTuples)
	require.NoError(t, err)

	radixClusterNoPadding(out, in, 0, 0)
	require.Equal(t, in.Tuples[:in.NumTuples], out.Tuples[:out.NumTuples])

	in.Free(mp)
	out.Free(mp)
}

// TestClusterSecondPass re-clusters by high bits and checks full grouping
// over both fields.
func TestClusterSecondPass(t *testing.T) {
	const (
		b1 = 4
		b2 = 4
	)
	mp := mpool.New("test", mpool.NoFixed)
	in, err := relation.NewRandom(mp, 5000, 1<<12, 123)
	require.NoError(t, err)
	mid, err := relation.New(mp, in.NumTuples)
	require.NoError(t, err)
	out, err := relation.New(mp, in.NumTuples)
	require.NoError(t, err)

	radixClusterNoPadding(mid, in, 0, b1)
	radixClusterNoPadding(out, mid, b1, b2)

	require.Equal(t, sortedKeys(in), sortedKeys(out))

	// tuples are now grouped by the full 8 low bits
	mask := uint64(1<<(b1+b2)) - 1
	seen := map[uint64]bool{}
	var last uint64
	first := true
	for i := int64(0); i < out.NumTuples; i++ {
		idx := uint64(out.Tuples[i].Key) & mask
		if first || idx != last {
			require.False(t, seen[idx], "cluster %d appears twice", idx)
			seen[idx] = true
			last, first = idx, false
		}
	}

	in.Free(mp)
	mid.Free(mp)
	out.Free(mp)
}

// TestClusterPadded checks the padded layout: cluster i starts at
// prefix(i) + i*SmallPaddingTuples.
func TestClusterPadded(t *testing.T) {
	const bits = 3
	fanOut := int64(1) << bits
	mp := mpool.New("test", mpool.NoFixed)
	in, err := relation.NewRandom(mp, 500, 1<<bits, 7)
	require.NoError(t, err)
	out, err := relation.NewPadded(mp, in.NumTuples, fanOut*SmallPaddingTuples)
	require.NoError(t, err)

	hist := make([]int64, fanOut)
	radixClusterPadded(out.Slice(0, out.NumTuples), in.Slice(0, in.NumTuples), hist, 0, bits)

	var total int64
	for _, h := range hist {
		total += h
	}
	require.Equal(t, in.NumTuples, total)

	var offset int64
	for i := int64(0); i < fanOut; i++ {
		start := offset + i*SmallPaddingTuples
		for j := int64(0); j < hist[i]; j++ {
			require.Equal(t, uint64(i), uint64(out.Tuples[start+j].Key)&uint64(fanOut-1))
		}
		offset += hist[i]
	}

	in.Free(mp)
	out.Free(mp)
}

// TestClusterMaskBoundary puts every key at the top of the partitioned
// field: all tuples land in the last cluster.
func TestClusterMaskBoundary(t *testing.T) {
	const bits = 5
	fanOut := int64(1) << bits
	mp := mpool.New("test", mpool.NoFixed)
	in, err := relation.New(mp, 64)
	require.NoError(t, err)
	for i := range in.Tuples {
		in.Tuples[i] = relation.Tuple{Key: uint64(fanOut-1) + uint64(i)<<bits, Payload: uint64(i)}
	}
	out, err := relation.New(mp, in.NumTuples)
	require.NoError(t, err)

	radixClusterNoPadding(out, in, 0, bits)
	require.Equal(t, sortedKeys(in), sortedKeys(out))
	for i := int64(0); i < out.NumTuples; i++ {
		require.Equal(t, uint64(fanOut-1), uint64(out.Tuples[i].Key)&uint64(fanOut-1))
	}

	in.Free(mp)
	out.Free(mp)
}
