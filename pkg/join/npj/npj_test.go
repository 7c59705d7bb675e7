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

package npj

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
	"github.com/matrixorigin/radixjoin/pkg/perf"
)

func makeRelation(t *testing.T, mp *mpool.MPool, pairs [][2]uint64) *relation.Relation {
	r, err := relation.New(mp, int64(len(pairs)))
	require.NoError(t, err)
	for i, p := range pairs {
		r.Tuples[i] = relation.Tuple{Key: p[0], Payload: p[1]}
	}
	return r
}

func TestJoinSmall(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR := makeRelation(t, mp, [][2]uint64{{1, 10}, {2, 20}, {3, 30}})
	relS := makeRelation(t, mp, [][2]uint64{{2, 100}, {2, 101}, {4, 102}})

	cfg := &join.Config{Mp: mp}
	res, err := Join(relR, relS, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.TotalResults)
	require.Equal(t, 1, res.NThreads)
	require.Equal(t, int64(3), res.JR.InputTuplesR)
	require.Equal(t, int64(3), res.JR.InputTuplesS)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

// TestJoinDenseChains drives every R tuple into the same bucket so the
// overflow chain is maximal, and checks the bag-semantics product.
func TestJoinDenseChains(t *testing.T) {
	const n = 1000
	mp := mpool.New("test", mpool.NoFixed)

	relR, err := relation.New(mp, n)
	require.NoError(t, err)
	relS, err := relation.New(mp, n)
	require.NoError(t, err)
	for i := int64(0); i < n; i++ {
		relR.Tuples[i] = relation.Tuple{Key: 1, Payload: uint64(i)}
		relS.Tuples[i] = relation.Tuple{Key: 1, Payload: uint64(i)}
	}

	cfg := &join.Config{Mp: mp}
	res, err := Join(relR, relS, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(n*n), res.TotalResults)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestJoinEmptyR(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR, err := relation.New(mp, 0)
	require.NoError(t, err)
	relS := makeRelation(t, mp, [][2]uint64{{1, 7}})

	cfg := &join.Config{Mp: mp}
	res, err := Join(relR, relS, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.TotalResults)
	require.Equal(t, int64(0), res.JR.InputTuplesR)
	require.Equal(t, int64(1), res.JR.InputTuplesS)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestJoinForcesSingleThread(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR := makeRelation(t, mp, [][2]uint64{{5, 1}})
	relS := makeRelation(t, mp, [][2]uint64{{5, 2}})

	cfg := &join.Config{NThreads: 8, Mp: mp}
	res, err := Join(relR, relS, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, res.NThreads)
	require.Equal(t, int64(1), res.TotalResults)

	relR.Free(mp)
	relS.Free(mp)
}

func TestJoinWithCounters(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR := makeRelation(t, mp, [][2]uint64{{1, 1}, {2, 2}})
	relS := makeRelation(t, mp, [][2]uint64{{2, 3}})

	cfg := &join.Config{Mp: mp, Counters: perf.NewRusage()}
	res, err := Join(relR, relS, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.TotalResults)
	require.NotNil(t, res.JR.Phase1Counters)
	require.NotNil(t, res.JR.Phase2Counters)
	require.NotNil(t, res.JR.TotalCounters)
	require.Equal(t, "build", res.JR.Phase1Counters.Label)
	require.Equal(t, "probe", res.JR.Phase2Counters.Label)

	relR.Free(mp)
	relS.Free(mp)
}

func TestBuildOverflowFill(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	ht, err := allocateHashTable(mp, 1)
	require.NoError(t, err)

	// 7 equal keys on one primary: 2 in place, then overflow buckets of
	// 2, 2, 1 spliced at the chain head
	rel := makeRelation(t, mp, [][2]uint64{
		{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5}, {0, 6},
	})
	require.NoError(t, ht.build(mp, rel))

	b := &ht.buckets[0]
	require.Equal(t, uint32(bucketSize), b.count)
	depth, total := 0, int(b.count)
	for next := b.next; next != 0; {
		ob := &ht.overflow[next-1]
		depth++
		total += int(ob.count)
		next = ob.next
	}
	require.Equal(t, 3, depth)
	require.Equal(t, 7, total)

	ht.free(mp)
	rel.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func BenchmarkJoin(b *testing.B) {
	mp := mpool.New("bench", mpool.NoFixed)
	relR, _ := relation.NewRandom(mp, 1<<16, 1<<14, 7)
	relS, _ := relation.NewRandom(mp, 1<<17, 1<<14, 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg := &join.Config{Mp: mp}
		if _, err := Join(relR, relS, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
