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

	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
)

func makeRelation(t *testing.T, mp *mpool.MPool, pairs [][2]uint64) *relation.Relation {
	r, err := relation.New(mp, int64(len(pairs)))
	require.NoError(t, err)
	for i, p := range pairs {
		r.Tuples[i] = relation.Tuple{Key: p[0], Payload: p[1]}
	}
	return r
}

func TestSerialSmall(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR := makeRelation(t, mp, [][2]uint64{{1, 10}, {2, 20}, {3, 30}})
	relS := makeRelation(t, mp, [][2]uint64{{2, 100}, {2, 101}, {4, 102}})

	cfg := &join.Config{Mp: mp}
	res, err := Join(relR, relS, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.TotalResults)
	require.Equal(t, 1, res.NThreads)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestSerialEmptySides(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)

	empty, err := relation.New(mp, 0)
	require.NoError(t, err)
	relS := makeRelation(t, mp, [][2]uint64{{1, 1}})

	res, err := Join(empty, relS, &join.Config{Mp: mp})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.TotalResults)
	require.Equal(t, int64(0), res.JR.InputTuplesR)

	res, err = Join(relS, empty, &join.Config{Mp: mp})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.TotalResults)

	empty.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestSerialInvalidPasses(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR := makeRelation(t, mp, [][2]uint64{{1, 1}})
	relS := makeRelation(t, mp, [][2]uint64{{1, 2}})

	_, err := joinSerial(relR, relS, BucketChaining, &join.Config{Mp: mp},
		Params{RadixBits: 8, NumPasses: 3}, "bad")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	_, err = joinSerial(relR, relS, BucketChaining, &join.Config{Mp: mp},
		Params{RadixBits: 0, NumPasses: 1}, "bad")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	relR.Free(mp)
	relS.Free(mp)
}

// TestSerialTwoPass runs the same inputs through one and two passes; the
// counts must agree.
func TestSerialTwoPass(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR, err := relation.NewRandom(mp, 20000, 1<<12, 5)
	require.NoError(t, err)
	relS, err := relation.NewRandom(mp, 40000, 1<<12, 6)
	require.NoError(t, err)

	onePass, err := joinSerial(relR, relS, chainedSubJoin(8), &join.Config{Mp: mp},
		Params{RadixBits: 8, NumPasses: 1}, "one")
	require.NoError(t, err)
	twoPass, err := joinSerial(relR, relS, chainedSubJoin(8), &join.Config{Mp: mp},
		Params{RadixBits: 8, NumPasses: 2}, "two")
	require.NoError(t, err)

	require.Equal(t, onePass.TotalResults, twoPass.TotalResults)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

// TestSerialSingleCluster puts the whole key domain into one cluster.
func TestSerialSingleCluster(t *testing.T) {
	const n = 5000
	mp := mpool.New("test", mpool.NoFixed)
	relR, err := relation.New(mp, n)
	require.NoError(t, err)
	relS, err := relation.New(mp, n)
	require.NoError(t, err)
	// all keys share the low 8 bits; the high bits vary
	for i := int64(0); i < n; i++ {
		relR.Tuples[i] = relation.Tuple{Key: 0x2a + uint64(i)<<8, Payload: uint64(i)}
		relS.Tuples[i] = relation.Tuple{Key: 0x2a + uint64(i)<<8, Payload: uint64(i)}
	}

	res, err := Join(relR, relS, &join.Config{Mp: mp})
	require.NoError(t, err)
	require.Equal(t, int64(n), res.TotalResults)
	require.Equal(t, int32(1), res.ThreadResults[0].PartsProcessed)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestFrameworkCustomSubJoin(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR := makeRelation(t, mp, [][2]uint64{{7, 1}, {7, 2}})
	relS := makeRelation(t, mp, [][2]uint64{{7, 3}, {9, 4}})

	// a naive nested-loop sub-join must agree with the chained one
	nested := func(r, s, tmp relation.Relation, out *join.List) int64 {
		var matches int64
		for i := int64(0); i < r.NumTuples; i++ {
			for j := int64(0); j < s.NumTuples; j++ {
				if r.Tuples[i].Key == s.Tuples[j].Key {
					matches++
				}
			}
		}
		return matches
	}

	got, err := JoinWithFunc(relR, relS, nested, &join.Config{Mp: mp})
	require.NoError(t, err)
	want, err := JoinWithFunc(relR, relS, BucketChaining, &join.Config{Mp: mp})
	require.NoError(t, err)
	require.Equal(t, want.TotalResults, got.TotalResults)
	require.Equal(t, int64(2), got.TotalResults)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestSerialMaterialize(t *testing.T) {
	mp := mpool.New("test", mpool.NoFixed)
	relR := makeRelation(t, mp, [][2]uint64{{1, 10}, {2, 20}, {2, 21}})
	relS := makeRelation(t, mp, [][2]uint64{{2, 30}, {1, 31}})

	res, err := Join(relR, relS, &join.Config{Mp: mp, Materialize: true})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.TotalResults)

	out := res.ThreadResults[0].Results
	require.NotNil(t, out)
	require.Len(t, out.Tuples, 3)

	got := append([]join.OutputTuple(nil), out.Tuples...)
	sort.Slice(got, func(i, j int) bool {
		if got[i].Key != got[j].Key {
			return got[i].Key < got[j].Key
		}
		return got[i].PayloadR < got[j].PayloadR
	})
	want := []join.OutputTuple{
		{Key: 1, PayloadR: 10, PayloadS: 31},
		{Key: 2, PayloadR: 20, PayloadS: 30},
		{Key: 2, PayloadR: 21, PayloadS: 30},
	}
	require.Equal(t, want, got)

	relR.Free(mp)
	relS.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func BenchmarkSerialJoin(b *testing.B) {
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
