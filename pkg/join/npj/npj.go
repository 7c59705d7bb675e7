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

// Package npj implements the no-partitioning hash join: a single build
// pass over R into a chained-bucket hash table, then a probe pass over S.
package npj

import (
	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/common/util"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
	"github.com/matrixorigin/radixjoin/pkg/perf"
)

const opName = "npj"

const (
	bucketSize  = 2
	bucketBytes = 64
)

func init() {
	join.Register(opName, Join)
}

// bucket is one cache line: a spin-latch slot reserved for concurrent
// builds (unused here, kept for layout), a fill count, two in-place tuples
// and a 1-based overflow-pool index, 0 meaning no overflow.
type bucket struct {
	latch  uint32
	count  uint32
	tuples [bucketSize]relation.Tuple
	next   int32
	_      [20]byte
}

type hashTable struct {
	buckets  []bucket
	overflow []bucket
	mask     uint64
	skipBits uint32
	heldNB   int64
}

func allocateHashTable(mp *mpool.MPool, nbuckets uint64) (*hashTable, error) {
	n := util.NextPowerOfTwo(nbuckets)
	if n == 0 {
		n = 1
	}
	nb := int64(n) * bucketBytes
	if err := mp.Alloc(nb); err != nil {
		return nil, err
	}
	ht := &hashTable{
		buckets:  make([]bucket, n),
		skipBits: 0, // the default for modulo hash
		heldNB:   nb,
	}
	ht.mask = (n - 1) << ht.skipBits
	return ht, nil
}

func (ht *hashTable) free(mp *mpool.MPool) {
	mp.Free(ht.heldNB)
	ht.buckets = nil
	ht.overflow = nil
	ht.heldNB = 0
}

func (ht *hashTable) hash(k uint64) uint64 {
	return (k & ht.mask) >> ht.skipBits
}

// build inserts every tuple of rel. A full primary bucket fills its first
// overflow with room; only when the head overflow is also full is a fresh
// bucket spliced in between.
func (ht *hashTable) build(mp *mpool.MPool, rel *relation.Relation) error {
	for i := int64(0); i < rel.NumTuples; i++ {
		t := rel.Tuples[i]
		curr := &ht.buckets[ht.hash(uint64(t.Key))]
		if curr.count == bucketSize {
			nxt := curr.next
			if nxt == 0 || ht.overflow[nxt-1].count == bucketSize {
				if err := mp.Alloc(bucketBytes); err != nil {
					return err
				}
				ht.heldNB += bucketBytes
				ht.overflow = append(ht.overflow, bucket{count: 1, next: nxt})
				b := &ht.overflow[len(ht.overflow)-1]
				b.tuples[0] = t
				curr.next = int32(len(ht.overflow))
			} else {
				b := &ht.overflow[nxt-1]
				b.tuples[b.count] = t
				b.count++
			}
		} else {
			curr.tuples[curr.count] = t
			curr.count++
		}
	}
	return nil
}

// probe walks the overflow chain of each probed bucket, counting key
// matches. Duplicate keys on either side multiply.
func (ht *hashTable) probe(rel *relation.Relation) int64 {
	var matches int64
	for i := int64(0); i < rel.NumTuples; i++ {
		key := rel.Tuples[i].Key
		b := &ht.buckets[ht.hash(uint64(key))]
		for {
			for j := uint32(0); j < b.count; j++ {
				if key == b.tuples[j].Key {
					matches++
				}
			}
			if b.next == 0 {
				break
			}
			b = &ht.overflow[b.next-1]
		}
	}
	return matches
}

// Join runs the no-partitioning hash join. It is single-threaded and does
// not materialize output.
func Join(relR, relS *relation.Relation, cfg *join.Config) (*join.Result, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	cfg.NThreads = 1

	var timer1, timer2, start, end uint64

	ht, err := allocateHashTable(cfg.Mp, uint64(relR.NumTuples)/bucketSize)
	if err != nil {
		return nil, err
	}

	start = perf.SystemMicros()
	perf.StartTimer(&timer1)
	timer2 = timer1

	if cfg.Counters != nil {
		cfg.Counters.SetState("build")
	}

	if err := ht.build(cfg.Mp, relR); err != nil {
		ht.free(cfg.Mp)
		return nil, err
	}

	var phase1Counters *perf.Counters
	if cfg.Counters != nil {
		c := cfg.Counters.Snapshot(perf.SlotPhase)
		phase1Counters = &c
	}

	perf.StopTimer(&timer2) // build

	if cfg.Counters != nil {
		cfg.Counters.SetState("probe")
	}

	matches := ht.probe(relS)

	var phase2Counters, totalCounters *perf.Counters
	if cfg.Counters != nil {
		c2 := cfg.Counters.Snapshot(perf.SlotPhase)
		ct := cfg.Counters.Snapshot(perf.SlotTotal)
		phase2Counters, totalCounters = &c2, &ct
	}

	end = perf.SystemMicros()
	perf.StopTimer(&timer1) // over all

	jr := &join.JoinResult{
		Matches:        matches,
		InputTuplesR:   relR.NumTuples,
		InputTuplesS:   relS.NumTuples,
		TotalCycles:    timer1,
		TotalTimeUsec:  end - start,
		Phase1Cycles:   timer2,
		Phase2Cycles:   timer1 - timer2,
		Phase1Counters: phase1Counters,
		Phase2Counters: phase2Counters,
		TotalCounters:  totalCounters,
	}

	ht.free(cfg.Mp)

	join.LogJoin(opName, cfg, jr)
	return &join.Result{TotalResults: matches, NThreads: 1, JR: jr}, nil
}
