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

// Package radix implements the radix-partitioned equi-join variants: a
// serial driver, a framework driver that plugs in a caller-supplied
// sub-join, and a parallel driver with histogram-based partitioning.
package radix

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
	"github.com/matrixorigin/radixjoin/pkg/perf"
)

const (
	opNameSerial    = "rj"
	opNameFramework = "rj_f"
	opNameParallel  = "prj"
)

// serialParams is what the serial driver runs with: a single 8-bit pass,
// the minimum useful fanout.
var serialParams = Params{RadixBits: 8, NumPasses: 1}

func init() {
	join.Register(opNameSerial, Join)
	join.Register(opNameFramework, func(relR, relS *relation.Relation, cfg *join.Config) (*join.Result, error) {
		return JoinWithFunc(relR, relS, BucketChaining, cfg)
	})
	join.Register(opNameParallel, JoinParallel)
}

// Join is the serial radix join: partition both relations by the low key
// bits, then run the chained-array sub-join on each non-empty cluster pair.
func Join(relR, relS *relation.Relation, cfg *join.Config) (*join.Result, error) {
	return joinSerial(relR, relS, chainedSubJoin(serialParams.RadixBits), cfg, serialParams, opNameSerial)
}

// JoinWithFunc is the framework driver: the same single-threaded radix
// pipeline under the default parameters, with the sub-join supplied by
// the caller.
func JoinWithFunc(relR, relS *relation.Relation, sub SubJoin, cfg *join.Config) (*join.Result, error) {
	return joinSerial(relR, relS, sub, cfg, DefaultParams, opNameFramework)
}

func joinSerial(relR, relS *relation.Relation, sub SubJoin, cfg *join.Config, p Params, name string) (*join.Result, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg.NThreads = 1

	mp := cfg.Mp
	padding := p.relationPaddingTuples()

	outR, err := relation.NewPadded(mp, relR.NumTuples, padding)
	if err != nil {
		return nil, err
	}
	outS, err := relation.NewPadded(mp, relS.NumTuples, padding)
	if err != nil {
		outR.Free(mp)
		return nil, err
	}

	var timer1, timer2, start, end uint64

	start = perf.SystemMicros()
	perf.StartTimer(&timer1)
	timer2 = timer1

	if cfg.Counters != nil {
		cfg.Counters.SetState("partition")
	}

	// Multi-pass partitioning. Pass 1 clusters into the out pair by the low
	// bits; pass 2 re-clusters the whole pass-1 output by the remaining high
	// bits into a second owned pair. The scatter is stable, so each full
	// low-bit value ends up as one contiguous run, in ascending order. The
	// inputs stay read-only throughout.
	curR, curS := outR, outS
	if p.NumPasses == 1 {
		radixClusterNoPadding(outR, relR, 0, uint(p.RadixBits))
		radixClusterNoPadding(outS, relS, 0, uint(p.RadixBits))
	} else {
		bufR, err := relation.NewPadded(mp, relR.NumTuples, padding)
		if err != nil {
			outR.Free(mp)
			outS.Free(mp)
			return nil, err
		}
		bufS, err := relation.NewPadded(mp, relS.NumTuples, padding)
		if err != nil {
			bufR.Free(mp)
			outR.Free(mp)
			outS.Free(mp)
			return nil, err
		}

		radixClusterNoPadding(outR, relR, 0, p.bitsPass1())
		radixClusterNoPadding(outS, relS, 0, p.bitsPass1())

		radixClusterNoPadding(bufR, outR, p.bitsPass1(), p.bitsPass2())
		radixClusterNoPadding(bufS, outS, p.bitsPass1(), p.bitsPass2())

		outR.Free(mp)
		outS.Free(mp)
		curR, curS = bufR, bufS
	}

	var phase1Counters *perf.Counters
	if cfg.Counters != nil {
		c := cfg.Counters.Snapshot(perf.SlotPhase)
		phase1Counters = &c
		cfg.Counters.SetState("join")
	}

	perf.StopTimer(&timer1) // partitioning

	fanOut := p.fanoutTotal()
	lowMask := uint64(fanOut) - 1

	rCount := make([]int64, fanOut)
	sCount := make([]int64, fanOut)
	rClusters := roaring.New()
	sClusters := roaring.New()
	for i := int64(0); i < curR.NumTuples; i++ {
		idx := uint64(curR.Tuples[i].Key) & lowMask
		rCount[idx]++
		rClusters.Add(uint32(idx))
	}
	for i := int64(0); i < curS.NumTuples; i++ {
		idx := uint64(curS.Tuples[i].Key) & lowMask
		sCount[idx]++
		sClusters.Add(uint32(idx))
	}

	rStart := make([]int64, fanOut)
	sStart := make([]int64, fanOut)
	var r, s int64
	for i := int64(0); i < fanOut; i++ {
		rStart[i], sStart[i] = r, s
		r += rCount[i]
		s += sCount[i]
	}

	var out *join.List
	if cfg.Materialize {
		out = &join.List{}
	}

	// Only clusters populated on both sides can produce matches.
	var result int64
	var partsProcessed int32
	candidates := roaring.And(rClusters, sClusters)
	it := candidates.Iterator()
	for it.HasNext() {
		i := int64(it.Next())
		tmpR := curR.Slice(rStart[i], rCount[i])
		tmpS := curS.Slice(sStart[i], sCount[i])
		result += sub(tmpR, tmpS, relation.Relation{}, out)
		partsProcessed++
	}

	perf.StopTimer(&timer2) // over all
	end = perf.SystemMicros()

	var phase2Counters, totalCounters *perf.Counters
	if cfg.Counters != nil {
		c2 := cfg.Counters.Snapshot(perf.SlotPhase)
		ct := cfg.Counters.Snapshot(perf.SlotTotal)
		phase2Counters, totalCounters = &c2, &ct
	}

	jr := &join.JoinResult{
		Matches:        result,
		InputTuplesR:   relR.NumTuples,
		InputTuplesS:   relS.NumTuples,
		TotalCycles:    timer2,
		TotalTimeUsec:  end - start,
		Phase1Cycles:   timer1,
		Phase2Cycles:   timer2 - timer1,
		Phase1Counters: phase1Counters,
		Phase2Counters: phase2Counters,
		TotalCounters:  totalCounters,
	}
	join.LogJoin(name, cfg, jr)

	curR.Free(mp)
	curS.Free(mp)

	res := &join.Result{TotalResults: result, NThreads: 1, JR: jr}
	res.ThreadResults = []join.ThreadResult{{
		ThreadID:       0,
		NResults:       result,
		PartsProcessed: partsProcessed,
		Results:        out,
	}}
	return res, nil
}
