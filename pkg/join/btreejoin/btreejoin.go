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

// Package btreejoin joins by probing an ordered index: S is loaded into a
// B-tree multimap, then worker threads scan disjoint slices of R and count
// the index hits per key.
package btreejoin

import (
	"golang.org/x/sync/errgroup"

	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
	"github.com/matrixorigin/radixjoin/pkg/logutil"
	"github.com/matrixorigin/radixjoin/pkg/perf"
)

const opName = "inl"

func init() {
	join.Register(opName, Join)
}

type probeArgs struct {
	tid     int
	relR    relation.Relation
	index   *multimap
	matches int64
}

func probeWorker(a *probeArgs) {
	var matches int64
	for i := int64(0); i < a.relR.NumTuples; i++ {
		matches += int64(a.index.Count(a.relR.Tuples[i].Key))
	}
	a.matches = matches
}

// Join builds the S index and probes it from R with cfg.NThreads workers.
// It does not materialize output.
func Join(relR, relS *relation.Relation, cfg *join.Config) (*join.Result, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	nthreads := cfg.NThreads

	index := newMultimap()
	for i := int64(0); i < relS.NumTuples; i++ {
		index.Insert(relS.Tuples[i].Key, relS.Tuples[i].Payload)
	}
	logutil.Debugf("index complete, size=%d", index.Len())

	var timer, start, end uint64
	perf.StartTimer(&timer)
	start = perf.SystemMicros()

	if cfg.Counters != nil {
		cfg.Counters.SetState("join")
	}

	numperthr := relR.NumTuples / int64(nthreads)
	args := make([]probeArgs, nthreads)
	g := new(errgroup.Group)
	for i := 0; i < nthreads; i++ {
		n := numperthr
		if i == nthreads-1 {
			n = relR.NumTuples - int64(i)*numperthr
		}
		args[i] = probeArgs{
			tid:   i,
			relR:  relR.Slice(int64(i)*numperthr, n),
			index: index,
		}
		a := &args[i]
		g.Go(func() error {
			probeWorker(a)
			return nil
		})
	}
	_ = g.Wait()

	var matches int64
	for i := 0; i < nthreads; i++ {
		matches += args[i].matches
	}

	var totalCounters *perf.Counters
	if cfg.Counters != nil {
		c := cfg.Counters.Snapshot(perf.SlotPhase)
		totalCounters = &c
	}

	end = perf.SystemMicros()
	perf.StopTimer(&timer)

	jr := &join.JoinResult{
		Matches:       matches,
		InputTuplesR:  relR.NumTuples,
		InputTuplesS:  relS.NumTuples,
		TotalCycles:   timer,
		TotalTimeUsec: end - start,
		TotalCounters: totalCounters,
	}
	join.LogJoin(opName, cfg, jr)

	return &join.Result{TotalResults: matches, NThreads: nthreads, JR: jr}, nil
}
