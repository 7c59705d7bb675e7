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
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/matrixorigin/radixjoin/pkg/common/barrier"
	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
	"github.com/matrixorigin/radixjoin/pkg/common/queue"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
	"github.com/matrixorigin/radixjoin/pkg/logutil"
	"github.com/matrixorigin/radixjoin/pkg/perf"
)

// workerArgs is one worker's state. Padded so one worker's hot fields
// (result, timers) do not share cache lines with its neighbor's.
type workerArgs struct {
	tid      int
	nthreads int

	relR relation.Relation
	relS relation.Relation
	tmpR *relation.Relation
	tmpS *relation.Relation
	bakR *relation.Relation
	bakS *relation.Relation

	histR [][]int64
	histS [][]int64

	totalR int64
	totalS int64

	partQueue *queue.TaskQueue
	joinQueue *queue.TaskQueue
	bar       *barrier.Barrier
	sub       SubJoin
	cfg       *join.Config
	p         Params

	result         int64
	partsProcessed int32
	threadResult   *join.ThreadResult

	timer1 uint64
	timer2 uint64
	timer3 uint64
	pass1  uint64
	pass2  uint64
	start  uint64
	end    uint64

	phase1Counters *perf.Counters
	phase2Counters *perf.Counters
	totalCounters  *perf.Counters

	_ [CacheLineSize]byte
}

// partArgs describes one relation slice to partition cooperatively.
type partArgs struct {
	rel         relation.Relation
	tmp         []relation.Tuple
	hist        [][]int64
	output      []int64
	tid         int
	nthreads    int
	bitOffset   uint
	bits        uint
	padding     int64
	totalTuples int64
	bar         *barrier.Barrier
}

// JoinParallel is the parallel radix join: cooperative histogram-based
// partitioning across cfg.NThreads workers, then task-queue-driven
// sub-joins.
func JoinParallel(relR, relS *relation.Relation, cfg *join.Config) (*join.Result, error) {
	return joinParallel(relR, relS, chainedSubJoin(DefaultParams.RadixBits), cfg, DefaultParams, opNameParallel)
}

func joinParallel(relR, relS *relation.Relation, sub SubJoin, cfg *join.Config, p Params, name string) (*join.Result, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	nthreads := cfg.NThreads
	mp := cfg.Mp

	partQueue := queue.New(uint32(p.fanoutPass1()))
	joinQueue := queue.New(uint32(p.fanoutTotal()))

	padding := p.relationPaddingTuples()
	tmpR, err := relation.NewPadded(mp, relR.NumTuples, padding)
	if err != nil {
		return nil, err
	}
	tmpS, err := relation.NewPadded(mp, relS.NumTuples, padding)
	if err != nil {
		tmpR.Free(mp)
		return nil, err
	}
	owned := []*relation.Relation{tmpR, tmpS}

	// Pass-2 back buffers; the inputs stay read-only.
	var bakR, bakS *relation.Relation
	if p.NumPasses == 2 {
		if bakR, err = relation.NewPadded(mp, relR.NumTuples, padding); err == nil {
			bakS, err = relation.NewPadded(mp, relS.NumTuples, padding)
		}
		if err != nil {
			if bakR != nil {
				bakR.Free(mp)
			}
			tmpR.Free(mp)
			tmpS.Free(mp)
			return nil, err
		}
		owned = append(owned, bakR, bakS)
	}
	freeOwned := func() {
		for _, rel := range owned {
			rel.Free(mp)
		}
	}

	bar, err := barrier.New(nthreads)
	if err != nil {
		freeOwned()
		return nil, err
	}

	histR := make([][]int64, nthreads)
	histS := make([][]int64, nthreads)

	numperthrR := relR.NumTuples / int64(nthreads)
	numperthrS := relS.NumTuples / int64(nthreads)

	threadResults := make([]join.ThreadResult, nthreads)
	args := make([]workerArgs, nthreads)
	for i := 0; i < nthreads; i++ {
		nR, nS := numperthrR, numperthrS
		if i == nthreads-1 {
			nR = relR.NumTuples - int64(i)*numperthrR
			nS = relS.NumTuples - int64(i)*numperthrS
		}
		args[i] = workerArgs{
			tid:          i,
			nthreads:     nthreads,
			relR:         relR.Slice(int64(i)*numperthrR, nR),
			relS:         relS.Slice(int64(i)*numperthrS, nS),
			tmpR:         tmpR,
			tmpS:         tmpS,
			bakR:         bakR,
			bakS:         bakS,
			histR:        histR,
			histS:        histS,
			totalR:       relR.NumTuples,
			totalS:       relS.NumTuples,
			partQueue:    partQueue,
			joinQueue:    joinQueue,
			bar:          bar,
			sub:          sub,
			cfg:          cfg,
			p:            p,
			threadResult: &threadResults[i],
		}
	}

	pool, err := ants.NewPool(nthreads)
	if err != nil {
		freeOwned()
		return nil, moerr.NewInternalError("worker pool: %v", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := 0; i < nthreads; i++ {
		a := &args[i]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			prjWorker(a)
		}); err != nil {
			// Workers already running are parked at a barrier no one
			// else will reach; this cannot be unwound.
			logutil.Fatalf("submit worker %d: %v", i, err)
		}
	}
	wg.Wait()

	var result int64
	for i := 0; i < nthreads; i++ {
		result += args[i].result
	}

	jr := &join.JoinResult{
		Matches:        result,
		InputTuplesR:   relR.NumTuples,
		InputTuplesS:   relS.NumTuples,
		TotalCycles:    args[0].timer1,
		TotalTimeUsec:  args[0].end - args[0].start,
		Phase1Cycles:   args[0].timer3,
		Phase2Cycles:   args[0].timer2 - args[0].timer3,
		Phase1Counters: args[0].phase1Counters,
		Phase2Counters: args[0].phase2Counters,
		TotalCounters:  args[0].totalCounters,
	}
	join.LogJoin(name, cfg, jr)

	freeOwned()

	return &join.Result{
		TotalResults:  result,
		NThreads:      nthreads,
		JR:            jr,
		ThreadResults: threadResults,
	}, nil
}

func prjWorker(a *workerArgs) {
	fanOut := a.p.fanoutPass1()
	bitsP1 := a.p.bitsPass1()
	bitsP2 := a.p.bitsPass2()

	if a.tid == 0 {
		thresh1 := maxI64(a.p.fanoutPass1(), a.p.fanoutPass2()) * threshold1(a.nthreads)
		logutil.Debugf("radix partitioning: passes=%d, radix bits=%d", a.p.NumPasses, a.p.RadixBits)
		logutil.Debugf("fanout=%d, pass1 bits=%d, pass2 bits=%d, thresh1=%d",
			fanOut, bitsP1, bitsP2, thresh1)
	}

	outputR := make([]int64, fanOut+1)
	outputS := make([]int64, fanOut+1)
	a.histR[a.tid] = make([]int64, fanOut)
	a.histS[a.tid] = make([]int64, fanOut)
	a.partsProcessed = 0

	if a.cfg.Counters != nil && a.tid == 0 {
		a.cfg.Counters.SetState("partition")
	}

	// All workers start together; thread 0 checkpoints the time.
	a.bar.Wait()
	if a.tid == 0 {
		a.start = perf.SystemMicros()
		perf.StartTimer(&a.timer1)
		a.timer2 = a.timer1
		a.timer3 = a.timer1
		a.pass1 = a.timer1
	}

	// Pass 1, done cooperatively by all workers.
	part := partArgs{
		tid:       a.tid,
		nthreads:  a.nthreads,
		bitOffset: 0,
		bits:      bitsP1,
		padding:   a.p.paddingTuples(),
		bar:       a.bar,
	}

	part.rel = a.relR
	part.tmp = a.tmpR.Tuples
	part.hist = a.histR
	part.output = outputR
	part.totalTuples = a.totalR
	parallelRadixPartition(&part)

	part.rel = a.relS
	part.tmp = a.tmpS.Tuples
	part.hist = a.histS
	part.output = outputS
	part.totalTuples = a.totalS
	parallelRadixPartition(&part)

	// All scatters complete.
	a.bar.Wait()

	// Thread 0 turns the pass-1 clusters into tasks: join tasks directly
	// for a single pass, repartitioning tasks otherwise.
	if a.tid == 0 {
		padding := a.p.paddingTuples()
		for i := int64(0); i < fanOut; i++ {
			ntupR := outputR[i+1] - outputR[i] - padding
			ntupS := outputS[i+1] - outputS[i] - padding
			if ntupR <= 0 || ntupS <= 0 {
				continue
			}
			if a.p.NumPasses == 1 {
				t := a.joinQueue.GetSlot()
				t.RelR = a.tmpR.Slice(outputR[i], ntupR)
				t.RelS = a.tmpS.Slice(outputS[i], ntupS)
				t.TmpR = relation.Relation{}
				t.TmpS = relation.Relation{}
				a.joinQueue.Enqueue(t)
			} else {
				t := a.partQueue.GetSlot()
				t.RelR = a.tmpR.Slice(outputR[i], ntupR)
				t.TmpR = a.bakR.Slice(outputR[i], ntupR)
				t.RelS = a.tmpS.Slice(outputS[i], ntupS)
				t.TmpS = a.bakS.Slice(outputS[i], ntupS)
				a.partQueue.Enqueue(t)
			}
		}
		if a.p.NumPasses == 2 {
			logutil.Debugf("pass-2 partitioning tasks=%d", a.partQueue.Count())
		}
		perf.StopTimer(&a.pass1)
		perf.StartTimer(&a.pass2)
	}

	// All tasks from pass 1 are published.
	a.bar.Wait()

	if a.p.NumPasses == 2 {
		for t := a.partQueue.Dequeue(); t != nil; t = a.partQueue.Dequeue() {
			serialRadixPartition(t, a.joinQueue, bitsP1, bitsP2)
		}
	}

	// All join tasks are published.
	a.bar.Wait()

	if a.tid == 0 {
		perf.StopTimer(&a.pass2)
		perf.StopTimer(&a.timer3) // partitioning finished
		logutil.Debugf("join tasks=%d", a.joinQueue.Count())
	}

	if a.cfg.Counters != nil {
		if a.tid == 0 {
			c := a.cfg.Counters.Snapshot(perf.SlotPhase)
			a.phase1Counters = &c
			a.cfg.Counters.SetState("join")
		}
		a.bar.Wait()
	}

	var out *join.List
	if a.cfg.Materialize {
		out = &join.List{}
	}

	// Idle workers steal the next task; the queue holds many more tasks
	// than workers.
	var results int64
	for t := a.joinQueue.Dequeue(); t != nil; t = a.joinQueue.Dequeue() {
		results += a.sub(t.RelR, t.RelS, t.TmpR, out)
		a.partsProcessed++
	}
	a.result = results

	a.threadResult.ThreadID = int32(a.tid)
	a.threadResult.NResults = results
	a.threadResult.PartsProcessed = a.partsProcessed
	a.threadResult.Results = out

	// Reliable finish timing.
	a.bar.Wait()
	if a.tid == 0 {
		perf.StopTimer(&a.timer2)
		perf.StopTimer(&a.timer1)
		a.end = perf.SystemMicros()
	}

	if a.cfg.Counters != nil {
		if a.tid == 0 {
			c2 := a.cfg.Counters.Snapshot(perf.SlotPhase)
			ct := a.cfg.Counters.Snapshot(perf.SlotTotal)
			a.phase2Counters = &c2
			a.totalCounters = &ct
		}
		a.bar.Wait()
	}
}

// parallelRadixPartition re-orders one relation by histogram: every worker
// counts its slice, the counts meet at a barrier, and each worker scatters
// into the slots the global prefix sums assign it.
func parallelRadixPartition(p *partArgs) {
	fanOut := int64(1) << p.bits
	mask := (uint64(fanOut) - 1) << p.bitOffset

	myHist := p.hist[p.tid]
	size := p.rel.NumTuples

	for i := int64(0); i < size; i++ {
		idx := hashBitModulo(uint64(p.rel.Tuples[i].Key), mask, p.bitOffset)
		myHist[idx]++
	}

	// Local prefix sum; after the barrier every worker's hist is an
	// inclusive running count over its slice.
	var sum int64
	for i := int64(0); i < fanOut; i++ {
		sum += myHist[i]
		myHist[i] = sum
	}

	p.bar.Wait() // all local histograms complete

	// Cluster start positions for this worker: everything workers before
	// it write into cluster j, plus everything all workers write into
	// clusters below j.
	output := p.output
	for i := 0; i < p.tid; i++ {
		for j := int64(0); j < fanOut; j++ {
			output[j] += p.hist[i][j]
		}
	}
	for i := p.tid; i < p.nthreads; i++ {
		for j := int64(1); j < fanOut; j++ {
			output[j] += p.hist[i][j-1]
		}
	}

	dst := make([]int64, fanOut)
	for i := int64(0); i < fanOut; i++ {
		output[i] += i * p.padding
		dst[i] = output[i]
	}
	output[fanOut] = p.totalTuples + fanOut*p.padding

	for i := int64(0); i < size; i++ {
		idx := hashBitModulo(uint64(p.rel.Tuples[i].Key), mask, p.bitOffset)
		p.tmp[dst[idx]] = p.rel.Tuples[i]
		dst[idx]++
	}
}

// serialRadixPartition re-clusters one pass-1 task by the remaining high
// bits and publishes the resulting non-empty cluster pairs as join tasks.
func serialRadixPartition(task *queue.Task, joinQueue *queue.TaskQueue, bitOffset, bits uint) {
	fanOut := int64(1) << bits
	outputR := make([]int64, fanOut+1)
	outputS := make([]int64, fanOut+1)

	radixClusterPadded(task.TmpR, task.RelR, outputR[:fanOut], bitOffset, bits)
	radixClusterPadded(task.TmpS, task.RelS, outputS[:fanOut], bitOffset, bits)

	var offsetR, offsetS int64
	for i := int64(0); i < fanOut; i++ {
		if outputR[i] > 0 && outputS[i] > 0 {
			t := joinQueue.GetSlot()

			t.RelR = task.TmpR.Slice(offsetR+i*SmallPaddingTuples, outputR[i])
			t.TmpR = task.RelR.Slice(offsetR+i*SmallPaddingTuples, outputR[i])
			offsetR += outputR[i]

			t.RelS = task.TmpS.Slice(offsetS+i*SmallPaddingTuples, outputS[i])
			t.TmpS = task.RelS.Slice(offsetS+i*SmallPaddingTuples, outputS[i])
			offsetS += outputS[i]

			joinQueue.Enqueue(t)
		} else {
			offsetR += outputR[i]
			offsetS += outputS[i]
		}
	}
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
