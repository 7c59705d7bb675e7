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

// Package join defines the contract every equi-join operator variant
// implements: two in-memory relations and a configuration in, a result
// descriptor with counts, phase timings and optional materialized output
// lists out.
package join

import (
	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/container/types"
	"github.com/matrixorigin/radixjoin/pkg/perf"
)

// Config carries the per-run options an operator recognizes. Variants are
// free to override NThreads; the single-threaded ones force it to 1.
type Config struct {
	// NThreads is the number of worker threads, >= 1.
	NThreads int

	// Materialize emits output records when true. Variants without an
	// output path ignore it.
	Materialize bool

	// Counters optionally snapshots process counters at phase
	// boundaries. Nil disables all counter instrumentation.
	Counters perf.CounterCollector

	// Mp accounts buffer allocations. Nil gets an unlimited pool.
	Mp *mpool.MPool
}

// Normalize fills defaults and validates the configuration.
func (c *Config) Normalize() error {
	if c.NThreads == 0 {
		c.NThreads = 1
	}
	if c.NThreads < 1 {
		return moerr.NewInvalidInput("nthreads %d, want >= 1", c.NThreads)
	}
	if c.Mp == nil {
		c.Mp = mpool.New("join", mpool.NoFixed)
	}
	return nil
}

// OutputTuple is one materialized match.
type OutputTuple struct {
	Key      types.Key
	PayloadR types.Payload
	PayloadS types.Payload
}

// List collects materialized output. A nil *List is a valid sink that
// elides all output work.
type List struct {
	Tuples []OutputTuple
}

// Emit appends one match to the list.
func (l *List) Emit(k types.Key, pr, ps types.Payload) {
	l.Tuples = append(l.Tuples, OutputTuple{Key: k, PayloadR: pr, PayloadS: ps})
}

// ThreadResult is one worker's share of a run: its match count, how many
// cluster pairs it processed, and its output list when materializing.
type ThreadResult struct {
	ThreadID       int32
	NResults       int64
	PartsProcessed int32
	Results        *List
}

// JoinResult is the per-run accounting record.
type JoinResult struct {
	Matches       int64
	InputTuplesR  int64
	InputTuplesS  int64
	TotalCycles   uint64
	Phase1Cycles  uint64
	Phase2Cycles  uint64
	TotalTimeUsec uint64

	Phase1Counters *perf.Counters
	Phase2Counters *perf.Counters
	TotalCounters  *perf.Counters
}

// Result is what every variant returns.
type Result struct {
	TotalResults  int64
	NThreads      int
	JR            *JoinResult
	ThreadResults []ThreadResult
}

// Func is the common operator entrypoint signature.
type Func func(relR, relS *relation.Relation, cfg *Config) (*Result, error)
