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
	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
)

const (
	// NumRadixBits is the total number of low-order key bits consumed by
	// partitioning under the default parameters.
	NumRadixBits = 14

	// NumPasses is the default partitioning pass count.
	NumPasses = 2

	CacheLineSize      = 64
	TuplesPerCacheLine = CacheLineSize / relation.TupleSize

	// SmallPaddingTuples separates consecutive clusters so scatters do
	// not share L1 cache sets.
	SmallPaddingTuples = 3 * TuplesPerCacheLine

	FanoutPass1 = 1 << (NumRadixBits / NumPasses)
	FanoutPass2 = 1 << (NumRadixBits - NumRadixBits/NumPasses)

	// PaddingTuples is the slack reserved per pass-1 cluster: room for a
	// small pad between each pass-2 sub-cluster plus one more.
	PaddingTuples = SmallPaddingTuples * (FanoutPass2 + 1)

	// RelationPaddingTuples is the extra physical capacity a scatter
	// buffer needs on top of the input cardinality.
	RelationPaddingTuples = PaddingTuples * FanoutPass1

	// skewThresholdFactor feeds the per-thread skew threshold. The
	// threshold is reported for diagnosis; no decomposition is applied.
	skewThresholdFactor = 32768
)

// Params fixes the partitioning shape of one radix join run.
type Params struct {
	RadixBits int
	NumPasses int
}

// DefaultParams is what the exported entrypoints run with.
var DefaultParams = Params{RadixBits: NumRadixBits, NumPasses: NumPasses}

func (p Params) validate() error {
	if p.NumPasses != 1 && p.NumPasses != 2 {
		return moerr.NewInvalidInput("number of partitioning passes must be 1 or 2, got %d", p.NumPasses)
	}
	if p.RadixBits < 1 || p.RadixBits > 24 {
		return moerr.NewInvalidInput("radix bits %d out of range [1, 24]", p.RadixBits)
	}
	return nil
}

// bitsPass1 returns the bits consumed by the first pass.
func (p Params) bitsPass1() uint {
	return uint(p.RadixBits / p.NumPasses)
}

// bitsPass2 returns the bits consumed by the second pass (zero for a
// single pass).
func (p Params) bitsPass2() uint {
	return uint(p.RadixBits) - p.bitsPass1()
}

func (p Params) fanoutPass1() int64 {
	return 1 << p.bitsPass1()
}

func (p Params) fanoutPass2() int64 {
	return 1 << p.bitsPass2()
}

func (p Params) fanoutTotal() int64 {
	return 1 << uint(p.RadixBits)
}

// paddingTuples is the per-pass-1-cluster padding slack.
func (p Params) paddingTuples() int64 {
	return SmallPaddingTuples * (p.fanoutPass2() + 1)
}

// relationPaddingTuples is the scatter-buffer overallocation.
func (p Params) relationPaddingTuples() int64 {
	return p.paddingTuples() * p.fanoutPass1()
}

func threshold1(nthreads int) int64 {
	return skewThresholdFactor * int64(nthreads)
}

// hashBitModulo extracts the cluster index: the key field selected by
// mask, shifted down by nbits, the bit offset of that field.
func hashBitModulo(k uint64, mask uint64, nbits uint) uint64 {
	return (k & mask) >> nbits
}
