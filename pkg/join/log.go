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

package join

import (
	"go.uber.org/zap"

	"github.com/matrixorigin/radixjoin/pkg/logutil"
)

// LogJoin emits the one summary line every completed join reports.
func LogJoin(name string, cfg *Config, jr *JoinResult) {
	throughput := 0.0
	if jr.TotalTimeUsec > 0 {
		throughput = float64(jr.InputTuplesR+jr.InputTuplesS) / float64(jr.TotalTimeUsec)
	}
	logutil.Info("join finished",
		zap.String("join", name),
		zap.Int("nthreads", cfg.NThreads),
		zap.Int64("tuplesR", jr.InputTuplesR),
		zap.Int64("tuplesS", jr.InputTuplesS),
		zap.Int64("matches", jr.Matches),
		zap.Uint64("phase1Cycles", jr.Phase1Cycles),
		zap.Uint64("phase2Cycles", jr.Phase2Cycles),
		zap.Uint64("totalCycles", jr.TotalCycles),
		zap.Uint64("totalUsec", jr.TotalTimeUsec),
		zap.Float64("throughputMTps", throughput),
	)
}
