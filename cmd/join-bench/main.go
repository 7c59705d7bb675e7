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

// join-bench generates two relations and runs one registered join variant
// over them.
package main

import (
	"flag"
	"strings"

	"go.uber.org/zap"

	"github.com/matrixorigin/radixjoin/pkg/common/mpool"
	"github.com/matrixorigin/radixjoin/pkg/config"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
	"github.com/matrixorigin/radixjoin/pkg/join"
	_ "github.com/matrixorigin/radixjoin/pkg/join/btreejoin"
	_ "github.com/matrixorigin/radixjoin/pkg/join/npj"
	_ "github.com/matrixorigin/radixjoin/pkg/join/radix"
	"github.com/matrixorigin/radixjoin/pkg/logutil"
	"github.com/matrixorigin/radixjoin/pkg/perf"
)

var configFile = flag.String("config", "", "toml parameter file; defaults apply when empty")

func main() {
	flag.Parse()

	params := config.Default()
	if *configFile != "" {
		var err error
		if params, err = config.Load(*configFile); err != nil {
			logutil.Fatalf("load config: %v", err)
		}
	}
	logutil.Adjust(&params.Log)

	f, ok := join.Lookup(params.Variant)
	if !ok {
		logutil.Fatalf("unknown join variant %q, have: %s",
			params.Variant, strings.Join(join.Names(), ", "))
	}

	mp := mpool.New("join-bench", params.MemoryCap)

	relR, err := relation.NewRandom(mp, params.NumR, params.MaxKey, params.Seed)
	if err != nil {
		logutil.Fatalf("generate R: %v", err)
	}
	relS, err := relation.NewRandom(mp, params.NumS, params.MaxKey, params.Seed+1)
	if err != nil {
		logutil.Fatalf("generate S: %v", err)
	}

	stR, stS := relR.Stats(), relS.Stats()
	logutil.Info("inputs ready",
		zap.Int64("tuplesR", stR.NumTuples),
		zap.Int64("tuplesS", stS.NumTuples),
		zap.Uint64("distinctKeysR", stR.DistinctKeys),
		zap.Uint64("distinctKeysS", stS.DistinctKeys),
	)

	cfg := &join.Config{
		NThreads:    params.NThreads,
		Materialize: params.Materialize,
		Mp:          mp,
	}
	if params.EnableCounters {
		cfg.Counters = perf.NewRusage()
	}

	res, err := f(relR, relS, cfg)
	if err != nil {
		logutil.Fatalf("join %s: %v", params.Variant, err)
	}

	logutil.Info("run complete",
		zap.String("variant", params.Variant),
		zap.Int64("matches", res.TotalResults),
		zap.Int("nthreads", res.NThreads),
	)

	relR.Free(mp)
	relS.Free(mp)
	if mp.CurrNB() != 0 {
		logutil.Warnf("pool %s still holds %d bytes", mp.Name(), mp.CurrNB())
	}
}
