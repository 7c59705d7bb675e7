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

// Package config holds the benchmark driver's parameters.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
	"github.com/matrixorigin/radixjoin/pkg/logutil"
)

// Parameters selects the join variant and shapes the generated inputs.
type Parameters struct {
	// Variant is a registered join name.
	Variant string `toml:"variant"`

	NThreads    int  `toml:"nthreads"`
	Materialize bool `toml:"materialize"`

	// NumR and NumS are the generated input cardinalities.
	NumR int64 `toml:"num-r"`
	NumS int64 `toml:"num-s"`

	// MaxKey bounds the generated key domain: keys are uniform over
	// [0, max-key).
	MaxKey uint64 `toml:"max-key"`
	Seed   int64  `toml:"seed"`

	// MemoryCap bounds the bytes the run may hold; 0 means unlimited.
	MemoryCap int64 `toml:"memory-cap"`

	// EnableCounters turns on rusage snapshots at phase boundaries.
	EnableCounters bool `toml:"enable-counters"`

	Log logutil.LogConfig `toml:"log"`
}

// Default returns runnable parameters: a small parallel radix join.
func Default() *Parameters {
	return &Parameters{
		Variant:  "prj",
		NThreads: 4,
		NumR:     1 << 20,
		NumS:     1 << 21,
		MaxKey:   1 << 20,
		Seed:     12345,
		Log:      logutil.LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads parameters from a toml file over the defaults.
func Load(path string) (*Parameters, error) {
	params := Default()
	if _, err := toml.DecodeFile(path, params); err != nil {
		return nil, moerr.NewInvalidInput("config %s: %v", path, err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parameters) Validate() error {
	if p.Variant == "" {
		return moerr.NewInvalidInput("variant must be set")
	}
	if p.NThreads < 1 {
		return moerr.NewInvalidInput("nthreads %d, want >= 1", p.NThreads)
	}
	if p.NumR < 0 || p.NumS < 0 {
		return moerr.NewInvalidInput("negative cardinality: num-r %d, num-s %d", p.NumR, p.NumS)
	}
	if p.MaxKey < 1 {
		return moerr.NewInvalidInput("max-key %d, want >= 1", p.MaxKey)
	}
	return nil
}
