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

// Package barrier provides a reusable sense-reversing barrier. A single
// Barrier survives any number of tightly successive synchronization points.
package barrier

import (
	"sync"

	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
)

type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	sense   bool
}

func New(n int) (*Barrier, error) {
	if n < 1 {
		return nil, moerr.NewInvalidInput("barrier party count %d, want >= 1", n)
	}
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

// Wait blocks until all n parties have called Wait for the current phase.
func (b *Barrier) Wait() {
	b.mu.Lock()
	sense := b.sense
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.sense = !sense
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for b.sense == sense {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
