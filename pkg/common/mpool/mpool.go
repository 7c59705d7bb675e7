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

// Package mpool tracks the bytes held by relation and scratch buffers.
// The Go allocator owns the memory itself; the pool enforces a capacity
// and lets tests assert that every driver returns what it took.
package mpool

import (
	"sync/atomic"

	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
)

// NoFixed means no capacity limit.
const NoFixed int64 = -1

type MPool struct {
	name   string
	cap    int64
	currNB int64
}

// New creates a pool named name with a byte capacity. cap <= 0 means
// unlimited.
func New(name string, cap int64) *MPool {
	return &MPool{name: name, cap: cap}
}

// Alloc reserves nb bytes from the pool.
func (m *MPool) Alloc(nb int64) error {
	if nb < 0 {
		return moerr.NewInternalError("mpool %s: negative alloc %d", m.name, nb)
	}
	curr := atomic.AddInt64(&m.currNB, nb)
	if m.cap > 0 && curr > m.cap {
		atomic.AddInt64(&m.currNB, -nb)
		return moerr.NewOOM(m.name, nb, m.cap)
	}
	return nil
}

// Free returns nb bytes to the pool.
func (m *MPool) Free(nb int64) {
	if atomic.AddInt64(&m.currNB, -nb) < 0 {
		panic(moerr.NewInternalError("mpool %s: free of %d bytes underflows", m.name, nb))
	}
}

// CurrNB reports the bytes currently reserved.
func (m *MPool) CurrNB() int64 {
	return atomic.LoadInt64(&m.currNB)
}

func (m *MPool) Cap() int64 {
	return m.cap
}

func (m *MPool) Name() string {
	return m.name
}
