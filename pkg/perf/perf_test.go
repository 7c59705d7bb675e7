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

package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPairs(t *testing.T) {
	var outer, inner uint64
	StartTimer(&outer)
	StartTimer(&inner)
	time.Sleep(time.Millisecond)
	StopTimer(&inner)
	StopTimer(&outer)

	require.Greater(t, inner, uint64(0))
	// nested pairs: the outer delta covers the inner one
	require.GreaterOrEqual(t, outer, inner)
}

func TestSystemMicros(t *testing.T) {
	a := SystemMicros()
	time.Sleep(2 * time.Millisecond)
	b := SystemMicros()
	require.Greater(t, b, a)
}

func TestRusageCollector(t *testing.T) {
	c := NewRusage()
	c.SetState("phase")

	// burn a little user time
	x := 0
	for i := 0; i < 1<<20; i++ {
		x += i
	}
	_ = x

	ph := c.Snapshot(SlotPhase)
	require.Equal(t, "phase", ph.Label)

	tot := c.Snapshot(SlotTotal)
	require.Equal(t, "total", tot.Label)
	require.GreaterOrEqual(t, tot.UserMicros, ph.UserMicros)
	require.Greater(t, tot.MaxRSSKB, int64(0))
}
