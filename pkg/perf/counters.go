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
	"sync"

	"golang.org/x/sys/unix"
)

// Counters is one snapshot of the process counters the collector exposes.
type Counters struct {
	Label                  string
	UserMicros             int64
	SystemMicros           int64
	MinorFaults            int64
	MajorFaults            int64
	VoluntaryCtxSwitches   int64
	InvoluntaryCtxSwitches int64
	MaxRSSKB               int64
}

// Snapshot slots: 0 is "since the last SetState", 1 is "since the collector
// was created".
const (
	SlotPhase = 0
	SlotTotal = 1
)

// CounterCollector is the capability interface for hardware/OS counter
// snapshots. Implementations must be safe for use from the driver thread
// only; the operators snapshot from a single thread between barriers.
type CounterCollector interface {
	// SetState marks the start of a phase named label.
	SetState(label string)
	// Snapshot returns the counter deltas for the given slot.
	Snapshot(slot int) Counters
}

type rusageCollector struct {
	mu    sync.Mutex
	label string
	base  unix.Rusage
	init  unix.Rusage
}

// NewRusage returns a collector backed by getrusage(RUSAGE_SELF).
func NewRusage() CounterCollector {
	c := &rusageCollector{}
	_ = unix.Getrusage(unix.RUSAGE_SELF, &c.init)
	c.base = c.init
	return c
}

func (c *rusageCollector) SetState(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.label = label
	_ = unix.Getrusage(unix.RUSAGE_SELF, &c.base)
}

func (c *rusageCollector) Snapshot(slot int) Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	var now unix.Rusage
	_ = unix.Getrusage(unix.RUSAGE_SELF, &now)
	base := &c.base
	label := c.label
	if slot == SlotTotal {
		base = &c.init
		label = "total"
	}
	return Counters{
		Label:                  label,
		UserMicros:             tvMicros(now.Utime) - tvMicros(base.Utime),
		SystemMicros:           tvMicros(now.Stime) - tvMicros(base.Stime),
		MinorFaults:            now.Minflt - base.Minflt,
		MajorFaults:            now.Majflt - base.Majflt,
		VoluntaryCtxSwitches:   now.Nvcsw - base.Nvcsw,
		InvoluntaryCtxSwitches: now.Nivcsw - base.Nivcsw,
		MaxRSSKB:               now.Maxrss,
	}
}

func tvMicros(tv unix.Timeval) int64 {
	return int64(tv.Sec)*1e6 + int64(tv.Usec)
}
