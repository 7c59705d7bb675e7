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

// Package perf provides the clock, cycle-timer and counter collaborators
// used by the join operators. All instrumentation is optional: a nil
// collector disables counter snapshots entirely.
package perf

import "time"

var epoch = time.Now()

// SystemMicros returns wall-clock microseconds from a monotonic source.
func SystemMicros() uint64 {
	return uint64(time.Since(epoch) / time.Microsecond)
}

// cycles returns monotonic ticks. The granularity is nanoseconds; the
// cycle naming is kept for the timer slots it feeds.
func cycles() uint64 {
	return uint64(time.Since(epoch))
}

// StartTimer stores the current tick into the caller-held slot. Paired
// with StopTimer on the same slot; pairs nest freely across slots.
func StartTimer(slot *uint64) {
	*slot = cycles()
}

// StopTimer replaces the slot's start tick with the elapsed delta.
func StopTimer(slot *uint64) {
	*slot = cycles() - *slot
}
