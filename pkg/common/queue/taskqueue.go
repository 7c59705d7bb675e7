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

// Package queue provides the multi-producer multi-consumer queue of join
// work descriptors.
//
// Slots live in a preallocated arena owned by the queue. A producer reserves
// an uninitialized slot with GetSlot, fills it, and publishes it with
// Enqueue; the slot is private to the producer until then. A consumer owns
// the slot it drained with Dequeue. Publication goes through a lock-free
// ring, so an enqueued task is visible to consumers exactly once and no
// dequeue observes a torn slot. FIFO order is not guaranteed and not needed;
// tasks are independent.
package queue

import (
	"runtime"
	"sync/atomic"

	esqueue "github.com/yireyun/go-queue"

	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
	"github.com/matrixorigin/radixjoin/pkg/container/relation"
)

// Task describes one sub-join or repartitioning unit: a pair of relation
// views plus the corresponding scratch views usable as back-buffers.
type Task struct {
	RelR relation.Relation
	RelS relation.Relation
	TmpR relation.Relation
	TmpS relation.Relation
}

type TaskQueue struct {
	slots    []Task
	nextSlot uint64
	produced int32
	ring     *esqueue.EsQueue
}

// New creates a queue with capacity slots. The caller sizes the queue to the
// maximum possible task count for its radix fanout; running out of slots is
// a programming error and panics.
func New(capacity uint32) *TaskQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &TaskQueue{
		slots: make([]Task, capacity),
		ring:  esqueue.NewQueue(capacity),
	}
}

// GetSlot reserves the next free slot. The slot stays invisible to
// consumers until Enqueue publishes it.
func (q *TaskQueue) GetSlot() *Task {
	idx := atomic.AddUint64(&q.nextSlot, 1) - 1
	if idx >= uint64(len(q.slots)) {
		panic(moerr.NewInternalError("task queue overflow: capacity %d", len(q.slots)))
	}
	return &q.slots[idx]
}

// Enqueue publishes a slot previously returned by GetSlot.
func (q *TaskQueue) Enqueue(t *Task) {
	for {
		if ok, _ := q.ring.Put(t); ok {
			atomic.AddInt32(&q.produced, 1)
			return
		}
		// Put fails only transiently under contention: the arena bounds
		// the element count below the ring capacity.
	}
}

// Dequeue drains the next published task, or returns nil when the queue
// is empty; it does not wait for producers still publishing. Get fails transiently
// when another consumer wins the slot race, so emptiness is re-checked
// before giving up.
func (q *TaskQueue) Dequeue() *Task {
	for {
		val, ok, _ := q.ring.Get()
		if ok {
			return val.(*Task)
		}
		if q.ring.Quantity() == 0 {
			return nil
		}
		runtime.Gosched()
	}
}

// Count reports how many tasks have been published so far.
func (q *TaskQueue) Count() int32 {
	return atomic.LoadInt32(&q.produced)
}
