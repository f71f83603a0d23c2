/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scheduling

import (
	"container/heap"
	"sync"
)

// Queue is the scheduler's pending-pod priority queue: highest Priority first, oldest
// EnqueueTime breaking ties. Every method takes an internal lock, so it is safe for
// concurrent use.
type Queue struct {
	mu   sync.Mutex
	heap entryHeap
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.heap)
	return q
}

// Push inserts or replaces the entry for entry.Identity(). A second Push for an identity
// already queued overwrites its priority and pod snapshot but keeps the original
// EnqueueTime, so re-announcing a pod never lets it jump a fair FIFO ordering.
func (q *Queue) Push(entry QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.heap {
		if e.Identity() == entry.Identity() {
			entry.EnqueueTime = e.EnqueueTime
			q.heap[i] = entry
			heap.Fix(&q.heap, i)
			return
		}
	}
	heap.Push(&q.heap, entry)
}

// Remove drops id from the queue if present, reporting whether it was found. Used on every
// DELETED event, and before an admitted ADDED/MODIFIED pod is pushed again.
func (q *Queue) Remove(id Identity) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.heap {
		if e.Identity() == id {
			heap.Remove(&q.heap, i)
			return true
		}
	}
	return false
}

// Pop removes and returns the highest-priority, oldest-enqueued entry. ok is false when the
// queue is empty.
func (q *Queue) Pop() (entry QueueEntry, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.heap.Len() == 0 {
		return QueueEntry{}, false
	}
	return heap.Pop(&q.heap).(QueueEntry), true
}

// Drain removes and returns every entry currently queued, highest priority first. The
// scheduling cycle calls this once per cycle and processes the snapshot in order; entries
// pushed back mid-cycle (by the cycle's own requeue) are not included.
func (q *Queue) Drain() []QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueueEntry, 0, q.heap.Len())
	for q.heap.Len() > 0 {
		out = append(out, heap.Pop(&q.heap).(QueueEntry))
	}
	return out
}

// Len reports the number of entries currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// entryHeap implements container/heap.Interface over QueueEntry, ordered by descending
// Priority then ascending EnqueueTime.
type entryHeap []QueueEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].EnqueueTime.Before(h[j].EnqueueTime)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(QueueEntry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
