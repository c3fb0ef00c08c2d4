// Package workqueue implements the orchestrator's time-ordered work
// queue: a container/heap priority queue keyed on NextCheck, with
// blocking dequeue and "task done" drain accounting so the orchestrator
// can await every in-flight item before shutting workers down.
package workqueue

import (
	"container/heap"
	"sync"

	"github.com/rohmanhakim/linkcheck/internal/checkresult"
)

// Queue is a concurrent priority queue of CheckRequest entries, safe for
// any number of producers and consumers.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   entryHeap
	nextSeq int64
	pending sync.WaitGroup
}

// New returns an empty Queue ready for use.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues request, registering it with the drain WaitGroup. Call
// TaskDone exactly once after the request has been fully handled
// (including any re-enqueue it might trigger, in which case TaskDone
// still applies to this Push and the re-enqueue gets its own).
func (q *Queue) Push(request checkresult.CheckRequest) {
	q.pending.Add(1)
	q.mu.Lock()
	heap.Push(&q.items, entry{request: request, seq: q.nextSeq})
	q.nextSeq++
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an item is available, then returns it.
func (q *Queue) Pop() checkresult.CheckRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	e := heap.Pop(&q.items).(entry)
	return e.request
}

// TaskDone marks one previously-Pushed item as fully processed.
func (q *Queue) TaskDone() {
	q.pending.Done()
}

// Wait blocks until every pushed item has had TaskDone called for it.
func (q *Queue) Wait() {
	q.pending.Wait()
}

// Len reports the current queue depth, for metrics/observability only.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
