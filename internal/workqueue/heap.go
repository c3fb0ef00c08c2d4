package workqueue

import "github.com/rohmanhakim/linkcheck/internal/checkresult"

// entry wraps a queued CheckRequest with its insertion sequence number,
// used to break ties between requests with an identical NextCheck so
// the queue behaves as FIFO within one priority band.
type entry struct {
	request checkresult.CheckRequest
	seq     int64
}

// entryHeap is a container/heap priority queue ordered by NextCheck
// ascending, insertion order breaking ties.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].request.NextCheck != h[j].request.NextCheck {
		return h[i].request.NextCheck < h[j].request.NextCheck
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
