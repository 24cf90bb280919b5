package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// entry is one pending reminder in the time-ordered view. seq breaks
// fire-time ties in admission (FIFO) order so dispatch is deterministic.
type entry struct {
	id       uuid.UUID
	fireTime time.Time
	seq      uint64
	index    int
}

// pendingHeap is a min-heap ordered by (fireTime, seq). Only the scheduling
// loop touches it.
type pendingHeap []*entry

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].fireTime.Equal(h[j].fireTime) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireTime.Before(h[j].fireTime)
}

func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pendingHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
