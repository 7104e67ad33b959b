package consensus

import (
	"container/heap"
	"time"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

// timeoutInfo is a deadline for one round instance, measured in block time.
type timeoutInfo struct {
	Deadline   time.Time
	Event      types.Event
	RoundCount int64
}

func (ti timeoutInfo) less(other timeoutInfo) bool {
	if !ti.Deadline.Equal(other.Deadline) {
		return ti.Deadline.Before(other.Deadline)
	}
	if ti.RoundCount != other.RoundCount {
		return ti.RoundCount < other.RoundCount
	}
	return ti.Event < other.Event
}

type timeoutHeap []timeoutInfo

func (h timeoutHeap) Len() int            { return len(h) }
func (h timeoutHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h timeoutHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timeoutHeap) Push(x interface{}) { *h = append(*h, x.(timeoutInfo)) }
func (h *timeoutHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ti := old[n-1]
	*h = old[:n-1]
	return ti
}

// Timeouts orders pending round deadlines. Every replica sees the same block
// times, so every replica fires the same timeouts at the same height.
type Timeouts struct {
	h timeoutHeap
}

func NewTimeouts() *Timeouts {
	return &Timeouts{}
}

func (t *Timeouts) Add(deadline time.Time, event types.Event, roundCount int64) {
	heap.Push(&t.h, timeoutInfo{Deadline: deadline, Event: event, RoundCount: roundCount})
}

// PopExpired removes and returns the earliest deadline not after now.
func (t *Timeouts) PopExpired(now time.Time) (timeoutInfo, bool) {
	if t.h.Len() == 0 || t.h[0].Deadline.After(now) {
		return timeoutInfo{}, false
	}
	return heap.Pop(&t.h).(timeoutInfo), true
}

// DropBefore discards deadlines of round instances older than roundCount.
func (t *Timeouts) DropBefore(roundCount int64) {
	kept := t.h[:0]
	for _, ti := range t.h {
		if ti.RoundCount >= roundCount {
			kept = append(kept, ti)
		}
	}
	t.h = kept
	heap.Init(&t.h)
}

func (t *Timeouts) Len() int {
	return t.h.Len()
}
