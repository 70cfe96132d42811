package resolve

import (
	"container/heap"

	radix "github.com/armon/go-radix"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
)

// pendingQueue holds packages awaiting version selection, ordered so
// that packages already known to be constrained (closer to failure)
// are tried before wide-open ones, which minimizes backtracking depth
// on average. A radix tree keyed by the package id's string form
// tracks queue membership so push is a no-op for an id already
// pending. pushFront (used to retry the current backtrack target)
// skips that check and always enqueues, so an id can be pending twice;
// the solver skips an id that is already selected when it pops it.
type pendingQueue struct {
	h   idHeap
	mem *radix.Tree
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{mem: radix.New()}
}

type idHeapEntry struct {
	id       pkgid.ID
	priority int // lower sorts first
}

type idHeap []idHeapEntry

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(idHeapEntry)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// push enqueues id if it isn't already pending, at the given
// priority (lower values are popped sooner).
func (q *pendingQueue) push(id pkgid.ID, priority int) {
	key := id.String()
	if _, ok := q.mem.Get(key); ok {
		return
	}
	q.mem.Insert(key, struct{}{})
	heap.Push(&q.h, idHeapEntry{id: id, priority: priority})
}

// pushFront re-enqueues id ahead of everything else, used to retry a
// backtrack target immediately with its advanced version queue.
func (q *pendingQueue) pushFront(id pkgid.ID) {
	key := id.String()
	q.mem.Insert(key, struct{}{})
	heap.Push(&q.h, idHeapEntry{id: id, priority: -1})
}

func (q *pendingQueue) next() (pkgid.ID, bool) {
	if q.h.Len() == 0 {
		return pkgid.Nil, false
	}
	e := heap.Pop(&q.h).(idHeapEntry)
	q.mem.Delete(e.id.String())
	return e.id, true
}

func (q *pendingQueue) len() int { return q.h.Len() }
