// Package mergequeue implements a mergeable priority queue: a min-heap
// over (priority, valid, a, b) entries that supports lazy invalidation of
// an entry already pushed, so a rag edge's priority can be recomputed
// whenever its incident topology changes without having to locate and
// remove the stale heap slot.
package mergequeue

import "container/heap"

// Entry is one queue item: the merge priority of the (a, b) edge, and a
// Valid flag a caller can flip to false to tombstone it in place. Entries
// are always handed out and referenced by pointer so a caller's handle to
// an entry stays valid across heap reshuffling.
type Entry struct {
	Priority float64
	Valid    bool
	A, B     int

	index int // position in the heap, maintained by container/heap callbacks.
}

// Queue is a min-heap of *Entry ordered by Priority ascending. It is not
// safe for concurrent use; each queue has exactly one owner.
type Queue struct {
	heap entryHeap

	// null, when true, makes Push and Invalidate no-ops: a placeholder
	// queue used before a real one has been built.
	null bool
}

// NewNullQueue returns a placeholder queue whose Push and Invalidate are
// no-ops.
func NewNullQueue() *Queue {
	return &Queue{null: true}
}

// New returns an empty, usable queue.
func New() *Queue {
	q := &Queue{}
	heap.Init(&q.heap)
	return q
}

// IsNullQueue reports whether this instance is the no-op placeholder.
func (q *Queue) IsNullQueue() bool { return q.null }

// Push inserts a new entry. A no-op on a null queue.
func (q *Queue) Push(e *Entry) {
	if q.null {
		return
	}
	heap.Push(&q.heap, e)
}

// Invalidate tombstones e in place; it stays in the heap until it
// surfaces via Pop or Peek. A no-op on a null queue, and a no-op if e is
// nil (the caller had no existing qlink for this edge).
func (q *Queue) Invalidate(e *Entry) {
	if q.null || e == nil {
		return
	}
	e.Valid = false
}

// Peek returns the entry at the top of the heap without removing it. The
// returned entry may be invalid; callers iterating to consume the queue
// must Pop and discard invalid entries themselves.
func (q *Queue) Peek() *Entry {
	if len(q.heap) == 0 {
		return nil
	}
	return q.heap[0]
}

// Pop removes and returns the entry at the top of the heap.
func (q *Queue) Pop() *Entry {
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Entry)
}

// Len returns the number of entries remaining, including invalid ones.
func (q *Queue) Len() int { return len(q.heap) }

// IsEmpty reports whether the queue holds no entries at all.
func (q *Queue) IsEmpty() bool { return len(q.heap) == 0 }

// entryHeap implements container/heap.Interface over *Entry, ascending by
// Priority.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return h[i].Priority < h[j].Priority }

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
