// Package queue implements the priority queue the IVF search path uses to
// collect candidates. Unlike the teacher's internal/queue.PriorityQueue
// (which hand-rolls its own sift up/down to avoid container/heap's
// interface-dispatch overhead), this version is driven entirely through
// the standard library's container/heap: PriorityQueue only supplies the
// heap.Interface methods, and heap.Push/heap.Pop do the actual sifting.
package queue

import "container/heap"

var _ heap.Interface = (*PriorityQueue)(nil)

// Item is one candidate in the queue: a dataset id paired with its
// distance to the query.
type Item struct {
	ID       uint64
	Distance float32
}

// PriorityQueue is a heap.Interface over Items, ordered as a min-heap or
// a max-heap depending on construction.
type PriorityQueue struct {
	isMaxHeap bool
	items     []Item
}

// NewMin returns an empty min-heap (top = smallest distance).
func NewMin(capacity int) *PriorityQueue {
	pq := &PriorityQueue{isMaxHeap: false, items: make([]Item, 0, capacity)}
	heap.Init(pq)
	return pq
}

// NewMax returns an empty max-heap (top = largest distance).
func NewMax(capacity int) *PriorityQueue {
	pq := &PriorityQueue{isMaxHeap: true, items: make([]Item, 0, capacity)}
	heap.Init(pq)
	return pq
}

// Len returns the number of items currently queued.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Less reports whether item i should sort before item j under this
// queue's ordering.
func (pq *PriorityQueue) Less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[i].Distance > pq.items[j].Distance
	}
	return pq.items[i].Distance < pq.items[j].Distance
}

// Swap exchanges items i and j.
func (pq *PriorityQueue) Swap(i, j int) { pq.items[i], pq.items[j] = pq.items[j], pq.items[i] }

// Push appends x; only heap.Push should call this directly, since it
// skips the sift-up step that establishes the heap invariant.
func (pq *PriorityQueue) Push(x any) { pq.items = append(pq.items, x.(Item)) }

// Pop removes and returns the last item; only heap.Pop should call this
// directly, since the caller is responsible for swapping the root into
// last place first.
func (pq *PriorityQueue) Pop() any {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = Item{}
	pq.items = pq.items[:n-1]
	return item
}

// TopItem returns the item at the top of the heap without removing it.
func (pq *PriorityQueue) TopItem() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// PushItem inserts item, maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item Item) {
	heap.Push(pq, item)
}

// PopItem removes and returns the top item, maintaining the heap
// invariant.
func (pq *PriorityQueue) PopItem() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return heap.Pop(pq).(Item), true
}

// Items returns the heap's backing slice in heap order, not sorted order.
// Callers that need sorted output must drain via PopItem or sort a copy.
func (pq *PriorityQueue) Items() []Item {
	return pq.items
}

// BoundedMaxHeap retains only the capacity smallest-distance items offered
// to it, using a max-heap so the current worst survivor sits at the top
// for O(log n) eviction. This backs the IVF search's coarse candidate
// collection (size k*refine_factor) ahead of the final exact sort.
type BoundedMaxHeap struct {
	capacity int
	heap     *PriorityQueue
}

// NewBoundedMaxHeap returns a BoundedMaxHeap that keeps at most capacity
// items.
func NewBoundedMaxHeap(capacity int) *BoundedMaxHeap {
	return &BoundedMaxHeap{capacity: capacity, heap: NewMax(capacity)}
}

// Offer considers item for inclusion: if there is room, it is always
// kept; otherwise it replaces the current worst survivor if and only if
// it is strictly closer.
func (b *BoundedMaxHeap) Offer(item Item) {
	if b.capacity <= 0 {
		return
	}
	if b.heap.Len() < b.capacity {
		b.heap.PushItem(item)
		return
	}
	worst, ok := b.heap.TopItem()
	if !ok || item.Distance >= worst.Distance {
		return
	}
	b.heap.PopItem()
	b.heap.PushItem(item)
}

// Len returns the number of items currently retained.
func (b *BoundedMaxHeap) Len() int { return b.heap.Len() }

// Drain empties the heap and returns its contents sorted ascending by
// distance, with ties broken by ascending id.
func (b *BoundedMaxHeap) Drain() []Item {
	out := make([]Item, 0, b.heap.Len())
	for b.heap.Len() > 0 {
		item, _ := b.heap.PopItem()
		out = append(out, item)
	}
	sortItems(out)
	return out
}

func sortItems(items []Item) {
	// Small N (bounded by k*refine_factor): a simple insertion sort keeps
	// this allocation-free and avoids pulling in sort.Slice's closures.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && lessItem(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func lessItem(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}
