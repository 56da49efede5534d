// Package sequence provides ordered collection helpers.
package sequence

import "container/heap"

// PriorityItem is an element tracked by a PriorityQueue.
type PriorityItem[T any] struct {
	Value    T
	Priority int
	seq      uint64
	index    int
}

// priorityQueue implements heap.Interface. Ties on Priority break on
// insertion order, so the queue is FIFO within a priority band.
type priorityQueue[T any] struct {
	items []*PriorityItem[T]
}

func (pq *priorityQueue[T]) Len() int {
	return len(pq.items)
}

func (pq *priorityQueue[T]) Less(i, j int) bool {
	if pq.items[i].Priority != pq.items[j].Priority {
		return pq.items[i].Priority > pq.items[j].Priority
	}
	return pq.items[i].seq < pq.items[j].seq
}

func (pq *priorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *priorityQueue[T]) Push(x any) {
	item := x.(*PriorityItem[T])
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *priorityQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	pq.items = old[0 : n-1]
	return item
}

// PriorityQueue is a stable max-priority queue: higher Priority dequeues
// first, equal priorities dequeue in insertion order.
type PriorityQueue[T any] struct {
	pq  priorityQueue[T]
	seq uint64
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	pq := &PriorityQueue[T]{}
	heap.Init(&pq.pq)
	return pq
}

// Enqueue inserts a value with the given priority.
func (pq *PriorityQueue[T]) Enqueue(value T, priority int) *PriorityItem[T] {
	item := &PriorityItem[T]{
		Value:    value,
		Priority: priority,
		seq:      pq.seq,
	}
	pq.seq++
	heap.Push(&pq.pq, item)
	return item
}

// Dequeue removes and returns the highest-priority value.
func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	var zero T
	if pq.pq.Len() == 0 {
		return zero, false
	}
	item := heap.Pop(&pq.pq).(*PriorityItem[T])
	return item.Value, true
}

// Peek returns the highest-priority value without removing it.
func (pq *PriorityQueue[T]) Peek() (T, bool) {
	var zero T
	if pq.pq.Len() == 0 {
		return zero, false
	}
	return pq.pq.items[0].Value, true
}

// Remove deletes an item previously returned by Enqueue. It is a no-op if
// the item was already dequeued.
func (pq *PriorityQueue[T]) Remove(item *PriorityItem[T]) bool {
	if item == nil || item.index < 0 || item.index >= pq.pq.Len() {
		return false
	}
	if pq.pq.items[item.index] != item {
		return false
	}
	heap.Remove(&pq.pq, item.index)
	return true
}

// EvictLowest removes and returns the oldest item among those with the
// lowest priority not exceeding maxPriority. It reports false when every
// queued item has a higher priority than maxPriority.
func (pq *PriorityQueue[T]) EvictLowest(maxPriority int) (T, bool) {
	var zero T
	best := -1
	for i, it := range pq.pq.items {
		if it.Priority > maxPriority {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := pq.pq.items[best]
		if it.Priority < b.Priority || (it.Priority == b.Priority && it.seq < b.seq) {
			best = i
		}
	}
	if best == -1 {
		return zero, false
	}
	item := heap.Remove(&pq.pq, best).(*PriorityItem[T])
	return item.Value, true
}

func (pq *PriorityQueue[T]) Len() int {
	return pq.pq.Len()
}
