// Package queue provides a bounded top-K selection heap for chunk counts.
package queue

import "slices"

// Item is a chunk together with its match count.
type Item struct {
	Chunk uint32 // Chunk is the dense chunk ID.
	Count uint32 // Count is the number of matching fingerprints.
}

// Better reports whether a ranks before b: higher count first, then lower chunk ID.
// Both fields are compared in full, so chunk IDs above 65535 order correctly.
func Better(a, b Item) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Chunk < b.Chunk
}

// TopK keeps the k best items pushed into it.
// Internally it is a min-heap on Better, so the root is the worst retained item.
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a TopK retaining at most k items.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{
		k:     k,
		items: make([]Item, 0, min(k, 1024)),
	}
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Reset empties the queue and sets a new bound, keeping the backing slice.
func (q *TopK) Reset(k int) {
	q.k = max(k, 0)
	clear(q.items)
	q.items = q.items[:0]
}

// Worst returns the lowest ranked retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Push offers an item. It reports whether the item was retained.
func (q *TopK) Push(item Item) bool {
	if q.k == 0 {
		return false
	}
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !Better(item, q.items[0]) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Sorted drains the queue and returns the retained items best first.
func (q *TopK) Sorted() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	slices.SortFunc(out, func(a, b Item) int {
		switch {
		case Better(a, b):
			return -1
		case Better(b, a):
			return 1
		default:
			return 0
		}
	})
	q.Reset(q.k)
	return out
}

// less orders the heap so the worst item sits at the root.
func (q *TopK) less(i, j int) bool {
	return Better(q.items[j], q.items[i])
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
