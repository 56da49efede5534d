package router

import "github.com/cespare/xxhash/v2"

// dedupeCapacity bounds how many recent message ids the router remembers.
// Servers replay the tail of room history on join, so the window has to
// cover at least one replay burst.
const dedupeCapacity = 1024

// dedupeRing remembers the hashes of recently observed message ids in a
// fixed-size ring. Not safe for concurrent use; the router locks around it.
type dedupeRing struct {
	seen  map[uint64]struct{}
	order []uint64
	head  int
}

func newDedupeRing(capacity int) *dedupeRing {
	return &dedupeRing{
		seen:  make(map[uint64]struct{}, capacity),
		order: make([]uint64, 0, capacity),
	}
}

// observe records the id and reports whether this is its first sighting.
func (r *dedupeRing) observe(id string) bool {
	sum := xxhash.Sum64String(id)
	if _, ok := r.seen[sum]; ok {
		return false
	}

	if len(r.order) < cap(r.order) {
		r.order = append(r.order, sum)
	} else {
		delete(r.seen, r.order[r.head])
		r.order[r.head] = sum
		r.head = (r.head + 1) % cap(r.order)
	}
	r.seen[sum] = struct{}{}
	return true
}
