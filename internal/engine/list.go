package engine

import (
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/keybuilder"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// ringNode is one slot in the intrusive circular list FIFO and LRU
// share. Index 0 of the owning ring is always the sentinel root: its
// next points at the oldest/least-recently-used entry, its prev at the
// newest/most-recently-used one, exactly as spec.md §3 describes.
//
// This mirrors container/list's Element, but as an arena slot addressed
// by integer index rather than a heap-allocated node linked by pointer —
// the Design Notes' recommended translation of the source's raw
// pointer-double, single-ownership-friendly and (unlike container/list)
// able to recycle a slot's fields in place without a fresh allocation.
type ringNode struct {
	prev, next int32
	key        keybuilder.Key
	args       callargs.Args
	value      valuewrap.Wrapper
}

// ring is the arena backing both FIFO and LRU: a sentinel-rooted
// circular doubly-linked list plus a free list of indices vacated by
// RemoveIf/Purge, so repeated remove-then-insert churn doesn't grow the
// backing slice unboundedly.
type ring struct {
	nodes []ringNode
	free  []int32
}

func newRing() *ring {
	return &ring{nodes: make([]ringNode, 1)} // nodes[0]: prev=next=0, the sentinel
}

// take returns a slot ready to be populated: a freed slot if one is
// available, otherwise a freshly grown one.
func (r *ring) take() int32 {
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		return idx
	}
	r.nodes = append(r.nodes, ringNode{})
	return int32(len(r.nodes) - 1)
}

// linkBefore splices idx into the list immediately before at (at==0
// inserts at the tail, i.e. as the newest entry).
func (r *ring) linkBefore(idx, at int32) {
	p := r.nodes[at].prev
	r.nodes[idx].prev = p
	r.nodes[idx].next = at
	r.nodes[p].next = idx
	r.nodes[at].prev = idx
}

// unlink splices idx out of the list without releasing its slot.
func (r *ring) unlink(idx int32) {
	n := r.nodes[idx]
	r.nodes[n.prev].next = n.next
	r.nodes[n.next].prev = n.prev
}

// release marks idx's slot reusable. Callers must unlink first.
func (r *ring) release(idx int32) {
	r.nodes[idx] = ringNode{}
	r.free = append(r.free, idx)
}

func (r *ring) head() int32 { return r.nodes[0].next }
func (r *ring) tail() int32 { return r.nodes[0].prev }
func (r *ring) empty() bool { return r.nodes[0].next == 0 }

func (r *ring) reset() {
	r.nodes = r.nodes[:1]
	r.nodes[0] = ringNode{}
	r.free = nil
}
