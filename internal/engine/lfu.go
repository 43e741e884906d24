package engine

import (
	"github.com/mpemberton/memo/internal/algorithm"
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/diagnostics"
	"github.com/mpemberton/memo/internal/keybuilder"
	"github.com/mpemberton/memo/internal/locking"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// lfuBucket is one node in the outer frequency list: all entries that
// have been accessed exactly freq times. head indexes that bucket's own
// data-list sentinel in the node arena (§4.7's "rooted at its own
// sentinel (cache_head)").
type lfuBucket struct {
	prev, next int32
	freq       int64
	head       int32
}

// lfuNode is one cached entry, or (when key is the zero Key and it's
// referenced by a bucket's head field) a bucket's private list sentinel.
// prev/next are local to whichever bucket's data list currently owns
// this node.
type lfuNode struct {
	prev, next int32
	bucket     int32
	key        keybuilder.Key
	args       callargs.Args
	value      valuewrap.Wrapper
}

// LFU is the O(1) least-frequently-used engine (§4.7): a two-level
// structure of frequency buckets (ascending, outer list) each owning a
// doubly-linked list of data nodes. Grounded on
// other_examples/mr-Heap-lfu-cache's nodeList/nodeValue split, extended
// with the in-place slot recycling §4.7 and the Design Notes require for
// the steady-state, full-cache, frequency-1-eviction path.
//
// buckets[0] and nodes[0] are reserved sentinels: buckets[0] roots the
// outer frequency list (never holds a real frequency), nodes[0] is
// simply unused — every bucket gets its own dedicated sentinel node
// elsewhere in the arena.
type LFU struct {
	lock    locking.Locker
	meta    Meta
	maker   valuewrap.Maker
	maxSize int

	buckets    []lfuBucket
	bucketFree []int32
	nodes      []lfuNode
	nodeFree   []int32

	index map[keybuilder.Key]int32 // key -> node arena index

	hits, misses uint64
}

// NewLFU constructs a bounded LFU engine. maxSize must be > 0.
func NewLFU(maxSize int, maker valuewrap.Maker, meta Meta) *LFU {
	return &LFU{
		lock:    locking.New(meta.ThreadSafe),
		meta:    meta,
		maker:   maker,
		maxSize: maxSize,
		buckets: make([]lfuBucket, 1),
		nodes:   make([]lfuNode, 1),
		index:   make(map[keybuilder.Key]int32),
	}
}

func (e *LFU) Execute(key keybuilder.Key, args callargs.Args, userFn func() (any, error)) (any, error) {
	e.lock.Lock()
	if ni, ok := e.index[key]; ok && e.maker.IsValid(e.nodes[ni].value) {
		e.promote(ni)
		e.hits++
		result := e.maker.Unwrap(e.nodes[ni].value)
		e.lock.Unlock()
		return result, nil
	}
	e.misses++
	e.lock.Unlock()

	result, err := userFn()
	if err != nil {
		return result, err
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if ni, ok := e.index[key]; ok {
		if e.maker.IsValid(e.nodes[ni].value) {
			return e.maker.Unwrap(e.nodes[ni].value), nil
		}
		// The present entry was the expired one that triggered this
		// miss: refresh its value only. Frequency/bucket position is
		// untouched — an expiry-driven refresh isn't an access.
		e.nodes[ni].value = e.maker.Make(result)
		e.nodes[ni].args = args.Clone()
		return result, nil
	}

	if e.maxSize > 0 && len(e.index) >= e.maxSize {
		e.insertFull(key, args, result)
	} else {
		e.insertNew(key, args, result)
	}
	return result, nil
}

// --- arena bookkeeping ---

func (e *LFU) takeNode() int32 {
	if n := len(e.nodeFree); n > 0 {
		idx := e.nodeFree[n-1]
		e.nodeFree = e.nodeFree[:n-1]
		return idx
	}
	e.nodes = append(e.nodes, lfuNode{})
	return int32(len(e.nodes) - 1)
}

func (e *LFU) releaseNode(idx int32) {
	e.nodes[idx] = lfuNode{}
	e.nodeFree = append(e.nodeFree, idx)
}

func (e *LFU) takeBucket() int32 {
	if n := len(e.bucketFree); n > 0 {
		idx := e.bucketFree[n-1]
		e.bucketFree = e.bucketFree[:n-1]
		return idx
	}
	e.buckets = append(e.buckets, lfuBucket{})
	return int32(len(e.buckets) - 1)
}

func (e *LFU) releaseBucket(idx int32) {
	e.buckets[idx] = lfuBucket{}
	e.bucketFree = append(e.bucketFree, idx)
}

// newBucket allocates a bucket slot and its private data-list sentinel.
func (e *LFU) newBucket(freq int64) int32 {
	b := e.takeBucket()
	sentinel := e.takeNode()
	e.nodes[sentinel] = lfuNode{prev: sentinel, next: sentinel, bucket: b}
	e.buckets[b] = lfuBucket{freq: freq, head: sentinel}
	return b
}

func (e *LFU) destroyBucket(b int32) {
	e.releaseNode(e.buckets[b].head)
	e.releaseBucket(b)
}

// --- outer (frequency) list ---

func (e *LFU) linkBucketAfter(b, after int32) {
	n := e.buckets[after].next
	e.buckets[b].prev = after
	e.buckets[b].next = n
	e.buckets[after].next = b
	e.buckets[n].prev = b
}

func (e *LFU) unlinkBucket(b int32) {
	bb := e.buckets[b]
	e.buckets[bb.prev].next = bb.next
	e.buckets[bb.next].prev = bb.prev
}

// --- inner (per-bucket data) list ---

func (e *LFU) linkNodeAfter(ni, after int32) {
	n := e.nodes[after].next
	e.nodes[ni].prev = after
	e.nodes[ni].next = n
	e.nodes[after].next = ni
	e.nodes[n].prev = ni
}

func (e *LFU) unlinkNode(ni int32) {
	node := e.nodes[ni]
	e.nodes[node.prev].next = node.next
	e.nodes[node.next].prev = node.prev
}

// pushFront installs ni as the most-recently-inserted entry of bucket b.
func (e *LFU) pushFront(b, ni int32) {
	e.linkNodeAfter(ni, e.buckets[b].head)
	e.nodes[ni].bucket = b
}

func (e *LFU) bucketEmpty(b int32) bool {
	s := e.buckets[b].head
	return e.nodes[s].next == s
}

func (e *LFU) bucketTail(b int32) int32 {
	s := e.buckets[b].head
	return e.nodes[s].prev
}

// --- access/insert/evict (§4.7) ---

// promote moves ni to the bucket for its next-higher frequency,
// creating that bucket if needed, and collapses its old bucket if this
// was its last entry.
func (e *LFU) promote(ni int32) {
	bi := e.nodes[ni].bucket
	target := e.buckets[bi].freq + 1
	e.unlinkNode(ni)

	right := e.buckets[bi].next
	var dest int32
	if right != 0 && e.buckets[right].freq == target {
		dest = right
	} else {
		dest = e.newBucket(target)
		e.linkBucketAfter(dest, bi)
	}
	e.pushFront(dest, ni)

	if e.bucketEmpty(bi) {
		e.unlinkBucket(bi)
		e.destroyBucket(bi)
	}
}

func (e *LFU) insertNew(key keybuilder.Key, args callargs.Args, result any) {
	first := e.buckets[0].next
	if first == 0 || e.buckets[first].freq != 1 {
		nb := e.newBucket(1)
		e.linkBucketAfter(nb, 0)
		first = nb
	}
	ni := e.takeNode()
	e.nodes[ni] = lfuNode{key: key, args: args.Clone(), value: e.maker.Make(result)}
	e.pushFront(first, ni)
	e.index[key] = ni
}

func (e *LFU) insertFull(key keybuilder.Key, args callargs.Args, result any) {
	first := e.buckets[0].next // full implies at least one bucket exists
	victim := e.bucketTail(first)
	diagnostics.TraceEviction("lfu", e.nodes[victim].key.String())
	delete(e.index, e.nodes[victim].key)

	if e.buckets[first].freq == 1 {
		// Repurpose the evicted slot in place: no allocation.
		e.unlinkNode(victim)
		e.nodes[victim] = lfuNode{key: key, args: args.Clone(), value: e.maker.Make(result)}
		e.pushFront(first, victim)
		e.index[key] = victim
		return
	}

	e.unlinkNode(victim)
	e.releaseNode(victim)
	if e.bucketEmpty(first) {
		e.unlinkBucket(first)
		e.destroyBucket(first)
	}
	nb := e.newBucket(1)
	e.linkBucketAfter(nb, 0)
	ni := e.takeNode()
	e.nodes[ni] = lfuNode{key: key, args: args.Clone(), value: e.maker.Make(result)}
	e.pushFront(nb, ni)
	e.index[key] = ni
}

// --- protocol (§4.8) ---

func (e *LFU) Info() Stats {
	t := e.lock.RLock()
	defer e.lock.RUnlock(t)
	return Stats{
		Hits:             e.hits,
		Misses:           e.misses,
		CurrentSize:      len(e.index),
		MaxSize:          e.maxSize,
		Algorithm:        algorithm.LFU,
		TTL:              e.maker.TTL,
		ThreadSafe:       e.meta.ThreadSafe,
		OrderIndependent: e.meta.OrderIndependent,
		UseCustomKey:     e.meta.UseCustomKey,
	}
}

func (e *LFU) Clear() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.buckets = make([]lfuBucket, 1)
	e.bucketFree = nil
	e.nodes = make([]lfuNode, 1)
	e.nodeFree = nil
	e.index = make(map[keybuilder.Key]int32)
	e.hits, e.misses = 0, 0
}

func (e *LFU) IsEmpty() bool {
	t := e.lock.RLock()
	defer e.lock.RUnlock(t)
	return len(e.index) == 0
}

func (e *LFU) IsFull() bool {
	t := e.lock.RLock()
	defer e.lock.RUnlock(t)
	return e.maxSize > 0 && len(e.index) >= e.maxSize
}

func (e *LFU) Contains(key keybuilder.Key) bool {
	t := e.lock.RLock()
	defer e.lock.RUnlock(t)
	ni, ok := e.index[key]
	return ok && e.maker.IsValid(e.nodes[ni].value)
}

// ForEach walks the highest-frequency bucket first (outer list tail to
// head); within a bucket, most-recently-inserted first (its data list's
// head is always the freshest push) — §4.8's defined LFU order.
func (e *LFU) ForEach(visit func(Entry) bool) {
	t := e.lock.RLock()
	defer e.lock.RUnlock(t)
	for b := e.buckets[0].prev; b != 0; b = e.buckets[b].prev {
		s := e.buckets[b].head
		for ni := e.nodes[s].next; ni != s; ni = e.nodes[ni].next {
			n := e.nodes[ni]
			if !visit(Entry{Args: n.args, Result: e.maker.Unwrap(n.value), Alive: e.maker.IsValid(n.value)}) {
				return
			}
		}
	}
}

func (e *LFU) RemoveIf(predicate func(Entry) bool) bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.removeIf(predicate) > 0
}

// removeIf walks every bucket's data list, removing matches and
// collapsing any bucket left empty, maintaining P3 throughout. Callers
// must hold e.lock.
func (e *LFU) removeIf(predicate func(Entry) bool) int {
	removed := 0
	for b := e.buckets[0].prev; b != 0; {
		prevBucket := e.buckets[b].prev
		s := e.buckets[b].head
		for ni := e.nodes[s].next; ni != s; {
			next := e.nodes[ni].next
			n := e.nodes[ni]
			if predicate(Entry{Args: n.args, Result: e.maker.Unwrap(n.value), Alive: e.maker.IsValid(n.value)}) {
				delete(e.index, n.key)
				e.unlinkNode(ni)
				e.releaseNode(ni)
				removed++
			}
			ni = next
		}
		if e.bucketEmpty(b) {
			e.unlinkBucket(b)
			e.destroyBucket(b)
		}
		b = prevBucket
	}
	return removed
}

func (e *LFU) Purge() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.removeIf(func(entry Entry) bool { return !entry.Alive })
}
