package engine

import (
	"github.com/mpemberton/memo/internal/algorithm"
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/diagnostics"
	"github.com/mpemberton/memo/internal/keybuilder"
	"github.com/mpemberton/memo/internal/locking"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// FIFO is the bounded, insertion-order eviction engine (§4.5). Hits
// never move an entry; eviction always removes the oldest inserted key
// still present. Adapted from the teacher's cache.go/eviction.go, but
// rebuilt on the slot-recycling ring (see list.go) instead of
// container/list, so a steady-state evict-then-insert cycle overwrites
// the evicted node's fields rather than allocating a new one.
type FIFO struct {
	lock    locking.Locker
	meta    Meta
	maker   valuewrap.Maker
	maxSize int

	ring  *ring
	index map[keybuilder.Key]int32

	hits, misses uint64
}

// NewFIFO constructs a bounded FIFO engine. maxSize must be > 0.
func NewFIFO(maxSize int, maker valuewrap.Maker, meta Meta) *FIFO {
	return &FIFO{
		lock:    locking.New(meta.ThreadSafe),
		meta:    meta,
		maker:   maker,
		maxSize: maxSize,
		ring:    newRing(),
		index:   make(map[keybuilder.Key]int32),
	}
}

func (f *FIFO) Execute(key keybuilder.Key, args callargs.Args, userFn func() (any, error)) (any, error) {
	f.lock.Lock()
	if idx, ok := f.index[key]; ok {
		n := &f.ring.nodes[idx]
		if f.maker.IsValid(n.value) {
			f.hits++
			result := f.maker.Unwrap(n.value)
			f.lock.Unlock()
			return result, nil
		}
	}
	f.misses++
	f.lock.Unlock()

	result, err := userFn()
	if err != nil {
		return result, err
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	if idx, ok := f.index[key]; ok {
		n := &f.ring.nodes[idx]
		if f.maker.IsValid(n.value) {
			// Another producer installed a fresh value while our call
			// was in flight; its result wins (§5 drop-and-recheck).
			return f.maker.Unwrap(n.value), nil
		}
		// The entry present was the expired one that triggered this
		// miss: refresh it in place, preserving its FIFO position.
		n.value = f.maker.Make(result)
		n.args = args.Clone()
		return result, nil
	}

	f.insert(key, args, result)
	return result, nil
}

func (f *FIFO) insert(key keybuilder.Key, args callargs.Args, result any) {
	if f.maxSize > 0 && len(f.index) >= f.maxSize {
		victim := f.ring.head()
		diagnostics.TraceEviction("fifo", f.ring.nodes[victim].key.String())
		delete(f.index, f.ring.nodes[victim].key)
		f.ring.unlink(victim)
		f.ring.nodes[victim] = ringNode{key: key, args: args.Clone(), value: f.maker.Make(result)}
		f.ring.linkBefore(victim, 0)
		f.index[key] = victim
		return
	}
	idx := f.ring.take()
	f.ring.nodes[idx] = ringNode{key: key, args: args.Clone(), value: f.maker.Make(result)}
	f.ring.linkBefore(idx, 0)
	f.index[key] = idx
}

func (f *FIFO) Info() Stats {
	t := f.lock.RLock()
	defer f.lock.RUnlock(t)
	return Stats{
		Hits:             f.hits,
		Misses:           f.misses,
		CurrentSize:      len(f.index),
		MaxSize:          f.maxSize,
		Algorithm:        algorithm.FIFO,
		TTL:              f.maker.TTL,
		ThreadSafe:       f.meta.ThreadSafe,
		OrderIndependent: f.meta.OrderIndependent,
		UseCustomKey:     f.meta.UseCustomKey,
	}
}

func (f *FIFO) Clear() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ring.reset()
	f.index = make(map[keybuilder.Key]int32)
	f.hits, f.misses = 0, 0
}

func (f *FIFO) IsEmpty() bool {
	t := f.lock.RLock()
	defer f.lock.RUnlock(t)
	return len(f.index) == 0
}

func (f *FIFO) IsFull() bool {
	t := f.lock.RLock()
	defer f.lock.RUnlock(t)
	return f.maxSize > 0 && len(f.index) >= f.maxSize
}

func (f *FIFO) Contains(key keybuilder.Key) bool {
	t := f.lock.RLock()
	defer f.lock.RUnlock(t)
	idx, ok := f.index[key]
	return ok && f.maker.IsValid(f.ring.nodes[idx].value)
}

// ForEach walks newest-insertion-first, i.e. from the tail backward —
// §4.8's defined FIFO traversal order.
func (f *FIFO) ForEach(visit func(Entry) bool) {
	t := f.lock.RLock()
	defer f.lock.RUnlock(t)
	for idx := f.ring.tail(); idx != 0; idx = f.ring.nodes[idx].prev {
		n := f.ring.nodes[idx]
		if !visit(Entry{Args: n.args, Result: f.maker.Unwrap(n.value), Alive: f.maker.IsValid(n.value)}) {
			return
		}
	}
}

func (f *FIFO) RemoveIf(predicate func(Entry) bool) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.removeIf(predicate) > 0
}

// removeIf does the actual walk-and-splice, returning the removal count
// so both RemoveIf (§4.8) and Purge (the explicit-sweep supplement) can
// share one implementation. Callers must hold f.lock.
func (f *FIFO) removeIf(predicate func(Entry) bool) int {
	n := 0
	for idx := f.ring.tail(); idx != 0; {
		node := f.ring.nodes[idx]
		prev := node.prev
		if predicate(Entry{Args: node.args, Result: f.maker.Unwrap(node.value), Alive: f.maker.IsValid(node.value)}) {
			delete(f.index, node.key)
			f.ring.unlink(idx)
			f.ring.release(idx)
			n++
		}
		idx = prev
	}
	return n
}

func (f *FIFO) Purge() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.removeIf(func(e Entry) bool { return !e.Alive })
}
