package engine

import (
	"github.com/mpemberton/memo/internal/algorithm"
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/diagnostics"
	"github.com/mpemberton/memo/internal/keybuilder"
	"github.com/mpemberton/memo/internal/locking"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// LRU is the bounded, recency eviction engine (§4.6). Identical state to
// FIFO; differs only in that a hit splices its node to the tail
// (most-recently-used), so eviction — which always takes the head —
// removes the least-recently-used entry instead of the oldest inserted
// one.
type LRU struct {
	lock    locking.Locker
	meta    Meta
	maker   valuewrap.Maker
	maxSize int

	ring  *ring
	index map[keybuilder.Key]int32

	hits, misses uint64
}

// NewLRU constructs a bounded LRU engine. maxSize must be > 0.
func NewLRU(maxSize int, maker valuewrap.Maker, meta Meta) *LRU {
	return &LRU{
		lock:    locking.New(meta.ThreadSafe),
		meta:    meta,
		maker:   maker,
		maxSize: maxSize,
		ring:    newRing(),
		index:   make(map[keybuilder.Key]int32),
	}
}

func (l *LRU) Execute(key keybuilder.Key, args callargs.Args, userFn func() (any, error)) (any, error) {
	l.lock.Lock()
	if idx, ok := l.index[key]; ok {
		n := &l.ring.nodes[idx]
		if l.maker.IsValid(n.value) {
			l.touch(idx)
			l.hits++
			result := l.maker.Unwrap(n.value)
			l.lock.Unlock()
			return result, nil
		}
	}
	l.misses++
	l.lock.Unlock()

	result, err := userFn()
	if err != nil {
		return result, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if idx, ok := l.index[key]; ok {
		n := &l.ring.nodes[idx]
		if l.maker.IsValid(n.value) {
			return l.maker.Unwrap(n.value), nil
		}
		n.value = l.maker.Make(result)
		n.args = args.Clone()
		l.touch(idx)
		return result, nil
	}

	l.insert(key, args, result)
	return result, nil
}

// touch splices idx to the tail (most-recently-used position).
func (l *LRU) touch(idx int32) {
	l.ring.unlink(idx)
	l.ring.linkBefore(idx, 0)
}

func (l *LRU) insert(key keybuilder.Key, args callargs.Args, result any) {
	if l.maxSize > 0 && len(l.index) >= l.maxSize {
		victim := l.ring.head()
		diagnostics.TraceEviction("lru", l.ring.nodes[victim].key.String())
		delete(l.index, l.ring.nodes[victim].key)
		l.ring.unlink(victim)
		l.ring.nodes[victim] = ringNode{key: key, args: args.Clone(), value: l.maker.Make(result)}
		l.ring.linkBefore(victim, 0)
		l.index[key] = victim
		return
	}
	idx := l.ring.take()
	l.ring.nodes[idx] = ringNode{key: key, args: args.Clone(), value: l.maker.Make(result)}
	l.ring.linkBefore(idx, 0)
	l.index[key] = idx
}

func (l *LRU) Info() Stats {
	t := l.lock.RLock()
	defer l.lock.RUnlock(t)
	return Stats{
		Hits:             l.hits,
		Misses:           l.misses,
		CurrentSize:      len(l.index),
		MaxSize:          l.maxSize,
		Algorithm:        algorithm.LRU,
		TTL:              l.maker.TTL,
		ThreadSafe:       l.meta.ThreadSafe,
		OrderIndependent: l.meta.OrderIndependent,
		UseCustomKey:     l.meta.UseCustomKey,
	}
}

func (l *LRU) Clear() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.ring.reset()
	l.index = make(map[keybuilder.Key]int32)
	l.hits, l.misses = 0, 0
}

func (l *LRU) IsEmpty() bool {
	t := l.lock.RLock()
	defer l.lock.RUnlock(t)
	return len(l.index) == 0
}

func (l *LRU) IsFull() bool {
	t := l.lock.RLock()
	defer l.lock.RUnlock(t)
	return l.maxSize > 0 && len(l.index) >= l.maxSize
}

func (l *LRU) Contains(key keybuilder.Key) bool {
	t := l.lock.RLock()
	defer l.lock.RUnlock(t)
	idx, ok := l.index[key]
	return ok && l.maker.IsValid(l.ring.nodes[idx].value)
}

// ForEach walks most-recently-used first (tail backward) — §4.8's
// defined LRU traversal order.
func (l *LRU) ForEach(visit func(Entry) bool) {
	t := l.lock.RLock()
	defer l.lock.RUnlock(t)
	for idx := l.ring.tail(); idx != 0; idx = l.ring.nodes[idx].prev {
		n := l.ring.nodes[idx]
		if !visit(Entry{Args: n.args, Result: l.maker.Unwrap(n.value), Alive: l.maker.IsValid(n.value)}) {
			return
		}
	}
}

func (l *LRU) RemoveIf(predicate func(Entry) bool) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.removeIf(predicate) > 0
}

func (l *LRU) removeIf(predicate func(Entry) bool) int {
	n := 0
	for idx := l.ring.tail(); idx != 0; {
		node := l.ring.nodes[idx]
		prev := node.prev
		if predicate(Entry{Args: node.args, Result: l.maker.Unwrap(node.value), Alive: l.maker.IsValid(node.value)}) {
			delete(l.index, node.key)
			l.ring.unlink(idx)
			l.ring.release(idx)
			n++
		}
		idx = prev
	}
	return n
}

func (l *LRU) Purge() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.removeIf(func(e Entry) bool { return !e.Alive })
}
