// Package engine implements the five replacement policies spec.md §2
// enumerates (rows C-G): an unbounded plain cache, a statistics-only
// cache, and the three bounded policies (FIFO, LRU, LFU). All five share
// one interface so the wrapper facade (the root memo package) and the
// engine selector (§4.9) never need to know which is underneath, and so
// a user-supplied engine can be smoke-tested by validate.go (§4.10, the
// Extension Validator).
package engine

import (
	"time"

	"github.com/mpemberton/memo/internal/algorithm"
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/keybuilder"
)

// Entry is one cached call, as seen by traversal and removal callbacks
// (§4.8's cache_for_each / cache_remove_if).
type Entry struct {
	Args   callargs.Args
	Result any
	Alive  bool // false if the entry's TTL has lapsed but it hasn't been purged yet
}

// Stats is the cache_info() snapshot (§3 "Statistics").
type Stats struct {
	Hits             uint64
	Misses           uint64
	CurrentSize      int
	MaxSize          int // -1 denotes unbounded
	Algorithm        algorithm.Algorithm
	TTL              time.Duration
	ThreadSafe       bool
	OrderIndependent bool
	UseCustomKey     bool
}

// Engine is the replacement-policy protocol every cache backend
// implements: the hit/miss/evict lifecycle (§4.3-§4.7) plus the uniform
// introspection and mutation surface (§4.8).
type Engine interface {
	// Execute performs one memoized call: look up key; on a hit, return
	// the cached result. On a miss (or an expired entry), call userFn
	// with the engine's lock released, then commit the result following
	// the drop-and-recheck protocol (§5) — including possible eviction.
	// userFn's error is propagated unchanged and nothing is inserted.
	Execute(key keybuilder.Key, args callargs.Args, userFn func() (any, error)) (any, error)

	Info() Stats
	Clear()
	IsEmpty() bool
	IsFull() bool
	Contains(key keybuilder.Key) bool

	// ForEach visits every entry in the engine's defined traversal order
	// (§4.8). The callback's return value controls whether traversal
	// continues (false stops early, matching Go's range-over-func idiom).
	ForEach(visit func(Entry) bool)

	// RemoveIf deletes every entry whose predicate returns true and
	// reports whether anything was removed (§4.8's structural removal,
	// invariant-preserving — including collapsing emptied LFU buckets).
	RemoveIf(predicate func(Entry) bool) bool

	// Purge removes expired-but-not-yet-evicted entries and returns how
	// many were removed — the "explicit sweep" spec.md §3 names without
	// giving it an operation name.
	Purge() int
}
