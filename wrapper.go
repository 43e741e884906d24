package memo

import (
	"iter"
	"reflect"
	"sync"
	"time"

	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/engine"
	"github.com/mpemberton/memo/internal/keybuilder"
)

// CallFunc is the shape Attach wraps: the underlying computation, given
// the call's positional and keyword arguments. Go has no native
// keyword-argument syntax, so the keyword slice stands in for Python's
// **kwargs — callers that only need positional arguments simply pass a
// nil keyword slice.
type CallFunc[T any] func(positional []any, keyword []KV) (T, error)

// Arguments is the public view of one memoized call's recorded
// arguments, returned by CacheForEach/CacheArguments/CacheItems.
type Arguments struct {
	Positional []any
	Keyword    []KV
}

// CacheInfo is the cache_info() snapshot (§3's Statistics, §4.8).
type CacheInfo struct {
	Hits             uint64
	Misses           uint64
	CurrentSize      int
	MaxSize          int // -1 denotes unbounded
	Algorithm        Algorithm
	TTL              time.Duration
	ThreadSafe       bool
	OrderIndependent bool
	UseCustomKey     bool
}

// Cached is the wrapper façade (§4.8): the handle returned by Attach,
// exposing the memoized call alongside the uniform introspection and
// mutation protocol every engine implements identically underneath.
type Cached[T any] struct {
	fn               CallFunc[T]
	eng              engine.Engine
	orderIndependent bool
	customKeyMaker   func(positional []any, keyword []KV) any
	resultEqual      func(a, b any) bool
	activeSweep      time.Duration

	janitorOnce sync.Once
	janitorStop chan struct{}
}

// Call performs one memoized invocation: build a key from the
// arguments, return the cached result on a hit, otherwise compute it via
// the drop-and-recheck protocol (§5) and insert it.
func (c *Cached[T]) Call(positional []any, keyword ...KV) (T, error) {
	args := callargs.New(positional, keyword...)
	key := c.buildKey(args)

	result, err := c.eng.Execute(key, args, func() (any, error) {
		return c.fn(positional, keyword)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (c *Cached[T]) buildKey(args callargs.Args) keybuilder.Key {
	if c.customKeyMaker != nil {
		return keybuilder.BuildFromCustom(c.customKeyMaker(args.Positional, args.Keyword))
	}
	return keybuilder.Build(args, c.orderIndependent)
}

// CacheInfo returns a snapshot of {hits, misses, current_size, max_size,
// algorithm, ttl, thread_safe, order_independent, use_custom_key}.
func (c *Cached[T]) CacheInfo() CacheInfo {
	s := c.eng.Info()
	return CacheInfo{
		Hits:             s.Hits,
		Misses:           s.Misses,
		CurrentSize:      s.CurrentSize,
		MaxSize:          s.MaxSize,
		Algorithm:        s.Algorithm,
		TTL:              s.TTL,
		ThreadSafe:       s.ThreadSafe,
		OrderIndependent: s.OrderIndependent,
		UseCustomKey:     s.UseCustomKey,
	}
}

// CacheClear drops every entry and zeros the hit/miss counters (P5).
func (c *Cached[T]) CacheClear() { c.eng.Clear() }

func (c *Cached[T]) CacheIsEmpty() bool { return c.eng.IsEmpty() }
func (c *Cached[T]) CacheIsFull() bool  { return c.eng.IsFull() }

// CacheContainsArgument rebuilds the key for (positional, keyword) and
// probes the engine. An ArgumentError surfaces only when a custom key
// maker panics while building the probe key — the one way this
// statically typed descriptor can still fail to become a key (§7).
func (c *Cached[T]) CacheContainsArgument(positional []any, keyword ...KV) (contains bool, err error) {
	if c.customKeyMaker != nil {
		defer func() {
			if r := recover(); r != nil {
				err = &ArgumentError{Reason: fmtPanic(r)}
			}
		}()
	}
	args := callargs.New(positional, keyword...)
	return c.eng.Contains(c.buildKey(args)), nil
}

// CacheContainsResult scans alive entries for one equal to value (§4.8:
// O(n) by equality), using WithResultEqual's comparer if one was
// supplied, otherwise reflect.DeepEqual.
func (c *Cached[T]) CacheContainsResult(value T) bool {
	eq := c.resultEqual
	if eq == nil {
		eq = defaultResultEqual
	}
	found := false
	c.eng.ForEach(func(e engine.Entry) bool {
		if e.Alive && eq(e.Result, value) {
			found = true
			return false
		}
		return true
	})
	return found
}

func defaultResultEqual(a, b any) bool { return reflect.DeepEqual(a, b) }

// CacheForEach visits every entry (alive or expired-but-not-yet-purged)
// in the engine's defined traversal order (§4.8). Returning false from
// consumer stops the walk early.
func (c *Cached[T]) CacheForEach(consumer func(args Arguments, result T, alive bool) bool) {
	c.eng.ForEach(func(e engine.Entry) bool {
		var result T
		if e.Alive {
			result = e.Result.(T)
		}
		return consumer(Arguments{Positional: e.Args.Positional, Keyword: e.Args.Keyword}, result, e.Alive)
	})
}

// CacheArguments is a lazy sequence over the arguments of currently
// alive entries.
func (c *Cached[T]) CacheArguments() iter.Seq[Arguments] {
	return func(yield func(Arguments) bool) {
		c.eng.ForEach(func(e engine.Entry) bool {
			if !e.Alive {
				return true
			}
			return yield(Arguments{Positional: e.Args.Positional, Keyword: e.Args.Keyword})
		})
	}
}

// CacheResults is a lazy sequence over the results of currently alive
// entries.
func (c *Cached[T]) CacheResults() iter.Seq[T] {
	return func(yield func(T) bool) {
		c.eng.ForEach(func(e engine.Entry) bool {
			if !e.Alive {
				return true
			}
			return yield(e.Result.(T))
		})
	}
}

// CacheItems is a lazy sequence over (arguments, result) pairs of
// currently alive entries.
func (c *Cached[T]) CacheItems() iter.Seq2[Arguments, T] {
	return func(yield func(Arguments, T) bool) {
		c.eng.ForEach(func(e engine.Entry) bool {
			if !e.Alive {
				return true
			}
			return yield(Arguments{Positional: e.Args.Positional, Keyword: e.Args.Keyword}, e.Result.(T))
		})
	}
}

// CacheRemoveIf deletes every entry whose predicate returns true and
// reports whether anything was removed, maintaining every engine
// invariant during the walk (§4.8).
func (c *Cached[T]) CacheRemoveIf(predicate func(args Arguments, result T, alive bool) bool) bool {
	return c.eng.RemoveIf(func(e engine.Entry) bool {
		var result T
		if e.Alive {
			result = e.Result.(T)
		}
		return predicate(Arguments{Positional: e.Args.Positional, Keyword: e.Args.Keyword}, result, e.Alive)
	})
}

// Purge removes expired-but-not-yet-evicted entries and returns how many
// were removed — the "explicit sweep" §3 names without giving it an
// operation name, supplemented here as a first-class method.
func (c *Cached[T]) Purge() int { return c.eng.Purge() }

// startJanitor launches the opt-in active-sweep ticker (WithActiveSweep),
// adapted from the teacher's startJanitor/Stop goroutine pattern.
func (c *Cached[T]) startJanitor() {
	if c.activeSweep <= 0 {
		return
	}
	c.janitorStop = make(chan struct{})
	ticker := time.NewTicker(c.activeSweep)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Purge()
			case <-c.janitorStop:
				return
			}
		}
	}()
}

// Stop terminates the active-sweep janitor goroutine, if one was started
// via WithActiveSweep. Safe to call more than once or on a wrapper that
// never started one.
func (c *Cached[T]) Stop() {
	c.janitorOnce.Do(func() {
		if c.janitorStop != nil {
			close(c.janitorStop)
		}
	})
}

func fmtPanic(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return "panic building key"
}
