package engine

import (
	"github.com/mpemberton/memo/internal/algorithm"
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/keybuilder"
	"github.com/mpemberton/memo/internal/locking"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// Meta carries the construction-time choices every engine reports back
// through Stats, so each engine constructor takes one of these instead
// of five positional booleans.
type Meta struct {
	ThreadSafe       bool
	OrderIndependent bool
	UseCustomKey     bool
}

// Plain is the unbounded engine (§4.3): a map of key to wrapped result,
// plus a parallel map of key to original call arguments so introspection
// (cache_contains_argument, cache_for_each, ...) can reconstruct the
// user-facing call. No eviction ever runs.
type Plain struct {
	lock locking.Locker
	meta Meta
	maker valuewrap.Maker

	data map[keybuilder.Key]valuewrap.Wrapper
	args map[keybuilder.Key]callargs.Args

	hits, misses uint64
}

// NewPlain constructs the unbounded engine.
func NewPlain(maker valuewrap.Maker, meta Meta) *Plain {
	return &Plain{
		lock:  locking.New(meta.ThreadSafe),
		meta:  meta,
		maker: maker,
		data:  make(map[keybuilder.Key]valuewrap.Wrapper),
		args:  make(map[keybuilder.Key]callargs.Args),
	}
}

func (p *Plain) Execute(key keybuilder.Key, args callargs.Args, userFn func() (any, error)) (any, error) {
	p.lock.Lock()
	w, found := p.data[key]
	if found && p.maker.IsValid(w) {
		p.hits++
		p.lock.Unlock()
		return p.maker.Unwrap(w), nil
	}
	p.misses++
	p.lock.Unlock()

	result, err := userFn()
	if err != nil {
		return result, err
	}

	p.lock.Lock()
	// Drop-and-recheck (§5): another producer may have already installed
	// a fresh value for this key while the lock was released.
	if cur, ok := p.data[key]; ok && p.maker.IsValid(cur) {
		p.lock.Unlock()
		return p.maker.Unwrap(cur), nil
	}
	p.data[key] = p.maker.Make(result)
	p.args[key] = args.Clone()
	p.lock.Unlock()

	return result, nil
}

func (p *Plain) Info() Stats {
	t := p.lock.RLock()
	defer p.lock.RUnlock(t)
	return Stats{
		Hits:             p.hits,
		Misses:           p.misses,
		CurrentSize:      len(p.data),
		MaxSize:          -1,
		Algorithm:        algorithm.Plain,
		TTL:              p.maker.TTL,
		ThreadSafe:       p.meta.ThreadSafe,
		OrderIndependent: p.meta.OrderIndependent,
		UseCustomKey:     p.meta.UseCustomKey,
	}
}

func (p *Plain) Clear() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.data = make(map[keybuilder.Key]valuewrap.Wrapper)
	p.args = make(map[keybuilder.Key]callargs.Args)
	p.hits, p.misses = 0, 0
}

func (p *Plain) IsEmpty() bool {
	t := p.lock.RLock()
	defer p.lock.RUnlock(t)
	return len(p.data) == 0
}

// IsFull never reports true: the plain engine has no capacity bound.
func (p *Plain) IsFull() bool { return false }

func (p *Plain) Contains(key keybuilder.Key) bool {
	t := p.lock.RLock()
	defer p.lock.RUnlock(t)
	w, ok := p.data[key]
	return ok && p.maker.IsValid(w)
}

func (p *Plain) ForEach(visit func(Entry) bool) {
	t := p.lock.RLock()
	defer p.lock.RUnlock(t)
	for key, w := range p.data {
		entry := Entry{Args: p.args[key], Result: p.maker.Unwrap(w), Alive: p.maker.IsValid(w)}
		if !visit(entry) {
			return
		}
	}
}

func (p *Plain) RemoveIf(predicate func(Entry) bool) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	removed := false
	for key, w := range p.data {
		entry := Entry{Args: p.args[key], Result: p.maker.Unwrap(w), Alive: p.maker.IsValid(w)}
		if predicate(entry) {
			delete(p.data, key)
			delete(p.args, key)
			removed = true
		}
	}
	return removed
}

func (p *Plain) Purge() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	n := 0
	for key, w := range p.data {
		if !p.maker.IsValid(w) {
			delete(p.data, key)
			delete(p.args, key)
			n++
		}
	}
	return n
}
