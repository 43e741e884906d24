package engine

import (
	"github.com/mpemberton/memo/internal/algorithm"
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/keybuilder"
	"github.com/mpemberton/memo/internal/locking"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// Noop is the statistics-only engine (§4.4), selected when capacity is
// zero. It stores nothing: every call is a miss and the underlying
// function always runs. Only misses ever advance.
type Noop struct {
	lock   locking.Locker
	meta   Meta
	maker  valuewrap.Maker
	misses uint64
}

// NewNoop constructs the statistics-only engine.
func NewNoop(maker valuewrap.Maker, meta Meta) *Noop {
	return &Noop{lock: locking.New(meta.ThreadSafe), meta: meta, maker: maker}
}

func (n *Noop) Execute(_ keybuilder.Key, _ callargs.Args, userFn func() (any, error)) (any, error) {
	n.lock.Lock()
	n.misses++
	n.lock.Unlock()
	return userFn()
}

func (n *Noop) Info() Stats {
	t := n.lock.RLock()
	defer n.lock.RUnlock(t)
	return Stats{
		Misses:           n.misses,
		MaxSize:          0,
		Algorithm:        algorithm.Noop,
		TTL:              n.maker.TTL,
		ThreadSafe:       n.meta.ThreadSafe,
		OrderIndependent: n.meta.OrderIndependent,
		UseCustomKey:     n.meta.UseCustomKey,
	}
}

func (n *Noop) Clear() {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.misses = 0
}

func (n *Noop) IsEmpty() bool                            { return true }
func (n *Noop) IsFull() bool                             { return true }
func (n *Noop) Contains(_ keybuilder.Key) bool            { return false }
func (n *Noop) ForEach(_ func(Entry) bool)                {}
func (n *Noop) RemoveIf(_ func(Entry) bool) bool          { return false }
func (n *Noop) Purge() int                                { return 0 }
