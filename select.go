// Package memo attaches a result cache to a function: the same
// arguments presented again return the previously computed result
// without re-invoking the function, per one of three bounded
// replacement policies (FIFO, LRU, LFU), an unbounded policy, or a
// statistics-only no-op, each with optional TTL expiration and optional
// thread safety.
package memo

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/mpemberton/memo/internal/diagnostics"
	"github.com/mpemberton/memo/internal/engine"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// Attach builds the engine selected by opts (§4.9: capacity and
// algorithm flag pick one of the plain, statistics-only, FIFO, LRU, or
// LFU engines) and returns a *Cached[T] wrapping fn. Every option is
// validated eagerly, per §7's "type errors on options are detected
// eagerly at attachment time."
func Attach[T any](fn CallFunc[T], opts ...Option) (*Cached[T], error) {
	if fn == nil {
		return nil, &ConfigurationError{Reason: "target function must not be nil"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	c := &Cached[T]{
		fn:               fn,
		eng:              eng,
		orderIndependent: cfg.orderIndependent,
		customKeyMaker:   cfg.customKeyMaker,
		resultEqual:      cfg.resultEqual,
		activeSweep:      cfg.activeSweep,
	}
	c.startJanitor()
	return c, nil
}

// Attach0 is a convenience entry point for a function with no logical
// arguments. A CallFunc[T] always carries the same (positional,
// keyword) signature regardless of what the underlying closure actually
// reads, so the zero-argument misuse case (§6: "memoizing a
// zero-argument function with no capacity or TTL emits a warning") can't
// be detected from fn's shape alone — Attach0 is the one caller that
// can promise its function truly takes nothing.
//
// "No capacity" means no eviction bound was set at all: the
// statistics-only engine (capacity 0) stores nothing, so memoizing has
// no effect, and the default unbounded plain engine (capacity
// Unbounded, defaultConfig's own default) caches the one entry forever
// with nothing ever evicting or expiring it — the cases spec.md §6
// warns about. A bounded algorithm or an active TTL still
// gives the wrapper somewhere to go (eviction, expiry), so neither
// warrants the warning even though there's still only one possible key.
func Attach0[T any](fn func() (T, error), opts ...Option) (*Cached[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if (cfg.capacity == 0 || cfg.capacity == Unbounded) && cfg.ttl <= 0 {
		diagnostics.WarnZeroArgument(funcName(fn))
	}
	return Attach[T](func(_ []any, _ []KV) (T, error) { return fn() }, opts...)
}

func funcName(fn any) string {
	return runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
}

// buildEngine implements §4.9's selector: a custom engine wins outright
// (after validation); otherwise capacity dispatches to noop/plain/bounded.
func buildEngine(cfg config) (engine.Engine, error) {
	meta := engine.Meta{
		ThreadSafe:       cfg.threadSafe,
		OrderIndependent: cfg.orderIndependent,
		UseCustomKey:     cfg.customKeyMaker != nil,
	}

	if cfg.customEngine != nil {
		if err := engine.ValidateEngine(cfg.customEngine); err != nil {
			diagnostics.WarnExtensionInvalid(err.Error())
			return nil, &ConfigurationError{Reason: fmt.Sprintf("custom engine failed validation: %v", err)}
		}
		return cfg.customEngine, nil
	}

	maker := valuewrap.Maker{TTL: cfg.ttl}

	switch {
	case cfg.capacity == 0:
		return engine.NewNoop(maker, meta), nil
	case cfg.capacity < 0:
		return engine.NewPlain(maker, meta), nil
	default:
		switch cfg.algorithm {
		case FIFO:
			return engine.NewFIFO(cfg.capacity, maker, meta), nil
		case LRU:
			return engine.NewLRU(cfg.capacity, maker, meta), nil
		case LFU:
			return engine.NewLFU(cfg.capacity, maker, meta), nil
		default:
			return nil, &ConfigurationError{Reason: "unknown algorithm flag"}
		}
	}
}
