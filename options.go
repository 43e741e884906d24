package memo

/*
Option configures Attach/Attach0 using the Functional Options Pattern —
adapted from the teacher's own options.go, which configured its Cache
the same way:

    cache := New(
        WithCleanupInterval(10 * time.Second),
    )

Here the options build up a config struct consumed once at Attach time
instead of mutating a live Cache, since §6's attachment options are
closed and validated eagerly rather than adjustable after construction.
*/

import (
	"time"

	"github.com/mpemberton/memo/internal/algorithm"
	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/engine"
)

// Unbounded, passed to WithCapacity, selects the plain (unbounded)
// engine (§4.3/§4.9) instead of a statistics-only or bounded one.
const Unbounded = -1

// Algorithm identifies a bounded cache's eviction policy (§4.9). Aliased
// from internal/algorithm so callers never need to import an internal
// package to name the type their own variables hold.
type Algorithm = algorithm.Algorithm

const (
	FIFO = algorithm.FIFO
	LRU  = algorithm.LRU
	LFU  = algorithm.LFU
)

// KV is a single keyword argument passed to Call or CacheContainsArgument.
type KV = callargs.KV

// config is the closed set of attachment options §6 describes.
type config struct {
	capacity         int
	ttl              time.Duration
	algorithm        Algorithm
	threadSafe       bool
	orderIndependent bool
	customKeyMaker   func(positional []any, keyword []KV) any
	customEngine     engine.Engine
	activeSweep      time.Duration
	resultEqual      func(a, b any) bool
}

func defaultConfig() config {
	return config{
		capacity:   Unbounded,
		algorithm:  LRU,
		threadSafe: true,
	}
}

func (cfg config) validate() error {
	if cfg.capacity < Unbounded {
		return &ConfigurationError{Reason: "capacity must be Unbounded or >= 0"}
	}
	if cfg.ttl < 0 {
		return &ConfigurationError{Reason: "ttl must not be negative"}
	}
	if cfg.capacity > 0 && cfg.customEngine == nil {
		switch cfg.algorithm {
		case FIFO, LRU, LFU:
		default:
			return &ConfigurationError{Reason: "unknown algorithm flag"}
		}
	}
	return nil
}

// Option configures Attach/Attach0.
type Option func(*config)

// WithCapacity sets the bound on the number of live entries. Unbounded
// selects the plain engine; 0 selects the statistics-only engine; any
// positive value selects the bounded engine named by WithAlgorithm.
func WithCapacity(n int) Option {
	return func(cfg *config) { cfg.capacity = n }
}

// WithTTL activates the TTL value-wrapper variant (§4.2).
func WithTTL(ttl time.Duration) Option {
	return func(cfg *config) { cfg.ttl = ttl }
}

// WithAlgorithm picks the bounded replacement policy. Ignored when
// capacity is Unbounded, 0, or a custom engine is supplied.
func WithAlgorithm(a Algorithm) Option {
	return func(cfg *config) { cfg.algorithm = a }
}

// WithThreadSafe toggles the real lock vs. the no-op substitute (§5).
func WithThreadSafe(threadSafe bool) Option {
	return func(cfg *config) { cfg.threadSafe = threadSafe }
}

// WithOrderIndependent sorts keyword arguments by name before keying
// (§4.1), instead of using their call-site order. Ignored when a custom
// key maker is set — the custom maker owns key semantics entirely.
func WithOrderIndependent(orderIndependent bool) Option {
	return func(cfg *config) { cfg.orderIndependent = orderIndependent }
}

// WithCustomKeyMaker overrides the built-in key builder (§6's
// custom_key_maker). Its return value is folded through
// keybuilder.BuildFromCustom, which encodes it the same way the built-in
// builder encodes a single argument.
func WithCustomKeyMaker(fn func(positional []any, keyword []KV) any) Option {
	return func(cfg *config) { cfg.customKeyMaker = fn }
}

// WithCustomEngine installs a user-provided replacement-policy engine in
// place of one of the five built-in ones (the extension point §4.10's
// validator implies but spec.md never names as an option). Attach runs
// it through engine.ValidateEngine eagerly and fails with a
// ConfigurationError if it doesn't hold the protocol invariants.
func WithCustomEngine(e engine.Engine) Option {
	return func(cfg *config) { cfg.customEngine = e }
}

// WithActiveSweep layers an opt-in background ticker (modeled on the
// teacher's janitor.go / WithCleanupInterval) over the lazy/explicit
// expiration model §3 actually specifies: every interval, it calls
// Purge() so expired entries are reclaimed without waiting for a miss
// or an explicit call.
func WithActiveSweep(interval time.Duration) Option {
	return func(cfg *config) { cfg.activeSweep = interval }
}

// WithResultEqual supplies the equality function CacheContainsResult
// uses. Defaults to reflect.DeepEqual — per the Design Notes' open
// question, this module takes no further position on what equality
// means for mutable result types.
func WithResultEqual(fn func(a, b any) bool) Option {
	return func(cfg *config) { cfg.resultEqual = fn }
}
