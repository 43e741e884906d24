// Package valuewrap tags a cached result with an optional expiry
// deadline.
//
// Grounded on original_source/memoization/caching/general/values_with_ttl.py
// (the make/is_valid/unwrap triple selected once per wrapper at
// construction) and the teacher's Item.Expired, which stores the
// deadline as a UnixNano int64 rather than a time.Time for a
// branch-free numeric comparison on the hot path. Every engine in
// internal/engine programs against Maker uniformly; none of them branch
// on whether TTL is active.
package valuewrap

import "time"

// Wrapper is the uniform value stored by every engine.
type Wrapper struct {
	Result   any
	Deadline int64 // UnixNano; zero means "no expiry".
}

// Maker selects the TTL-enabled or TTL-disabled behavior once, at
// engine-construction time. The zero value (TTL == 0) disables
// expiration: Make never stamps a deadline and IsValid always reports
// true, exactly mirroring spec.md §4.2's "disabled" column.
type Maker struct {
	TTL time.Duration
}

// Make wraps result, stamping a deadline when TTL is active.
func (m Maker) Make(result any) Wrapper {
	if m.TTL <= 0 {
		return Wrapper{Result: result}
	}
	return Wrapper{Result: result, Deadline: time.Now().Add(m.TTL).UnixNano()}
}

// IsValid reports whether w is still fresh.
func (m Maker) IsValid(w Wrapper) bool {
	if w.Deadline == 0 {
		return true
	}
	return time.Now().UnixNano() < w.Deadline
}

// Unwrap extracts the cached result, discarding expiry metadata.
func (m Maker) Unwrap(w Wrapper) any {
	return w.Result
}

// HasTTL reports whether this Maker enforces expiration. cache_info()
// reports the TTL field itself, not this method.
func (m Maker) HasTTL() bool {
	return m.TTL > 0
}
