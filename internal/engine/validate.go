package engine

import (
	"errors"
	"fmt"

	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/keybuilder"
)

// ValidateEngine drives a caller-supplied Engine through a short
// insert/hit/remove/clear sequence and reports the first protocol
// invariant it breaks (§4.10, the supplemented Extension Validator).
// Only two keys are inserted, so eviction is not exercised.
//
// WithCustomEngine lets a user swap in their own replacement policy;
// nothing else in this module checks that it actually behaves like one.
// Grounded on the teacher's TestConcurrentAccess/TestStatsTracking style
// of exercising a cache end-to-end rather than unit-by-unit, but run
// once at Attach time against the very engine the wrapper will use
// (which it leaves cleared) instead of as a test.
func ValidateEngine(e Engine) error {
	e.Clear()

	if !e.IsEmpty() {
		return errors.New("IsEmpty must report true immediately after Clear")
	}

	k1 := keybuilder.Build(callargs.New([]any{"validate-probe-1"}), false)
	k2 := keybuilder.Build(callargs.New([]any{"validate-probe-2"}), false)

	calls := 0
	userFn := func() (any, error) {
		calls++
		return calls, nil
	}

	v1, err := e.Execute(k1, callargs.New([]any{"validate-probe-1"}), userFn)
	if err != nil {
		return fmt.Errorf("Execute returned an error on a fresh key: %w", err)
	}
	if calls != 1 {
		return errors.New("Execute must invoke the supplied function on a miss")
	}

	if !e.Contains(k1) {
		return errors.New("Contains must report true for a key just inserted")
	}
	if e.IsEmpty() {
		return errors.New("IsEmpty must report false once an entry is present")
	}

	v1again, err := e.Execute(k1, callargs.New([]any{"validate-probe-1"}), userFn)
	if err != nil {
		return fmt.Errorf("Execute returned an error on a repeat key: %w", err)
	}
	if calls != 1 {
		return errors.New("Execute must not invoke the supplied function again on a hit")
	}
	if v1again != v1 {
		return errors.New("a hit must return the previously cached result unchanged")
	}

	seen := 0
	e.ForEach(func(Entry) bool {
		seen++
		return true
	})
	if seen == 0 {
		return errors.New("ForEach must visit at least one entry while the engine is non-empty")
	}

	if _, err := e.Execute(k2, callargs.New([]any{"validate-probe-2"}), userFn); err != nil {
		return fmt.Errorf("Execute returned an error on a second fresh key: %w", err)
	}

	removed := e.RemoveIf(func(entry Entry) bool { return true })
	if !removed {
		return errors.New("RemoveIf must report true when its predicate matches an existing entry")
	}
	if !e.IsEmpty() {
		return errors.New("RemoveIf matching every entry must leave the engine empty")
	}
	if e.Contains(k1) || e.Contains(k2) {
		return errors.New("Contains must report false for keys RemoveIf has removed")
	}

	if n := e.Purge(); n != 0 {
		return fmt.Errorf("Purge on an already-empty engine must return 0, got %d", n)
	}

	e.Clear()
	if !e.IsEmpty() {
		return errors.New("IsEmpty must report true after a final Clear")
	}

	return nil
}
