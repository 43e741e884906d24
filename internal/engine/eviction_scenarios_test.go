package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpemberton/memo/internal/callargs"
	"github.com/mpemberton/memo/internal/keybuilder"
	"github.com/mpemberton/memo/internal/valuewrap"
)

// callIt drives e through one memoized call for an integer argument,
// the way wrapper.go's Cached.Call builds a key and invokes Execute.
func callIt(t *testing.T, e Engine, n int) {
	t.Helper()
	args := callargs.New([]any{n})
	key := keybuilder.Build(args, false)
	_, err := e.Execute(key, args, func() (any, error) { return n, nil })
	require.NoError(t, err)
}

func aliveKeys(e Engine) map[int]bool {
	out := map[int]bool{}
	e.ForEach(func(entry Entry) bool {
		if entry.Alive {
			out[entry.Result.(int)] = true
		}
		return true
	})
	return out
}

func traversalOrder(e Engine) []int {
	var out []int
	e.ForEach(func(entry Entry) bool {
		out = append(out, entry.Result.(int))
		return true
	})
	return out
}

// scenarioPrelude runs f(0)..f(19) then f(99) against a capacity-5
// engine, matching spec.md §8 scenario 1-3's shared setup.
func scenarioPrelude(t *testing.T, e Engine) {
	t.Helper()
	for n := 0; n <= 19; n++ {
		callIt(t, e, n)
	}
	callIt(t, e, 99)
}

// scenarioBatch drives the second round of calls §8 scenarios 1-3 share:
// 16,17,18,16,17,18,19,15,100,16.
func scenarioBatch(t *testing.T, e Engine) {
	t.Helper()
	for _, n := range []int{16, 17, 18, 16, 17, 18, 19, 15, 100, 16} {
		callIt(t, e, n)
	}
}

func TestFIFOEvictionScenario(t *testing.T) {
	e := NewFIFO(5, valuewrap.Maker{}, Meta{})
	scenarioPrelude(t, e)

	info := e.Info()
	require.Equal(t, uint64(21), info.Misses)
	require.Equal(t, 5, info.CurrentSize)
	assert.Equal(t, map[int]bool{16: true, 17: true, 18: true, 19: true, 99: true}, aliveKeys(e))

	scenarioBatch(t, e)

	info = e.Info()
	assert.Equal(t, uint64(7), info.Hits)
	assert.Equal(t, uint64(24), info.Misses)
	assert.Equal(t, map[int]bool{16: true, 100: true, 15: true, 99: true, 19: true}, aliveKeys(e))
	assert.Equal(t, []int{16, 100, 15, 99, 19}, traversalOrder(e))
}

func TestLRUEvictionScenario(t *testing.T) {
	e := NewLRU(5, valuewrap.Maker{}, Meta{})
	scenarioPrelude(t, e)
	scenarioBatch(t, e)

	info := e.Info()
	assert.Equal(t, uint64(7), info.Hits)
	assert.Equal(t, uint64(24), info.Misses)
	assert.Equal(t, map[int]bool{16: true, 100: true, 15: true, 19: true, 18: true}, aliveKeys(e))
	assert.Equal(t, []int{16, 100, 15, 19, 18}, traversalOrder(e))
}

func TestLFUEvictionScenario(t *testing.T) {
	e := NewLFU(5, valuewrap.Maker{}, Meta{})
	scenarioPrelude(t, e)
	scenarioBatch(t, e)

	info := e.Info()
	assert.Equal(t, uint64(8), info.Hits)
	assert.Equal(t, uint64(23), info.Misses)
	assert.Equal(t, map[int]bool{18: true, 17: true, 16: true, 19: true, 100: true}, aliveKeys(e))
	assert.Equal(t, []int{16, 18, 17, 19, 100}, traversalOrder(e))
}

func TestPlainEngineNeverEvicts(t *testing.T) {
	e := NewPlain(valuewrap.Maker{}, Meta{})
	for n := 0; n < 200; n++ {
		callIt(t, e, n)
	}
	info := e.Info()
	assert.Equal(t, 200, info.CurrentSize)
	assert.Equal(t, -1, info.MaxSize)
	assert.False(t, e.IsFull())
}

func TestNoopEngineStoresNothing(t *testing.T) {
	e := NewNoop(valuewrap.Maker{}, Meta{})
	for i := 0; i < 3; i++ {
		callIt(t, e, 1)
	}
	info := e.Info()
	assert.Equal(t, uint64(0), info.Hits)
	assert.Equal(t, uint64(3), info.Misses)
	assert.True(t, e.IsEmpty())
}

func TestRemoveIfMaintainsLFUBucketInvariant(t *testing.T) {
	e := NewLFU(10, valuewrap.Maker{}, Meta{})
	for n := 0; n < 6; n++ {
		callIt(t, e, n)
	}
	// Promote even keys twice so buckets span frequencies 1-3.
	for _, n := range []int{0, 2, 4, 0, 2, 4} {
		callIt(t, e, n)
	}

	removed := e.RemoveIf(func(entry Entry) bool { return entry.Result.(int)%2 == 1 })
	require.True(t, removed)

	for n := 1; n < 6; n += 2 {
		assert.False(t, e.Contains(keybuilder.Build(callargs.New([]any{n}), false)), "odd key %d must be removed", n)
	}
	for _, n := range []int{0, 2, 4} {
		assert.True(t, e.Contains(keybuilder.Build(callargs.New([]any{n}), false)), "even key %d must survive", n)
	}

	// A further access must still promote correctly — buckets weren't
	// left in a broken state by the removal walk.
	callIt(t, e, 0)
	info := e.Info()
	assert.Equal(t, 3, info.CurrentSize)
}
