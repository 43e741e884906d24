package memo

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpemberton/memo/internal/diagnostics"
)

// countingIdentity returns its sole positional argument as the result, counting
// how many times it was actually invoked.
func countingIdentity(calls *int64) CallFunc[int] {
	return func(positional []any, _ []KV) (int, error) {
		atomic.AddInt64(calls, 1)
		return positional[0].(int), nil
	}
}

func TestCallMemoizesRepeatedArguments(t *testing.T) {
	var calls int64
	c, err := Attach(countingIdentity(&calls), WithCapacity(Unbounded))
	require.NoError(t, err)

	v1, err := c.Call([]any{7})
	require.NoError(t, err)
	assert.Equal(t, 7, v1)

	v2, err := c.Call([]any{7})
	require.NoError(t, err)
	assert.Equal(t, 7, v2)

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	info := c.CacheInfo()
	assert.Equal(t, uint64(1), info.Hits)
	assert.Equal(t, uint64(1), info.Misses)
}

// TestTTLExpiryScenario is spec.md §8 scenario 4: capacity 5, TTL 0.5s.
func TestTTLExpiryScenario(t *testing.T) {
	var calls int64
	c, err := Attach(countingIdentity(&calls),
		WithCapacity(5), WithAlgorithm(LRU), WithTTL(500*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Call([]any{1})
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)
	_, err = c.Call([]any{1})
	require.NoError(t, err)
	info := c.CacheInfo()
	assert.Equal(t, uint64(1), info.Hits)
	assert.Equal(t, uint64(1), info.Misses)

	time.Sleep(350 * time.Millisecond)
	_, err = c.Call([]any{1})
	require.NoError(t, err)
	info = c.CacheInfo()
	assert.Equal(t, uint64(1), info.Hits)
	assert.Equal(t, uint64(2), info.Misses)

	_, err = c.Call([]any{1})
	require.NoError(t, err)
	info = c.CacheInfo()
	assert.Equal(t, uint64(2), info.Hits)
	assert.Equal(t, uint64(2), info.Misses)
}

// TestUnhashableArgumentFallback is spec.md §8 scenario 5.
func TestUnhashableArgumentFallback(t *testing.T) {
	sliceFn := func(s []int) (int, error) {
		return len(s), nil
	}
	wrapped, err := Attach(func(positional []any, _ []KV) (int, error) {
		return sliceFn(positional[0].([]int))
	}, WithCapacity(Unbounded))
	require.NoError(t, err)

	list := []int{1, 2, 3}
	_, err = wrapped.Call([]any{list})
	require.NoError(t, err)

	list = append(list, 0)
	_, err = wrapped.Call([]any{list})
	require.NoError(t, err)

	list = []int{1, 2, 3}
	_, err = wrapped.Call([]any{list})
	require.NoError(t, err)

	info := wrapped.CacheInfo()
	assert.Equal(t, uint64(2), info.Misses)
	assert.Equal(t, uint64(1), info.Hits)
	assert.Equal(t, 2, info.CurrentSize)
}

// TestOrderIndependentKeying is spec.md §8 scenario 6.
func TestOrderIndependentKeying(t *testing.T) {
	var calls int64
	fn := func(positional []any, _ []KV) (int, error) {
		atomic.AddInt64(&calls, 1)
		return positional[0].(int) + positional[1].(int), nil
	}
	c, err := Attach(fn, WithCapacity(Unbounded), WithOrderIndependent(true))
	require.NoError(t, err)

	kv1 := KV{Name: "kwarg1", Value: map[string]int{"a": 1}}
	kv2 := KV{Name: "kwarg2", Value: []int{1, 2}}
	kv3 := KV{Name: "kwarg3", Value: "x"}
	kv4 := KV{Name: "kwarg4", Value: 4}

	_, err = c.Call([]any{1, 2}, kv1, kv2, kv3, kv4)
	require.NoError(t, err)
	_, err = c.Call([]any{1, 2}, kv4, kv3, kv2, kv1)
	require.NoError(t, err)
	_, err = c.Call([]any{1, 2}, kv2, kv4, kv1, kv3)
	require.NoError(t, err)

	info := c.CacheInfo()
	assert.Equal(t, uint64(2), info.Hits)
	assert.Equal(t, uint64(1), info.Misses)
	assert.Equal(t, 1, info.CurrentSize)
}

func TestCacheClearResetsCountersAndEntries(t *testing.T) {
	var calls int64
	c, err := Attach(countingIdentity(&calls), WithCapacity(3), WithAlgorithm(FIFO))
	require.NoError(t, err)

	_, _ = c.Call([]any{1})
	_, _ = c.Call([]any{1})
	_, _ = c.Call([]any{2})

	c.CacheClear()
	info := c.CacheInfo()
	assert.Zero(t, info.Hits)
	assert.Zero(t, info.Misses)
	assert.Zero(t, info.CurrentSize)
	assert.True(t, c.CacheIsEmpty())
}

func TestCacheContainsArgumentAndResult(t *testing.T) {
	var calls int64
	c, err := Attach(countingIdentity(&calls), WithCapacity(Unbounded))
	require.NoError(t, err)

	_, err = c.Call([]any{42})
	require.NoError(t, err)

	contains, err := c.CacheContainsArgument([]any{42})
	require.NoError(t, err)
	assert.True(t, contains)

	contains, err = c.CacheContainsArgument([]any{99})
	require.NoError(t, err)
	assert.False(t, contains)

	assert.True(t, c.CacheContainsResult(42))
	assert.False(t, c.CacheContainsResult(7))
}

func TestCacheForEachAndRemoveIf(t *testing.T) {
	var calls int64
	c, err := Attach(countingIdentity(&calls), WithCapacity(Unbounded))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = c.Call([]any{i})
	}

	seen := map[int]bool{}
	c.CacheForEach(func(args Arguments, result int, alive bool) bool {
		if alive {
			seen[result] = true
		}
		return true
	})
	assert.Len(t, seen, 5)

	removed := c.CacheRemoveIf(func(args Arguments, result int, alive bool) bool {
		return alive && result%2 == 0
	})
	assert.True(t, removed)
	assert.Equal(t, 2, c.CacheInfo().CurrentSize)
}

func TestCacheArgumentsResultsItemsSequences(t *testing.T) {
	var calls int64
	c, err := Attach(countingIdentity(&calls), WithCapacity(Unbounded))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _ = c.Call([]any{i})
	}

	var results []int
	for r := range c.CacheResults() {
		results = append(results, r)
	}
	assert.Len(t, results, 3)

	count := 0
	for range c.CacheArguments() {
		count++
	}
	assert.Equal(t, 3, count)

	items := 0
	for range c.CacheItems() {
		items++
	}
	assert.Equal(t, 3, items)
}

func TestUnderlyingFunctionErrorIsPropagatedAndNotCached(t *testing.T) {
	boom := errors.New("boom")
	var calls int64
	fn := func(_ []any, _ []KV) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 0, boom
	}
	c, err := Attach(fn, WithCapacity(Unbounded))
	require.NoError(t, err)

	_, err = c.Call([]any{1})
	assert.ErrorIs(t, err, boom)

	_, err = c.Call([]any{1})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
	assert.Equal(t, uint64(0), c.CacheInfo().Hits)
	assert.Equal(t, uint64(2), c.CacheInfo().Misses)
}

func TestAttachRejectsInvalidConfiguration(t *testing.T) {
	_, err := Attach(countingIdentity(new(int64)), WithCapacity(-2))
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAttachRejectsNegativeTTL(t *testing.T) {
	_, err := Attach(countingIdentity(new(int64)), WithTTL(-time.Second))
	assert.Error(t, err)
}

func TestAttach0WarnsOnZeroArgumentMisuse(t *testing.T) {
	var buf bytes.Buffer
	diagnostics.SetLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))
	defer diagnostics.SetLogger(zerolog.New(io.Discard))

	// No capacity/TTL bound: this is the misuse case §6 warns about, but
	// construction still succeeds.
	c, err := Attach0(func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "zero-argument")

	v, err := c.Call(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestAttach0DoesNotWarnWhenBoundOrTTLIsSet(t *testing.T) {
	var buf bytes.Buffer
	diagnostics.SetLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))
	defer diagnostics.SetLogger(zerolog.New(io.Discard))

	_, err := Attach0(func() (int, error) { return 1, nil }, WithCapacity(4), WithAlgorithm(LRU))
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "a bounded capacity gives the wrapper somewhere to evict to, so no warning should fire")

	buf.Reset()
	_, err = Attach0(func() (int, error) { return 1, nil }, WithTTL(time.Second))
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "an active TTL gives the wrapper somewhere to expire to, so no warning should fire")
}

// TestConcurrentIdenticalKeyMisses stresses the drop-and-recheck
// protocol (§5, Design Notes): many goroutines racing the same key's
// first miss must all observe a successfully cached, consistent result.
func TestConcurrentIdenticalKeyMisses(t *testing.T) {
	var calls int64
	fn := func(positional []any, _ []KV) (int, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(time.Millisecond)
		return positional[0].(int) * 2, nil
	}
	c, err := Attach(fn, WithCapacity(8), WithAlgorithm(LFU))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Call([]any{21})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	assert.True(t, atomic.LoadInt64(&calls) >= 1)
	assert.Equal(t, 1, c.CacheInfo().CurrentSize)
}

func TestWithActiveSweepReclaimsExpiredEntries(t *testing.T) {
	var calls int64
	c, err := Attach(countingIdentity(&calls),
		WithCapacity(Unbounded), WithTTL(20*time.Millisecond), WithActiveSweep(10*time.Millisecond))
	require.NoError(t, err)
	defer c.Stop()

	_, err = c.Call([]any{1})
	require.NoError(t, err)
	require.Equal(t, 1, c.CacheInfo().CurrentSize)

	assert.Eventually(t, func() bool {
		return c.CacheInfo().CurrentSize == 0
	}, time.Second, 5*time.Millisecond)
}
