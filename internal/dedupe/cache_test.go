// ABOUTME: Tests for the delivered-key cache.
// ABOUTME: Validates TTL expiry, eviction order, ForgetFunc and concurrent marking.

package dedupe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type seqKey struct {
	conv string
	seq  int
}

func TestCache_MarkAndCheck(t *testing.T) {
	cache := New[seqKey](5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.Check(seqKey{"c1", 1}))

	cache.Mark(seqKey{"c1", 1})

	assert.True(t, cache.Check(seqKey{"c1", 1}))
	assert.False(t, cache.Check(seqKey{"c1", 2}), "different sequence is a different key")
	assert.False(t, cache.Check(seqKey{"c2", 1}), "different conversation is a different key")
}

func TestCache_Expired(t *testing.T) {
	cache := New[string](10*time.Millisecond, 100)
	defer cache.Close()

	cache.Mark("k")
	assert.True(t, cache.Check("k"))

	time.Sleep(20 * time.Millisecond)

	assert.False(t, cache.Check("k"))
	cache.Mark("k")
	assert.True(t, cache.Check("k"), "re-marking an expired key refreshes it")
}

func TestCache_EvictionOrder(t *testing.T) {
	cache := New[int](5*time.Minute, 3)
	defer cache.Close()

	cache.Mark(1)
	cache.Mark(2)
	cache.Mark(3)
	cache.Mark(1) // refresh moves 1 to the back

	cache.Mark(4)

	assert.False(t, cache.Check(2), "oldest untouched key is evicted")
	assert.True(t, cache.Check(1))
	assert.True(t, cache.Check(3))
	assert.True(t, cache.Check(4))
	assert.Len(t, cache.seen, 3)
}

func TestCache_ForgetFunc(t *testing.T) {
	cache := New[seqKey](5*time.Minute, 10)
	defer cache.Close()

	cache.Mark(seqKey{"c1", 1})
	cache.Mark(seqKey{"c1", 2})
	cache.Mark(seqKey{"c2", 1})

	removed := cache.ForgetFunc(func(k seqKey) bool { return k.conv == "c1" })

	assert.Equal(t, 2, removed)
	assert.False(t, cache.Check(seqKey{"c1", 1}))
	assert.False(t, cache.Check(seqKey{"c1", 2}))
	assert.True(t, cache.Check(seqKey{"c2", 1}))
	assert.Len(t, cache.seen, 1)
	assert.Equal(t, 1, cache.order.Len())

	assert.Equal(t, 0, cache.ForgetFunc(func(seqKey) bool { return false }))
}

func TestCache_RunCleanup(t *testing.T) {
	cache := New[string](10*time.Millisecond, 100)
	defer cache.Close()

	cache.Mark("x")
	cache.Mark("y")
	time.Sleep(20 * time.Millisecond)

	cache.runCleanup()

	assert.Empty(t, cache.seen)
}

func TestCache_ConcurrentMarkAndCheck(t *testing.T) {
	cache := New[seqKey](5*time.Minute, 50)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := seqKey{"c1", i % 10}
			cache.Mark(key)
			assert.True(t, cache.Check(key))
		}()
	}
	wg.Wait()

	assert.Len(t, cache.seen, 10)
}

func TestCache_CloseTwice(t *testing.T) {
	cache := New[string](time.Minute, 10)
	cache.Close()
	cache.Close()
}
