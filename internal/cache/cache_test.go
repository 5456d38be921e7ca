package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for deterministic expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestSetThenGetWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Minute, clock.Now)

	c.Set("series:all", "payload")

	got, ok := c.Get("series:all")
	require.True(t, ok)
	assert.Equal(t, "payload", got)
}

func TestGetAfterExpiryRemovesEntry(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Minute, clock.Now)

	c.Set("series:all", "payload")
	clock.Advance(time.Minute + time.Second)

	_, ok := c.Get("series:all")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be deleted on read")
}

func TestGetAtExactExpiryStillHits(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, clock.Now)

	c.Set("k", 7)
	clock.Advance(time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok, "now == expires_at is still a hit")
	assert.Equal(t, 7, got)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	clock := newFakeClock()
	c := New[string](0, clock.Now)

	c.Set("k", "v")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestNegativeTTLDisablesCaching(t *testing.T) {
	c := New[string](-time.Second, nil)
	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestSetRefreshesExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Minute, clock.Now)

	c.Set("k", "old")
	clock.Advance(45 * time.Second)
	c.Set("k", "new")
	clock.Advance(30 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestInvalidate(t *testing.T) {
	c := New[string](time.Minute, nil)
	c.Set("k", "v")
	c.Invalidate("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestConcurrentDistinctKeys(t *testing.T) {
	c := New[int](time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("slug-%d", i)
			c.Set(key, i)
			got, ok := c.Get(key)
			assert.True(t, ok)
			assert.Equal(t, i, got)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 32, c.Len())
}
