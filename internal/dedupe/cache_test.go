package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phpscreening/screener/internal/dedupe"
)

func TestCacheSeenDuplicateEvent(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.IsSeen("evt-1"))
	cache.MarkSeen("evt-1")
	require.True(t, cache.IsSeen("evt-1"))
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := dedupe.NewCache(10, 20*time.Millisecond)
	cache.MarkSeen("evt-2")
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.IsSeen("evt-2"))
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.NewCache(2, time.Minute)
	cache.MarkSeen("a")
	cache.MarkSeen("b")
	cache.MarkSeen("a")
	cache.MarkSeen("c")

	require.Equal(t, 2, cache.Len())
	require.False(t, cache.IsSeen("b"))
	require.True(t, cache.IsSeen("a"))
	require.True(t, cache.IsSeen("c"))
}
