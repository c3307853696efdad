package cachex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetSetDelete(t *testing.T) {
	t.Parallel()

	c := NewTTL[string](time.Minute)

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	c.Delete("k")
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	c := NewTTL[int](time.Minute)
	current := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("k", 42)

	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 42, got)

	current = current.Add(2 * time.Minute)
	_, ok = c.Get("k")
	require.False(t, ok, "entry must expire after TTL")
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	t.Parallel()

	c := NewTTL[int](time.Minute)
	current := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("old", 1)
	current = current.Add(3 * time.Minute)
	c.Set("new", 2) // triggers sweep

	c.mu.Lock()
	_, stillThere := c.entries["old"]
	c.mu.Unlock()
	require.False(t, stillThere, "sweep on write must drop expired entries")
}
