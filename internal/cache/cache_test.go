package cache

import (
	"fmt"
	"testing"
	"time"
)

func newTestCache(t *testing.T, maxSize int, ttl time.Duration) *Cache[string] {
	t.Helper()
	c, err := New[string]("test", maxSize, ttl, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error creating cache: %v", err)
	}
	t.Cleanup(c.Dispose)
	return c
}

func TestCache_GetSet(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != "alpha" {
		t.Errorf("expected %q, got %q", "alpha", got)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestCache_InvalidMaxSize(t *testing.T) {
	if _, err := New[int]("bad", 0, time.Minute, 0, nil); err == nil {
		t.Error("expected error for zero max size")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	c.SetWithTTL("short", "v", 10*time.Millisecond)
	if _, ok := c.Get("short"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected expired entry to be unreachable via Get")
	}
	if c.Len() != 0 {
		t.Errorf("expected lazy removal on read, len = %d", c.Len())
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := newTestCache(t, 10, 0)

	c.Set("forever", "v")
	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get("forever"); !ok {
		t.Error("entry with zero TTL must not expire")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := newTestCache(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}

	// Touch k0 so k1 becomes least recently used.
	if _, ok := c.Get("k0"); !ok {
		t.Fatal("expected hit for k0")
	}

	c.Set("k3", "v")

	if _, ok := c.Get("k1"); ok {
		t.Error("expected least-recently-used k1 to be evicted")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to survive eviction", key)
		}
	}
	if stats := c.Stats(); stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestCache_Sweep(t *testing.T) {
	c, err := New[string]("sweep", 10, 10*time.Millisecond, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Dispose()

	c.Set("a", "v")
	c.Set("b", "v")

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Errorf("expected sweep to remove expired entries, len = %d", c.Len())
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	c.Set("a", "v")
	c.Set("b", "v")

	if !c.Delete("a") {
		t.Error("expected Delete to report presence")
	}
	if c.Delete("a") {
		t.Error("expected second Delete to report absence")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, len = %d", c.Len())
	}
}

func TestCache_DisposeIdempotent(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)
	c.Dispose()
	c.Dispose() // must not panic

	c.Set("a", "v")
	if _, ok := c.Get("a"); !ok {
		t.Error("cache must remain readable after Dispose")
	}
}
