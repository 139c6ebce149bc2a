package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d (ok=%v)", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheExpiresEntries(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, 30*time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(31 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected k to be expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed on read")
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("u1|2024-03|3", 1)
	c.Set("u1|2024-04|3", 2)
	c.Set("u2|2024-03|3", 3)

	if removed := c.DeletePrefix("u1|2024-03|"); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if removed := c.DeletePrefix("u1|"); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get("u2|2024-03|3"); !ok {
		t.Fatalf("other user's entry must survive")
	}
}

func TestJanitorSweep(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Second)
	c.Set("c", 3)

	j := NewJanitor(nil, c)
	if removed := j.Sweep(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if c.Size() != 1 {
		t.Fatalf("expected 1 entry left, got %d", c.Size())
	}
}
