package cache

import (
	"errors"
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// "b" is now least recently used and must be evicted.
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
}

func TestLRUInvalidate(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("k", 7)
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to be gone after Invalidate")
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New[int](10, time.Minute)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrCompute(c, "k", compute)
		if err != nil || v != 42 {
			t.Fatalf("GetOrCompute = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New[int](10, time.Minute)
	calls := 0
	boom := errors.New("boom")
	compute := func() (int, error) {
		calls++
		return 0, boom
	}

	for i := 0; i < 2; i++ {
		if _, err := GetOrCompute(c, "k", compute); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("errors must not be cached, compute ran %d times", calls)
	}
}

func TestNilCacheIsPassthrough(t *testing.T) {
	var c *LRU[int]

	c.Set("k", 1)
	if _, ok := c.Get("k"); ok {
		t.Error("nil cache must always miss")
	}
	c.Invalidate("k")
	if c.Size() != 0 || c.CleanExpired() != 0 {
		t.Error("nil cache must be empty")
	}

	v, err := GetOrCompute(c, "k", func() (int, error) { return 9, nil })
	if err != nil || v != 9 {
		t.Errorf("GetOrCompute via nil cache = %d, %v", v, err)
	}
}
