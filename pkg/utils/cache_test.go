package utils

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(4, time.Minute)
	c.Set("k", []byte("v"))

	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("unexpected hit for a missing key")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache(2, time.Minute)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry survived past capacity")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry missing")
	}
}

func TestCacheExpires(t *testing.T) {
	c := NewCache(4, 20*time.Millisecond)
	c.Set("k", []byte("v"))

	time.Sleep(150 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived past its ttl")
	}
}

func TestCacheNilSafe(t *testing.T) {
	var c *Cache
	c.Set("k", []byte("v"))
	if _, ok := c.Get("k"); ok {
		t.Error("nil cache returned a value")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}
