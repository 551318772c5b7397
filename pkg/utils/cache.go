package utils

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a size-bounded cache with per-entry TTL, used for
// synthesized audio and other small binary payloads.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

// GlobalCache is the process-wide cache, set up once at startup
var GlobalCache *Cache

// InitGlobalCache initializes the global cache
func InitGlobalCache(size int, ttl time.Duration) {
	GlobalCache = NewCache(size, ttl)
}

// NewCache creates a cache holding at most size entries, each expiring after ttl
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// Get returns the cached value for key and whether it was present
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Set stores value under key, evicting the oldest entry when full
func (c *Cache) Set(key string, value []byte) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(key, value)
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
