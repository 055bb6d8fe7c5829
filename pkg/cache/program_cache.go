// Package cache provides a ProgramCache backed by github.com/patrickmn/go-cache
// so compiled rule programs expire when unused.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// ProgramCache stores compiled expression programs. It satisfies
// assoc.ProgramCache and is safe for concurrent use.
type ProgramCache struct {
	cache *gocache.Cache
}

// NewProgramCache builds a cache. Non-positive durations fall back to the
// package defaults.
func NewProgramCache(expiration, cleanup time.Duration) *ProgramCache {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	if cleanup <= 0 {
		cleanup = DefaultCleanupInterval
	}
	return &ProgramCache{cache: gocache.New(expiration, cleanup)}
}

// Get returns the program stored under key. Reads refresh nothing; an entry
// expires a fixed time after it was set.
func (c *ProgramCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *ProgramCache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.cache.SetDefault(key, value)
}

// Len reports the number of unexpired entries.
func (c *ProgramCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.ItemCount()
}

// Flush drops every entry.
func (c *ProgramCache) Flush() {
	if c == nil {
		return
	}
	c.cache.Flush()
}
