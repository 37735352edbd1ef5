package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of programs kept when no size is configured
const DefaultCacheSize = 256

// cacheKey ties a cached program to the exact source content it came from,
// so a re-indexed source never serves a stale tree.
type cacheKey struct {
	sourceID int64
	hash     [32]byte
}

// ProgramCache provides in-memory LRU caching of stored programs. Cached
// programs are shared; callers must treat them as read-only.
type ProgramCache struct {
	cache *lru.Cache[cacheKey, *StoredProgram]
}

// NewProgramCache creates a program cache with LRU eviction
func NewProgramCache(maxLen int) *ProgramCache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *StoredProgram](maxLen)
	if err != nil {
		cache, _ = lru.New[cacheKey, *StoredProgram](DefaultCacheSize)
	}
	return &ProgramCache{cache: cache}
}

// Get returns the cached program for a source at the given content hash
func (c *ProgramCache) Get(sourceID int64, hash [32]byte) (*StoredProgram, bool) {
	return c.cache.Get(cacheKey{sourceID: sourceID, hash: hash})
}

// Add stores a program under its source and content hash
func (c *ProgramCache) Add(sourceID int64, hash [32]byte, prog *StoredProgram) {
	c.cache.Add(cacheKey{sourceID: sourceID, hash: hash}, prog)
}

// Fetch reads a source's program through the cache
func (c *ProgramCache) Fetch(ctx context.Context, st Storage, source *Source) (*StoredProgram, error) {
	if prog, ok := c.Get(source.ID, source.ContentHash); ok {
		return prog, nil
	}
	prog, err := st.FetchProgram(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	c.Add(source.ID, source.ContentHash, prog)
	return prog, nil
}

// Len returns the number of cached programs
func (c *ProgramCache) Len() int {
	return c.cache.Len()
}

// Purge drops every cached program
func (c *ProgramCache) Purge() {
	c.cache.Purge()
}
