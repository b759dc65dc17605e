package parse

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	path    string
	modTime int64
	size    int64
	lang    Language
}

// Cache holds parsed files keyed by path, modification time and size. A nil
// *Cache disables caching.
type Cache struct {
	entries *lru.Cache[cacheKey, *Facts]
}

// NewCache returns a cache holding at most size files.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[cacheKey, *Facts](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func (c *Cache) get(key cacheKey) (*Facts, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

func (c *Cache) put(key cacheKey, facts *Facts) {
	if c == nil {
		return
	}
	c.entries.Add(key, facts)
}
