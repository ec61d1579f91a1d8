// Package cache provides an in-process LRU cache in front of the graph
// store's content-addressed blob reads, avoiding repeated disk reads for
// hot chunks during a rehydration BFS.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultBlobCacheSize bounds the number of cached blobs by count, not
// bytes; chunk bodies are expected to be small (sub-file granularity).
const DefaultBlobCacheSize = 2048

// BlobCache caches chunk-id -> content-bytes lookups.
type BlobCache struct {
	cache *lru.Cache[string, []byte]
}

// New builds a BlobCache holding up to size entries (DefaultBlobCacheSize
// if size <= 0).
func New(size int) *BlobCache {
	if size <= 0 {
		size = DefaultBlobCacheSize
	}
	c, _ := lru.New[string, []byte](size)
	return &BlobCache{cache: c}
}

// Get returns the cached bytes for chunkID, if present.
func (b *BlobCache) Get(chunkID string) ([]byte, bool) {
	return b.cache.Get(chunkID)
}

// Put caches content for chunkID.
func (b *BlobCache) Put(chunkID string, content []byte) {
	b.cache.Add(chunkID, content)
}

// Evict drops chunkID from the cache, used when a blob fails its
// content-hash verification on read.
func (b *BlobCache) Evict(chunkID string) {
	b.cache.Remove(chunkID)
}

// Len reports the current number of cached entries.
func (b *BlobCache) Len() int {
	return b.cache.Len()
}
