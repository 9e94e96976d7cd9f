package build

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// StyleCache keeps generated style modules between rebuilds, keyed by path
// and validated by a hash of the source. Entries are evicted least recently
// used first once the total code size passes maxSize.
type StyleCache struct {
	entries     map[string]*cacheEntry
	mutex       sync.Mutex
	maxSize     int64
	currentSize int64
	head        *cacheEntry
	tail        *cacheEntry

	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	key  string
	hash string
	code string
	// deps are other files the code was generated from, such as @import-ed
	// stylesheets.
	deps []string
	size int64
	prev *cacheEntry
	next *cacheEntry
}

// DefaultStyleCacheSize bounds the cache at 32 MiB of generated code.
const DefaultStyleCacheSize = 32 << 20

// NewStyleCache creates a cache holding at most maxSize bytes of code.
func NewStyleCache(maxSize int64) *StyleCache {
	c := &StyleCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		head:    &cacheEntry{},
		tail:    &cacheEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// SourceHash returns the cache validation hash of a stylesheet source.
func SourceHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached code for path if it was generated from a source
// with the given hash.
func (c *StyleCache) Get(path, hash string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[path]
	if !ok || entry.hash != hash {
		atomic.AddInt64(&c.misses, 1)
		return "", false
	}
	c.moveToFront(entry)
	atomic.AddInt64(&c.hits, 1)
	return entry.code, true
}

// Set stores code for path, remembering the files it also depends on. Code
// larger than the cache itself is not kept.
func (c *StyleCache) Set(path, hash, code string, deps ...string) {
	size := int64(len(code))
	if size > c.maxSize {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, ok := c.entries[path]; ok {
		c.removeFromList(existing)
		delete(c.entries, path)
		c.currentSize -= existing.size
	}

	for c.currentSize+size > c.maxSize && c.tail.prev != c.head {
		lru := c.tail.prev
		c.removeFromList(lru)
		delete(c.entries, lru.key)
		c.currentSize -= lru.size
		atomic.AddInt64(&c.evictions, 1)
	}

	entry := &cacheEntry{key: path, hash: hash, code: code, deps: deps, size: size}
	c.entries[path] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// InvalidateFile drops the entries generated from file by any rule, and the
// entries that imported it.
func (c *StyleCache) InvalidateFile(file string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, entry := range c.entries {
		path := key
		if _, p, ok := strings.Cut(key, ":"); ok {
			path = p
		}
		if path == file || slices.Contains(entry.deps, file) {
			c.removeFromList(entry)
			delete(c.entries, key)
			c.currentSize -= entry.size
		}
	}
}

// Purge drops every entry but keeps the statistics. Sass sources can import
// each other, so a change to one may stale any cached module.
func (c *StyleCache) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.currentSize = 0
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns the entry count and current size in bytes.
func (c *StyleCache) Stats() (int, int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries), c.currentSize
}

// Hits returns the number of cache hits.
func (c *StyleCache) Hits() int64 { return atomic.LoadInt64(&c.hits) }

// Misses returns the number of cache misses.
func (c *StyleCache) Misses() int64 { return atomic.LoadInt64(&c.misses) }

// Evictions returns the number of evicted entries.
func (c *StyleCache) Evictions() int64 { return atomic.LoadInt64(&c.evictions) }

func (c *StyleCache) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *StyleCache) removeFromList(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *StyleCache) moveToFront(entry *cacheEntry) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
