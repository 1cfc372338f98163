package identity

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	user       models.User
	insertedAt time.Time
	element    *list.Element
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// PrincipalCache is an in-memory LRU cache with TTL for resolved users.
// Entries are copies; callers cannot mutate cached state.
type PrincipalCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewPrincipalCache creates a new PrincipalCache with specified max size and TTL
func NewPrincipalCache(maxSize int, ttl time.Duration) *PrincipalCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &PrincipalCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached user, or nil if not found or expired
func (c *PrincipalCache) Get(id uuid.UUID) *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[id]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(id)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	user := entry.user
	return &user
}

// Set stores a copy of the user
func (c *PrincipalCache) Set(user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[user.ID]; exists {
		entry.user = *user
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{user: *user, insertedAt: time.Now()}
	entry.element = c.lruList.PushFront(user.ID)
	c.entries[user.ID] = entry
}

// Invalidate drops a user, typically after an update or delete
func (c *PrincipalCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(id)
}

// Clear removes all entries from the cache
func (c *PrincipalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns cache statistics
func (c *PrincipalCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// must be called with lock held
func (c *PrincipalCache) removeEntry(id uuid.UUID) {
	if entry, exists := c.entries[id]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, id)
	}
}

// must be called with lock held
func (c *PrincipalCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(uuid.UUID)
	c.lruList.Remove(back)
	delete(c.entries, id)
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (c *PrincipalCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := make([]uuid.UUID, 0)
	for id, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		c.removeEntry(id)
	}
	return len(expired)
}

// StartCleanupWorker periodically drops expired entries until stopCh is closed
func (c *PrincipalCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
