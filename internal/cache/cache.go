package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	defaultShardCount      = 4
	defaultTTL             = time.Minute
	defaultCleanupInterval = time.Minute
)

// Item is a cached value with its expiration
type Item struct {
	Value     interface{}
	ExpiresAt time.Time
}

// IsExpired checks whether the item has outlived its TTL
func (item *Item) IsExpired() bool {
	return time.Now().After(item.ExpiresAt)
}

type shard struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// ShardedCache is a small sharded TTL cache. It keeps archive scan results
// (endpoint lists, directory trees) so that the four-level filesystem walk
// is not repeated on every workflow poll.
type ShardedCache struct {
	shards []*shard
	ttl    time.Duration

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	cleanupOnce sync.Once
	stopOnce    sync.Once
}

// NewShardedCache creates a cache with shardCount shards and a TTL in seconds
func NewShardedCache(shardCount int, ttlSeconds int) *ShardedCache {
	if shardCount < 1 {
		shardCount = defaultShardCount
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{items: make(map[string]*Item)}
	}

	return &ShardedCache{
		shards:      shards,
		ttl:         ttl,
		cleanupStop: make(chan struct{}),
	}
}

func (c *ShardedCache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the cached value for key if present and not expired
func (c *ShardedCache) Get(key string) (interface{}, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || item.IsExpired() {
		return nil, false
	}
	return item.Value, true
}

// Set stores value under key with the cache-wide TTL
func (c *ShardedCache) Set(key string, value interface{}) {
	s := c.shardFor(key)
	s.mu.Lock()
	s.items[key] = &Item{
		Value:     value,
		ExpiresAt: time.Now().Add(c.ttl),
	}
	s.mu.Unlock()
}

// Delete removes key from the cache
func (c *ShardedCache) Delete(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Purge drops every entry. Used after writes that invalidate whole scans.
func (c *ShardedCache) Purge() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.items = make(map[string]*Item)
		s.mu.Unlock()
	}
}

// CleanExpired removes all expired items
func (c *ShardedCache) CleanExpired() {
	for _, s := range c.shards {
		s.mu.Lock()
		for key, item := range s.items {
			if item.IsExpired() {
				delete(s.items, key)
			}
		}
		s.mu.Unlock()
	}
}

// StartCleanupWorker starts the background janitor goroutine
func (c *ShardedCache) StartCleanupWorker() {
	c.cleanupOnce.Do(func() {
		c.cleanupWg.Add(1)
		go func() {
			defer c.cleanupWg.Done()
			ticker := time.NewTicker(defaultCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-c.cleanupStop:
					return
				case <-ticker.C:
					c.CleanExpired()
				}
			}
		}()
	})
}

// StopCleanupWorker stops the janitor and waits for it to exit
func (c *ShardedCache) StopCleanupWorker() {
	c.stopOnce.Do(func() {
		close(c.cleanupStop)
		c.cleanupWg.Wait()
	})
}
