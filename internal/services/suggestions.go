package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/imagevault/backend/internal/models"
)

// SuggestionCache memoizes autocomplete results per owner and prefix.
// Invalidate bumps the owner's generation, which orphans every cached key
// for that owner; the LRU then ages them out.
type SuggestionCache struct {
	cache *expirable.LRU[string, []models.Suggestion]

	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewSuggestionCache(size int, ttl time.Duration) *SuggestionCache {
	if size <= 0 {
		size = 1024
	}
	return &SuggestionCache{
		cache:       expirable.NewLRU[string, []models.Suggestion](size, nil, ttl),
		generations: make(map[uuid.UUID]uint64),
	}
}

// Get returns the cached value and the key it was looked up under. Callers
// pass that key back to Set, so a result computed before an invalidation is
// stored under the stale generation and never served.
func (c *SuggestionCache) Get(ownerID uuid.UUID, prefix string) ([]models.Suggestion, string, bool) {
	if c == nil {
		return nil, "", false
	}
	key := c.key(ownerID, prefix)
	value, ok := c.cache.Get(key)
	if ok {
		suggestionCacheHitsTotal.Inc()
		return value, key, true
	}
	suggestionCacheMissesTotal.Inc()
	return nil, key, false
}

func (c *SuggestionCache) Set(key string, suggestions []models.Suggestion) {
	if c == nil || key == "" {
		return
	}
	c.cache.Add(key, suggestions)
}

func (c *SuggestionCache) Invalidate(ownerID uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generations[ownerID]++
	c.mu.Unlock()
}

func (c *SuggestionCache) key(ownerID uuid.UUID, prefix string) string {
	c.mu.Lock()
	generation := c.generations[ownerID]
	c.mu.Unlock()
	return fmt.Sprintf("%s:%d:%s", ownerID, generation, prefix)
}
