package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestionCache(t *testing.T) {
	cache := NewSuggestionCache(16, time.Minute)
	owner := uuid.New()
	other := uuid.New()
	value := []models.Suggestion{{ID: uuid.New(), Name: "Eiffel"}}

	_, key, ok := cache.Get(owner, "eif")
	require.False(t, ok)
	cache.Set(key, value)

	got, _, ok := cache.Get(owner, "eif")
	require.True(t, ok)
	assert.Equal(t, value, got)

	_, _, ok = cache.Get(other, "eif")
	assert.False(t, ok, "entries are per owner")

	cache.Invalidate(owner)
	_, _, ok = cache.Get(owner, "eif")
	assert.False(t, ok)
}

func TestSuggestionCacheDropsStaleWrites(t *testing.T) {
	cache := NewSuggestionCache(16, time.Minute)
	owner := uuid.New()

	_, staleKey, _ := cache.Get(owner, "lou")
	cache.Invalidate(owner)
	cache.Set(staleKey, []models.Suggestion{{Name: "old"}})

	_, _, ok := cache.Get(owner, "lou")
	assert.False(t, ok, "a result computed before invalidation is never served")
}

func TestSuggestionCacheExpires(t *testing.T) {
	cache := NewSuggestionCache(16, 20*time.Millisecond)
	owner := uuid.New()

	_, key, _ := cache.Get(owner, "a")
	cache.Set(key, []models.Suggestion{})

	require.Eventually(t, func() bool {
		_, _, ok := cache.Get(owner, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNilSuggestionCache(t *testing.T) {
	var cache *SuggestionCache
	_, key, ok := cache.Get(uuid.New(), "a")
	assert.False(t, ok)
	assert.Empty(t, key)
	cache.Set(key, nil)
	cache.Invalidate(uuid.New())
}
