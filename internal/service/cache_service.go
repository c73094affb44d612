package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CacheService — потокобезопасный in-memory кэш с TTL. Используется для
// дедупликации показов продвижений в рамках сессии просмотра и для
// краткоживущего кэша списка подписок при сборке ленты.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService создаёт кэш и запускает фоновую очистку.
func NewCacheService() *CacheService {
	cs := &CacheService{
		cache: make(map[string]*cacheEntry),
	}

	go cs.cleanup()

	return cs
}

// Get возвращает значение по ключу, если оно ещё живо.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		// Удалением займётся cleanup.
		return nil, false
	}

	return entry.data, true
}

// Set сохраняет значение с TTL.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
}

// SetNX сохраняет значение, только если ключа ещё нет или он истёк.
// Возвращает true, если запись была создана этим вызовом.
func (cs *CacheService) SetNX(key string, value interface{}, ttl time.Duration) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if entry, exists := cs.cache[key]; exists && time.Now().Before(entry.expiresAt) {
		return false
	}

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
	return true
}

// Delete удаляет ключ.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// cleanup периодически удаляет протухшие записи.
func (cs *CacheService) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cs.mu.Lock()
		now := time.Now()
		for key, entry := range cs.cache {
			if now.After(entry.expiresAt) {
				delete(cs.cache, key)
			}
		}
		cs.mu.Unlock()
	}
}

// ImpressionCacheKey — ключ дедупликации показа продвижения в рамках
// одной сессии просмотра ленты.
func ImpressionCacheKey(viewerID uuid.UUID, sessionID string, promotionID uuid.UUID) string {
	return "impression:" + viewerID.String() + ":" + sessionID + ":" + promotionID.String()
}

// FollowingCacheKey — ключ кэша списка подписок зрителя.
func FollowingCacheKey(viewerID uuid.UUID) string {
	return "following:" + viewerID.String()
}
