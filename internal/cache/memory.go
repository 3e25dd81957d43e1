package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"loterias-bot/internal/logger"
)

// ErrMiss 缓存未命中或已过期
var ErrMiss = errors.New("cache miss")

// memoryItem 内存缓存项，值在写入时序列化保存
type memoryItem struct {
	data      []byte
	expiresAt time.Time
	createdAt time.Time
}

func (item *memoryItem) expired(now time.Time) bool {
	return now.After(item.expiresAt)
}

// MemoryStats 缓存统计
type MemoryStats struct {
	Size    int   `json:"size"`
	MaxSize int   `json:"max_size"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// MemoryCache 带TTL的内存缓存，读取时返回独立副本
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	maxSize int
	hits    int64
	misses  int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache 创建新的内存缓存，cleanupInterval<=0时不启动清理协程
func NewMemoryCache(maxSize int, cleanupInterval time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	cache := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go cache.startCleanup(cleanupInterval)
	}

	logger.Debugf("Memory cache initialized (max %d items)", maxSize)
	return cache
}

// Set 设置缓存值
func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxSize {
		m.evictOldestLocked()
	}
	m.items[key] = &memoryItem{data: data, expiresAt: now.Add(ttl), createdAt: now}

	logger.Debugf("Memory cache set: %s", key)
	return nil
}

// Get 获取缓存值到dest，未命中或过期时返回ErrMiss
func (m *MemoryCache) Get(key string, dest interface{}) error {
	m.mu.Lock()
	item, exists := m.items[key]
	if exists && item.expired(time.Now()) {
		delete(m.items, key)
		exists = false
	}
	m.mu.Unlock()

	if !exists {
		atomic.AddInt64(&m.misses, 1)
		return ErrMiss
	}

	if err := json.Unmarshal(item.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value %s: %w", key, err)
	}

	atomic.AddInt64(&m.hits, 1)
	logger.Debugf("Memory cache hit: %s", key)
	return nil
}

// Delete 删除缓存
func (m *MemoryCache) Delete(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
}

// DeletePrefix 删除指定前缀的缓存，返回删除数量
func (m *MemoryCache) DeletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
			count++
		}
	}
	if count > 0 {
		logger.Debugf("Memory cache deleted by prefix: %s, count: %d", prefix, count)
	}
	return count
}

// Clear 清空所有缓存
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	m.items = make(map[string]*memoryItem)
	m.mu.Unlock()
	logger.Debug("Memory cache cleared")
}

// Len 当前缓存项数量（含未清理的过期项）
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stats 获取缓存统计信息
func (m *MemoryCache) Stats() MemoryStats {
	return MemoryStats{
		Size:    m.Len(),
		MaxSize: m.maxSize,
		Hits:    atomic.LoadInt64(&m.hits),
		Misses:  atomic.LoadInt64(&m.misses),
	}
}

// Close 停止清理协程
func (m *MemoryCache) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// startCleanup 定期清理过期缓存
func (m *MemoryCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.stop:
			return
		}
	}
}

// cleanupExpired 清理过期的缓存项
func (m *MemoryCache) cleanupExpired() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, item := range m.items {
		if item.expired(now) {
			delete(m.items, key)
			count++
		}
	}
	if count > 0 {
		logger.Debugf("Memory cache cleanup: removed %d expired items", count)
	}
	return count
}

// evictOldestLocked 淘汰最早写入的缓存项，调用方持有锁
func (m *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range m.items {
		if oldestKey == "" || item.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.createdAt
		}
	}

	if oldestKey != "" {
		delete(m.items, oldestKey)
		logger.Debugf("Memory cache evicted oldest: %s", oldestKey)
	}
}
