package utils

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// TTLCache 带过期时间的本地 LRU 缓存，只用于展示数据
type TTLCache struct {
	lruCache *lru.Cache[string, CacheItem]
	now      func() time.Time
}

func NewTTLCache(size int) (*TTLCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache{lruCache: l, now: time.Now}, nil
}

// Set 设置缓存，TTL 为过期时间
func (c *TTLCache) Set(key string, data any, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Get 获取缓存，不存在或已过期返回 nil, false
func (c *TTLCache) Get(key string) (any, bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil, false
	}
	return val.Data, true
}

func (c *TTLCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// DeletePrefix 删除所有以 prefix 开头的缓存，比赛结算后用来清掉相关列表
func (c *TTLCache) DeletePrefix(prefix string) {
	for _, key := range c.lruCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lruCache.Remove(key)
		}
	}
}
