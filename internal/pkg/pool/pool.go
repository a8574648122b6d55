package pool

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCache L1 byte cache; callers own serialization
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache create bigcache instance
// capacityMB: hard cap in MB, 0 for unbounded
// expiration: entry lifetime
func NewBigCache(capacityMB int, expiration time.Duration) (*BigCache, error) {
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}
	config := bigcache.DefaultConfig(expiration)
	config.Shards = 64
	config.MaxEntriesInWindow = 10000
	config.MaxEntrySize = 512
	config.HardMaxCacheSize = capacityMB
	config.Verbose = false

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}
	return &BigCache{cache: cache}, nil
}

// Get raw bytes for key
func (c *BigCache) Get(key string) ([]byte, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set store raw bytes
func (c *BigCache) Set(key string, value []byte) error {
	return c.cache.Set(key, value)
}

// Remove delete key, missing keys are ignored
func (c *BigCache) Remove(key string) error {
	err := c.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Len number of entries
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Flush drop everything
func (c *BigCache) Flush() error {
	return c.cache.Reset()
}

// Close stop the cleanup goroutine
func (c *BigCache) Close() error {
	return c.cache.Close()
}

// GetJSON decode a cached JSON value; false on miss or decode failure
func GetJSON[T any](c *BigCache, key string) (T, bool) {
	var v T
	if c == nil {
		return v, false
	}
	data, ok := c.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON encode and cache a value
func SetJSON[T any](c *BigCache, key string, v T) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data)
}
