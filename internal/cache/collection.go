package cache

import (
	"errors"
	"os"
	"time"

	"atomkit/lib/fileio"
)

const CacheTimeKey = "cache_time"

func cacheTime(item map[string]any) int64 {
	switch v := item[CacheTimeKey].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// ListCache is a json file holding a list of objects, each stamped with
// the unix time it was added at.
type ListCache struct {
	File string
	TTL  time.Duration
	now  func() time.Time
}

func NewListCache(file string, ttl time.Duration) ListCache {
	return ListCache{File: file, TTL: ttl, now: time.Now}
}

func (c ListCache) point() int64 {
	return c.now().Add(-c.TTL).Unix()
}

// Load returns the items added within TTL.
func (c ListCache) Load() ([]map[string]any, error) {
	data, err := fileio.LoadListDict(c.File)
	if errors.Is(err, os.ErrNotExist) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	point := c.point()
	remain := []map[string]any{}
	for _, item := range data {
		if cacheTime(item) >= point {
			remain = append(remain, item)
		}
	}
	return remain, nil
}

func (c ListCache) Add(item map[string]any) error {
	return c.Save([]map[string]any{item})
}

// Save stamps items and appends them to the unexpired items on disk.
func (c ListCache) Save(items []map[string]any) error {
	cached, err := c.Load()
	if err != nil {
		return err
	}
	now := c.now().Unix()
	for _, item := range items {
		item[CacheTimeKey] = now
		cached = append(cached, item)
	}
	return fileio.SaveListDict(c.File, cached)
}

// DictCache is ListCache keyed by string.
type DictCache struct {
	File string
	TTL  time.Duration
	now  func() time.Time
}

func NewDictCache(file string, ttl time.Duration) DictCache {
	return DictCache{File: file, TTL: ttl, now: time.Now}
}

func (c DictCache) Load() (map[string]map[string]any, error) {
	data, err := fileio.LoadJSON[map[string]map[string]any](c.File)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	point := c.now().Add(-c.TTL).Unix()
	remain := map[string]map[string]any{}
	for key, item := range data {
		if cacheTime(item) >= point {
			remain[key] = item
		}
	}
	return remain, nil
}

func (c DictCache) Add(key string, item map[string]any) error {
	return c.Save(map[string]map[string]any{key: item})
}

func (c DictCache) Save(items map[string]map[string]any) error {
	cached, err := c.Load()
	if err != nil {
		return err
	}
	now := c.now().Unix()
	for key, item := range items {
		item[CacheTimeKey] = now
		cached[key] = item
	}
	return fileio.SaveJSON(c.File, cached)
}
