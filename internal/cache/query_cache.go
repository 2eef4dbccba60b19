package cache

import (
	"context"

	json "github.com/goccy/go-json"
)

// QueryCacheKey is the session key holding all cached query results.
const QueryCacheKey = "query-cache"

// QueryCache stores query results as one JSON object under QueryCacheKey in a
// SessionStore. Writes are read-modify-write without locking across the
// session, so two overlapping writers may lose one entry.
type QueryCache struct {
	store SessionStore
}

// NewQueryCache wraps store.
func NewQueryCache(store SessionStore) *QueryCache {
	return &QueryCache{store: store}
}

// Get returns the data cached under key.
func (c *QueryCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, false, err
	}
	data, ok := entries[key]
	return data, ok, nil
}

// Put stores data under key.
func (c *QueryCache) Put(ctx context.Context, key string, data json.RawMessage) error {
	entries, err := c.load(ctx)
	if err != nil {
		return err
	}
	entries[key] = data
	buf, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, QueryCacheKey, string(buf))
}

// load reads the cache object. An unreadable object is treated as empty and
// overwritten on the next Put.
func (c *QueryCache) load(ctx context.Context) (map[string]json.RawMessage, error) {
	raw, ok, err := c.store.Get(ctx, QueryCacheKey)
	if err != nil {
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if !ok || raw == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || entries == nil {
		return map[string]json.RawMessage{}, nil
	}
	return entries, nil
}
