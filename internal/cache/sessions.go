package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Sessions hands out the SessionStore belonging to a session id.
type Sessions interface {
	Store(sessionID string) SessionStore
}

// LRUSessions keeps a bounded number of in-memory sessions; the least recently
// used session is dropped when the bound is reached.
type LRUSessions struct {
	stores *lru.Cache[string, *MemoryStore]
}

// NewLRUSessions returns an LRUSessions holding at most size sessions.
func NewLRUSessions(size int) (*LRUSessions, error) {
	stores, err := lru.New[string, *MemoryStore](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &LRUSessions{stores: stores}, nil
}

// Store implements Sessions.
func (s *LRUSessions) Store(sessionID string) SessionStore {
	if store, ok := s.stores.Get(sessionID); ok {
		return store
	}
	store := NewMemoryStore()
	// A concurrent caller may have created the session meanwhile.
	if prev, ok, _ := s.stores.PeekOrAdd(sessionID, store); ok {
		return prev
	}
	return store
}

// Len reports the number of live sessions.
func (s *LRUSessions) Len() int {
	return s.stores.Len()
}

// RedisSessions stores each session under its own key prefix.
type RedisSessions struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisSessions returns sessions backed by client whose keys expire after ttl.
func NewRedisSessions(client redis.Cmdable, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

// Store implements Sessions.
func (s *RedisSessions) Store(sessionID string) SessionStore {
	return NewRedisStore(s.client, "storefront:session:"+sessionID+":", s.ttl)
}
