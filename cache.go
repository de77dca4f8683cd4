package auth

import (
	"context"
	"sync"
	"time"
)

// DecodedPayloadCache is a time-bounded store for fully resolved
// authorization contexts. It is an optimization only: the lifecycle
// manager must stay correct with an empty cache, so implementations
// degrade misbehavior to a miss instead of surfacing errors from Get.
type DecodedPayloadCache interface {
	// Get returns the cached payload, or (nil, false) on miss or
	// expired entry.
	Get(ctx context.Context, key string) (*TokenPayload, bool)

	// Save stores the payload until expiredAt. An entry must never
	// outlive the token it represents.
	Save(ctx context.Context, key string, payload *TokenPayload, expiredAt time.Time) error
}

// MemoryDecodedPayloadCache is the in-process implementation. Expired
// entries are evicted lazily on read.
type MemoryDecodedPayloadCache struct {
	mu      sync.RWMutex
	entries map[string]*payloadEntry
}

type payloadEntry struct {
	payload   *TokenPayload
	expiredAt time.Time
}

var _ DecodedPayloadCache = (*MemoryDecodedPayloadCache)(nil)

func NewMemoryDecodedPayloadCache() *MemoryDecodedPayloadCache {
	return &MemoryDecodedPayloadCache{
		entries: make(map[string]*payloadEntry),
	}
}

func (c *MemoryDecodedPayloadCache) Get(_ context.Context, key string) (*TokenPayload, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiredAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	return entry.payload.Clone(), true
}

func (c *MemoryDecodedPayloadCache) Save(_ context.Context, key string, payload *TokenPayload, expiredAt time.Time) error {
	if payload == nil || !expiredAt.After(time.Now()) {
		return nil
	}

	c.mu.Lock()
	c.entries[key] = &payloadEntry{
		payload:   payload.Clone(),
		expiredAt: expiredAt,
	}
	c.mu.Unlock()

	return nil
}

// Len reports the number of physical entries, expired or not
func (c *MemoryDecodedPayloadCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
